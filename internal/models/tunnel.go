package models

import (
	"encoding/json"
	"time"
)

/**
 * TunnelSession describes one public tunnel bound to a local port
 * @property {string} name - Application name the tunnel fronts
 * @property {int} localPort - Local port the tunnel forwards to
 * @property {string} publicUrl - Public URL assigned by the provider (empty until discovered)
 * @property {string} status - Session status: running/exited/stopped/error
 * @property {int} pid - PID of the tunnel subprocess (0 for adopted sessions)
 * @property {bool} adopted - True when an already-running tunnel was reused instead of spawned
 * @property {time.Time} startedAt - Session start time
 */
type TunnelSession struct {
	Name      string    `json:"name"`
	LocalPort int       `json:"localPort"`
	PublicURL string    `json:"publicUrl"`
	Status    RunStatus `json:"status"`
	Pid       int       `json:"pid"`
	Adopted   bool      `json:"adopted"`
	StartedAt time.Time `json:"startedAt"`
}

func (s *TunnelSession) ToJSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SessionDetail is the single-session API payload: the session plus the
// tunnel subprocess state when the keeper spawned one (nil for adopted
// or cache-restored sessions).
type SessionDetail struct {
	TunnelSession
	Process *ProcessDetail `json:"process,omitempty"`
}

// TunnelResponse defines tunnel operation success response format
type TunnelResponse struct {
	AppName string `json:"appName"` // application name
	Status  string `json:"status"`  // operation status
	Message string `json:"message"` // response message
}
