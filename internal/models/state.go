package models

import "time"

type EnvConfig struct {
	Daemon     bool   `json:"daemon"`
	ListenPort int    `json:"listenPort"`
	Version    string `json:"version"`
	KeeperDir  string `json:"keeperDir"`
}

// ServerState is the keeper's status snapshot served by the local API.
type ServerState struct {
	StartTime   time.Time          `json:"startTime"`
	Session     *TunnelSession     `json:"session,omitempty"`
	Health      HealthStatus       `json:"health"`
	Publication *PublicationResult `json:"publication,omitempty"`
	Env         EnvConfig          `json:"env"`
}
