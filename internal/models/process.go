package models

import "time"

type RunStatus string

const (
	// process is alive
	StatusRunning RunStatus = "running"
	// process exited on its own (normal termination or crash already resolved)
	StatusExited RunStatus = "exited"
	// process failed to start or died in a way the keeper cannot recover
	StatusError RunStatus = "error"
	// process was stopped by the operator
	StatusStopped RunStatus = "stopped"
)

type ProcessDetail struct {
	Title          string    `json:"title"`          // display name
	ProcessName    string    `json:"processName"`    // executable name, used to identify the process
	Command        string    `json:"command"`        // start command
	Args           []string  `json:"args"`           // command arguments
	WorkDir        string    `json:"workDir"`        // working directory
	Pid            int       `json:"pid"`            // process id
	Status         RunStatus `json:"status"`         // run status
	StartTime      time.Time `json:"startTime"`      // start time
	LastExitTime   time.Time `json:"lastExitTime"`   // time of last exit
	LastExitReason string    `json:"lastExitReason"` // reason of last exit
}
