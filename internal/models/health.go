package models

import "time"

// BridgeBloomberg reports the bridge's upstream terminal connection.
type BridgeBloomberg struct {
	Available bool `json:"available"`
}

// BridgeHealth is the body returned by the data bridge's /health endpoint.
// Status is "ok" when the bridge is serving and its upstream is connected,
// "unavailable" or "error" otherwise. Bloomberg is optional.
type BridgeHealth struct {
	Status    string           `json:"status"`
	Bloomberg *BridgeBloomberg `json:"bloomberg,omitempty"`
}

/**
 * HealthStatus is the monitor's view of the tunnel, updated in place each cycle
 * @property {time.Time} checkedAt - Time of the last probe
 * @property {bool} reachable - Result of the last probe
 * @property {int} consecutiveFailures - Failed probes since the last success, reset to 0 on any success
 * @property {string} lastBackendStatus - Backend's self-reported status field, empty until first success
 * @property {*bool} bloombergAvailable - Upstream availability flag, nil when the backend omits it
 */
type HealthStatus struct {
	CheckedAt           time.Time `json:"checkedAt"`
	Reachable           bool      `json:"reachable"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastBackendStatus   string    `json:"lastBackendStatus,omitempty"`
	BloombergAvailable  *bool     `json:"bloombergAvailable,omitempty"`
}

// HealthResponse 健康检查响应结构
// @Description keeper self health check API response
type HealthResponse struct {
	Version   string  `json:"version" example:"1.0.0"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string  `json:"status" example:"UP"`
	Uptime    string  `json:"uptime" example:"1h30m45s"`
	Metrics   Metrics `json:"metrics"`
}

// Metrics 关键指标结构
// @Description key keeper counters exposed on the health endpoint
type Metrics struct {
	TotalRequests    int64 `json:"totalRequests" example:"1000"`
	ErrorRequests    int64 `json:"errorRequests" example:"5"`
	HealthChecks     int64 `json:"healthChecks" example:"120"`
	FailedChecks     int64 `json:"failedChecks" example:"2"`
	PublishedTargets int64 `json:"publishedTargets" example:"2"`
}
