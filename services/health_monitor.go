package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"bridge-keeper/internal/config"
	"bridge-keeper/internal/logger"
	"bridge-keeper/internal/models"
)

/**
 * Probe the bridge's health endpoint through the public URL
 * @param {context.Context} ctx - Context for request cancellation
 * @param {*http.Client} client - HTTP client carrying the probe timeout
 * @param {string} healthURL - Full URL of the health endpoint
 * @returns {(*models.BridgeHealth, error)} Parsed health body, or error on any failure
 * @description
 * - A probe succeeds only if the response is HTTP 200, declares a JSON
 *   content type and the body is parseable JSON beginning with '{'
 * - An HTML body at 200 (provider interstitial page) is a failure: the
 *   tunnel is reachable but not actually serving the bridge
 */
func probeBridge(ctx context.Context, client *http.Client, healthURL string) (*models.BridgeHealth, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", healthURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// ask the provider to skip its browser interstitial; ngrok honors this
	// for free-tier tunnels, and the header is harmless elsewhere
	req.Header.Set("ngrok-skip-browser-warning", "1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		return nil, fmt.Errorf("health endpoint returned non-JSON content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read health response: %w", err)
	}
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("health endpoint returned non-JSON body")
	}

	var health models.BridgeHealth
	if err := json.Unmarshal([]byte(trimmed), &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

/**
 * HealthMonitor watches the bridge through the tunnel's public endpoint
 * @property {models.HealthStatus} status - Updated in place each cycle
 * @description
 * - Probes are synchronous, sequential and bounded by the probe timeout
 * - Monitoring is passive observation: failures are logged and counted,
 *   never acted upon
 */
type HealthMonitor struct {
	client    *http.Client
	grace     time.Duration
	interval  time.Duration
	threshold int

	mutex  sync.Mutex
	status models.HealthStatus
}

func NewHealthMonitor() *HealthMonitor {
	cfg := config.Config.Bridge
	return &HealthMonitor{
		client:    &http.Client{Timeout: time.Duration(cfg.ProbeTimeout) * time.Second},
		grace:     time.Duration(cfg.GraceDelay) * time.Second,
		interval:  time.Duration(cfg.CheckInterval) * time.Second,
		threshold: cfg.FailureThreshold,
	}
}

// Status returns a copy of the current health record.
func (hm *HealthMonitor) Status() models.HealthStatus {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()
	return hm.status
}

/**
 * Run one health check and update the status record
 * @param {context.Context} ctx - Context for request cancellation
 * @param {string} healthURL - Full URL of the health endpoint
 * @returns {bool} Returns true when the probe was classified as a success
 * @description
 * - On success resets consecutiveFailures to 0 and logs the backend's
 *   self-reported status plus the upstream availability flag when present
 * - On failure increments consecutiveFailures; at the configured threshold
 *   the log severity escalates to flag the tunnel as likely down
 */
func (hm *HealthMonitor) CheckOnce(ctx context.Context, healthURL string) bool {
	health, err := probeBridge(ctx, hm.client, healthURL)

	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.status.CheckedAt = time.Now()
	if err != nil {
		hm.status.Reachable = false
		hm.status.ConsecutiveFailures++
		if hm.status.ConsecutiveFailures >= hm.threshold {
			logger.Errorf("Health check failed (%d consecutive), tunnel likely down: %v",
				hm.status.ConsecutiveFailures, err)
		} else {
			logger.Warnf("Health check failed (%d consecutive): %v",
				hm.status.ConsecutiveFailures, err)
		}
		RecordHealthCheck(false, hm.status.ConsecutiveFailures)
		return false
	}

	hm.status.Reachable = true
	hm.status.ConsecutiveFailures = 0
	hm.status.LastBackendStatus = health.Status
	if health.Bloomberg != nil {
		available := health.Bloomberg.Available
		hm.status.BloombergAvailable = &available
		logger.Infof("Bridge healthy, status: %s, bloomberg available: %v", health.Status, available)
	} else {
		hm.status.BloombergAvailable = nil
		logger.Infof("Bridge healthy, status: %s", health.Status)
	}
	RecordHealthCheck(true, 0)
	return true
}

/**
 * Monitor the tunnel until its subprocess exits
 * @param {context.Context} ctx - Cancelling the context stops the loop
 * @param {string} healthURL - Full URL of the health endpoint
 * @param {<-chan struct{}} done - Closed when the tunnel subprocess exits;
 *                                 nil for adopted tunnels (loop runs until ctx cancel)
 * @description
 * - First probe after a short grace delay so the tunnel can warm up,
 *   then one probe per check interval
 * - Failures never terminate the loop: monitoring assumes an operator
 *   is watching the console, there is no self-healing
 */
func (hm *HealthMonitor) MonitorLoop(ctx context.Context, healthURL string, done <-chan struct{}) {
	logger.Infof("Monitoring %s (first check in %v, then every %v)", healthURL, hm.grace, hm.interval)

	select {
	case <-time.After(hm.grace):
	case <-done:
		logger.Info("Tunnel process exited before first health check")
		return
	case <-ctx.Done():
		return
	}

	hm.CheckOnce(ctx, healthURL)

	ticker := time.NewTicker(hm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hm.CheckOnce(ctx, healthURL)
		case <-done:
			logger.Info("Tunnel process exited, monitor loop finished")
			return
		case <-ctx.Done():
			return
		}
	}
}
