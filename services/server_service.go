package services

import (
	"context"
	"time"

	"bridge-keeper/internal/config"
	"bridge-keeper/internal/env"
	"bridge-keeper/internal/models"
	"bridge-keeper/internal/utils"
)

/**
 * Server ties the keeper's managers together for one run
 * @property {*TunnelManager} tm - Tunnel session lifecycle
 * @property {*HealthMonitor} hm - Public endpoint monitoring
 * @property {*Publisher} pub - URL fan-out to dependent projects
 */
type Server struct {
	startTime   time.Time
	tm          *TunnelManager
	hm          *HealthMonitor
	pub         *Publisher
	session     *SessionInstance
	publication *models.PublicationResult
}

var server *Server

func GetServer() *Server {
	if server != nil {
		return server
	}
	server = &Server{
		startTime: time.Now(),
		tm:        GetTunnelManager(),
		hm:        NewHealthMonitor(),
		pub:       NewPublisher(),
	}
	return server
}

func (s *Server) Tunnels() *TunnelManager { return s.tm }

func (s *Server) Monitor() *HealthMonitor { return s.hm }

func (s *Server) Publisher() *Publisher { return s.pub }

/**
 * Run one keeper startup: ensure the tunnel, then publish its URL
 * @param {context.Context} ctx - Context for cancellation
 * @returns {(*SessionInstance, *models.PublicationResult, error)} Session and
 *          publication outcomes; error only when the tunnel cannot be ensured
 * @description
 * - Tunnel discovery failure is terminal for the run
 * - Publication failures are not: the result records per-target outcomes
 */
func (s *Server) RunOnce(ctx context.Context) (*SessionInstance, *models.PublicationResult, error) {
	cfg := config.Config.Bridge
	si, err := s.tm.EnsureTunnel(ctx, cfg.Name, cfg.LocalPort)
	if err != nil {
		return nil, nil, err
	}
	s.session = si
	s.publication = s.pub.Publish(ctx, si.PublicURL)
	return si, s.publication, nil
}

// MonitorSession blocks in the health monitor loop until the tunnel
// subprocess exits or the context is cancelled.
func (s *Server) MonitorSession(ctx context.Context, si *SessionInstance) {
	s.hm.MonitorLoop(ctx, healthURL(si.PublicURL), si.Done())
}

/**
 * GetHealthz builds the keeper's own health payload
 * @returns {models.HealthResponse} Version, uptime and key counters
 */
func (s *Server) GetHealthz() models.HealthResponse {
	return models.HealthResponse{
		Version:   utils.SoftwareVer,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests:    GetTotalRequestCount(),
			ErrorRequests:    GetTotalErrorCount(),
			HealthChecks:     GetHealthCheckCount(),
			FailedChecks:     GetFailedCheckCount(),
			PublishedTargets: GetPublishedCount(),
		},
	}
}

// GetState builds the status snapshot served on the local API.
func (s *Server) GetState() models.ServerState {
	state := models.ServerState{
		StartTime:   s.startTime,
		Health:      s.hm.Status(),
		Publication: s.publication,
		Env: models.EnvConfig{
			Daemon:     env.Daemon,
			ListenPort: env.ListenPort,
			Version:    utils.SoftwareVer,
			KeeperDir:  env.KeeperDir,
		},
	}
	if s.session != nil {
		state.Session = &s.session.TunnelSession
	}
	return state
}
