package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"bridge-keeper/internal/config"
	"bridge-keeper/internal/env"
	"bridge-keeper/internal/logger"
	"bridge-keeper/internal/models"
	"bridge-keeper/internal/ngrok"
	"bridge-keeper/internal/proc"
	"bridge-keeper/internal/utils"
)

// TunnelArgs are the values substituted into the provider command templates.
type TunnelArgs struct {
	LocalPort   int
	AdminPort   int
	ProcessName string
	ProcessPath string
}

type SessionInstance struct {
	models.TunnelSession
	proc *proc.ProcessInstance
}

/**
 * TunnelManager owns tunnel sessions for local ports
 * @property {string} cacheDir - Directory holding per-session JSON cache files
 * @description
 * - Guarantees at most one session per local port: an existing healthy
 *   tunnel is adopted instead of spawning a second provider process
 * - The detect-or-start sequence is advisory, not atomic; two keepers
 *   racing on one machine is an accepted limitation
 */
type TunnelManager struct {
	cacheDir string
	sessions []*SessionInstance
	client   *ngrok.Client
	probe    *http.Client
}

var tunnelManager *TunnelManager

/**
 * Get singleton instance of TunnelManager
 * @returns {*TunnelManager} Returns the singleton TunnelManager instance
 * @description
 * - Initializes the manager with the configured admin API client and
 *   the session cache directory, then loads cached sessions
 */
func GetTunnelManager() *TunnelManager {
	if tunnelManager != nil {
		return tunnelManager
	}
	tm := NewTunnelManager(ngrok.NewClient(config.Config.Tunnel.AdminPort))
	tm.loadCache()
	tunnelManager = tm
	return tunnelManager
}

// NewTunnelManager builds a manager around the given admin API client.
func NewTunnelManager(client *ngrok.Client) *TunnelManager {
	return &TunnelManager{
		cacheDir: filepath.Join(env.KeeperDir, "cache", "sessions"),
		client:   client,
		probe:    &http.Client{Timeout: time.Duration(config.Config.Bridge.ProbeTimeout) * time.Second},
	}
}

func newSession(name string, port int) *SessionInstance {
	return &SessionInstance{
		TunnelSession: models.TunnelSession{
			Name:      name,
			LocalPort: port,
			Status:    models.StatusStopped,
			StartedAt: time.Now(),
		},
	}
}

// getTitle formats a session identity for logs: {name}:{localPort}.
func (si *SessionInstance) getTitle() string {
	return fmt.Sprintf("%s:%d", si.Name, si.LocalPort)
}

/**
 * Done returns a channel closed when the tunnel subprocess exits
 * @returns {<-chan struct{}} Nil for adopted sessions; a nil channel never fires
 */
func (si *SessionInstance) Done() <-chan struct{} {
	if si.proc == nil {
		return nil
	}
	return si.proc.Done()
}

func (si *SessionInstance) getCacheFname(cacheDir string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%s-%d.json", si.Name, si.LocalPort))
}

/**
 * Save session state to its cache file
 * @description
 * - Serializes the session to JSON under the cache directory
 * - Failures are logged, not propagated: the cache is a convenience for
 *   later list/stop invocations, never required for correctness
 */
func (tm *TunnelManager) saveSession(si *SessionInstance) error {
	err := func() error {
		if err := os.MkdirAll(tm.cacheDir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
		data, err := si.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to serialize session info: %w", err)
		}
		if err := os.WriteFile(si.getCacheFname(tm.cacheDir), []byte(data), 0644); err != nil {
			return fmt.Errorf("failed to write session info file: %w", err)
		}
		return nil
	}()
	if err != nil {
		logger.Errorf("Save session failed: %v", err)
	}
	return err
}

func (tm *TunnelManager) cleanSession(si *SessionInstance) error {
	filePath := si.getCacheFname(tm.cacheDir)
	if _, err := os.Stat(filePath); err == nil {
		if err := os.Remove(filePath); err != nil {
			logger.Errorf("Failed to delete cache file: %v", err)
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
	}
	return nil
}

/**
 * Load cached sessions from the cache directory
 * @description
 * - Sessions whose recorded PID is still alive come back as running
 * - Stale entries (dead PID) are marked exited
 * - Individual unreadable files are skipped silently
 */
func (tm *TunnelManager) loadCache() error {
	files, err := os.ReadDir(tm.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read session cache directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tm.cacheDir, file.Name()))
		if err != nil {
			continue
		}
		var cached SessionInstance
		if err := json.Unmarshal(data, &cached); err != nil {
			continue
		}
		if cached.Pid > 0 {
			if running, err := utils.IsProcessRunning(cached.Pid); err != nil || !running {
				cached.Status = models.StatusExited
				cached.Pid = 0
			}
		}
		tm.sessions = append(tm.sessions, &cached)
		logger.Infof("Loaded session (%s, PID:%d) from cache", cached.getTitle(), cached.Pid)
	}
	return nil
}

/**
 * Get session by application name and port
 * @param {string} appName - Application name to search for
 * @param {int} port - Port number to match (0 to match any port)
 * @returns {*SessionInstance} Returns found session or nil
 */
func (tm *TunnelManager) getSession(appName string, port int) *SessionInstance {
	for _, si := range tm.sessions {
		if si.Name != appName {
			continue
		}
		if port != 0 && si.LocalPort != port {
			continue
		}
		return si
	}
	return nil
}

func (tm *TunnelManager) createSession(appName string, port int) *SessionInstance {
	for i, si := range tm.sessions {
		if si.Name == appName && si.LocalPort == port {
			return tm.sessions[i]
		}
	}
	si := newSession(appName, port)
	tm.sessions = append(tm.sessions, si)
	return si
}

// healthURL joins the public URL with the bridge's health path.
func healthURL(publicURL string) string {
	return publicURL + config.Config.Bridge.HealthPath
}

/**
 * Ensure exactly one healthy public tunnel exists for the local port
 * @param {context.Context} ctx - Context for cancellation
 * @param {string} appName - Application name the tunnel fronts
 * @param {int} port - Local port the tunnel must forward to
 * @returns {(*SessionInstance, error)} Session with the discovered public URL
 * @description
 * - Queries the provider's admin API for a tunnel already bound to the port
 * - An existing tunnel whose public /health probe succeeds is adopted as-is,
 *   no second provider process is spawned (idempotency guarantee)
 * - Otherwise spawns the provider subprocess and polls the admin API for
 *   the assigned public URL, preferring HTTPS
 * - Discovery exhausting its poll attempts is terminal: the subprocess is
 *   stopped and ngrok.ErrTunnelDiscoveryFailed is propagated
 */
func (tm *TunnelManager) EnsureTunnel(ctx context.Context, appName string, port int) (*SessionInstance, error) {
	if existing, err := tm.client.FindTunnel(ctx, port); err != nil {
		logger.Warnf("Tunnel provider admin API not reachable: %v", err)
	} else if existing != nil {
		if _, err := probeBridge(ctx, tm.probe, healthURL(existing.PublicURL)); err == nil {
			logger.Infof("Adopting existing healthy tunnel %s for port %d", existing.PublicURL, port)
			si := tm.createSession(appName, port)
			si.PublicURL = existing.PublicURL
			si.Status = models.StatusRunning
			si.Adopted = true
			si.StartedAt = time.Now()
			tm.saveSession(si)
			return si, nil
		} else {
			logger.Warnf("Existing tunnel %s is unhealthy, starting a new one: %v", existing.PublicURL, err)
		}
	}

	if utils.CheckPortAvailable(port) {
		logger.Warnf("Nothing is listening on local port %d yet, creating the tunnel anyway", port)
	}

	si := tm.createSession(appName, port)
	if err := tm.spawnTunnel(ctx, si); err != nil {
		return nil, err
	}

	cfg := config.Config.Tunnel
	url, err := tm.client.DiscoverPublicURL(ctx, port,
		cfg.DiscoverAttempts, time.Duration(cfg.DiscoverInterval)*time.Second)
	if err != nil {
		logger.Errorf("Public URL discovery failed for (%s): %v", si.getTitle(), err)
		// don't leave an undiscoverable provider process behind: a retry
		// would find it, fail its health probe and spawn yet another
		si.proc.StopProcess()
		si.Status = models.StatusError
		tm.saveSession(si)
		return nil, err
	}

	si.PublicURL = url
	si.Status = models.StatusRunning
	tm.saveSession(si)
	logger.Infof("Successfully created tunnel (%s) -> %s (PID: %d)", si.getTitle(), si.PublicURL, si.Pid)
	return si, nil
}

/**
 * Start the tunnel provider subprocess for a session
 * @description
 * - Builds the command line from the configured templates
 * - Redirects the child's stdout/stderr to log files for diagnosis
 */
func (tm *TunnelManager) spawnTunnel(ctx context.Context, si *SessionInstance) error {
	cfg := config.Config.Tunnel
	name := cfg.ProcessName
	if runtime.GOOS == "windows" {
		name = fmt.Sprintf("%s.exe", cfg.ProcessName)
	}
	args := TunnelArgs{
		LocalPort:   si.LocalPort,
		AdminPort:   cfg.AdminPort,
		ProcessName: name,
		ProcessPath: filepath.Join(env.KeeperDir, "bin", name),
	}
	command, cmdArgs, err := utils.GetCommandLine(cfg.Command, cfg.Args, args)
	if err != nil {
		logger.Errorf("Tunnel startup settings are incorrect, setting: %+v", cfg)
		return fmt.Errorf("failed to build tunnel command: %w", err)
	}

	si.proc = proc.NewProcessInstance("tunnel "+si.Name, name, command, cmdArgs)
	logDir := filepath.Join(env.KeeperDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err == nil {
		si.proc.SetLogFiles(
			filepath.Join(logDir, fmt.Sprintf("%s-%d.out.log", cfg.ProcessName, si.LocalPort)),
			filepath.Join(logDir, fmt.Sprintf("%s-%d.err.log", cfg.ProcessName, si.LocalPort)),
		)
	}

	si.Status = models.StatusError
	if err := si.proc.StartProcess(ctx); err != nil {
		tm.saveSession(si)
		return err
	}
	si.Status = models.StatusRunning
	si.Pid = si.proc.Pid()
	si.Adopted = false
	si.StartedAt = si.proc.StartTime
	return nil
}

/**
 * Close tunnel for specified application and port
 * @param {string} appName - Application name
 * @param {int} port - Port number
 * @returns {error} Returns error if the session does not exist or the kill fails
 */
func (tm *TunnelManager) CloseTunnel(appName string, port int) error {
	si := tm.getSession(appName, port)
	if si == nil {
		return fmt.Errorf("tunnel [%s:%d] not exist", appName, port)
	}
	if si.Status != models.StatusRunning {
		return nil
	}
	if si.proc != nil {
		if err := si.proc.StopProcess(); err != nil {
			logger.Errorf("Failed to close the tunnel (%s) (PID: %d): %v", si.getTitle(), si.Pid, err)
		}
	} else if si.Pid > 0 {
		// session restored from cache: stop by recorded PID
		if err := utils.KillProcessByPID(si.Pid); err != nil {
			logger.Errorf("Failed to close the tunnel (%s) (PID: %d): %v", si.getTitle(), si.Pid, err)
		}
	} else {
		logger.Infof("Tunnel (%s) was adopted, leaving its process alone", si.getTitle())
	}
	tm.cleanSession(si)

	si.Status = models.StatusStopped
	si.Pid = 0
	si.proc = nil
	return nil
}

// CloseAll stops every running session; used on operator shutdown.
func (tm *TunnelManager) CloseAll() {
	for _, si := range tm.sessions {
		if si.Status != models.StatusRunning {
			continue
		}
		if err := tm.CloseTunnel(si.Name, si.LocalPort); err != nil {
			logger.Errorf("Failed to close tunnel (%s): %v", si.getTitle(), err)
		}
	}
}

/**
 * ListSessions returns session metadata for all managed tunnels
 * @description
 * - Sessions still marked running whose subprocess has died are fixed
 *   up to exited before being returned
 */
func (tm *TunnelManager) ListSessions() []*models.TunnelSession {
	var sessions []*models.TunnelSession
	for _, si := range tm.sessions {
		if si.proc != nil && si.Status == models.StatusRunning && !si.proc.CheckProcess() {
			si.Status = models.StatusExited
			si.Pid = 0
		}
		sessions = append(sessions, &si.TunnelSession)
	}
	return sessions
}

/**
 * Get session information by application name and port
 * @returns {(*models.SessionDetail, error)} Session plus subprocess detail, or error when not found
 */
func (tm *TunnelManager) GetSessionInfo(appName string, port int) (*models.SessionDetail, error) {
	si := tm.getSession(appName, port)
	if si == nil {
		return nil, fmt.Errorf("tunnel not found for app [%s]", appName)
	}
	detail := &models.SessionDetail{TunnelSession: si.TunnelSession}
	if si.proc != nil {
		d := si.proc.GetDetail()
		detail.Process = &d
	}
	return detail, nil
}
