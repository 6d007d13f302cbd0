package services

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"bridge-keeper/internal/config"
	"bridge-keeper/internal/models"
	"bridge-keeper/internal/ngrok"
	"bridge-keeper/internal/proc"
)

// fakeProvider simulates a running tunnel provider: an admin API reporting
// one tunnel whose public URL points at a local health backend.
func fakeProvider(t *testing.T, backendHealthy bool) (adminURL string, localPort int, publicURL string) {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !backendHealthy {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>interstitial</html>"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","bloomberg":{"available":true}}`))
	}))
	t.Cleanup(backend.Close)

	localPort = backend.Listener.Addr().(*net.TCPAddr).Port
	publicURL = backend.URL

	admin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tun := ngrok.Tunnel{Name: "command_line", PublicURL: publicURL, Proto: "http"}
		tun.Config.Addr = "http://localhost:" + strconv.Itoa(localPort)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ngrok.TunnelsResponse{Tunnels: []ngrok.Tunnel{tun}})
	}))
	t.Cleanup(admin.Close)

	return admin.URL, localPort, publicURL
}

func newTestManager(t *testing.T, adminURL string) *TunnelManager {
	t.Helper()
	tm := NewTunnelManager(ngrok.NewClientWithURL(adminURL))
	tm.cacheDir = t.TempDir()
	return tm
}

func TestEnsureTunnelAdoptsHealthyTunnel(t *testing.T) {
	adminURL, localPort, publicURL := fakeProvider(t, true)
	tm := newTestManager(t, adminURL)

	si, err := tm.EnsureTunnel(context.Background(), "data-bridge", localPort)
	if err != nil {
		t.Fatalf("EnsureTunnel failed: %v", err)
	}
	if !si.Adopted {
		t.Error("a healthy existing tunnel must be adopted, not replaced")
	}
	if si.PublicURL != publicURL {
		t.Errorf("adopted URL = %s, want %s", si.PublicURL, publicURL)
	}
	if si.Status != models.StatusRunning {
		t.Errorf("adopted session status = %s, want %s", si.Status, models.StatusRunning)
	}
	if si.proc != nil {
		t.Error("adoption must not spawn a provider subprocess")
	}
	if si.Done() != nil {
		t.Error("adopted sessions have no process-done channel")
	}
}

func TestEnsureTunnelIsIdempotent(t *testing.T) {
	adminURL, localPort, _ := fakeProvider(t, true)
	tm := newTestManager(t, adminURL)

	first, err := tm.EnsureTunnel(context.Background(), "data-bridge", localPort)
	if err != nil {
		t.Fatalf("first EnsureTunnel failed: %v", err)
	}
	second, err := tm.EnsureTunnel(context.Background(), "data-bridge", localPort)
	if err != nil {
		t.Fatalf("second EnsureTunnel failed: %v", err)
	}
	if first != second {
		t.Error("repeated EnsureTunnel for the same port must reuse the session")
	}
	if len(tm.ListSessions()) != 1 {
		t.Errorf("expected 1 session, got %d", len(tm.ListSessions()))
	}
}

func TestEnsureTunnelRejectsUnhealthyTunnel(t *testing.T) {
	adminURL, localPort, _ := fakeProvider(t, false)
	tm := newTestManager(t, adminURL)

	// an interstitial-serving tunnel must not be adopted; the replacement
	// start then fails because the provider binary does not exist here
	savedCmd := config.Config.Tunnel.Command
	savedArgs := config.Config.Tunnel.Args
	config.Config.Tunnel.Command = filepath.Join(t.TempDir(), "no-such-provider")
	config.Config.Tunnel.Args = []string{"http", "{{.LocalPort}}"}
	t.Cleanup(func() {
		config.Config.Tunnel.Command = savedCmd
		config.Config.Tunnel.Args = savedArgs
	})

	si, err := tm.EnsureTunnel(context.Background(), "data-bridge", localPort)
	if err == nil {
		t.Fatalf("expected an error, got session %+v", si)
	}
	if session := tm.getSession("data-bridge", localPort); session != nil && session.Adopted {
		t.Error("an unhealthy tunnel must never be adopted")
	}
}

func TestSessionCacheRoundTrip(t *testing.T) {
	adminURL, localPort, publicURL := fakeProvider(t, true)
	tm := newTestManager(t, adminURL)

	si, err := tm.EnsureTunnel(context.Background(), "data-bridge", localPort)
	if err != nil {
		t.Fatalf("EnsureTunnel failed: %v", err)
	}

	fresh := NewTunnelManager(ngrok.NewClientWithURL(adminURL))
	fresh.cacheDir = tm.cacheDir
	if err := fresh.loadCache(); err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	restored := fresh.getSession("data-bridge", localPort)
	if restored == nil {
		t.Fatal("expected the cached session to be restored")
	}
	if restored.PublicURL != si.PublicURL || restored.PublicURL != publicURL {
		t.Errorf("restored URL = %s, want %s", restored.PublicURL, publicURL)
	}
}

func TestLoadCacheMarksDeadProcessExited(t *testing.T) {
	tm := NewTunnelManager(ngrok.NewClientWithURL("http://127.0.0.1:1"))
	tm.cacheDir = t.TempDir()

	stale := models.TunnelSession{
		Name:      "data-bridge",
		LocalPort: 5000,
		PublicURL: "https://stale.ngrok-free.app",
		Status:    models.StatusRunning,
		Pid:       99999999,
	}
	data, err := json.Marshal(stale)
	if err != nil {
		t.Fatal(err)
	}
	fname := filepath.Join(tm.cacheDir, "data-bridge-5000.json")
	if err := os.WriteFile(fname, data, 0644); err != nil {
		t.Fatal(err)
	}

	if err := tm.loadCache(); err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	restored := tm.getSession("data-bridge", 5000)
	if restored == nil {
		t.Fatal("expected the stale session to be loaded")
	}
	if restored.Status != models.StatusExited {
		t.Errorf("stale session status = %s, want %s", restored.Status, models.StatusExited)
	}
	if restored.Pid != 0 {
		t.Errorf("stale session PID = %d, want 0", restored.Pid)
	}
}

func TestCloseTunnelAdoptedLeavesProcessAlone(t *testing.T) {
	adminURL, localPort, _ := fakeProvider(t, true)
	tm := newTestManager(t, adminURL)

	if _, err := tm.EnsureTunnel(context.Background(), "data-bridge", localPort); err != nil {
		t.Fatalf("EnsureTunnel failed: %v", err)
	}
	if err := tm.CloseTunnel("data-bridge", localPort); err != nil {
		t.Fatalf("CloseTunnel failed: %v", err)
	}
	session := tm.getSession("data-bridge", localPort)
	if session.Status != models.StatusStopped {
		t.Errorf("closed session status = %s, want %s", session.Status, models.StatusStopped)
	}
	if _, err := os.Stat(filepath.Join(tm.cacheDir, "data-bridge-"+strconv.Itoa(localPort)+".json")); !os.IsNotExist(err) {
		t.Error("closing a tunnel must remove its cache file")
	}
}

func TestGetSessionInfoIncludesProcessDetail(t *testing.T) {
	tm := newTestManager(t, "http://127.0.0.1:1")
	si := tm.createSession("data-bridge", 5000)
	si.proc = proc.NewProcessInstance("tunnel data-bridge", "ngrok", "ngrok", []string{"http", "5000"})

	detail, err := tm.GetSessionInfo("data-bridge", 5000)
	if err != nil {
		t.Fatalf("GetSessionInfo failed: %v", err)
	}
	if detail.Process == nil {
		t.Fatal("expected subprocess detail for a spawned session")
	}
	if detail.Process.Command != "ngrok" {
		t.Errorf("process command = %q, want %q", detail.Process.Command, "ngrok")
	}
}

func TestGetSessionInfoAdoptedHasNoProcess(t *testing.T) {
	adminURL, localPort, _ := fakeProvider(t, true)
	tm := newTestManager(t, adminURL)

	if _, err := tm.EnsureTunnel(context.Background(), "data-bridge", localPort); err != nil {
		t.Fatalf("EnsureTunnel failed: %v", err)
	}
	detail, err := tm.GetSessionInfo("data-bridge", localPort)
	if err != nil {
		t.Fatalf("GetSessionInfo failed: %v", err)
	}
	if detail.Process != nil {
		t.Error("adopted sessions have no keeper-owned subprocess")
	}
}

func TestListSessionsFixesUpDeadProcess(t *testing.T) {
	tm := newTestManager(t, "http://127.0.0.1:1")
	si := tm.createSession("data-bridge", 5000)
	si.proc = proc.NewProcessInstance("tunnel data-bridge", "ngrok", "ngrok", []string{"http", "5000"})
	si.Status = models.StatusRunning
	si.Pid = 99999999

	sessions := tm.ListSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Status != models.StatusExited {
		t.Errorf("dead-process session status = %s, want %s", sessions[0].Status, models.StatusExited)
	}
	if sessions[0].Pid != 0 {
		t.Errorf("dead-process session PID = %d, want 0", sessions[0].Pid)
	}
}

func TestCloseTunnelUnknownSession(t *testing.T) {
	tm := newTestManager(t, "http://127.0.0.1:1")
	if err := tm.CloseTunnel("data-bridge", 5000); err == nil {
		t.Error("closing an unknown session must return an error")
	}
}
