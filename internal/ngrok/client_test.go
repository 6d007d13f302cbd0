package ngrok

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func fakeAdminAPI(t *testing.T, tunnels func() []Tunnel) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tunnels", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TunnelsResponse{Tunnels: tunnels(), URI: "/api/tunnels"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func tunnelFor(port int, publicURL string) Tunnel {
	tun := Tunnel{Name: "command_line", PublicURL: publicURL, Proto: "https"}
	tun.Config.Addr = "http://localhost:" + strconv.Itoa(port)
	return tun
}

func TestFindTunnelPrefersHTTPS(t *testing.T) {
	server := fakeAdminAPI(t, func() []Tunnel {
		return []Tunnel{
			tunnelFor(5000, "http://abc123.ngrok-free.app"),
			tunnelFor(5000, "https://abc123.ngrok-free.app"),
			tunnelFor(8080, "https://other.ngrok-free.app"),
		}
	})

	client := NewClientWithURL(server.URL)
	tun, err := client.FindTunnel(context.Background(), 5000)
	if err != nil {
		t.Fatalf("FindTunnel failed: %v", err)
	}
	if tun == nil {
		t.Fatal("expected a tunnel for port 5000, got nil")
	}
	if tun.PublicURL != "https://abc123.ngrok-free.app" {
		t.Errorf("expected the HTTPS tunnel, got %s", tun.PublicURL)
	}
}

func TestFindTunnelFallsBackToHTTP(t *testing.T) {
	server := fakeAdminAPI(t, func() []Tunnel {
		return []Tunnel{tunnelFor(5000, "http://abc123.ngrok-free.app")}
	})

	client := NewClientWithURL(server.URL)
	tun, err := client.FindTunnel(context.Background(), 5000)
	if err != nil {
		t.Fatalf("FindTunnel failed: %v", err)
	}
	if tun == nil || tun.PublicURL != "http://abc123.ngrok-free.app" {
		t.Errorf("expected the HTTP tunnel as fallback, got %+v", tun)
	}
}

func TestFindTunnelNoMatch(t *testing.T) {
	server := fakeAdminAPI(t, func() []Tunnel {
		return []Tunnel{tunnelFor(8080, "https://other.ngrok-free.app")}
	})

	client := NewClientWithURL(server.URL)
	tun, err := client.FindTunnel(context.Background(), 5000)
	if err != nil {
		t.Fatalf("FindTunnel failed: %v", err)
	}
	if tun != nil {
		t.Errorf("expected nil for an unmatched port, got %+v", tun)
	}
}

func TestDiscoverPublicURLEventuallyFinds(t *testing.T) {
	calls := 0
	server := fakeAdminAPI(t, func() []Tunnel {
		calls++
		if calls < 3 {
			return nil
		}
		return []Tunnel{tunnelFor(5000, "https://abc123.ngrok-free.app")}
	})

	client := NewClientWithURL(server.URL)
	url, err := client.DiscoverPublicURL(context.Background(), 5000, 5, time.Millisecond)
	if err != nil {
		t.Fatalf("DiscoverPublicURL failed: %v", err)
	}
	if url != "https://abc123.ngrok-free.app" {
		t.Errorf("unexpected URL: %s", url)
	}
	if calls != 3 {
		t.Errorf("expected 3 admin API polls, got %d", calls)
	}
}

func TestDiscoverPublicURLExhaustsBudget(t *testing.T) {
	calls := 0
	server := fakeAdminAPI(t, func() []Tunnel {
		calls++
		return nil
	})

	client := NewClientWithURL(server.URL)
	_, err := client.DiscoverPublicURL(context.Background(), 5000, 4, time.Millisecond)
	if !errors.Is(err, ErrTunnelDiscoveryFailed) {
		t.Fatalf("expected ErrTunnelDiscoveryFailed, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 polls before giving up, got %d", calls)
	}
}

func TestDiscoverPublicURLRetriesAdminErrors(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tunnels", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TunnelsResponse{
			Tunnels: []Tunnel{tunnelFor(5000, "https://abc123.ngrok-free.app")},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClientWithURL(server.URL)
	url, err := client.DiscoverPublicURL(context.Background(), 5000, 5, time.Millisecond)
	if err != nil {
		t.Fatalf("expected admin errors to be retried, got %v", err)
	}
	if url != "https://abc123.ngrok-free.app" {
		t.Errorf("unexpected URL: %s", url)
	}
}

func TestMatchesPort(t *testing.T) {
	cases := []struct {
		addr string
		port int
		want bool
	}{
		{"http://localhost:5000", 5000, true},
		{"localhost:5000", 5000, true},
		{"http://127.0.0.1:5000", 5000, true},
		{"http://localhost:5000", 8080, false},
		{"localhost", 5000, false},
		{"", 5000, false},
	}
	for _, c := range cases {
		if got := matchesPort(c.addr, c.port); got != c.want {
			t.Errorf("matchesPort(%q, %d) = %v, want %v", c.addr, c.port, got, c.want)
		}
	}
}
