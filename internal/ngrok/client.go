package ngrok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bridge-keeper/internal/logger"
)

// ErrTunnelDiscoveryFailed means the provider never reported a public URL
// within the allotted polls. Terminal: the caller decides whether to retry
// the whole startup.
var ErrTunnelDiscoveryFailed = errors.New("tunnel provider never reported a public URL")

// Tunnel is one entry of the provider's local admin API tunnel list.
type Tunnel struct {
	Name      string `json:"name"`
	ID        string `json:"ID"`
	URI       string `json:"uri"`
	PublicURL string `json:"public_url"`
	Proto     string `json:"proto"`
	Config    struct {
		Addr string `json:"addr"`
	} `json:"config"`
}

// TunnelsResponse is the admin API response for GET /api/tunnels.
type TunnelsResponse struct {
	Tunnels []Tunnel `json:"tunnels"`
	URI     string   `json:"uri"`
}

/**
 * Client talks to the tunnel provider's local admin API
 * @property {string} adminURL - Base URL of the admin API (http://127.0.0.1:<adminPort>)
 */
type Client struct {
	adminURL string
	http     *http.Client
}

func NewClient(adminPort int) *Client {
	return &Client{
		adminURL: fmt.Sprintf("http://127.0.0.1:%d", adminPort),
		http:     &http.Client{Timeout: 2 * time.Second},
	}
}

// NewClientWithURL is used by tests to point the client at a fake admin API.
func NewClientWithURL(adminURL string) *Client {
	return &Client{
		adminURL: strings.TrimRight(adminURL, "/"),
		http:     &http.Client{Timeout: 2 * time.Second},
	}
}

/**
 * List all tunnels known to the provider
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @returns {([]Tunnel, error)} Returns tunnel list and error if any
 */
func (c *Client) ListTunnels(ctx context.Context) ([]Tunnel, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.adminURL+"/api/tunnels", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request tunnel provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Errorf("Tunnel provider admin API returned %d: %s", resp.StatusCode, string(bodyBytes))
		return nil, fmt.Errorf("tunnel provider returned error status code: %d", resp.StatusCode)
	}

	var result TunnelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Tunnels, nil
}

/**
 * Find a tunnel forwarding to the given local port
 * @param {context.Context} ctx - Context for request cancellation and timeout
 * @param {int} localPort - Local port the tunnel must target
 * @returns {(*Tunnel, error)} First matching tunnel, nil when none matches
 * @description
 * - Queries the admin API and compares each tunnel's config.addr port
 * - An HTTPS tunnel is preferred when several front the same port
 */
func (c *Client) FindTunnel(ctx context.Context, localPort int) (*Tunnel, error) {
	tunnels, err := c.ListTunnels(ctx)
	if err != nil {
		return nil, err
	}
	return pickTunnel(tunnels, localPort), nil
}

/**
 * Discover the public URL assigned to the tunnel on the given port
 * @param {context.Context} ctx - Context for cancellation
 * @param {int} localPort - Local port the tunnel forwards to
 * @param {int} attempts - Admin API polls before giving up
 * @param {time.Duration} interval - Delay between polls
 * @returns {(string, error)} Public URL, or ErrTunnelDiscoveryFailed once polls are exhausted
 * @description
 * - The provider registers tunnels asynchronously after the subprocess starts,
 *   so the first polls commonly find nothing
 * - Admin API errors during polling are logged and retried, not returned
 */
func (c *Client) DiscoverPublicURL(ctx context.Context, localPort int, attempts int, interval time.Duration) (string, error) {
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		tunnels, err := c.ListTunnels(ctx)
		if err != nil {
			logger.Debugf("Discovery poll %d/%d failed: %v", i+1, attempts, err)
			continue
		}
		if tun := pickTunnel(tunnels, localPort); tun != nil {
			logger.Infof("Discovered public URL %s for local port %d", tun.PublicURL, localPort)
			return tun.PublicURL, nil
		}
	}
	return "", fmt.Errorf("%w (port %d, %d attempts)", ErrTunnelDiscoveryFailed, localPort, attempts)
}

// pickTunnel selects the tunnel for a local port, preferring an HTTPS URL.
func pickTunnel(tunnels []Tunnel, localPort int) *Tunnel {
	var first *Tunnel
	for i := range tunnels {
		tun := &tunnels[i]
		if tun.PublicURL == "" || !matchesPort(tun.Config.Addr, localPort) {
			continue
		}
		if strings.HasPrefix(tun.PublicURL, "https://") {
			return tun
		}
		if first == nil {
			first = tun
		}
	}
	return first
}

// matchesPort reports whether addr ("http://localhost:5000" or "localhost:5000")
// targets the given port.
func matchesPort(addr string, port int) bool {
	hostport := addr
	if idx := strings.Index(hostport, "://"); idx >= 0 {
		hostport = hostport[idx+3:]
	}
	_, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return false
	}
	return n == port
}
