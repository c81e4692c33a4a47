// Package ice fetches short-lived network-relay (STUN/TURN) server
// descriptors from an external credential provider. The provider is called
// once per request with no retry; a failure is surfaced to the HTTP caller
// as a 500-class error. When no provider is configured, a static STUN list
// is served instead.
package ice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Server is one network-relay server descriptor in the shape WebRTC clients
// expect inside an RTCConfiguration.
type Server struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// Config holds the credential provider settings.
type Config struct {
	ProviderURL string        // empty: serve the static STUN list
	APIKey      string        // bearer token for the provider, optional
	Timeout     time.Duration // per-request timeout
}

// DefaultConfig returns a Config with a 5s provider timeout and no provider.
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second}
}

// defaultServers is the static fallback used when no provider is configured.
var defaultServers = []Server{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
	{URLs: []string{"stun:stun1.l.google.com:19302"}},
}

// Client requests relay server descriptors from the credential provider.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a Client for the given provider config.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}
}

// Servers returns the relay server list. With a provider configured it
// issues a single request and decodes the provider's {"iceServers": [...]}
// response; any failure is returned to the caller unretried.
func (c *Client) Servers(ctx context.Context) ([]Server, error) {
	if c.config.ProviderURL == "" {
		return defaultServers, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ProviderURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ice: build provider request: %w", err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ice: provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ice: provider returned status %d", resp.StatusCode)
	}

	var body struct {
		IceServers []Server `json:"iceServers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ice: decode provider response: %w", err)
	}
	if len(body.IceServers) == 0 {
		return nil, fmt.Errorf("ice: provider returned no servers")
	}
	return body.IceServers, nil
}

// Handler returns the GET /ice handler serving {"iceServers": [...]} or a
// 500 on provider failure.
func (c *Client) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servers, err := c.Servers(r.Context())
		if err != nil {
			http.Error(w, `{"error":"ice servers unavailable"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			IceServers []Server `json:"iceServers"`
		}{IceServers: servers})
	}
}
