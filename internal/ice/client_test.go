package ice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServers_StaticFallbackWithoutProvider(t *testing.T) {
	c := NewClient(DefaultConfig())

	servers, err := c.Servers(context.Background())
	if err != nil {
		t.Fatalf("Servers error: %v", err)
	}
	if len(servers) == 0 {
		t.Fatal("expected a non-empty static server list")
	}
	for _, s := range servers {
		if len(s.URLs) == 0 {
			t.Errorf("server with no urls: %+v", s)
		}
	}
}

func TestServers_ProviderResponse(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("missing bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"iceServers": []map[string]interface{}{
				{"urls": []string{"turn:turn.example.com:3478"}, "username": "u", "credential": "p"},
			},
		})
	}))
	defer provider.Close()

	c := NewClient(Config{ProviderURL: provider.URL, APIKey: "sekrit"})

	servers, err := c.Servers(context.Background())
	if err != nil {
		t.Fatalf("Servers error: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("expected 1 server, got %d", len(servers))
	}
	if servers[0].Username != "u" || servers[0].Credential != "p" {
		t.Errorf("credentials not decoded: %+v", servers[0])
	}
}

func TestServers_ProviderFailureIsNotRetried(t *testing.T) {
	calls := 0
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer provider.Close()

	c := NewClient(Config{ProviderURL: provider.URL})

	if _, err := c.Servers(context.Background()); err == nil {
		t.Fatal("expected an error from a failing provider")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", calls)
	}
}

func TestHandler_ServesIceServers(t *testing.T) {
	c := NewClient(DefaultConfig())

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest(http.MethodGet, "/ice", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		IceServers []Server `json:"iceServers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.IceServers) == 0 {
		t.Error("expected iceServers in response")
	}
}

func TestHandler_ProviderFailureIs500(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer provider.Close()

	c := NewClient(Config{ProviderURL: provider.URL})

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest(http.MethodGet, "/ice", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
