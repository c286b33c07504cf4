package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startRelay(t, relayConfig())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "running") {
		t.Errorf("body = %q", body)
	}
}

func TestTestPageServesHTML(t *testing.T) {
	ts, _ := startRelay(t, relayConfig())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	if err != nil {
		t.Fatalf("GET /test: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/html" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestWebSocketEndpointRejectsPost(t *testing.T) {
	ts, _ := startRelay(t, relayConfig())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ws/general", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /ws/general: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestOriginPolicyNormalization(t *testing.T) {
	p := newOriginPolicy([]string{" HTTPS://Chat.Example.COM ", "not a url", ""}, testLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://chat.example.com")
	if !p.check(r) {
		t.Error("normalized origin was not allowed")
	}

	r.Header.Set("Origin", "https://other.example.com")
	if p.check(r) {
		t.Error("unlisted origin was allowed")
	}

	r.Header.Del("Origin")
	if p.check(r) {
		t.Error("request without Origin header was allowed")
	}
}

func TestOriginPolicyWildcard(t *testing.T) {
	p := newOriginPolicy([]string{"*"}, testLogger())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anything.example.com")
	if !p.check(r) {
		t.Error("wildcard policy rejected an origin")
	}
}
