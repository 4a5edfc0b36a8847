package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/sqless-io/sqless-engine/pkg/config"
)

func TestHealth(t *testing.T) {
	handler := NewHealthHandler(&config.Config{Version: "test", Env: "local"}, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body %q, got %q", "ok", rec.Body.String())
	}
}

func TestPing(t *testing.T) {
	handler := NewHealthHandler(&config.Config{Version: "1.2.3", Env: "local"}, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response PingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status ok, got %q", response.Status)
	}
	if response.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", response.Version)
	}
	if response.Service != "sqless-engine" {
		t.Errorf("expected service sqless-engine, got %q", response.Service)
	}
}
