package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/config"
	"github.com/clinicops/clinic/internal/platform/blobstore"
	"github.com/clinicops/clinic/internal/platform/metrics"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(api *echo.Group) {
	api.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
}

func testConfig() *config.Config {
	return &config.Config{
		Env:           "production",
		CORSOrigins:   []string{"http://localhost:3000"},
		JWTSigningKey: "0123456789abcdef0123456789abcdef",
		JWTIssuer:     "clinic",
		BlobBackend:   "memory",
	}
}

func TestNewBlobStore(t *testing.T) {
	cfg := testConfig()
	store, err := newBlobStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*blobstore.Memory); !ok {
		t.Errorf("expected memory store, got %T", store)
	}

	cfg.BlobBackend = "ftp"
	if _, err := newBlobStore(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewEcho_PublicAndProtectedRoutes(t *testing.T) {
	a := &app{metrics: metrics.New(), handlers: []routeRegistrar{pingRoutes{}}}
	e := newEcho(testConfig(), zerolog.Nop(), a)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/v1/ping without token: expected 401, got %d", rec.Code)
	}
}

func TestNewEcho_DevAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "development"
	cfg.JWTSigningKey = ""
	a := &app{metrics: metrics.New(), handlers: []routeRegistrar{pingRoutes{}}}
	e := newEcho(cfg, zerolog.Nop(), a)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 in development, got %d", rec.Code)
	}
}
