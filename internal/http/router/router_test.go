package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type probeModule struct{}

func (probeModule) Name() string { return "probe" }

func (probeModule) RegisterRoutes(rc *apphttp.RouterContext) {
	rc.Operator.GET("/probe", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestApp(health apphttp.HealthChecker) *apphttp.App {
	return &apphttp.App{
		Config:  &config.Config{CORSOrigins: []string{"http://localhost:3000"}, DispatchSecret: "s3cret"},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{probeModule{}},
	}
}

func do(engine *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	engine := New(newTestApp(pingFunc(func(context.Context) error { return nil })))
	if rec := do(engine, http.MethodGet, "/api/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(engine, http.MethodGet, "/api/ready", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}

	down := New(newTestApp(pingFunc(func(context.Context) error { return errors.New("down") })))
	if rec := do(down, http.MethodGet, "/api/ready", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %d", rec.Code)
	}
}

func TestOperatorGroupRequiresSecret(t *testing.T) {
	engine := New(newTestApp(nil))

	if rec := do(engine, http.MethodGet, "/api/v1/probe", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec := do(engine, http.MethodGet, "/api/v1/probe", map[string]string{"Authorization": "Bearer s3cret"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}
