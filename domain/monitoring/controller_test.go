package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akeren/waitlist-api/config/router"
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type stubCache struct{ err error }

func (s stubCache) Ping(context.Context) error { return s.err }

func newTestEngine(t *testing.T, cache Cache) *gin.Engine {
	t.Helper()
	t.Setenv("METRICS_ENABLED", "false")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.StatusCheck{}))

	appLogger := log.NewLogger(io.Discard, slog.LevelError)
	rs := router.CreateRouterService(appLogger, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
	})
	rs.MountController(NewMonitoringControllerFactory(db, appLogger, cache).CreateController())
	return rs.GetEngine()
}

func serve(engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestMonitor_Liveness(t *testing.T) {
	engine := newTestEngine(t, nil)

	for _, path := range []string{"/api", "/api/"} {
		w, env := serve(engine, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, `"Waitlist API is operational."`, string(env.Data), path)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name  string
		cache Cache
		want  int
	}{
		{"no cache", nil, 0},
		{"healthy cache", stubCache{}, 1},
		{"broken cache", stubCache{err: errors.New("down")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, tt.cache)

			w, env := serve(engine, http.MethodGet, "/api/health", "")
			require.Equal(t, http.StatusOK, w.Code)

			var status HealthStatus
			require.NoError(t, json.Unmarshal(env.Data, &status))
			assert.Equal(t, 1, status.Database)
			assert.Equal(t, tt.want, status.Cache)
		})
	}
}

func TestStatusChecks_CreateAndList(t *testing.T) {
	engine := newTestEngine(t, nil)

	w, _ := serve(engine, http.MethodPost, "/api/status", `{"client_name":"uptime-bot"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := serve(engine, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var checks []StatusCheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &checks))
	require.Len(t, checks, 1)
	assert.Equal(t, "uptime-bot", checks[0].ClientName)
	assert.NotEmpty(t, checks[0].ID)
}

func TestStatusChecks_RequiresClientName(t *testing.T) {
	engine := newTestEngine(t, nil)

	w, _ := serve(engine, http.MethodPost, "/api/status", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = serve(engine, http.MethodPost, "/api/status", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
