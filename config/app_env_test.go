package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/internal/models"
	"github.com/akeren/waitlist-api/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAutoMigrateAllowed_AllowsDevLikeEnvs(t *testing.T) {
	for _, env := range []string{"", "dev", "development", "local", "test", "testing", "DEV", "  Local  "} {
		assert.NoError(t, ValidateAutoMigrateAllowed(env), "env %q", env)
	}
}

func TestValidateAutoMigrateAllowed_RejectsProdAndOtherEnvs(t *testing.T) {
	for _, env := range []string{"prod", "production", "staging", "preprod", " Production ", "qa"} {
		assert.Error(t, ValidateAutoMigrateAllowed(env), "env %q", env)
	}
}

func TestNewIntakeConfig_Defaults(t *testing.T) {
	for _, key := range []string{"REQUIRE_CONSENT", "REQUIRE_CAPTCHA", "TURNSTILE_SECRET_KEY", "CAPTCHA_VERIFY_URL",
		"AUTO_ACTIVATE", "WAITLIST_RATE_LIMIT_REQUESTS", "WAITLIST_RATE_LIMIT_WINDOW", "WAITLIST_RATE_LIMIT_BACKEND", "STORE_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := NewIntakeConfig()
	assert.False(t, cfg.RequireConsent)
	assert.False(t, cfg.RequireCaptcha)
	assert.False(t, cfg.AutoActivate)
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "memory", cfg.RateLimitBackend)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "https://challenges.cloudflare.com/turnstile/v0/siteverify", cfg.CaptchaVerifyURL)
}

func TestNewIntakeConfig_FromEnv(t *testing.T) {
	t.Setenv("REQUIRE_CONSENT", "true")
	t.Setenv("REQUIRE_CAPTCHA", "1")
	t.Setenv("TURNSTILE_SECRET_KEY", `"0x-secret"`)
	t.Setenv("AUTO_ACTIVATE", "yes")
	t.Setenv("WAITLIST_RATE_LIMIT_REQUESTS", "20")
	t.Setenv("WAITLIST_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("WAITLIST_RATE_LIMIT_BACKEND", "redis")
	t.Setenv("STORE_TIMEOUT", "-1s")

	cfg := NewIntakeConfig()
	assert.True(t, cfg.RequireConsent)
	assert.True(t, cfg.RequireCaptcha)
	assert.Equal(t, "0x-secret", cfg.CaptchaSecret)
	assert.True(t, cfg.AutoActivate)
	assert.Equal(t, 20, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "redis", cfg.RateLimitBackend)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout, "non-positive durations fall back to the default")
}

func TestNewDatabase_SQLiteInMemory(t *testing.T) {
	t.Setenv("SQLITE_PATH", ":memory:")
	logger := log.NewLogger(io.Discard, slog.LevelError)

	db, err := NewDatabase(logger, &DBConfig{Driver: DriverSQLite, Retry: &retry.Config{MaxAttempts: 1}})
	require.NoError(t, err)
	defer CloseDatabase(db, logger)

	require.NoError(t, AutoMigrate(logger, db, models.ModelRegistry...))
	assert.True(t, db.Migrator().HasTable(&models.Submission{}))
	assert.True(t, db.Migrator().HasTable(&models.StatusCheck{}))
}

func TestNewDatabase_FailsFastWithoutCredentials(t *testing.T) {
	for _, key := range []string{"APP_DATABASE_URL", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_DB_NAME"} {
		t.Setenv(key, "")
	}
	logger := log.NewLogger(io.Discard, slog.LevelError)

	_, err := NewDatabase(logger, &DBConfig{Driver: DriverPostgres})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_HOST")
}

func TestNewDatabase_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase(log.NewLogger(io.Discard, slog.LevelError), &DBConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported APP_DATABASE_DRIVER")
}

func TestParseOTLPEndpoint(t *testing.T) {
	hostport, path, insecure, err := parseOTLPEndpoint("http://collector:4318")
	require.NoError(t, err)
	assert.Equal(t, "collector:4318", hostport)
	assert.Equal(t, "/v1/traces", path)
	assert.True(t, insecure)

	hostport, path, insecure, err = parseOTLPEndpoint("https://otel.example.com/custom")
	require.NoError(t, err)
	assert.Equal(t, "otel.example.com", hostport)
	assert.Equal(t, "/custom", path)
	assert.False(t, insecure)

	_, _, _, err = parseOTLPEndpoint("collector:4318/v1/traces")
	assert.Error(t, err)
}
