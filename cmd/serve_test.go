package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onemec/gmeet-slash-cmd/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"GOOGLE_CLIENT_ID":        "client-id",
		"GOOGLE_CLIENT_SECRET":    "client-secret",
		"GOOGLE_REDIRECT_URL":     "https://meet.example.com/callback",
		"PUBLIC_BASE_URL":         "meet.example.com",
		"INSTRUMENTATION_ENABLED": "false",
	})
	require.NoError(t, err)
	return cfg
}

func parseServeFlags(t *testing.T, args ...string) (*cobra.Command, serveFlags) {
	t.Helper()
	var flags serveFlags
	cmd := &cobra.Command{Use: "serve"}
	flags.register(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, flags
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "redis"
	cfg.RedisURL = "redis://from-env:6379"

	cmd, flags := parseServeFlags(t,
		"--http-addr", ":9000",
		"--public-base-url", "flags.example.com",
		"--storage-type", "sqlite",
		"--sqlite-path", "/var/lib/gmeet/state.db",
		"--valkey-db", "3",
		"--metrics-enabled=false",
		"--log-format", "json",
	)
	applyFlagOverrides(cmd, flags, &cfg)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "flags.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.Equal(t, "/var/lib/gmeet/state.db", cfg.SQLitePath)
	assert.Equal(t, 3, cfg.ValkeyDB)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "json", cfg.LogFormat)

	// Unset flags keep the environment values.
	assert.Equal(t, "redis://from-env:6379", cfg.RedisURL)
	assert.Equal(t, "client-id", cfg.GoogleClientID)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestApplyFlagOverrides_DefaultsDoNotOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = ":7000"
	cfg.MetricsAddr = ":7001"

	cmd, flags := parseServeFlags(t)
	applyFlagOverrides(cmd, flags, &cfg)

	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, ":7001", cfg.MetricsAddr)
	assert.True(t, cfg.MetricsEnabled)
}

func TestApplyFlagOverrides_Debug(t *testing.T) {
	cfg := testConfig(t)

	cmd, flags := parseServeFlags(t, "--debug", "--log-level", "error")
	applyFlagOverrides(cmd, flags, &cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	a, err := newApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func TestNewApp_ServesCommand(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader("team_id=T1&user_id=U1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://meet.example.com/auth?")
	assert.Contains(t, rec.Body.String(), `"response_type":"ephemeral"`)
}

func TestNewApp_Readiness(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	a.health.MarkShuttingDown()
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewApp_SQLiteStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "state.db")

	a := newTestApp(t, cfg)
	require.NoError(t, a.store.Ping(context.Background()))
}

func TestNewApp_StorageFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageType = "redis"
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	_, err := newApp(context.Background(), cfg, slog.Default())
	assert.ErrorContains(t, err, "failed to open redis storage")
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "gmeet-slash-cmd version 1.2.3\n", out.String())
}
