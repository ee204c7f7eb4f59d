// ABOUTME: Tests for configuration parsing.
// ABOUTME: Validates env expansion, duration parsing, defaults, and validation failures.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
storage:
  path: /tmp/repfit.db
auth:
  jwt_secret: super-secret
`

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/repfit.db", cfg.Storage.Path)
	assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, DefaultSessionTTL, cfg.Auth.SessionTTL)
	assert.Equal(t, DefaultDedupeSpan, cfg.Widgets.DedupeSpan)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  http_addr: 0.0.0.0:9000
storage:
  path: /var/lib/repfit/repfit.db
auth:
  jwt_secret: super-secret
  session_ttl: 12h
  reset_ttl: 15m
widgets:
  chat_origins:
    - https://render-chatbot.example.com
  repbot_origins:
    - https://render-repbot.example.com
  dedupe_span: 3s
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTTL)
	assert.Equal(t, []string{"https://render-chatbot.example.com"}, cfg.Widgets.ChatOrigins)
	assert.Equal(t, 3*time.Second, cfg.Widgets.DedupeSpan)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("REPFIT_TEST_SECRET", "from-env")

	cfg, err := Parse([]byte(`
storage:
  path: /tmp/repfit.db
auth:
  jwt_secret: ${REPFIT_TEST_SECRET}
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestParse_UnsetEnvFailsValidation(t *testing.T) {
	_, err := Parse([]byte(`
storage:
  path: /tmp/repfit.db
auth:
  jwt_secret: ${REPFIT_DEFINITELY_UNSET_VAR}
`))
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestParse_BadDuration(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
widgets:
  dedupe_span: soonish
`))
	assert.ErrorContains(t, err, "dedupe_span")
}

func TestParse_MissingStoragePath(t *testing.T) {
	_, err := Parse([]byte(`
auth:
  jwt_secret: super-secret
`))
	assert.ErrorContains(t, err, "storage.path")
}

func TestParse_BadLogLevel(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + `
logging:
  level: verbose
`))
	assert.ErrorContains(t, err, "logging.level")
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repfit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
