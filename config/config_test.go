package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semrcl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, TransportInproc, cfg.Transport.Kind)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 100*time.Millisecond, cfg.WaitSet.Timeout)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version: "1.0.0"
transport:
  kind: NATS
  keep_all_limit: 50
  nats:
    urls: ["nats://a:4222", "nats://b:4222"]
    prefix: robots.lab
    reconnect_wait: 500ms
    ping_timeout: 1s
    retry:
      max_retries: 5
      initial_delay: 10ms
      max_delay: 1s
      backoff_factor: 1.5
logging:
  level: DEBUG
  format: json
enclave: /lab
arguments: ["--ros-args", "-r", "chatter:=news"]
wait_set:
  timeout: -1ns
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TransportNATS, cfg.Transport.Kind, "kind is normalized")
	assert.Equal(t, 50, cfg.Transport.KeepAllLimit)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.Transport.NATS.URLs)
	assert.Equal(t, "robots.lab", cfg.Transport.NATS.Prefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.NATS.ReconnectWait)
	assert.Equal(t, time.Second, cfg.Transport.NATS.PingTimeout)
	assert.Equal(t, 5*time.Second, cfg.Transport.NATS.Timeout, "unset fields keep their defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/lab", cfg.Enclave)
	assert.Equal(t, []string{"--ros-args", "-r", "chatter:=news"}, cfg.Arguments)
	assert.Negative(t, cfg.WaitSet.Timeout)

	policy := cfg.Transport.NATS.Retry.Policy()
	assert.Equal(t, 5, policy.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, policy.InitialDelay)
	assert.Equal(t, 1.5, policy.BackoffFactor)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "transport:\n  knid: inproc\n", "knid"},
		{"bad kind", "transport:\n  kind: zenoh\n", "transport.kind"},
		{"empty kind", "transport:\n  kind: \"\"\n", "transport.kind is required"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad arguments", "arguments: [\"--ros-args\", \"-r\", \"foo\"]\n", "arguments"},
		{"nats without urls", "transport:\n  kind: nats\n  nats:\n    urls: []\n", "urls is required"},
		{"nats bad prefix", "transport:\n  kind: nats\n  nats:\n    prefix: \"a..b\"\n", "prefix"},
		{"nats token and password", "transport:\n  kind: nats\n  nats:\n    token: t\n    password: p\n", "mutually exclusive"},
		{"bad duration", "wait_set:\n  timeout: soon\n", "failed to parse config"},
		{"negative keep all", "transport:\n  keep_all_limit: -1\n", "keep_all_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ValidationErrorsAreInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "transport:\n  kind: zenoh\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.True(t, errors.IsFatal(err))
}

func TestLoad_PathChecks(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "semrcl.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load("../outside.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")

	dir := filepath.Join(t.TempDir(), "dir.yaml")
	require.NoError(t, os.Mkdir(dir, 0o700))
	_, err = Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEMRCL_TRANSPORT", "nats")
	t.Setenv("SEMRCL_NATS_URLS", "nats://x:4222,nats://y:4222")
	t.Setenv("SEMRCL_NATS_USERNAME", "robot")
	t.Setenv("SEMRCL_NATS_PASSWORD", "secret")
	t.Setenv("SEMRCL_LOG_LEVEL", "warn")
	t.Setenv("SEMRCL_KEEP_ALL_LIMIT", "7")

	cfg, err := Parse([]byte("transport:\n  kind: inproc\n"))
	require.NoError(t, err)
	assert.Equal(t, TransportNATS, cfg.Transport.Kind, "environment wins over the file")
	assert.Equal(t, []string{"nats://x:4222", "nats://y:4222"}, cfg.Transport.NATS.URLs)
	assert.Equal(t, "robot", cfg.Transport.NATS.Username)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Transport.KeepAllLimit)

	out := cfg.String()
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "secret", cfg.Transport.NATS.Password, "String does not modify the config")
}

func TestEnvOverrides_Invalid(t *testing.T) {
	t.Setenv("SEMRCL_KEEP_ALL_LIMIT", "many")
	_, err := Parse(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	t.Setenv("SEMRCL_KEEP_ALL_LIMIT", "")
	t.Setenv("SEMRCL_LOG_LEVEL", "in\x00fo")
	_, err = Parse(nil)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, TransportInproc, cfg.Transport.Kind)

	t.Setenv(EnvConfigPath, writeConfig(t, "logging:\n  level: error\n"))
	cfg, err = LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Arguments = []string{"--ros-args", "-r", "__ns:=/robot"}
	cfg.Transport.NATS.URLs = []string{"nats://saved:4222"}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
