package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SATSIGNAL_LND__ADDRESS", "127.0.0.1:8080")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:8080", cfg.LND.Address)
	assert.Equal(t, time.Second, cfg.Subscriptions.ExpiryGrace)
	assert.Equal(t, 10*time.Millisecond, cfg.Subscriptions.DeferredFlush)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_RequiresNodeAddressUnlessMocked(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err, "no node address and no mock must not validate")

	t.Setenv("SATSIGNAL_LND__MOCK", "true")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.LND.Mock)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SATSIGNAL_LND__ADDRESS", "lnd.example.com:8080")
	t.Setenv("SATSIGNAL_SERVER__PORT", "8081")
	t.Setenv("SATSIGNAL_LOG__LEVEL", "debug")
	t.Setenv("SATSIGNAL_SUBSCRIPTIONS__EXPIRY_GRACE", "2s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2*time.Second, cfg.Subscriptions.ExpiryGrace)
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
server:
  port: "9000"
  metrics_port: "9001"
log:
  level: warn
  format: text
lnd:
  address: node.internal:8080
  macaroon_hex: abcdef
subscriptions:
  expiry_grace: 3s
  rate_per_second: 2.5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "node.internal:8080", cfg.LND.Address)
	assert.Equal(t, "abcdef", cfg.LND.MacaroonHex)
	assert.Equal(t, 3*time.Second, cfg.Subscriptions.ExpiryGrace)
	assert.Equal(t, 2.5, cfg.Subscriptions.RatePerSecond)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	content := `
server:
  port: "9000"
lnd:
  address: node.internal:8080
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SATSIGNAL_SERVER__PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestValidate_AuthEnabledRequiresSecret(t *testing.T) {
	cfg := Default()
	cfg.LND.Mock = true
	cfg.Auth.Enabled = true

	assert.Error(t, cfg.Validate())

	cfg.Auth.Secret = "s3cret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MetricsPortMustDiffer(t *testing.T) {
	cfg := Default()
	cfg.LND.Mock = true
	cfg.Server.MetricsPort = cfg.Server.Port

	assert.Error(t, cfg.Validate())
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.LND.Mock = true
	cfg.Log.Level = "verbose"

	assert.Error(t, cfg.Validate())
}
