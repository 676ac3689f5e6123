// Package config loads service configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SATSIGNAL_"

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Log           LogConfig           `koanf:"log"`
	LND           LNDConfig           `koanf:"lnd"`
	Subscriptions SubscriptionsConfig `koanf:"subscriptions"`
	Auth          AuthConfig          `koanf:"auth"`
	CORS          CORSConfig          `koanf:"cors"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required,nefield=Port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	// WriteTimeout of zero means no limit. Status streams stay open until
	// a terminal event, so a finite write timeout would cut them off.
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// LNDConfig configures the Lightning node client.
type LNDConfig struct {
	// Mock switches to the in-memory node, for development without a node.
	Mock          bool          `koanf:"mock"`
	Address       string        `koanf:"address" validate:"required_if=Mock false"`
	MacaroonHex   string        `koanf:"macaroon_hex"`
	TLSSkipVerify bool          `koanf:"tls_skip_verify"`
	Timeout       time.Duration `koanf:"timeout" validate:"min=0"`
}

// SubscriptionsConfig configures the subscription engine.
type SubscriptionsConfig struct {
	ExpiryGrace   time.Duration `koanf:"expiry_grace" validate:"min=0"`
	DeferredFlush time.Duration `koanf:"deferred_flush" validate:"min=0"`
	RatePerSecond float64       `koanf:"rate_per_second" validate:"gt=0"`
	RateBurst     int           `koanf:"rate_burst" validate:"gt=0"`
}

// AuthConfig configures bearer token authentication on the subscription
// endpoint.
type AuthConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Secret   string        `koanf:"secret" validate:"required_if=Enabled true"`
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      0,
			IdleTimeout:       120 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LND: LNDConfig{
			Mock:    false,
			Timeout: 30 * time.Second,
		},
		Subscriptions: SubscriptionsConfig{
			ExpiryGrace:   time.Second,
			DeferredFlush: 10 * time.Millisecond,
			RatePerSecond: 5,
			RateBurst:     10,
		},
		Auth: AuthConfig{
			Enabled:  false,
			TokenTTL: 24 * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration. path may be empty to skip the file layer.
// Environment variables use the SATSIGNAL_ prefix with a double underscore
// as section separator, e.g. SATSIGNAL_SERVER__PORT=8081.
func Load(path string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// envKey maps SATSIGNAL_SERVER__READ_TIMEOUT to server.read_timeout.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}
