package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/remap"
)

// Transport kinds
const (
	TransportInproc = "inproc" // Single-process transport, no external services
	TransportNATS   = "nats"   // NATS core subjects
)

// EnvConfigPath names the environment variable LoadFromEnv reads the
// config file path from.
const EnvConfigPath = "SEMRCL_CONFIG"

// envPrefix prefixes every environment override.
const envPrefix = "SEMRCL"

// Config represents the complete application configuration
type Config struct {
	Version   string          `yaml:"version,omitempty"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
	Enclave   string          `yaml:"enclave,omitempty"`
	// Arguments is the global --ros-args vector every context starts with,
	// e.g. ["--ros-args", "-r", "chatter:=news"].
	Arguments []string      `yaml:"arguments,omitempty"`
	WaitSet   WaitSetConfig `yaml:"wait_set"`
}

// TransportConfig selects and configures the rmw transport
type TransportConfig struct {
	Kind         string     `yaml:"kind"`
	KeepAllLimit int        `yaml:"keep_all_limit,omitempty"` // Cap for KEEP_ALL histories
	NATS         NATSConfig `yaml:"nats,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `yaml:"urls,omitempty"`
	Name          string        `yaml:"name,omitempty"` // Client name reported to the server
	Prefix        string        `yaml:"prefix,omitempty"`
	MaxReconnects int           `yaml:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `yaml:"reconnect_wait,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`      // Per-operation timeout
	PingTimeout   time.Duration `yaml:"ping_timeout,omitempty"` // ServiceIsAvailable ping timeout
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"password,omitempty"`
	Token         string        `yaml:"token,omitempty"`
	TLS           NATSTLSConfig `yaml:"tls,omitempty"`
	Retry         RetryConfig   `yaml:"retry,omitempty"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
}

// RetryConfig is the connect retry policy
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// Policy converts the retry settings into an errors.RetryConfig.
func (r RetryConfig) Policy() errors.RetryConfig {
	return errors.RetryConfig{
		MaxRetries:    r.MaxRetries,
		InitialDelay:  r.InitialDelay,
		MaxDelay:      r.MaxDelay,
		BackoffFactor: r.BackoffFactor,
	}
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// WaitSetConfig holds defaults for executors built on wait sets
type WaitSetConfig struct {
	// Timeout is the wait timeout; negative blocks indefinitely.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	defaults := errors.DefaultRetryConfig()
	return &Config{
		Transport: TransportConfig{
			Kind:         TransportInproc,
			KeepAllLimit: 1000,
			NATS: NATSConfig{
				URLs:          []string{"nats://localhost:4222"},
				Name:          "semrcl",
				Prefix:        "semrcl",
				MaxReconnects: -1,
				ReconnectWait: 2 * time.Second,
				Timeout:       5 * time.Second,
				PingTimeout:   250 * time.Millisecond,
				Retry: RetryConfig{
					MaxRetries:    defaults.MaxRetries,
					InitialDelay:  defaults.InitialDelay,
					MaxDelay:      defaults.MaxDelay,
					BackoffFactor: defaults.BackoffFactor,
				},
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		WaitSet: WaitSetConfig{Timeout: 100 * time.Millisecond},
	}
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg.Clone()
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}

	clone := *c
	clone.Arguments = append([]string(nil), c.Arguments...)
	clone.Transport.NATS.URLs = append([]string(nil), c.Transport.NATS.URLs...)
	return &clone
}

// Validate checks if the config is valid. Kind, level and format are
// normalized to lower case.
func (c *Config) Validate() error {
	c.Transport.Kind = strings.ToLower(c.Transport.Kind)
	switch c.Transport.Kind {
	case TransportInproc:
	case TransportNATS:
		if err := c.Transport.NATS.validate(); err != nil {
			return fmt.Errorf("%w: transport.nats: %w", errors.ErrInvalidConfig, err)
		}
	case "":
		return fmt.Errorf("%w: transport.kind is required", errors.ErrMissingConfig)
	default:
		return fmt.Errorf("%w: transport.kind %q must be %q or %q",
			errors.ErrInvalidConfig, c.Transport.Kind, TransportInproc, TransportNATS)
	}
	if c.Transport.KeepAllLimit < 0 {
		return fmt.Errorf("%w: transport.keep_all_limit must not be negative", errors.ErrInvalidConfig)
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q is not one of debug, info, warn, error",
			errors.ErrInvalidConfig, c.Logging.Level)
	}
	c.Logging.Format = strings.ToLower(c.Logging.Format)
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: logging.format %q must be text or json", errors.ErrInvalidConfig, c.Logging.Format)
	}

	if _, err := remap.ParseArguments(c.Arguments); err != nil {
		return fmt.Errorf("%w: arguments: %w", errors.ErrInvalidConfig, err)
	}
	return nil
}

func (n *NATSConfig) validate() error {
	if len(n.URLs) == 0 {
		return fmt.Errorf("urls is required")
	}
	for _, u := range n.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("urls must not contain empty entries")
		}
	}
	if !isValidNATSSubjectPart(n.Prefix) {
		return fmt.Errorf(
			"prefix %q is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)", n.Prefix)
	}
	if n.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if n.PingTimeout <= 0 {
		return fmt.Errorf("ping_timeout must be positive")
	}
	if n.Token != "" && (n.Username != "" || n.Password != "") {
		return fmt.Errorf("token and username/password are mutually exclusive")
	}
	if n.TLS.Enabled && (n.TLS.CertFile == "") != (n.TLS.KeyFile == "") {
		return fmt.Errorf("tls.cert_file and tls.key_file must be set together")
	}
	if n.Retry.MaxRetries < 0 || n.Retry.BackoffFactor < 0 {
		return fmt.Errorf("retry settings must not be negative")
	}
	return nil
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 || s[0] == '.' || s[len(s)-1] == '.' || strings.Contains(s, "..") {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// Load reads a YAML config file on top of Default, applies environment
// overrides and validates the result. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by SEMRCL_CONFIG, or Default with
// environment overrides when the variable is unset.
func LoadFromEnv() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return Load(path)
	}
	return Parse(nil)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) error {
	lookup := func(key string) (string, error) {
		name := envPrefix + "_" + key
		val := os.Getenv(name)
		if err := validateEnvVar(name, val); err != nil {
			return "", err
		}
		return val, nil
	}

	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"TRANSPORT", func(v string) error { cfg.Transport.Kind = v; return nil }},
		{"NATS_URLS", func(v string) error { cfg.Transport.NATS.URLs = strings.Split(v, ","); return nil }},
		{"NATS_USERNAME", func(v string) error { cfg.Transport.NATS.Username = v; return nil }},
		{"NATS_PASSWORD", func(v string) error { cfg.Transport.NATS.Password = v; return nil }},
		{"NATS_TOKEN", func(v string) error { cfg.Transport.NATS.Token = v; return nil }},
		{"NATS_PREFIX", func(v string) error { cfg.Transport.NATS.Prefix = v; return nil }},
		{"LOG_LEVEL", func(v string) error { cfg.Logging.Level = v; return nil }},
		{"LOG_FORMAT", func(v string) error { cfg.Logging.Format = v; return nil }},
		{"KEEP_ALL_LIMIT", func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s_KEEP_ALL_LIMIT: %w", errors.ErrInvalidConfig, envPrefix, err)
			}
			cfg.Transport.KeepAllLimit = n
			return nil
		}},
	}

	for _, o := range overrides {
		val, err := lookup(o.key)
		if err != nil {
			return err
		}
		if val == "" {
			continue
		}
		if err := o.apply(val); err != nil {
			return err
		}
	}
	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return safeWriteFile(path, data)
}

// String returns a YAML representation of the config with credentials
// redacted
func (c *Config) String() string {
	redacted := c.Clone()
	for _, secret := range []*string{
		&redacted.Transport.NATS.Password,
		&redacted.Transport.NATS.Token,
	} {
		if *secret != "" {
			*secret = "[REDACTED]"
		}
	}
	data, err := yaml.Marshal(redacted)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
