package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is read when Load is given no path. A missing default file is
// not an error.
const DefaultPath = "courier.yaml"

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: COURIER_SERVICE__TIMEOUT=5s.
const EnvPrefix = "COURIER_"

type Config struct {
	Service   ServiceConfig    `koanf:"service"`
	Log       LogConfig        `koanf:"log"`
	Auth      AuthConfig       `koanf:"auth"`
	Retry     RetryConfig      `koanf:"retry"`
	Stub      StubConfig       `koanf:"stub"`
	Decode    DecodeConfig     `koanf:"decode"`
	Telemetry TelemetryConfig  `koanf:"telemetry"`
	Recorder  RecorderConfig   `koanf:"recorder"`
	Server    ServerConfig     `koanf:"server"`
	Endpoints []EndpointConfig `koanf:"endpoints"`
}

type ServiceConfig struct {
	BaseURL              string        `koanf:"base_url"`
	Timeout              time.Duration `koanf:"timeout"`
	DenyPrivateAddresses bool          `koanf:"deny_private_addresses"`
	MaxBodySize          int64         `koanf:"max_body_size"`
	// PlaceholderMode is "through_chain" or "bypass".
	PlaceholderMode string `koanf:"placeholder_mode"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json, tint
	// Network enables the request/response logging plugin.
	Network bool `koanf:"network"`
	// Bodies logs up to this many body bytes per request and response.
	Bodies int `koanf:"bodies"`
}

type AuthConfig struct {
	Type     string `koanf:"type"` // none, bearer, basic, or a custom scheme
	Token    string `koanf:"token"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type RetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	MaxRetries    uint64        `koanf:"max_retries"`
	MaxAttempts   int           `koanf:"max_attempts"` // Hard cap enforced by the pipeline
	BaseDelay     time.Duration `koanf:"base_delay"`
	MaxDelay      time.Duration `koanf:"max_delay"`
	JitterPercent uint64        `koanf:"jitter_percent"`
	Statuses      []int         `koanf:"statuses"` // Empty uses the default retryable statuses
}

type StubConfig struct {
	Enabled bool          `koanf:"enabled"`
	Delay   time.Duration `koanf:"delay"`
}

type DecodeConfig struct {
	Workers int `koanf:"workers"`
}

type TelemetryConfig struct {
	Tracing bool `koanf:"tracing"`
	Metrics bool `koanf:"metrics"`
}

type RecorderConfig struct {
	Driver   string `koanf:"driver"` // none, memory, sqlite, postgres, redis
	Path     string `koanf:"path"`     // sqlite
	Capacity int    `koanf:"capacity"` // memory

	DSN       string `koanf:"dsn"`        // postgres
	SQLDriver string `koanf:"sql_driver"` // postgres: pgx (default) or pq

	URL       string        `koanf:"url"` // redis
	Password  string        `koanf:"password"`
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
}

type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// Token, when set, is required as a bearer token on every API route.
	Token string `koanf:"token"`
}

// EndpointConfig describes a named call.
type EndpointConfig struct {
	Name    string            `koanf:"name"`
	BaseURL string            `koanf:"base_url"` // Optional: overrides service.base_url
	Method  string            `koanf:"method"`
	Path    string            `koanf:"path"`
	Headers map[string]string `koanf:"headers"`
	Query   map[string]string `koanf:"query"`
	// Body is sent as JSON. Combined with Query it forms a composite task.
	Body    any            `koanf:"body"`
	GraphQL *GraphQLConfig `koanf:"graphql"`
	// Sample is returned when stubbing is enabled.
	Sample string `koanf:"sample"`
	// Placeholder, when set, is returned instead of calling the network.
	Placeholder string `koanf:"placeholder"`
	// Auth overrides auth.type for this endpoint; "none" disables it.
	Auth          string `koanf:"auth"`
	ValidStatuses []int  `koanf:"valid_statuses"`
}

type GraphQLConfig struct {
	Query         string         `koanf:"query"`
	Variables     map[string]any `koanf:"variables"`
	OperationName string         `koanf:"operation_name"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (DefaultPath when empty), overlays COURIER_ environment
// variables and applies defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// A missing default file is OK, we'll use env vars
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in secrets
	cfg.Auth.Token = substituteEnvVars(cfg.Auth.Token)
	cfg.Auth.Username = substituteEnvVars(cfg.Auth.Username)
	cfg.Auth.Password = substituteEnvVars(cfg.Auth.Password)
	cfg.Server.Token = substituteEnvVars(cfg.Server.Token)
	cfg.Recorder.DSN = substituteEnvVars(cfg.Recorder.DSN)
	cfg.Recorder.Password = substituteEnvVars(cfg.Recorder.Password)
	for i := range cfg.Endpoints {
		for key, value := range cfg.Endpoints[i].Headers {
			cfg.Endpoints[i].Headers[key] = substituteEnvVars(value)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"service.timeout":          "30s",
		"service.placeholder_mode": "through_chain",
		"log.level":                "info",
		"log.format":               "text",
		"auth.type":                "none",
		"retry.enabled":            true,
		"retry.max_retries":        3,
		"retry.max_attempts":       5,
		"retry.base_delay":         "100ms",
		"retry.max_delay":          "5s",
		"recorder.driver":          "none",
		"server.addr":              ":8080",
		"server.request_timeout":   "60s",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	var errs []error

	switch c.Service.PlaceholderMode {
	case "through_chain", "bypass":
	default:
		errs = append(errs, fmt.Errorf("service.placeholder_mode: unknown mode %q", c.Service.PlaceholderMode))
	}

	switch c.Log.Format {
	case "text", "json", "tint":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	switch c.Recorder.Driver {
	case "none", "memory":
	case "sqlite":
		if c.Recorder.Path == "" {
			errs = append(errs, errors.New("recorder.path: required for the sqlite driver"))
		}
	case "postgres":
		if c.Recorder.DSN == "" {
			errs = append(errs, errors.New("recorder.dsn: required for the postgres driver"))
		}
	case "redis":
		if c.Recorder.URL == "" {
			errs = append(errs, errors.New("recorder.url: required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("recorder.driver: unknown driver %q", c.Recorder.Driver))
	}

	seen := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		switch {
		case ep.Name == "":
			errs = append(errs, fmt.Errorf("endpoints[%d]: name is required", i))
		case seen[ep.Name]:
			errs = append(errs, fmt.Errorf("endpoints[%d]: duplicate name %q", i, ep.Name))
		}
		seen[ep.Name] = true

		if ep.BaseURL == "" && c.Service.BaseURL == "" {
			errs = append(errs, fmt.Errorf("endpoints[%d]: no base_url and no service.base_url", i))
		}
		if ep.GraphQL != nil && ep.Body != nil {
			errs = append(errs, fmt.Errorf("endpoints[%d]: body and graphql are mutually exclusive", i))
		}
	}

	return errors.Join(errs...)
}

// Endpoint returns the named endpoint.
func (c *Config) Endpoint(name string) (EndpointConfig, bool) {
	for _, ep := range c.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EndpointConfig{}, false
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
