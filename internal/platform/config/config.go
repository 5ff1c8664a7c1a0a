// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP port of the widget page.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (64KB).
	// The widget only accepts empty form posts.
	DefaultMaxRequestSize = 64 << 10

	// DefaultTransportMaxIdleConns is the default max idle connections.
	DefaultTransportMaxIdleConns = 10

	// DefaultTransportMaxIdleConnsPerHost is the default max idle connections per host.
	DefaultTransportMaxIdleConnsPerHost = 2

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28

	// DefaultAPIName is the logical name of the quote endpoint.
	DefaultAPIName = "QuotesAPI"

	// DefaultAPIPath is the path of the random quote operation.
	DefaultAPIPath = "/quotes"

	// DefaultConfigDir is where profile files are looked up.
	DefaultConfigDir = "configs"

	// DefaultDotEnvPath is the optional dotenv file loaded before environment variables.
	DefaultDotEnvPath = ".env"

	// DefaultProfile is used when APP_ENVIRONMENT is unset.
	DefaultProfile = "local"

	// ProfileEnvVar names the environment variable that selects the profile.
	ProfileEnvVar = "APP_ENVIRONMENT"
)

// Credential sources understood by the client binding.
const (
	CredentialSourceNone   = "none"
	CredentialSourceAPIKey = "api_key"
	CredentialSourceBearer = "bearer"
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Client    ClientConfig    `koanf:"client"`

	// API is opaque to startup validation: a bad binding surfaces as a fetch failure.
	API APIConfig `koanf:"api" validate:"-"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains settings of the HTTP server rendering the widget.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ClientConfig contains settings of the HTTP client reaching the quote service.
type ClientConfig struct {
	// Timeout is the request timeout. Zero leaves the transport defaults in charge.
	Timeout   time.Duration   `koanf:"timeout"   validate:"min=0"`
	Transport TransportConfig `koanf:"transport"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"min=0"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"min=0"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"min=0"`
}

// APIConfig describes the client binding to the remote quote service.
// Name selects one of Endpoints; lookup is case-insensitive because environment
// variables arrive lowercased.
type APIConfig struct {
	Name        string                    `koanf:"name"`
	Path        string                    `koanf:"path"`
	Endpoints   map[string]EndpointConfig `koanf:"endpoints"`
	Credentials CredentialsConfig         `koanf:"credentials"`
}

// EndpointConfig is a named endpoint of the managed backend.
type EndpointConfig struct {
	Endpoint string `koanf:"endpoint"`
	Region   string `koanf:"region"`
}

// CredentialsConfig selects how requests are authenticated.
// The secret itself is read from the environment variable named by Env.
type CredentialsConfig struct {
	Source string `koanf:"source"`
	Header string `koanf:"header"`
	Env    string `koanf:"env"`
}

// Endpoint resolves the configured endpoint by name. An exact match wins;
// otherwise names are compared case-insensitively in sorted order.
func (c APIConfig) Endpoint() (EndpointConfig, bool) {
	if ep, ok := c.Endpoints[c.Name]; ok {
		return ep, true
	}

	for _, name := range slices.Sorted(maps.Keys(c.Endpoints)) {
		if strings.EqualFold(name, c.Name) {
			return c.Endpoints[name], true
		}
	}

	return EndpointConfig{}, false
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quotewidget",
		"app.version":     "dev",
		"app.environment": DefaultProfile,

		"server.port":             DefaultServerPort,
		"server.host":             "127.0.0.1",
		"server.read_timeout":     "10s",
		"server.write_timeout":    "10s",
		"server.idle_timeout":     "60s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quotewidget.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "quotewidget",
		"telemetry.sampling_rate": 1.0,

		"client.timeout":                           "0s",
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",

		"api.name":               DefaultAPIName,
		"api.path":               DefaultAPIPath,
		"api.credentials.source": CredentialSourceNone,
		"api.credentials.header": "x-api-key",
		"api.credentials.env":    "QUOTES_API_KEY",
	}
}

type loadOptions struct {
	dir    string
	dotenv string
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithDir overrides the directory holding base.yaml and profile files.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) { o.dir = dir }
}

// WithDotEnv overrides the dotenv file path. An empty path disables dotenv loading.
func WithDotEnv(path string) LoadOption {
	return func(o *loadOptions) { o.dotenv = path }
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix), including those set by the dotenv file
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{dir: DefaultConfigDir, dotenv: DefaultDotEnvPath}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")

	err := k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	err = loadFileIfExists(k, filepath.Join(o.dir, "base.yaml"))
	if err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		err := loadFileIfExists(k, filepath.Join(o.dir, profile+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	// Existing environment variables win over the dotenv file.
	err = loadDotEnvIfExists(o.dotenv)
	if err != nil {
		return nil, fmt.Errorf("loading dotenv file: %w", err)
	}

	err = k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "APP_")),
			"_",
			".",
		)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// loadFileIfExists loads a YAML config file if it exists.
// Returns nil if the file doesn't exist, error only for parse/read failures.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}

// Profile returns the profile named by APP_ENVIRONMENT, or DefaultProfile.
// The dotenv file at dotenvPath is loaded first so it can select the profile;
// variables already set in the environment win. An empty path skips it.
func Profile(dotenvPath string) (string, error) {
	if err := loadDotEnvIfExists(dotenvPath); err != nil {
		return "", fmt.Errorf("loading dotenv file: %w", err)
	}

	if profile := os.Getenv(ProfileEnvVar); profile != "" {
		return profile, nil
	}

	return DefaultProfile, nil
}

// loadDotEnvIfExists populates the process environment from a dotenv file.
func loadDotEnvIfExists(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return godotenv.Load(path)
}
