// Package config holds the server bootstrap settings. Values are layered:
// defaults, an optional YAML file, then environment variables. Command line
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MINIGQL_"

// DefaultPort is used when neither the file nor the environment sets one.
const DefaultPort = 4000

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Schema    SchemaConfig    `yaml:"schema"`
	Services  string          `yaml:"services,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Path          string        `yaml:"path"`
	Timeout       time.Duration `yaml:"timeout"`
	Pretty        bool          `yaml:"pretty"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	CORSOrigins   []string      `yaml:"cors_origins,omitempty"`
	Playground    bool          `yaml:"playground"`
	Introspection bool          `yaml:"introspection"`
	MaxParallel   int           `yaml:"max_parallel"`
}

// SchemaConfig lists SDL files concatenated into the base schema.
type SchemaConfig struct {
	Files []string `yaml:"files,omitempty"`
}

// TelemetryConfig enables OTLP tracing when Endpoint is set.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Service  string `yaml:"service"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          DefaultPort,
			Path:          "/graphql",
			Timeout:       10 * time.Second,
			MaxBodyBytes:  1 << 20,
			Playground:    true,
			Introspection: true,
		},
		Telemetry: TelemetryConfig{Service: "minigql"},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults and then applies the environment.
// An empty path skips the file.
//
// Environment keys are EnvPrefix, the section and the yaml key:
// MINIGQL_SERVER_PORT, MINIGQL_SERVER_MAX_BODY_BYTES, MINIGQL_LOG_LEVEL,
// MINIGQL_SERVICES. A bare PORT sets server.port unless the prefixed
// variable is also set. List keys take comma separated values.
func Load(path string) (*Config, error) {
	k := koanf.New(delim)
	if err := loadFile(k, path); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		if err := k.Load(confmap.Provider(map[string]any{"server.port": v}, delim), nil); err != nil {
			return nil, fmt.Errorf("load PORT: %w", err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, delim, envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	return decode(k)
}

// LoadFile reads path over the defaults without consulting the environment.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(delim)
	if err := loadFile(k, path); err != nil {
		return nil, err
	}
	return decode(k)
}

const delim = "."

var listKeys = map[string]bool{
	"server.cors_origins": true,
	"schema.files":        true,
}

func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	return nil
}

// envKey maps MINIGQL_SERVER_MAX_BODY_BYTES to server.max_body_bytes.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if section, rest, ok := strings.Cut(key, "_"); ok {
		key = section + delim + rest
	}
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func decode(k *koanf.Koanf) (*Config, error) {
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path %q must start with /", c.Server.Path))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.max_body_bytes must not be negative"))
	}
	if c.Server.MaxParallel < 0 {
		errs = append(errs, errors.New("server.max_parallel must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
