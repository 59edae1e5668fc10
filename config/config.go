// Package config loads gribpack settings from YAML.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/metadata"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// MaxMemoryPages is the wasm32 limit of 4 GiB.
const MaxMemoryPages = 65536

// Config is the full configuration.
type Config struct {
	Decoder  DecoderConfig  `yaml:"decoder"`
	Metadata MetadataConfig `yaml:"metadata"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DecoderConfig locates the g2c wasm build.
type DecoderConfig struct {
	Wasm             string `yaml:"wasm"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
}

// MetadataConfig bounds metadata documents.
type MetadataConfig struct {
	Policy   string `yaml:"policy"`
	Capacity int    `yaml:"capacity"`
}

// CatalogConfig enables the SQLite catalog when Path is set.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		Decoder: DecoderConfig{
			MemoryLimitPages: 4096,
		},
		Metadata: MetadataConfig{
			Capacity: metadata.DefaultCapacity,
			Policy:   metadata.PolicyFail.String(),
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path, expands ${VAR} references, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config")
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse YAML")
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Decoder.MemoryLimitPages == 0 {
		cfg.Decoder.MemoryLimitPages = d.Decoder.MemoryLimitPages
	}
	if cfg.Metadata.Capacity == 0 {
		cfg.Metadata.Capacity = d.Metadata.Capacity
	}
	if cfg.Metadata.Policy == "" {
		cfg.Metadata.Policy = d.Metadata.Policy
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = d.Server.Listen
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
}

// interpolateEnv replaces ${VAR} with environment values. Undefined
// variables are left as-is and rejected by Validate.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	for key, v := range map[string]string{
		"decoder.wasm": c.Decoder.Wasm,
		"catalog.path": c.Catalog.Path,
	} {
		if m := envVarPattern.FindStringSubmatch(v); m != nil {
			return invalid(key, fmt.Sprintf("environment variable ${%s} is not set", m[1]))
		}
	}

	if c.Decoder.MemoryLimitPages > MaxMemoryPages {
		return invalid("decoder.memory_limit_pages", fmt.Sprintf("must be at most %d (got %d)", MaxMemoryPages, c.Decoder.MemoryLimitPages))
	}
	if c.Metadata.Capacity < 2 {
		return invalid("metadata.capacity", fmt.Sprintf("must be at least 2 (got %d)", c.Metadata.Capacity))
	}
	if _, err := metadata.ParsePolicy(c.Metadata.Policy); err != nil {
		return invalid("metadata.policy", fmt.Sprintf("must be fail or truncate (got %q)", c.Metadata.Policy))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", c.Log.Level))
	}
	return nil
}

func invalid(key, detail string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(strings.Split(key, ".")...).
		Detail("%s", detail).
		Build()
}

// Policy returns the validated metadata policy.
func (c *Config) Policy() metadata.Policy {
	p, _ := metadata.ParsePolicy(c.Metadata.Policy)
	return p
}

// NewLogger builds a production or development zap logger at the
// configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log.level")
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
