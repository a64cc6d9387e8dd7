// Package config loads qsapi settings from defaults, an optional YAML file
// and QSAPI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/engine"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. QSAPI_SERVER_PORT.
const EnvPrefix = "QSAPI"

// Config is the fully resolved service configuration.
type Config struct {
	Server ServerConfig
	Engine EngineConfig
	Log    LogConfig
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	Port           int
	CORSOrigins    []string
	RateLimitRPS   int   // 0 = disabled
	MaxUploadBytes int64 // uploaded artifacts above this size are rejected with 413
}

// EngineConfig selects and tunes the analysis engine.
type EngineConfig struct {
	Kind          engine.Kind
	Command       string
	Args          []string
	URL           string
	Timeout       time.Duration // 0 = no limit
	MaxConcurrent int64         // 0 = unbounded
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Development bool
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("engine.kind", string(engine.KindExec))
	v.SetDefault("engine.command", "quicksand")
	v.SetDefault("engine.args", []string{engine.FilePlaceholder})
	v.SetDefault("engine.url", "")
	v.SetDefault("engine.timeout", "0s")
	v.SetDefault("engine.max_concurrent", 0)
	v.SetDefault("log.development", false)
}

// Load reads configuration. When file is empty, qsapi.yaml is looked up in
// ./configs and the working directory; a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("qsapi")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &cfgNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			CORSOrigins:    v.GetStringSlice("server.cors_origins"),
			RateLimitRPS:   v.GetInt("server.rate_limit_rps"),
			MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
		},
		Engine: EngineConfig{
			Kind:          engine.Kind(strings.ToLower(v.GetString("engine.kind"))),
			Command:       v.GetString("engine.command"),
			Args:          v.GetStringSlice("engine.args"),
			URL:           v.GetString("engine.url"),
			Timeout:       v.GetDuration("engine.timeout"),
			MaxConcurrent: v.GetInt64("engine.max_concurrent"),
		},
		Log: LogConfig{
			Development: v.GetBool("log.development"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must not be negative")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative")
	}
	if c.Engine.MaxConcurrent < 0 {
		return fmt.Errorf("engine.max_concurrent must not be negative")
	}
	return nil
}

// EngineFactoryConfig converts the engine section for engine.New.
func (c *Config) EngineFactoryConfig() engine.Config {
	return engine.Config{
		Kind:    c.Engine.Kind,
		Command: c.Engine.Command,
		Args:    c.Engine.Args,
		URL:     c.Engine.URL,
		Timeout: c.Engine.Timeout,
	}
}

// ScannerConfig converts the engine section for engine.NewScanner.
func (c *Config) ScannerConfig() engine.ScannerConfig {
	return engine.ScannerConfig{
		Timeout:       c.Engine.Timeout,
		MaxConcurrent: c.Engine.MaxConcurrent,
	}
}
