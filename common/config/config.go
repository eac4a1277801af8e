// Package config loads the process-scoped configuration for both proxies.
// It is read once at start-up and handed to handler constructors; nothing
// reads it through globals.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/addin-proxy/common/middleware"
)

// Config is the master configuration struct.
type Config struct {
	Server    ServerConfig          `mapstructure:"server" yaml:"server"`
	CORS      middleware.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Inference InferenceConfig       `mapstructure:"inference" yaml:"inference"`
	Telemetry TelemetryConfig       `mapstructure:"telemetry" yaml:"telemetry"`
	Logging   LoggingConfig         `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds HTTP server configuration for serve mode.
type ServerConfig struct {
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// InferenceConfig holds settings for the inference proxy.
type InferenceConfig struct {
	Region         string        `mapstructure:"region" yaml:"region"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint"`
	DefaultModelID string        `mapstructure:"default_model_id" yaml:"default_model_id"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TelemetryConfig holds settings for the telemetry proxy.
type TelemetryConfig struct {
	Collector CollectorConfig  `mapstructure:"collector" yaml:"collector"`
	Defaults  MetadataDefaults `mapstructure:"defaults" yaml:"defaults"`
	Mirror    MirrorConfig     `mapstructure:"mirror" yaml:"mirror"`
}

// CollectorConfig points at the HEC endpoint events are forwarded to.
type CollectorConfig struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Token         string        `mapstructure:"token" yaml:"token"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TLSSkipVerify bool          `mapstructure:"tls_skip_verify" yaml:"tls_skip_verify"`
}

// MetadataDefaults are applied to events that do not carry their own metadata.
type MetadataDefaults struct {
	Index      string `mapstructure:"index" yaml:"index"`
	Host       string `mapstructure:"host" yaml:"host"`
	Source     string `mapstructure:"source" yaml:"source"`
	SourceType string `mapstructure:"sourcetype" yaml:"sourcetype"`
}

// MirrorConfig controls the optional NATS copy of forwarded events.
type MirrorConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// legacyEnv maps config keys onto the environment variable names used by the
// original serverless deployment.
var legacyEnv = map[string]string{
	"telemetry.collector.url":       "SPLUNK_HEC_URL",
	"telemetry.collector.token":     "SPLUNK_HEC_TOKEN",
	"telemetry.defaults.index":      "SPLUNK_INDEX",
	"telemetry.defaults.host":       "SPLUNK_HOST",
	"telemetry.defaults.source":     "SPLUNK_SOURCE",
	"telemetry.defaults.sourcetype": "SPLUNK_SOURCETYPE",
	"cors.allowed_origins":          "ALLOWED_ORIGIN",
	"inference.region":              "AWS_REGION",
	"inference.default_model_id":    "DEFAULT_MODEL_ID",
}

// Load reads configuration from configPath (or ./config.yaml and
// /etc/addin-proxy/config.yaml when empty) and the environment.
// Environment variables use the key with dots replaced by underscores,
// e.g. TELEMETRY_COLLECTOR_TOKEN.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/addin-proxy")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 6<<20)

	cors := middleware.DefaultCORSConfig()
	v.SetDefault("cors.allowed_origins", cors.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", cors.AllowedMethods)
	v.SetDefault("cors.allowed_headers", cors.AllowedHeaders)
	v.SetDefault("cors.max_age", cors.MaxAge)

	v.SetDefault("inference.region", "us-east-1")
	v.SetDefault("inference.endpoint", "")
	v.SetDefault("inference.default_model_id", "anthropic.claude-3-sonnet-20240229-v1:0")
	v.SetDefault("inference.timeout", "60s")

	v.SetDefault("telemetry.collector.url", "")
	v.SetDefault("telemetry.collector.token", "")
	v.SetDefault("telemetry.collector.timeout", "10s")
	v.SetDefault("telemetry.collector.tls_skip_verify", false)
	v.SetDefault("telemetry.defaults.index", "")
	v.SetDefault("telemetry.defaults.host", "")
	v.SetDefault("telemetry.defaults.source", "")
	v.SetDefault("telemetry.defaults.sourcetype", "")
	v.SetDefault("telemetry.mirror.enabled", false)
	v.SetDefault("telemetry.mirror.url", "nats://localhost:4222")
	v.SetDefault("telemetry.mirror.subject", "addin.telemetry.events")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Redacted returns a copy safe to print: the collector token is masked.
func (c Config) Redacted() Config {
	if c.Telemetry.Collector.Token != "" {
		c.Telemetry.Collector.Token = "***"
	}
	return c
}
