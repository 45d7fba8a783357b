// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Service ServiceConfig `mapstructure:"service"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServiceConfig describes the evaluation service boundary. The upload
// timeout is deliberately long: the service evaluates every cohort row
// synchronously before answering.
type ServiceConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	TimeoutMs       int    `mapstructure:"timeout_ms"`
	UploadTimeoutMs int    `mapstructure:"upload_timeout_ms"`
}

// Timeout returns the short default timeout for schema fetches and single
// submissions.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// UploadTimeout returns the extended timeout for bulk uploads.
func (s ServiceConfig) UploadTimeout() time.Duration {
	return time.Duration(s.UploadTimeoutMs) * time.Millisecond
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SessionConfig struct {
	TTLHours int `mapstructure:"ttl_hours"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
