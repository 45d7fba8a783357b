// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml plus an optional config.<env>.yaml overlay,
// with environment variables (SERVICE_BASE_URL etc.) overriding file values.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	for _, p := range possiblePaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "trialscreen"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Service.TimeoutMs == 0 {
		cfg.Service.TimeoutMs = 30_000
	}
	if cfg.Service.UploadTimeoutMs == 0 {
		// The service processes every cohort row before responding.
		cfg.Service.UploadTimeoutMs = 120_000
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 24
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9102"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url is required")
	}
	if cfg.Service.UploadTimeoutMs < 120_000 {
		return fmt.Errorf("service.upload_timeout_ms must be at least 120000")
	}
	return nil
}
