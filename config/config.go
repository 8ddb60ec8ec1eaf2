// Package config provides environment-based configuration for Veridian.
//
// Configuration is loaded from environment variables using Viper, with
// sensible defaults for development.
//
// # Environment Variables
//
//   - ACCOUNT_LOCK_THRESHOLD: Failed attempts before an account is locked.
//     Zero disables locking. Default: 0
//   - STRICT_LOCKING: Fail construction when a lock threshold is configured
//     but no realm can enforce it. Default: false
//   - AUTHC_STRATEGY: Multi-realm strategy (first_successful, all_successful).
//     Default: first_successful
//   - LOG_LEVEL: Logging level (debug, info, warn, error). Default: info
//   - TELEMETRY_ENABLED: Enable OpenTelemetry metrics/traces. Default: false
//   - OTLP_ENDPOINT: OTLP gRPC endpoint for trace export. Default: ""
package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	StrategyFirstSuccessful = "first_successful"
	StrategyAllSuccessful   = "all_successful"
)

type Config struct {
	AccountLockThreshold int    `mapstructure:"ACCOUNT_LOCK_THRESHOLD"`
	StrictLocking        bool   `mapstructure:"STRICT_LOCKING"`
	Strategy             string `mapstructure:"AUTHC_STRATEGY"`
	LogLevel             string `mapstructure:"LOG_LEVEL"`
	TelemetryEnabled     bool   `mapstructure:"TELEMETRY_ENABLED"`
	OTLPEndpoint         string `mapstructure:"OTLP_ENDPOINT"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("ACCOUNT_LOCK_THRESHOLD", 0)
	viper.SetDefault("STRICT_LOCKING", false)
	viper.SetDefault("AUTHC_STRATEGY", StrategyFirstSuccessful)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TELEMETRY_ENABLED", false)
	viper.SetDefault("OTLP_ENDPOINT", "")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
