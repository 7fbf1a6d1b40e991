// Package config loads engine-local configuration: process startup knobs
// distinct from the on-chain PoW settings the node package reloads on every
// commit. It is read once, at startup, by the CLI.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the engine's process-local knobs.
type Config struct {
	// DataDir is where the telemetry store lives.
	DataDir string `mapstructure:"datadir"`

	// HostAddr is the validator host's connect address (ignored in dry-run mode).
	HostAddr string `mapstructure:"hostaddr"`

	// UpdateRecvTimeoutMS is the engine driver's update-receive poll timeout,
	// in milliseconds.
	UpdateRecvTimeoutMS int `mapstructure:"update_recv_timeout_ms"`

	// Verbosity selects the logrus level, 0 (fatal-only) through 4 (debug).
	Verbosity int `mapstructure:"verbosity"`

	// TelemetryPath is the goleveldb directory backing the mining telemetry
	// store. The CLI always joins it onto DataDir (DataDir + "/" + TelemetryPath),
	// including when it is an absolute path.
	TelemetryPath string `mapstructure:"telemetry_path"`

	// HealthPort serves /health and /ready when positive; 0 disables it.
	HealthPort int `mapstructure:"health_port"`
}

var defaultConfig = Config{
	DataDir:             "./data",
	HostAddr:            "tcp://localhost:5050",
	UpdateRecvTimeoutMS: 10,
	Verbosity:           2,
	TelemetryPath:       "telemetry",
	HealthPort:          0,
}

// Load reads configuration the way the teacher's config.LoadConfig does:
// defaults first, then an optional YAML file, then POW_-prefixed environment
// variables. When configPath is empty and no config file is found on the
// search path, the defaults are used; an explicit configPath that cannot be
// read, or a file that fails to parse, is an error.
func Load(configPath string) (*Config, error) {
	cfg := defaultConfig

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.powengine")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("POW")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if cfg.UpdateRecvTimeoutMS <= 0 {
		cfg.UpdateRecvTimeoutMS = defaultConfig.UpdateRecvTimeoutMS
	}

	return &cfg, nil
}

// GetLogLevel maps Verbosity onto the logger package's LogLevel scale, the
// same way the teacher's Config.GetLogLevel does.
func (c *Config) GetLogLevel() int {
	switch c.Verbosity {
	case 0:
		return 4 // Fatal
	case 1:
		return 3 // Error
	case 2:
		return 2 // Warning
	case 3:
		return 1 // Info
	case 4:
		return 0 // Debug
	default:
		return 2
	}
}

// UpdateRecvTimeout returns the configured poll timeout as a time.Duration.
func (c *Config) UpdateRecvTimeout() time.Duration {
	return time.Duration(c.UpdateRecvTimeoutMS) * time.Millisecond
}
