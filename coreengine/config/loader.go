package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors EngineConfig with pointer fields so absent YAML keys
// leave the defaults untouched.
type fileConfig struct {
	MaxAttempts                *int     `yaml:"max_attempts"`
	MaxDurationSeconds         *int     `yaml:"max_duration_seconds"`
	MaxPayloadChars            *int     `yaml:"max_payload_chars"`
	AutoFixEnabled             *bool    `yaml:"auto_fix_enabled"`
	AutoFixConfidenceThreshold *float64 `yaml:"auto_fix_confidence_threshold"`
	BackupDir                  *string  `yaml:"backup_dir"`
	OracleTimeoutSeconds       *int     `yaml:"oracle_timeout_seconds"`
	TelemetryBufferSize        *int     `yaml:"telemetry_buffer_size"`
	MemoryWindowSize           *int     `yaml:"memory_window_size"`
	CriticalPathMarkers        []string `yaml:"critical_path_markers"`
	LogLevel                   *string  `yaml:"log_level"`
}

// envConfig carries environment overrides. Environment wins over file.
type envConfig struct {
	MaxAttempts                *int     `env:"SELFHEAL_MAX_ATTEMPTS"`
	MaxDurationSeconds         *int     `env:"SELFHEAL_MAX_DURATION_SECONDS"`
	MaxPayloadChars            *int     `env:"SELFHEAL_MAX_PAYLOAD_CHARS"`
	AutoFixEnabled             *bool    `env:"SELFHEAL_AUTO_FIX_ENABLED"`
	AutoFixConfidenceThreshold *float64 `env:"SELFHEAL_AUTO_FIX_CONFIDENCE_THRESHOLD"`
	BackupDir                  *string  `env:"SELFHEAL_BACKUP_DIR"`
	OracleTimeoutSeconds       *int     `env:"SELFHEAL_ORACLE_TIMEOUT_SECONDS"`
	LogLevel                   *string  `env:"SELFHEAL_LOG_LEVEL"`
}

// Load builds an EngineConfig from defaults, an optional YAML file, and
// environment variables, in that order of increasing precedence. An empty
// path skips the file layer.
func Load(path string) (*EngineConfig, error) {
	c := DefaultEngineConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		applyFileConfig(c, &fc)
	}

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return nil, fmt.Errorf("parse environment config: %w", err)
	}
	applyEnvConfig(c, &ec)

	return c, nil
}

func applyFileConfig(c *EngineConfig, fc *fileConfig) {
	if fc.MaxAttempts != nil {
		c.MaxAttempts = *fc.MaxAttempts
	}
	if fc.MaxDurationSeconds != nil {
		c.MaxDurationSeconds = *fc.MaxDurationSeconds
	}
	if fc.MaxPayloadChars != nil {
		c.MaxPayloadChars = *fc.MaxPayloadChars
	}
	if fc.AutoFixEnabled != nil {
		c.AutoFixEnabled = *fc.AutoFixEnabled
	}
	if fc.AutoFixConfidenceThreshold != nil {
		c.AutoFixConfidenceThreshold = *fc.AutoFixConfidenceThreshold
	}
	if fc.BackupDir != nil {
		c.BackupDir = *fc.BackupDir
	}
	if fc.OracleTimeoutSeconds != nil {
		c.OracleTimeoutSeconds = *fc.OracleTimeoutSeconds
	}
	if fc.TelemetryBufferSize != nil {
		c.TelemetryBufferSize = *fc.TelemetryBufferSize
	}
	if fc.MemoryWindowSize != nil {
		c.MemoryWindowSize = *fc.MemoryWindowSize
	}
	if len(fc.CriticalPathMarkers) > 0 {
		c.CriticalPathMarkers = fc.CriticalPathMarkers
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
}

func applyEnvConfig(c *EngineConfig, ec *envConfig) {
	if ec.MaxAttempts != nil {
		c.MaxAttempts = *ec.MaxAttempts
	}
	if ec.MaxDurationSeconds != nil {
		c.MaxDurationSeconds = *ec.MaxDurationSeconds
	}
	if ec.MaxPayloadChars != nil {
		c.MaxPayloadChars = *ec.MaxPayloadChars
	}
	if ec.AutoFixEnabled != nil {
		c.AutoFixEnabled = *ec.AutoFixEnabled
	}
	if ec.AutoFixConfidenceThreshold != nil {
		c.AutoFixConfidenceThreshold = *ec.AutoFixConfidenceThreshold
	}
	if ec.BackupDir != nil {
		c.BackupDir = *ec.BackupDir
	}
	if ec.OracleTimeoutSeconds != nil {
		c.OracleTimeoutSeconds = *ec.OracleTimeoutSeconds
	}
	if ec.LogLevel != nil {
		c.LogLevel = *ec.LogLevel
	}
}
