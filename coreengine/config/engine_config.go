// Package config provides engine configuration - NO infrastructure URLs.
//
// This module contains ONLY configuration relevant to the execution engine:
//   - Guardrail defaults (attempts, duration, payload size)
//   - Auto-fix policy knobs
//   - Oracle call timeouts and history window sizes
//
// Infrastructure configuration (oracle endpoints, proposal store locations)
// belongs to whoever wires the engine, not here.
package config

import (
	"sync"
)

// EngineConfig holds execution engine configuration.
//
// Guardrail fields are system defaults only; a contract may tighten or
// loosen them per request through its execution constraints.
type EngineConfig struct {
	// Guardrail defaults
	MaxAttempts        int `json:"max_attempts"`
	MaxDurationSeconds int `json:"max_duration_seconds"`
	MaxPayloadChars    int `json:"max_payload_chars"`

	// Auto-fix policy
	AutoFixEnabled             bool    `json:"auto_fix_enabled"`
	AutoFixConfidenceThreshold float64 `json:"auto_fix_confidence_threshold"`
	BackupDir                  string  `json:"backup_dir"`

	// Oracle calls have no guardrail of their own; this bounds each one.
	OracleTimeoutSeconds int `json:"oracle_timeout_seconds"`

	// History window sizes
	TelemetryBufferSize int `json:"telemetry_buffer_size"`
	MemoryWindowSize    int `json:"memory_window_size"`

	// Path fragments that mark a file as critical for risk scoring.
	CriticalPathMarkers []string `json:"critical_path_markers"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultEngineConfig returns an EngineConfig with default values.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		// Guardrail defaults
		MaxAttempts:        3,
		MaxDurationSeconds: 240,
		MaxPayloadChars:    12000,

		// Auto-fix policy
		AutoFixEnabled:             true,
		AutoFixConfidenceThreshold: 0.85,
		BackupDir:                  ".selfheal/backups",

		// Oracle timeout (seconds)
		OracleTimeoutSeconds: 60,

		// History window sizes
		TelemetryBufferSize: 200,
		MemoryWindowSize:    50,

		// Risk scoring
		CriticalPathMarkers: []string{"main", "config", "settings", "auth", "security"},

		// Logging
		LogLevel: "INFO",
	}
}

// EngineConfigFromMap creates EngineConfig from a map.
// Unknown keys are ignored.
func EngineConfigFromMap(config map[string]any) *EngineConfig {
	c := DefaultEngineConfig()

	if v, ok := config["max_attempts"].(int); ok {
		c.MaxAttempts = v
	} else if v, ok := config["max_attempts"].(float64); ok {
		c.MaxAttempts = int(v)
	}
	if v, ok := config["max_duration_seconds"].(int); ok {
		c.MaxDurationSeconds = v
	} else if v, ok := config["max_duration_seconds"].(float64); ok {
		c.MaxDurationSeconds = int(v)
	}
	if v, ok := config["max_payload_chars"].(int); ok {
		c.MaxPayloadChars = v
	} else if v, ok := config["max_payload_chars"].(float64); ok {
		c.MaxPayloadChars = int(v)
	}
	if v, ok := config["auto_fix_enabled"].(bool); ok {
		c.AutoFixEnabled = v
	}
	if v, ok := config["auto_fix_confidence_threshold"].(float64); ok {
		c.AutoFixConfidenceThreshold = v
	}
	if v, ok := config["backup_dir"].(string); ok {
		c.BackupDir = v
	}
	if v, ok := config["oracle_timeout_seconds"].(int); ok {
		c.OracleTimeoutSeconds = v
	} else if v, ok := config["oracle_timeout_seconds"].(float64); ok {
		c.OracleTimeoutSeconds = int(v)
	}
	if v, ok := config["telemetry_buffer_size"].(int); ok {
		c.TelemetryBufferSize = v
	} else if v, ok := config["telemetry_buffer_size"].(float64); ok {
		c.TelemetryBufferSize = int(v)
	}
	if v, ok := config["memory_window_size"].(int); ok {
		c.MemoryWindowSize = v
	} else if v, ok := config["memory_window_size"].(float64); ok {
		c.MemoryWindowSize = int(v)
	}
	if v, ok := config["critical_path_markers"].([]string); ok {
		c.CriticalPathMarkers = v
	} else if v, ok := config["critical_path_markers"].([]any); ok {
		markers := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				markers = append(markers, s)
			}
		}
		if len(markers) > 0 {
			c.CriticalPathMarkers = markers
		}
	}
	if v, ok := config["log_level"].(string); ok {
		c.LogLevel = v
	}

	return c
}

// ToMap converts config to a map.
func (c *EngineConfig) ToMap() map[string]any {
	return map[string]any{
		"max_attempts":                  c.MaxAttempts,
		"max_duration_seconds":          c.MaxDurationSeconds,
		"max_payload_chars":             c.MaxPayloadChars,
		"auto_fix_enabled":              c.AutoFixEnabled,
		"auto_fix_confidence_threshold": c.AutoFixConfidenceThreshold,
		"backup_dir":                    c.BackupDir,
		"oracle_timeout_seconds":        c.OracleTimeoutSeconds,
		"telemetry_buffer_size":         c.TelemetryBufferSize,
		"memory_window_size":            c.MemoryWindowSize,
		"critical_path_markers":         c.CriticalPathMarkers,
		"log_level":                     c.LogLevel,
	}
}

// =============================================================================
// CONFIG PROVIDER INTERFACE (Dependency Injection)
// =============================================================================

// ConfigProvider provides configuration values.
// Use this interface for dependency injection instead of global state.
type ConfigProvider interface {
	// GetEngineConfig returns the engine configuration.
	GetEngineConfig() *EngineConfig
}

// DefaultConfigProvider provides the global configuration.
type DefaultConfigProvider struct{}

// GetEngineConfig returns the global engine configuration.
func (p *DefaultConfigProvider) GetEngineConfig() *EngineConfig {
	return GetGlobalEngineConfig()
}

// StaticConfigProvider provides a static configuration.
// Useful for testing with specific config values.
type StaticConfigProvider struct {
	Config *EngineConfig
}

// GetEngineConfig returns the static configuration.
func (p *StaticConfigProvider) GetEngineConfig() *EngineConfig {
	if p.Config == nil {
		return DefaultEngineConfig()
	}
	return p.Config
}

// NewStaticConfigProvider creates a new StaticConfigProvider.
func NewStaticConfigProvider(config *EngineConfig) *StaticConfigProvider {
	return &StaticConfigProvider{Config: config}
}

// =============================================================================
// GLOBAL CONFIG (set at process bootstrap)
// =============================================================================

var (
	globalEngineConfig *EngineConfig
	configMu           sync.RWMutex
)

// GetGlobalEngineConfig gets the global engine configuration instance.
// Returns the injected config or defaults.
// Prefer the ConfigProvider interface for new code.
func GetGlobalEngineConfig() *EngineConfig {
	configMu.RLock()
	defer configMu.RUnlock()

	if globalEngineConfig == nil {
		return DefaultEngineConfig()
	}
	return globalEngineConfig
}

// SetEngineConfig sets the global engine configuration instance.
// Called once at bootstrap after loading file and environment overrides.
func SetEngineConfig(config *EngineConfig) {
	configMu.Lock()
	defer configMu.Unlock()

	globalEngineConfig = config
}

// ResetEngineConfig resets the global config to nil (useful for testing).
// After reset, GetGlobalEngineConfig() returns defaults.
func ResetEngineConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	globalEngineConfig = nil
}
