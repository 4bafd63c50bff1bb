package contract

import (
	"time"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/config"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/typeutil"
)

// Guardrails are the hard ceilings ending the retry loop independent of
// attempt outcomes. All values are strictly positive.
type Guardrails struct {
	MaxAttempts        int `json:"max_attempts"`
	MaxDurationSeconds int `json:"max_duration_seconds"`
	MaxPayloadChars    int `json:"max_payload_chars"`
}

// DefaultGuardrails returns the system default ceilings from config.
func DefaultGuardrails(cfg *config.EngineConfig) Guardrails {
	return Guardrails{
		MaxAttempts:        cfg.MaxAttempts,
		MaxDurationSeconds: cfg.MaxDurationSeconds,
		MaxPayloadChars:    cfg.MaxPayloadChars,
	}
}

// MaxDuration returns the duration ceiling as a time.Duration.
func (g Guardrails) MaxDuration() time.Duration {
	return time.Duration(g.MaxDurationSeconds) * time.Second
}

// Derive overlays the contract's execution constraints onto the defaults.
// Only known keys are considered, and an override is applied only when it is
// numeric and strictly positive; anything else keeps the default.
func Derive(c *ExecutionContract, defaults Guardrails) Guardrails {
	g := defaults
	if c == nil || c.ExecutionConstraints == nil {
		return g
	}

	if v, ok := positiveInt(c.ExecutionConstraints["max_attempts"]); ok {
		g.MaxAttempts = v
	}
	if v, ok := positiveInt(c.ExecutionConstraints["max_duration_seconds"]); ok {
		g.MaxDurationSeconds = v
	}
	if v, ok := positiveInt(c.ExecutionConstraints["max_payload_chars"]); ok {
		g.MaxPayloadChars = v
	}
	return g
}

func positiveInt(v any) (int, bool) {
	f, ok := typeutil.SafeFloat64(v)
	if !ok || f <= 0 {
		return 0, false
	}
	return int(f), true
}
