// Package meta implements the engine orchestrator that selects how a parsed
// pattern is executed.
//
// The orchestrator coordinates three components:
//   - Prefilter: fast literal-based candidate finding (optional)
//   - NFA (Pike VM): linear-time engine for patterns without backtracking-only
//     constructs
//   - Backtracking VM: handles everything, including backreferences,
//     lookaround, conditionals, atomic groups and possessive repeats
//
// Strategy selection is based on:
//   - The FALLBACK flag (forces the backtracking VM)
//   - Whether the linear compiler accepts the pattern
//   - Literal analysis (plain literals skip both engines)
//
// Callers hand it a parsed *syntax.Regexp and receive an immutable Engine
// that is safe for concurrent use.
package meta

// Config controls engine selection and prefiltering.
//
// Example:
//
//	config := meta.DefaultConfig()
//	config.DisableFallback = true // reject patterns the linear engine cannot run
//	engine, err := meta.Compile(re, config)
type Config struct {
	// EnablePrefilter enables literal-based prefiltering.
	// When false, no prefilter is used even if literals are available.
	// Default: true
	EnablePrefilter bool

	// DisableFallback makes patterns the linear engine cannot execute fail
	// to compile with an unsupported-syntax error instead of running on the
	// backtracking VM. The FALLBACK flag still selects the backtracking VM.
	// Default: false
	DisableFallback bool

	// MaxLinearStates bounds the NFA built for the linear engine. Counted
	// repeats expand by copying their body; past this size the pattern is
	// treated as unsupported by the linear engine.
	// Default: 10000
	MaxLinearStates int

	// MinLiteralLen is the minimum length for multi-literal prefilters.
	// Shorter literals may have too many false positives.
	// Default: 1
	MinLiteralLen int

	// MaxLiterals limits the number of literals to extract for prefiltering.
	// Default: 64
	MaxLiterals int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnablePrefilter: true,
		DisableFallback: false,
		MaxLinearStates: 10000,
		MinLiteralLen:   1, // allow single-byte prefilters (memchr)
		MaxLiterals:     64,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any parameter is out of range.
//
// Valid ranges:
//   - MaxLinearStates: 1 to 1,000,000
//   - MinLiteralLen: 1 to 64
//   - MaxLiterals: 1 to 1,000
func (c Config) Validate() error {
	if c.MaxLinearStates < 1 || c.MaxLinearStates > 1_000_000 {
		return &ConfigError{
			Field:   "MaxLinearStates",
			Message: "must be between 1 and 1,000,000",
		}
	}

	if c.EnablePrefilter {
		if c.MinLiteralLen < 1 || c.MinLiteralLen > 64 {
			return &ConfigError{
				Field:   "MinLiteralLen",
				Message: "must be between 1 and 64",
			}
		}
		if c.MaxLiterals < 1 || c.MaxLiterals > 1_000 {
			return &ConfigError{
				Field:   "MaxLiterals",
				Message: "must be between 1 and 1,000",
			}
		}
	}

	return nil
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "sre: invalid config: " + e.Field + ": " + e.Message
}
