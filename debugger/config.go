package debugger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config controls a debug session.
type Config struct {
	// MaxSteps bounds the total number of steps one ContinueDebug call may
	// take. Zero means DefaultConfig's value.
	MaxSteps int

	// StepWarnThreshold is the step count after which a runaway warning is
	// logged and reported through AddDebugMessage. It is reported once per
	// multiple of the threshold.
	StepWarnThreshold int

	// TraceChanges records before/after pairs in each State. With it off
	// only the step index, next instruction and flags are recorded.
	TraceChanges bool

	// Logger receives engine diagnostics.
	Logger zerolog.Logger
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxSteps:          100000,
		StepWarnThreshold: 10000,
		TraceChanges:      true,
		Logger:            zerolog.Nop(),
	}
}

func (c *Config) validate() error {
	if c.MaxSteps < 0 {
		return NewError(ErrInvalidConfig, fmt.Sprintf("MaxSteps %d is negative", c.MaxSteps))
	}
	if c.StepWarnThreshold < 0 {
		return NewError(ErrInvalidConfig, fmt.Sprintf("StepWarnThreshold %d is negative", c.StepWarnThreshold))
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultConfig().MaxSteps
	}
	return nil
}
