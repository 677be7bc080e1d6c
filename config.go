package hexsim

import (
	"fmt"

	"github.com/hexsim/hexsim/service/resolver"
	"github.com/hexsim/hexsim/service/scheduler"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON or YAML; the zero value is useful since all
// nested fields inherit their package defaults.
type Config struct {
	Scheduler scheduler.Config `json:"scheduler" yaml:"scheduler"`
	Resolver  resolver.Config  `json:"resolver" yaml:"resolver"`

	// BalanceURL optionally points at a YAML balance table; when empty the
	// built-in defaults are used.
	BalanceURL string `json:"balanceURL" yaml:"balanceURL"`
}

// DefaultConfig returns a Config populated with every package's defaults.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: scheduler.DefaultConfig(),
		Resolver:  resolver.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Resolver.MaxRetries < 0 {
		return fmt.Errorf("resolver.maxRetries must not be negative")
	}
	if c.Scheduler.SweepInterval < 0 {
		return fmt.Errorf("scheduler.sweepInterval must not be negative")
	}
	return nil
}
