package config

import (
	"github.com/alexisbeaulieu97/cph/internal/step"
)

// DefaultMaxWorkers is the worker pool size used when none is configured.
const DefaultMaxWorkers = 4

// Config represents the cph application configuration document.
type Config struct {
	LogLevel   string `yaml:"log_level" validate:"omitempty,log_level"`
	Parallel   bool   `yaml:"parallel"`
	MaxWorkers int    `yaml:"max_workers" validate:"min=1,max=64"`
	// Linear runs steps in list order without building a dependency graph.
	Linear bool `yaml:"linear"`
	// Container receives command steps when the context env_type is docker.
	Container string            `yaml:"container,omitempty"`
	Context   step.StepContext  `yaml:"context"`
	ExtraVars map[string]string `yaml:"extra_vars,omitempty" validate:"omitempty,dive,keys,required,endkeys"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		LogLevel:   "info",
		MaxWorkers: DefaultMaxWorkers,
	}
}

// StepContext returns the template context with ExtraVars merged into the
// context's own extra variables. Context entries win on collisions.
func (c Config) StepContext() step.StepContext {
	ctx := c.Context
	if len(c.ExtraVars) == 0 {
		return ctx
	}

	extra := make(map[string]string, len(c.ExtraVars)+len(ctx.Extra))
	for k, v := range c.ExtraVars {
		extra[k] = v
	}
	for k, v := range ctx.Extra {
		extra[k] = v
	}
	ctx.Extra = extra
	return ctx
}
