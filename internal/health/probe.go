package health

import (
	"context"
	"time"
)

// Probe is a single independent health check. Check reports on one
// component; the manager enforces the timeout and converts failures into
// unhealthy results.
type Probe interface {
	Name() string
	Timeout() time.Duration
	Critical() bool
	Tags() []string
	Check(ctx context.Context) (Result, error)
}

// ProbeOpts holds the registration metadata shared by probe
// implementations.
type ProbeOpts struct {
	Name     string        `yaml:"name"`
	Timeout  time.Duration `yaml:"timeout"`
	Critical bool          `yaml:"critical"`
	Tags     []string      `yaml:"tags"`
}

func (o ProbeOpts) withDefaults(name string) ProbeOpts {
	if o.Name == "" {
		o.Name = name
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	return o
}

// Base carries probe metadata; concrete probes embed it.
type Base struct {
	opts ProbeOpts
}

// NewBase creates probe metadata, defaulting the timeout to 5s and the
// name to fallback when unset.
func NewBase(opts ProbeOpts, fallback string) Base {
	return Base{opts: opts.withDefaults(fallback)}
}

func (b Base) Name() string           { return b.opts.Name }
func (b Base) Timeout() time.Duration { return b.opts.Timeout }
func (b Base) Critical() bool         { return b.opts.Critical }
func (b Base) Tags() []string         { return b.opts.Tags }
