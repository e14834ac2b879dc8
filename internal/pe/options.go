package pe

import (
	"github.com/hashicorp/go-hclog"
)

// Options controls how an image is decoded.
type Options struct {
	// Logger receives debug output about each stage. Nil disables logging.
	Logger hclog.Logger
	// Strict makes failures inside optional directories (resources, imports,
	// load config, exports, debug) abort the decode instead of dropping the
	// directory from the result.
	Strict bool
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets the decode logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithStrict enables strict handling of optional directories.
func WithStrict(strict bool) Option {
	return func(o *Options) {
		o.Strict = strict
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = hclog.NewNullLogger()
	}
	return o
}
