package toyfat

import (
	"log/slog"

	"github.com/hupe1980/toyfat/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
}

// Option configures New.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &toyfat.BasicMetricsCollector{}
//	fsys, _ := toyfat.New(dev, toyfat.WithMetricsCollector(metrics))
//	// ... use fsys ...
//	stats := metrics.GetStats()
//	fmt.Printf("Writes: %d, bytes: %d\n", stats.WriteCount, stats.WriteBytes)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares open-file slots between filesystems.
// The open-file bound of MaxOpenFiles per filesystem always applies.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.resources == nil {
		o.resources = resource.NewController(resource.Config{MaxOpenFiles: MaxOpenFiles})
	}
	return o
}
