package snapshot

import "github.com/hupe1980/toyfat/resource"

type options struct {
	codec     Codec
	level     int
	resources *resource.Controller
}

// Option configures snapshot export, import and archives.
type Option func(*options)

// WithCodec selects the payload codec. The default is CodecZstd.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithLevel sets the zstd compression level (1 to 22). Zero selects the default.
func WithLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithRateLimit throttles snapshot I/O through the controller's IO budget.
func WithRateLimit(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

func applyOptions(opts []Option) options {
	o := options{codec: CodecZstd}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
