package reader

import (
	"github.com/dshills/folio/internal/content"
	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/metrics"
	"github.com/dshills/folio/internal/pipeline"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	logger          *logging.Logger
	metrics         *metrics.Metrics
	onError         func(events.PluginError)
	track           content.Track
	forceTrack      bool
	pipelineOff     bool
	defaultPriority int
}

func defaultOptions() options {
	return options{defaultPriority: pipeline.DefaultPriority}
}

// WithLogger sets the session logger. Every component logs through it.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics attaches collectors to the bus, the pipeline and the registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithErrorCallback mirrors every plugin:error payload to fn.
func WithErrorCallback(fn func(events.PluginError)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithTrack forces a track instead of deriving it from the document.
func WithTrack(t content.Track) Option {
	return func(o *options) {
		o.track = t
		o.forceTrack = true
	}
}

// WithPipelineDisabled turns off the transform pipeline on the tree track.
func WithPipelineDisabled() Option {
	return func(o *options) {
		o.pipelineOff = true
	}
}

// WithDefaultPriority sets the priority applied to contributions that
// register with priority zero.
func WithDefaultPriority(p int) Option {
	return func(o *options) {
		o.defaultPriority = p
	}
}
