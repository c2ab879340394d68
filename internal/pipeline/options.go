package pipeline

import (
	"context"
	"time"

	"github.com/dshills/folio/internal/event/events"
	"github.com/dshills/folio/internal/logging"
)

// Reporter publishes contribution failures. *event.Bus implements it.
type Reporter interface {
	Report(ctx context.Context, pe events.PluginError)
}

// Observer receives fold timings and failures.
type Observer interface {
	FoldObserved(stage string, d time.Duration)
	ContributionFailed(owner, name string)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReporter sets where failures are reported.
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) {
		p.reporter = r
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithObserver attaches a statistics observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithEnabled controls whether folds apply contributions. A disabled
// pipeline returns every input unchanged.
func WithEnabled(enabled bool) Option {
	return func(p *Pipeline) {
		p.enabled = enabled
	}
}

// WithDefaultPriority overrides the priority applied to contributions
// registered without one.
func WithDefaultPriority(priority int) Option {
	return func(p *Pipeline) {
		p.defaultPriority = priority
	}
}
