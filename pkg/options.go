package gate

import (
	"time"

	"github.com/dogecoinfoundation/paygate/pkg/logger"
	"github.com/dogecoinfoundation/paygate/pkg/metrics"
)

// deps are the ambient collaborators shared by the payment components.
type deps struct {
	log     logger.Logger
	metrics metrics.Recorder
	events  EventSink
	now     func() time.Time
	labels  map[string]string
}

type Option func(*deps)

func WithLogger(l logger.Logger) Option {
	return func(d *deps) { d.log = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(d *deps) { d.metrics = m }
}

func WithEvents(e EventSink) Option {
	return func(d *deps) { d.events = e }
}

// WithClock overrides time.Now, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

func newDeps(network string, opts []Option) deps {
	d := deps{
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		events:  NoopSink{},
		now:     time.Now,
		labels:  map[string]string{"network": network},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// emit publishes to the bus; a full bus is logged, never fatal.
func (d deps) emit(t EventType, msg any, id ...string) {
	if err := d.events.Send(t, msg, id...); err != nil {
		d.log.Warn("event dropped", map[string]any{"event": eventName(t), "error": err.Error()})
	}
}
