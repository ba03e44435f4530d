package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
)

const telemetryComponentName = "middleware.telemetry"

// Telemetry counts events and measures handler latency per event type. The counters are
// exported through the given prometheus registerer and summarized by PrintStatistics.
type Telemetry struct {
	logger *zap.Logger

	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	mu     sync.Mutex
	counts map[string]*eventStats
}

type eventStats struct {
	events   int64
	failures int64
	duration time.Duration
}

func NewTelemetry(logger *zap.Logger, registerer prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		logger: logger.Named(telemetryComponentName),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botplatform_events_total",
			Help: "Events handled, by event type",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botplatform_event_failures_total",
			Help: "Event handler failures, by event type",
		}, []string{"type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "botplatform_event_handler_seconds",
			Help:    "Event handler latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"type"}),
		counts: make(map[string]*eventStats),
	}

	registerer.MustRegister(t.events, t.failures, t.latency)
	return t
}

func (t *Telemetry) Middleware(handler bus.Handler) bus.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		startTime := time.Now()
		err := handler(ctx, ev)
		elapsed := time.Since(startTime)

		t.events.WithLabelValues(ev.Type).Inc()
		t.latency.WithLabelValues(ev.Type).Observe(elapsed.Seconds())
		if err != nil {
			t.failures.WithLabelValues(ev.Type).Inc()
		}

		t.mu.Lock()
		s, ok := t.counts[ev.Type]
		if !ok {
			s = &eventStats{}
			t.counts[ev.Type] = s
		}
		s.events++
		s.duration += elapsed
		if err != nil {
			s.failures++
		}
		t.mu.Unlock()

		return err
	}
}

func (t *Telemetry) PrintStatistics() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for eventType, s := range t.counts {
		var avg time.Duration
		if s.events > 0 {
			avg = s.duration / time.Duration(s.events)
		}
		t.logger.Info("event statistics",
			zap.String("type", eventType),
			zap.Int64("events", s.events),
			zap.Int64("failures", s.failures),
			zap.Duration("total_handler_time", s.duration),
			zap.Duration("avg_handler_time", avg))
	}
}
