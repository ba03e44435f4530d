package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
)

const monitorComponentName = "middleware.monitor"

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorMarketSnapshots
	MonitorOrderUpdates
	MonitorFailures
)

// Monitor logs the events passing through a handler, selected by flags.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger.Named(monitorComponentName),
		flags:  flags,
	}
}

func (m *Monitor) Middleware(handler bus.Handler) bus.Handler {
	return func(ctx context.Context, ev bus.Event) error {
		if m.enabled(eventFlag(ev.Type)) {
			m.logger.Info("event", ev.Fields()...)
		}

		err := handler(ctx, ev)
		if err != nil && m.enabled(MonitorFailures) {
			m.logger.Warn("event handler failed", append(ev.Fields(), zap.Error(err))...)
		}
		return err
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func eventFlag(eventType string) MonitorFlags {
	switch eventType {
	case bus.MarketSnapshotEvent:
		return MonitorMarketSnapshots
	case bus.OrderUpdateEvent:
		return MonitorOrderUpdates
	default:
		return MonitorNone
	}
}
