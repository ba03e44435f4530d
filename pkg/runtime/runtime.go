package runtime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
	"github.com/peter-kozarec/botplatform/pkg/middleware"
	"github.com/peter-kozarec/botplatform/pkg/strategy"
)

const componentName = "runtime"

// SignalsEngine derives signals from a market snapshot before strategies see it.
type SignalsEngine interface {
	OnMarketSnapshot(ctx context.Context, snapshot common.MarketSnapshot) (common.SignalSnapshot, error)
}

type Option func(*Runtime)

func WithMiddleware(mw middleware.Middleware) Option {
	return func(r *Runtime) {
		r.middleware = mw
	}
}

func WithSignals(signals SignalsEngine) Option {
	return func(r *Runtime) {
		r.signals = signals
	}
}

func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) {
		r.clock = clock
	}
}

func WithSource(source string) Option {
	return func(r *Runtime) {
		r.source = source
	}
}

// Runtime connects market data to strategies and strategy intents to the exchange.
// All of its handlers run on the bus consumer.
type Runtime struct {
	logger   *zap.Logger
	exchange exchange.Exchange
	engine   *strategy.Engine
	executor *Executor

	middleware middleware.Middleware
	signals    SignalsEngine
	clock      func() time.Time
	source     string

	ticks uint64
}

// NewRuntime builds the runtime and subscribes it to market snapshots and order updates.
func NewRuntime(logger *zap.Logger, b *bus.Bus, ex exchange.Exchange, engine *strategy.Engine, options ...Option) *Runtime {
	r := &Runtime{
		logger:     logger.Named(componentName),
		exchange:   ex,
		engine:     engine,
		executor:   NewExecutor(logger, b, ex),
		middleware: middleware.Noop,
		clock:      time.Now,
		source:     DefaultSource,
	}

	for _, option := range options {
		option(r)
	}

	b.Subscribe(bus.MarketSnapshotEvent, r.middleware(bus.MarketSnapshotHandler(r.OnMarketSnapshot)))
	b.Subscribe(bus.OrderUpdateEvent, r.middleware(bus.OrderUpdateHandler(r.OnOrderUpdate)))

	return r
}

func (r *Runtime) Executor() *Executor { return r.executor }

func (r *Runtime) OnMarketSnapshot(ctx context.Context, snapshot common.MarketSnapshot) error {
	r.ticks++

	positions, err := r.exchange.GetPositions(ctx, snapshot.Symbol)
	if err != nil {
		return fmt.Errorf("unable to get position of %s: %w", snapshot.Symbol, err)
	}

	var position *common.PositionSnapshot
	if p, ok := positions[snapshot.Symbol]; ok {
		position = &p
	}

	var signals *common.SignalSnapshot
	if r.signals != nil {
		s, err := r.signals.OnMarketSnapshot(ctx, snapshot)
		if err != nil {
			return fmt.Errorf("unable to compute signals of %s: %w", snapshot.Symbol, err)
		}
		signals = &s
	}

	intents := r.engine.OnTick(common.StrategyContext{
		Symbol:    snapshot.Symbol,
		Market:    snapshot,
		Signals:   signals,
		Position:  position,
		TimeStamp: snapshot.TimeStamp,
	})

	orders := BuildOrderIntents(snapshot.Symbol, r.source, intents, position, r.clock().UnixMilli())
	if len(orders) == 0 {
		return nil
	}

	r.logger.Debug("submitting orders", zap.String("symbol", snapshot.Symbol), zap.Int("count", len(orders)))
	return r.executor.Submit(ctx, orders)
}

func (r *Runtime) OnOrderUpdate(_ context.Context, update common.OrderUpdate) error {
	r.engine.OnOrderUpdate(update)
	return nil
}

func (r *Runtime) PrintStatistics() {
	r.logger.Info("runtime statistics", zap.Uint64("ticks", r.ticks))
	r.executor.PrintStatistics()
}
