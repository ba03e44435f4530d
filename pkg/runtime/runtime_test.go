package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange/sandbox"
	"github.com/peter-kozarec/botplatform/pkg/strategy"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

func testClock() time.Time { return time.UnixMilli(nowMs) }

func snapshot(price string, ts int64) common.MarketSnapshot {
	p := fixed.MustParse(price)
	return common.MarketSnapshot{
		Symbol:    "BTC-USDT",
		Price:     p,
		Bid:       p.Sub(fixed.MustParse("0.5")),
		Ask:       p.Add(fixed.MustParse("0.5")),
		TimeStamp: ts,
	}
}

type updateRecorder struct {
	mu      sync.Mutex
	updates []common.OrderUpdate
}

func (r *updateRecorder) record(_ context.Context, u common.OrderUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *updateRecorder) get() []common.OrderUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.OrderUpdate(nil), r.updates...)
}

func TestRuntime_HedgeRoundTrip(t *testing.T) {
	logger := zaptest.NewLogger(t)
	b := bus.NewBus(logger)
	sim := sandbox.NewSimulator(logger, sandbox.WithClock(testClock))
	b.Subscribe(bus.MarketSnapshotEvent, bus.MarketSnapshotHandler(sim.OnMarketSnapshot))

	engine := strategy.NewEngine(logger)
	hedge := strategy.NewHedge("BTC-USDT")
	engine.Register(hedge)

	rec := &updateRecorder{}
	NewRuntime(logger, b, sim, engine, WithClock(testClock))
	b.Subscribe(bus.OrderUpdateEvent, bus.OrderUpdateHandler(rec.record))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop()

	ev, err := bus.NewMarketSnapshotEvent("test", snapshot("43250", 1))
	require.NoError(t, err)
	b.Publish(ev)

	require.Eventually(t, func() bool { return len(rec.get()) == 2 }, time.Second, time.Millisecond)

	updates := rec.get()
	assert.Equal(t, "BTC-USDT.LONG.1700000000000", updates[0].ClientID)
	assert.Equal(t, common.OrderSideBuy, updates[0].Side)
	assert.Equal(t, "BTC-USDT.SHORT.1700000000000", updates[1].ClientID)
	assert.Equal(t, common.OrderSideSell, updates[1].Side)
	for _, u := range updates {
		assert.Equal(t, common.OrderStatusFilled, u.Status)
		assert.True(t, u.AvgFillPrice.Eq(fixed.FromInt(43250, 0)))
	}

	// the updates reached the legs, so a second tick opens nothing
	require.Eventually(t, func() bool { return b.Statistics().DispatchCount == 3 }, time.Second, time.Millisecond)
	ev, err = bus.NewMarketSnapshotEvent("test", snapshot("43300", 2))
	require.NoError(t, err)
	b.Publish(ev)
	require.Eventually(t, func() bool { return b.Statistics().DispatchCount == 4 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, rec.get(), 2)

	state := hedge.State()
	assert.True(t, state["hedge-BTC-USDT.long"].Size.Eq(strategy.DefaultBaseSize))
	assert.True(t, state["hedge-BTC-USDT.short"].Size.Eq(strategy.DefaultBaseSize))

	// a long and a short of the same size net to flat on the exchange book
	positions, err := sim.GetPositions(ctx, "BTC-USDT")
	require.NoError(t, err)
	assert.True(t, positions["BTC-USDT"].IsFlat())
	assert.Zero(t, b.Statistics().DispatchFails)
}

type signalsFunc func(context.Context, common.MarketSnapshot) (common.SignalSnapshot, error)

func (f signalsFunc) OnMarketSnapshot(ctx context.Context, s common.MarketSnapshot) (common.SignalSnapshot, error) {
	return f(ctx, s)
}

type contextStrategy struct {
	seen []common.StrategyContext
}

func (s *contextStrategy) Name() string { return "ctx" }
func (s *contextStrategy) OnTick(ctx common.StrategyContext) []common.ActionIntent {
	s.seen = append(s.seen, ctx)
	return nil
}
func (s *contextStrategy) OnOrderUpdate(common.OrderUpdate) {}

func TestRuntime_ContextBuild(t *testing.T) {
	logger := zap.NewNop()
	b := bus.NewBus(logger)
	sim := sandbox.NewSimulator(logger)
	_, err := sim.PlaceOrder(context.Background(), common.OrderIntent{
		Symbol: "BTC-USDT", Side: common.OrderSideBuy, Type: common.OrderTypeMarket, Size: fixed.One,
	})
	require.NoError(t, err)

	engine := strategy.NewEngine(logger)
	s := &contextStrategy{}
	engine.Register(s)

	r := NewRuntime(logger, b, sim, engine, WithSignals(signalsFunc(func(_ context.Context, m common.MarketSnapshot) (common.SignalSnapshot, error) {
		return common.SignalSnapshot{Symbol: m.Symbol, Data: map[string]float64{"z": 1.5}, TimeStamp: m.TimeStamp}, nil
	})))

	require.NoError(t, r.OnMarketSnapshot(context.Background(), snapshot("100", 7)))
	require.Len(t, s.seen, 1)

	ctx := s.seen[0]
	assert.Equal(t, "BTC-USDT", ctx.Symbol)
	assert.Equal(t, int64(7), ctx.TimeStamp)
	require.NotNil(t, ctx.Position)
	assert.Equal(t, common.PositionSideLong, ctx.Position.Side)
	require.NotNil(t, ctx.Signals)
	assert.Equal(t, 1.5, ctx.Signals.Data["z"])
}

func TestRuntime_SignalsFailure(t *testing.T) {
	logger := zap.NewNop()
	errSignals := errors.New("no signals")

	r := NewRuntime(logger, bus.NewBus(logger), sandbox.NewSimulator(logger), strategy.NewEngine(logger),
		WithSignals(signalsFunc(func(context.Context, common.MarketSnapshot) (common.SignalSnapshot, error) {
			return common.SignalSnapshot{}, errSignals
		})))

	require.ErrorIs(t, r.OnMarketSnapshot(context.Background(), snapshot("100", 1)), errSignals)
}
