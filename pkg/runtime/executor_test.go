package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
	"github.com/peter-kozarec/botplatform/pkg/exchange/sandbox"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

type publishRecorder struct {
	events []bus.Event
}

func (p *publishRecorder) Publish(ev bus.Event) { p.events = append(p.events, ev) }

var errTransport = errors.New("transport down")

// failingExchange fails every order after the first n.
type failingExchange struct {
	exchange.Exchange
	n     int
	calls int
}

func (f *failingExchange) PlaceOrder(ctx context.Context, intent common.OrderIntent) (common.OrderUpdate, error) {
	f.calls++
	if f.calls > f.n {
		return common.OrderUpdate{}, errTransport
	}
	return f.Exchange.PlaceOrder(ctx, intent)
}

func orders(n int) []common.OrderIntent {
	out := make([]common.OrderIntent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, common.OrderIntent{
			Symbol:   "BTC-USDT",
			Side:     common.OrderSideBuy,
			Type:     common.OrderTypeMarket,
			Size:     fixed.One,
			ClientID: "BTC-USDT.LONG.1",
		})
	}
	return out
}

func TestExecutor_SubmitPublishesUpdates(t *testing.T) {
	pub := &publishRecorder{}
	e := NewExecutor(zap.NewNop(), pub, sandbox.NewSimulator(zap.NewNop(), sandbox.WithClock(testClock)))

	require.NoError(t, e.Submit(context.Background(), orders(2)))
	require.Len(t, pub.events, 2)

	ev := pub.events[0]
	assert.Equal(t, bus.OrderUpdateEvent, ev.Type)
	assert.Equal(t, ExecutorSource, ev.Source)
	assert.Equal(t, nowMs, ev.TimeStamp)
	require.NotNil(t, ev.CorrelationID)
	assert.Equal(t, "BTC-USDT.LONG.1", *ev.CorrelationID)

	update, err := bus.OrderUpdateFromEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, common.OrderStatusFilled, update.Status)
}

func TestExecutor_SubmitStopsAtFirstFailure(t *testing.T) {
	pub := &publishRecorder{}
	ex := &failingExchange{Exchange: sandbox.NewSimulator(zap.NewNop()), n: 1}
	e := NewExecutor(zap.NewNop(), pub, ex)

	err := e.Submit(context.Background(), orders(3))
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, 2, ex.calls)
	assert.Len(t, pub.events, 1)
}

func TestExecutor_RejectedUpdatesArePublished(t *testing.T) {
	pub := &publishRecorder{}
	e := NewExecutor(zap.NewNop(), pub, sandbox.NewSimulator(zap.NewNop()))

	bad := orders(1)
	bad[0].Size = fixed.Zero
	require.NoError(t, e.Submit(context.Background(), bad))
	require.Len(t, pub.events, 1)

	update, err := bus.OrderUpdateFromEvent(pub.events[0])
	require.NoError(t, err)
	assert.Equal(t, common.OrderStatusRejected, update.Status)
}

func TestExecutor_HandleUpdate(t *testing.T) {
	pub := &publishRecorder{}
	e := NewExecutor(zap.NewNop(), pub, sandbox.NewSimulator(zap.NewNop()))

	require.NoError(t, e.HandleUpdate(context.Background(), common.OrderUpdate{OrderID: "x", Status: common.OrderStatusCancelled, TimeStamp: 42}))
	require.Len(t, pub.events, 1)
	assert.Equal(t, int64(42), pub.events[0].TimeStamp)
	assert.Nil(t, pub.events[0].CorrelationID)
}
