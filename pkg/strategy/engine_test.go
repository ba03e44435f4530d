package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/storage"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

type stubStrategy struct {
	name    string
	tag     string
	updates []common.OrderUpdate
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) OnTick(common.StrategyContext) []common.ActionIntent {
	return []common.ActionIntent{{Action: common.ActionOpen, Context: map[string]any{"tag": s.tag}}}
}

func (s *stubStrategy) OnOrderUpdate(u common.OrderUpdate) {
	s.updates = append(s.updates, u)
}

func tags(intents []common.ActionIntent) []string {
	out := make([]string, 0, len(intents))
	for _, in := range intents {
		out = append(out, in.Context["tag"].(string))
	}
	return out
}

func TestEngine_OnTickInRegistrationOrder(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.Register(&stubStrategy{name: "a", tag: "a"})
	e.Register(&stubStrategy{name: "b", tag: "b"})
	e.Register(&stubStrategy{name: "c", tag: "c"})

	assert.Equal(t, []string{"a", "b", "c"}, tags(e.OnTick(common.StrategyContext{Symbol: "X"})))
	assert.Equal(t, []string{"a", "b", "c"}, e.Names())
}

func TestEngine_RegisterOverwriteKeepsSlot(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.Register(&stubStrategy{name: "a", tag: "a1"})
	e.Register(&stubStrategy{name: "b", tag: "b"})
	e.Register(&stubStrategy{name: "a", tag: "a2"})

	assert.Equal(t, []string{"a2", "b"}, tags(e.OnTick(common.StrategyContext{})))
	assert.Equal(t, []string{"a", "b"}, e.Names())

	s, ok := e.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a2", s.(*stubStrategy).tag)

	_, ok = e.Get("missing")
	assert.False(t, ok)
}

func TestEngine_Empty(t *testing.T) {
	e := NewEngine(zap.NewNop())
	assert.Empty(t, e.OnTick(common.StrategyContext{}))
	e.OnOrderUpdate(common.OrderUpdate{})
}

func TestEngine_OnOrderUpdateBroadcasts(t *testing.T) {
	e := NewEngine(zap.NewNop())
	a := &stubStrategy{name: "a"}
	b := &stubStrategy{name: "b"}
	e.Register(a)
	e.Register(b)

	e.OnOrderUpdate(common.OrderUpdate{OrderID: "1", Symbol: "ETH-USDT"})

	require.Len(t, a.updates, 1)
	require.Len(t, b.updates, 1)
	assert.Equal(t, "1", b.updates[0].OrderID)
}

func TestEngine_SaveAndRestoreState(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	e := NewEngine(zap.NewNop())
	h := NewHedge("BTC-USDT")
	e.Register(h)
	e.Register(&stubStrategy{name: "stateless"})

	price := fixed.FromInt(100, 0)
	h.OnOrderUpdate(common.OrderUpdate{
		ClientID:     "BTC-USDT.LONG.1",
		Symbol:       "BTC-USDT",
		Side:         common.OrderSideBuy,
		Status:       common.OrderStatusFilled,
		FilledSize:   DefaultBaseSize,
		AvgFillPrice: &price,
	})
	require.NoError(t, e.SaveState(ctx, store))
	assert.Equal(t, 2, store.Len())

	restored := NewEngine(zap.NewNop())
	fresh := NewHedge("BTC-USDT")
	restored.Register(fresh)
	require.NoError(t, restored.RestoreState(ctx, store))

	state := fresh.State()
	assert.True(t, state["hedge-BTC-USDT.long"].Size.Eq(DefaultBaseSize))
	assert.True(t, state["hedge-BTC-USDT.short"].Size.IsZero())

	// only the short leg still needs opening
	intents := fresh.OnTick(common.StrategyContext{Symbol: "BTC-USDT"})
	require.Len(t, intents, 1)
	assert.Equal(t, common.PositionSideShort, *intents[0].Side)
}
