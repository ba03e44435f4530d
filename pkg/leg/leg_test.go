package leg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

var (
	_ Leg = (*LongLeg)(nil)
	_ Leg = (*ShortLeg)(nil)
)

var baseSize = fixed.MustParse("0.001")

func tickContext() common.StrategyContext {
	return common.StrategyContext{Symbol: "BTC-USDT", TimeStamp: 1}
}

func filled(clientID string, side common.OrderSide, size, price string) common.OrderUpdate {
	p := fixed.MustParse(price)
	return common.OrderUpdate{
		OrderID:      "1",
		ClientID:     clientID,
		Symbol:       "BTC-USDT",
		Side:         side,
		Status:       common.OrderStatusFilled,
		FilledSize:   fixed.MustParse(size),
		AvgFillPrice: &p,
	}
}

func TestLeg_OpensWhenFlat(t *testing.T) {
	tests := []struct {
		name string
		leg  Leg
		side common.PositionSide
	}{
		{"long", NewLongLeg("hedge-BTC-USDT.long", baseSize), common.PositionSideLong},
		{"short", NewShortLeg("hedge-BTC-USDT.short", baseSize), common.PositionSideShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := tt.leg.OnTick(tickContext())
			require.Len(t, intents, 1)

			in := intents[0]
			assert.Equal(t, common.ActionOpen, in.Action)
			require.NotNil(t, in.Side)
			assert.Equal(t, tt.side, *in.Side)
			require.NotNil(t, in.Size)
			assert.True(t, in.Size.Eq(baseSize))
			assert.Equal(t, tt.leg.Name(), in.Context["leg"])
			assert.Equal(t, tt.side, tt.leg.Side())
		})
	}
}

func TestLeg_NoOpenWhileHolding(t *testing.T) {
	l := NewLongLeg("l", baseSize)
	l.LoadState(common.LegState{Size: baseSize, EntryPrice: fixed.FromInt(100, 0)})

	assert.Empty(t, l.OnTick(tickContext()))
}

func TestLeg_OpenFillUpdatesState(t *testing.T) {
	l := NewLongLeg("l", baseSize)

	l.OnOrderUpdate(filled("BTC-USDT.LONG.1", common.OrderSideBuy, "0.001", "100"))

	state := l.State()
	assert.Equal(t, common.PositionSideLong, state.Side)
	assert.True(t, state.Size.Eq(baseSize))
	assert.True(t, state.EntryPrice.Eq(fixed.FromInt(100, 0)))
	assert.Empty(t, l.OnTick(tickContext()))
}

func TestLeg_IgnoresOtherLegsAndNonFills(t *testing.T) {
	l := NewShortLeg("s", baseSize)

	l.OnOrderUpdate(filled("BTC-USDT.LONG.1", common.OrderSideBuy, "0.001", "100"))
	l.OnOrderUpdate(filled("ETH-USDT.SHORT.1", common.OrderSideSell, "0.001", "100"))

	rejected := filled("BTC-USDT.SHORT.2", common.OrderSideSell, "0", "100")
	rejected.Status = common.OrderStatusRejected
	l.OnOrderUpdate(rejected)

	noPrice := filled("BTC-USDT.SHORT.3", common.OrderSideSell, "0.001", "100")
	noPrice.AvgFillPrice = nil
	l.OnOrderUpdate(noPrice)

	assert.True(t, l.State().Size.IsZero())
	assert.Equal(t, common.PositionSideShort, l.State().Side)
}

func TestLeg_PartialFillsApplyDelta(t *testing.T) {
	l := NewShortLeg("s", fixed.FromInt(3, 0))

	partial := filled("BTC-USDT.SHORT.1", common.OrderSideSell, "1", "100")
	partial.Status = common.OrderStatusPartial
	l.OnOrderUpdate(partial)
	l.OnOrderUpdate(partial)
	assert.True(t, l.State().Size.Eq(fixed.One))

	l.OnOrderUpdate(filled("BTC-USDT.SHORT.1", common.OrderSideSell, "3", "100"))
	assert.True(t, l.State().Size.Eq(fixed.FromInt(3, 0)))
}

func TestLeg_TerminalStatusForgetsPartialFill(t *testing.T) {
	tests := []common.OrderStatus{common.OrderStatusCancelled, common.OrderStatusRejected, common.OrderStatusFilled}

	for _, status := range tests {
		t.Run(string(status), func(t *testing.T) {
			l := NewShortLeg("s", fixed.FromInt(3, 0))

			partial := filled("BTC-USDT.SHORT.1", common.OrderSideSell, "1", "100")
			partial.Status = common.OrderStatusPartial
			l.OnOrderUpdate(partial)
			require.Len(t, l.filled, 1)

			final := filled("BTC-USDT.SHORT.1", common.OrderSideSell, "1", "100")
			final.Status = status
			l.OnOrderUpdate(final)

			assert.Empty(t, l.filled)
			assert.True(t, l.State().Size.Eq(fixed.One))
		})
	}
}

func TestLeg_CloseFill(t *testing.T) {
	l := NewLongLeg("l", fixed.Two)
	l.OnOrderUpdate(filled("BTC-USDT.LONG.1", common.OrderSideBuy, "2", "100"))

	// a close that would reduce the opposite leg is not ours
	l.OnOrderUpdate(filled("BTC-USDT.close.2", common.OrderSideBuy, "1", "110"))
	assert.True(t, l.State().Size.Eq(fixed.Two))

	// oversized close is clamped to the leg
	l.OnOrderUpdate(filled("BTC-USDT.close.3", common.OrderSideSell, "5", "110"))
	state := l.State()
	assert.True(t, state.Size.IsZero())
	assert.True(t, state.RealizedPnL.Eq(fixed.FromInt(20, 0)))
	assert.Equal(t, common.PositionSideLong, state.Side)

	// flat again, so the next tick reopens
	intents := l.OnTick(tickContext())
	require.Len(t, intents, 1)
	assert.Equal(t, common.ActionOpen, intents[0].Action)
}

func TestLeg_StateRoundTrip(t *testing.T) {
	l := NewShortLeg("s", baseSize)
	saved := common.LegState{
		Side:        common.PositionSideLong,
		Size:        fixed.MustParse("0.5"),
		EntryPrice:  fixed.FromInt(200, 0),
		RealizedPnL: fixed.MustParse("-3.5"),
		Extra:       map[string]any{"bubble": "armed"},
	}
	l.LoadState(saved)

	saved.Extra["bubble"] = "mutated"

	state := l.State()
	assert.Equal(t, common.PositionSideShort, state.Side, "a leg never changes side")
	assert.True(t, state.Size.Eq(fixed.MustParse("0.5")))
	assert.True(t, state.RealizedPnL.Eq(fixed.MustParse("-3.5")))
	assert.Equal(t, "armed", state.Extra["bubble"])

	state.Extra["bubble"] = "mutated"
	assert.Equal(t, "armed", l.State().Extra["bubble"])
}

type fixedController []common.ActionIntent

func (f fixedController) OnTick(common.StrategyContext, common.LegState) []common.ActionIntent {
	return f
}

func TestLeg_ControllersAndRiskOrder(t *testing.T) {
	one := fixed.One
	bubble := fixedController{{Action: common.ActionBubbleEntry, Size: &one}}
	scale := fixedController{{Action: common.ActionScaleIn, Size: &one}, {Action: common.ActionScaleOut, Size: &one}}

	l := NewLongLeg("l", fixed.One,
		WithBubbleController(bubble),
		WithScaleController(scale),
		WithRiskPolicy(MaxSize{Limit: fixed.MustParse("1.5")}))

	intents := l.OnTick(tickContext())

	actions := make([]common.Action, 0, len(intents))
	for _, in := range intents {
		actions = append(actions, in.Action)
	}
	assert.Equal(t, []common.Action{common.ActionOpen, common.ActionBubbleEntry, common.ActionScaleIn, common.ActionScaleOut}, actions)
	assert.True(t, intents[0].Size.Eq(fixed.One))
	assert.True(t, intents[2].Size.Eq(fixed.MustParse("0.5")))
}

func TestMaxSize_Filter(t *testing.T) {
	size := func(s string) *fixed.Point {
		p := fixed.MustParse(s)
		return &p
	}

	tests := []struct {
		name    string
		held    string
		intents []common.ActionIntent
		want    []string
	}{
		{
			name:    "fits",
			held:    "0",
			intents: []common.ActionIntent{{Action: common.ActionOpen, Size: size("1")}},
			want:    []string{"open:1"},
		},
		{
			name:    "shrinks",
			held:    "1",
			intents: []common.ActionIntent{{Action: common.ActionScaleIn, Size: size("5")}},
			want:    []string{"scale_in:1"},
		},
		{
			name: "drops when full and keeps reductions",
			held: "2",
			intents: []common.ActionIntent{
				{Action: common.ActionScaleIn, Size: size("1")},
				{Action: common.ActionScaleOut, Size: size("1")},
				{Action: common.ActionClose},
			},
			want: []string{"scale_out:1", "close:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxSize{Limit: fixed.Two}.Filter(common.LegState{Size: fixed.MustParse(tt.held)}, tt.intents)

			var out []string
			for _, in := range got {
				s := string(in.Action) + ":"
				if in.Size != nil {
					s += in.Size.String()
				}
				out = append(out, s)
			}
			assert.Equal(t, tt.want, out)
		})
	}
}
