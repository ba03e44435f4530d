package leg

import (
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

// BubbleController produces bubble entry and exit intents for a leg.
type BubbleController interface {
	OnTick(ctx common.StrategyContext, state common.LegState) []common.ActionIntent
}

// ScaleController produces scale in and scale out intents for a leg.
type ScaleController interface {
	OnTick(ctx common.StrategyContext, state common.LegState) []common.ActionIntent
}

// RiskPolicy may drop or shrink intents. It must keep the relative order of what it returns.
type RiskPolicy interface {
	Filter(state common.LegState, intents []common.ActionIntent) []common.ActionIntent
}

type NoBubble struct{}

func (NoBubble) OnTick(common.StrategyContext, common.LegState) []common.ActionIntent { return nil }

type NoScale struct{}

func (NoScale) OnTick(common.StrategyContext, common.LegState) []common.ActionIntent { return nil }

type NoRisk struct{}

func (NoRisk) Filter(_ common.LegState, intents []common.ActionIntent) []common.ActionIntent {
	return intents
}

// MaxSize caps the size a leg may hold. Opens and scale-ins beyond the cap are shrunk to the
// remaining room, or dropped when there is none.
type MaxSize struct {
	Limit fixed.Point
}

func (m MaxSize) Filter(state common.LegState, intents []common.ActionIntent) []common.ActionIntent {
	room := m.Limit.Sub(state.Size)

	out := make([]common.ActionIntent, 0, len(intents))
	for _, intent := range intents {
		if !increasesExposure(intent) || intent.Size == nil {
			out = append(out, intent)
			continue
		}
		if !room.IsPos() {
			continue
		}
		if intent.Size.Gt(room) {
			size := room
			intent.Size = &size
		}
		room = room.Sub(*intent.Size)
		out = append(out, intent)
	}
	return out
}

func increasesExposure(intent common.ActionIntent) bool {
	return intent.Action == common.ActionOpen || intent.Action == common.ActionScaleIn
}
