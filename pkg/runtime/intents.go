package runtime

import (
	"fmt"
	"maps"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

const DefaultSource = "HedgeStrategy"

// BuildOrderIntents turns strategy intents into market orders. Opens need a side and a positive
// size. Closes need a live position on the same side and always close it in full. Everything
// else is dropped.
//
// Client ids embed nowMs only, so two opens of the same side within one millisecond share a
// client id.
func BuildOrderIntents(symbol, source string, intents []common.ActionIntent, position *common.PositionSnapshot, nowMs int64) []common.OrderIntent {
	var orders []common.OrderIntent

	for _, in := range intents {
		switch in.Action {
		case common.ActionOpen:
			if !directional(in.Side) || in.Size == nil || !in.Size.IsPos() {
				continue
			}
			orders = append(orders, common.OrderIntent{
				Symbol:   symbol,
				Side:     in.Side.OrderSide(),
				Type:     common.OrderTypeMarket,
				Size:     *in.Size,
				ClientID: fmt.Sprintf("%s.%s.%d", symbol, *in.Side, nowMs),
				Source:   source,
				Context:  intentContext(in),
			})

		case common.ActionClose:
			if !directional(in.Side) || position == nil {
				continue
			}
			if position.Side != *in.Side || !position.Size.IsPos() {
				continue
			}
			orders = append(orders, common.OrderIntent{
				Symbol:   symbol,
				Side:     in.Side.CloseSide(),
				Type:     common.OrderTypeMarket,
				Size:     position.Size,
				ClientID: fmt.Sprintf("%s.close.%d", symbol, nowMs),
				Source:   source,
				Context:  intentContext(in),
			})
		}
	}

	return orders
}

func directional(side *common.PositionSide) bool {
	return side != nil && (*side == common.PositionSideLong || *side == common.PositionSideShort)
}

func intentContext(in common.ActionIntent) map[string]any {
	if in.Context == nil {
		return map[string]any{}
	}
	return maps.Clone(in.Context)
}
