package strategy

import (
	"github.com/peter-kozarec/botplatform/pkg/common"
)

type Strategy interface {
	Name() string
	OnTick(ctx common.StrategyContext) []common.ActionIntent
	OnOrderUpdate(update common.OrderUpdate)
}

// Stateful strategies expose their legs' state so the engine can persist and restore it.
type Stateful interface {
	State() map[string]common.LegState
	LoadState(state map[string]common.LegState)
}
