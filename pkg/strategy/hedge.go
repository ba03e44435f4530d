package strategy

import (
	"fmt"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/leg"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

var DefaultBaseSize = fixed.MustParse("0.001")

type HedgeOption func(*hedgeConfig)

type hedgeConfig struct {
	baseSize   fixed.Point
	legOptions []leg.Option
}

func WithBaseSize(size fixed.Point) HedgeOption {
	return func(c *hedgeConfig) {
		c.baseSize = size
	}
}

// WithLegOptions applies the given options to both legs.
func WithLegOptions(options ...leg.Option) HedgeOption {
	return func(c *hedgeConfig) {
		c.legOptions = append(c.legOptions, options...)
	}
}

// Hedge holds a long and a short leg of the same symbol at once.
type Hedge struct {
	name   string
	symbol string

	long  *leg.LongLeg
	short *leg.ShortLeg
}

func NewHedge(symbol string, options ...HedgeOption) *Hedge {
	cfg := hedgeConfig{baseSize: DefaultBaseSize}
	for _, option := range options {
		option(&cfg)
	}

	name := fmt.Sprintf("hedge-%s", symbol)
	return &Hedge{
		name:   name,
		symbol: symbol,
		long:   leg.NewLongLeg(name+".long", cfg.baseSize, cfg.legOptions...),
		short:  leg.NewShortLeg(name+".short", cfg.baseSize, cfg.legOptions...),
	}
}

func (h *Hedge) Name() string   { return h.name }
func (h *Hedge) Symbol() string { return h.symbol }

func (h *Hedge) Legs() []leg.Leg {
	return []leg.Leg{h.long, h.short}
}

func (h *Hedge) OnTick(ctx common.StrategyContext) []common.ActionIntent {
	if ctx.Symbol != h.symbol {
		return nil
	}

	var intents []common.ActionIntent
	for _, l := range h.Legs() {
		intents = append(intents, l.OnTick(ctx)...)
	}
	return intents
}

func (h *Hedge) OnOrderUpdate(update common.OrderUpdate) {
	if update.Symbol != h.symbol {
		return
	}
	for _, l := range h.Legs() {
		l.OnOrderUpdate(update)
	}
}

func (h *Hedge) State() map[string]common.LegState {
	state := make(map[string]common.LegState, 2)
	for _, l := range h.Legs() {
		state[l.Name()] = l.State()
	}
	return state
}

func (h *Hedge) LoadState(state map[string]common.LegState) {
	for _, l := range h.Legs() {
		if s, ok := state[l.Name()]; ok {
			l.LoadState(s)
		}
	}
}
