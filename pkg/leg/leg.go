package leg

import (
	"maps"
	"strings"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/ledger"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

// Leg manages one directional position of a strategy.
type Leg interface {
	Name() string
	Side() common.PositionSide
	OnTick(ctx common.StrategyContext) []common.ActionIntent
	OnOrderUpdate(update common.OrderUpdate)
	State() common.LegState
	LoadState(state common.LegState)
}

type Option func(*core)

func WithBubbleController(bubble BubbleController) Option {
	return func(c *core) {
		c.bubble = bubble
	}
}

func WithScaleController(scale ScaleController) Option {
	return func(c *core) {
		c.scale = scale
	}
}

func WithRiskPolicy(risk RiskPolicy) Option {
	return func(c *core) {
		c.risk = risk
	}
}

type LongLeg struct {
	core
}

func NewLongLeg(name string, baseSize fixed.Point, options ...Option) *LongLeg {
	return &LongLeg{newCore(name, common.PositionSideLong, baseSize, options...)}
}

type ShortLeg struct {
	core
}

func NewShortLeg(name string, baseSize fixed.Point, options ...Option) *ShortLeg {
	return &ShortLeg{newCore(name, common.PositionSideShort, baseSize, options...)}
}

type core struct {
	name     string
	side     common.PositionSide
	baseSize fixed.Point
	state    common.LegState

	bubble BubbleController
	scale  ScaleController
	risk   RiskPolicy

	// cumulative filled size per client order id, so that repeated partial updates apply only the delta
	filled map[string]fixed.Point
}

func newCore(name string, side common.PositionSide, baseSize fixed.Point, options ...Option) core {
	c := core{
		name:     name,
		side:     side,
		baseSize: baseSize,
		state:    common.LegState{Side: side},
		bubble:   NoBubble{},
		scale:    NoScale{},
		risk:     NoRisk{},
		filled:   make(map[string]fixed.Point),
	}

	for _, option := range options {
		option(&c)
	}

	return c
}

func (c *core) Name() string              { return c.name }
func (c *core) Side() common.PositionSide { return c.side }

// OnTick opens the leg at base size while it is flat, then adds whatever the bubble and scale
// controllers ask for. The risk policy sees the whole batch.
func (c *core) OnTick(ctx common.StrategyContext) []common.ActionIntent {
	var intents []common.ActionIntent

	if c.state.Size.IsZero() {
		size := c.baseSize
		intents = append(intents, common.ActionIntent{
			Action:  common.ActionOpen,
			Side:    common.SidePtr(c.side),
			Size:    &size,
			Context: map[string]any{"leg": c.name},
		})
	}

	intents = append(intents, c.bubble.OnTick(ctx, c.State())...)
	intents = append(intents, c.scale.OnTick(ctx, c.State())...)

	return c.risk.Filter(c.State(), intents)
}

// OnOrderUpdate folds fills of the leg's own orders into its state. Opens are recognized by the
// "{symbol}.{SIDE}." client id prefix, closes by "{symbol}.close." together with the order side
// that reduces this leg.
func (c *core) OnOrderUpdate(update common.OrderUpdate) {
	if update.Status.Terminal() {
		defer delete(c.filled, update.ClientID)
	}
	if !update.Status.HasFill() || update.AvgFillPrice == nil {
		return
	}

	var side common.OrderSide
	switch {
	case strings.HasPrefix(update.ClientID, update.Symbol+"."+string(c.side)+"."):
		side = c.side.OrderSide()
	case strings.HasPrefix(update.ClientID, update.Symbol+".close."):
		if update.Side != c.side.CloseSide() || c.state.Size.IsZero() {
			return
		}
		side = c.side.CloseSide()
	default:
		return
	}

	delta := update.FilledSize.Sub(c.filled[update.ClientID])
	if !delta.IsPos() {
		return
	}
	if !update.Status.Terminal() {
		c.filled[update.ClientID] = update.FilledSize
	}

	if side == c.side.CloseSide() {
		delta = fixed.Min(delta, c.state.Size)
	}

	pos, err := ledger.ApplyFill(c.position(), side, delta, *update.AvgFillPrice)
	if err != nil {
		return
	}

	c.state = c.state.WithPosition(pos)
	c.state.Side = c.side
}

func (c *core) State() common.LegState {
	state := c.state
	state.Extra = maps.Clone(c.state.Extra)
	return state
}

func (c *core) LoadState(state common.LegState) {
	state.Extra = maps.Clone(state.Extra)
	state.Side = c.side
	c.state = state
}

func (c *core) position() common.PositionSnapshot {
	pos := c.state.Position("")
	if pos.Size.IsZero() {
		pos.Side = common.PositionSideNone
	} else {
		pos.Side = c.side
	}
	return pos
}
