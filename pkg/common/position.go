package common

import (
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

type PositionSide string

const (
	PositionSideNone  PositionSide = ""
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

func (s PositionSide) Valid() bool {
	return s == PositionSideNone || s == PositionSideLong || s == PositionSideShort
}

func (s PositionSide) Opposite() PositionSide {
	switch s {
	case PositionSideLong:
		return PositionSideShort
	case PositionSideShort:
		return PositionSideLong
	default:
		return PositionSideNone
	}
}

// OrderSide is the side of an order that opens or adds to a position of this side.
func (s PositionSide) OrderSide() OrderSide {
	if s == PositionSideShort {
		return OrderSideSell
	}
	return OrderSideBuy
}

// CloseSide is the side of an order that reduces a position of this side.
func (s PositionSide) CloseSide() OrderSide {
	if s == PositionSideShort {
		return OrderSideBuy
	}
	return OrderSideSell
}

func SidePtr(s PositionSide) *PositionSide { return &s }

// PositionSnapshot holds the net position of one symbol. Side is empty exactly when Size is zero.
type PositionSnapshot struct {
	Symbol        string       `json:"symbol"`
	Side          PositionSide `json:"side"`
	Size          fixed.Point  `json:"size"`
	EntryPrice    fixed.Point  `json:"entry_price"`
	RealizedPnL   fixed.Point  `json:"realized_pnl"`
	UnrealizedPnL fixed.Point  `json:"unrealized_pnl"`
	Leverage      *fixed.Point `json:"leverage,omitempty"`
}

func NewFlatPosition(symbol string) PositionSnapshot {
	return PositionSnapshot{Symbol: symbol}
}

func (p PositionSnapshot) IsFlat() bool {
	return p.Side == PositionSideNone && p.Size.IsZero()
}

func (p PositionSnapshot) Fields() []zap.Field {
	return []zap.Field{
		zap.String("symbol", p.Symbol),
		zap.String("side", string(p.Side)),
		zap.String("size", p.Size.String()),
		zap.String("entry_price", p.EntryPrice.String()),
		zap.String("realized_pnl", p.RealizedPnL.String()),
		zap.String("unrealized_pnl", p.UnrealizedPnL.String()),
	}
}

// LegState is the persisted state of one strategy leg.
type LegState struct {
	Side          PositionSide   `json:"side"`
	Size          fixed.Point    `json:"size"`
	EntryPrice    fixed.Point    `json:"entry_price"`
	RealizedPnL   fixed.Point    `json:"realized_pnl"`
	UnrealizedPnL fixed.Point    `json:"unrealized_pnl"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Position views the leg as a position snapshot of the given symbol.
func (l LegState) Position(symbol string) PositionSnapshot {
	return PositionSnapshot{
		Symbol:        symbol,
		Side:          l.Side,
		Size:          l.Size,
		EntryPrice:    l.EntryPrice,
		RealizedPnL:   l.RealizedPnL,
		UnrealizedPnL: l.UnrealizedPnL,
	}
}

func (l LegState) WithPosition(p PositionSnapshot) LegState {
	l.Side = p.Side
	l.Size = p.Size
	l.EntryPrice = p.EntryPrice
	l.RealizedPnL = p.RealizedPnL
	l.UnrealizedPnL = p.UnrealizedPnL
	return l
}

func (l LegState) Fields() []zap.Field {
	return []zap.Field{
		zap.String("side", string(l.Side)),
		zap.String("size", l.Size.String()),
		zap.String("entry_price", l.EntryPrice.String()),
		zap.String("realized_pnl", l.RealizedPnL.String()),
	}
}
