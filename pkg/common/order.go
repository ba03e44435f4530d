package common

import (
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

type OrderSide string
type OrderType string
type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusPartial   OrderStatus = "PARTIAL"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

func (s OrderSide) Valid() bool { return s == OrderSideBuy || s == OrderSideSell }

// PositionSide is the position side an order of this side opens from flat.
func (s OrderSide) PositionSide() PositionSide {
	switch s {
	case OrderSideBuy:
		return PositionSideLong
	case OrderSideSell:
		return PositionSideShort
	default:
		return PositionSideNone
	}
}

// HasFill reports whether the status carries executed quantity.
func (s OrderStatus) HasFill() bool {
	return s == OrderStatusFilled || s == OrderStatusPartial
}

// Terminal reports whether no further updates follow for the order.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

type OrderIntent struct {
	Symbol   string         `json:"symbol"`
	Side     OrderSide      `json:"side"`
	Type     OrderType      `json:"type"`
	Size     fixed.Point    `json:"size"`
	Price    *fixed.Point   `json:"price,omitempty"`
	ClientID string         `json:"client_id"`
	Source   string         `json:"source"`
	Context  map[string]any `json:"context"`
}

func (o OrderIntent) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.String("size", o.Size.String()),
		zap.String("client_id", o.ClientID),
		zap.String("source", o.Source),
	}
	if o.Price != nil {
		fields = append(fields, zap.String("price", o.Price.String()))
	}
	return fields
}

type OrderUpdate struct {
	OrderID       string         `json:"order_id"`
	ClientID      string         `json:"client_id"`
	Symbol        string         `json:"symbol"`
	Side          OrderSide      `json:"side,omitempty"`
	Status        OrderStatus    `json:"status"`
	FilledSize    fixed.Point    `json:"filled_size"`
	RemainingSize fixed.Point    `json:"remaining_size"`
	AvgFillPrice  *fixed.Point   `json:"avg_fill_price,omitempty"`
	TimeStamp     int64          `json:"timestamp"`
	Raw           map[string]any `json:"raw,omitempty"`
}

func (u OrderUpdate) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("order_id", u.OrderID),
		zap.String("client_id", u.ClientID),
		zap.String("symbol", u.Symbol),
		zap.String("side", string(u.Side)),
		zap.String("status", string(u.Status)),
		zap.String("filled_size", u.FilledSize.String()),
		zap.String("remaining_size", u.RemainingSize.String()),
	}
	if u.AvgFillPrice != nil {
		fields = append(fields, zap.String("avg_fill_price", u.AvgFillPrice.String()))
	}
	return fields
}
