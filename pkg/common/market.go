package common

import (
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

type OrderBookLevel struct {
	Price fixed.Point `json:"price"`
	Size  fixed.Point `json:"size"`
}

type Trade struct {
	Price     fixed.Point `json:"price"`
	Size      fixed.Point `json:"size"`
	Side      OrderSide   `json:"side"`
	TimeStamp int64       `json:"timestamp"`
}

// MarketSnapshot is a point-in-time view of one symbol. TimeStamp is unix milliseconds.
type MarketSnapshot struct {
	Symbol    string           `json:"symbol"`
	Price     fixed.Point      `json:"price"`
	Bid       fixed.Point      `json:"bid"`
	Ask       fixed.Point      `json:"ask"`
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Trades    []Trade          `json:"trades"`
	TimeStamp int64            `json:"timestamp"`
}

func (m MarketSnapshot) Fields() []zap.Field {
	return []zap.Field{
		zap.String("symbol", m.Symbol),
		zap.String("price", m.Price.String()),
		zap.String("bid", m.Bid.String()),
		zap.String("ask", m.Ask.String()),
		zap.Int64("timestamp", m.TimeStamp),
	}
}

type SignalSnapshot struct {
	Symbol    string             `json:"symbol"`
	Data      map[string]float64 `json:"data"`
	TimeStamp int64              `json:"timestamp"`
}
