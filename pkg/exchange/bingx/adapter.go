package bingx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
	"github.com/peter-kozarec/botplatform/pkg/ledger"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

const (
	adapterComponentName = "exchange.bingx.adapter"

	unknownOrderID = "unknown"
)

var quoteHalfSpread = fixed.MustParse("0.5")

type AdapterOption func(*Adapter)

func WithStream(stream *Stream) AdapterOption {
	return func(a *Adapter) {
		a.stream = stream
	}
}

func WithAdapterClock(clock func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.clock = clock
	}
}

// Adapter executes orders through the REST client and books the fills locally.
// Orders are assumed to fill in full at the reported average price.
type Adapter struct {
	logger *zap.Logger
	client *Client
	stream *Stream
	clock  func() time.Time

	mu   sync.RWMutex
	book *ledger.Book
}

func NewAdapter(logger *zap.Logger, client *Client, options ...AdapterOption) *Adapter {
	a := &Adapter{
		logger: logger.Named(adapterComponentName),
		client: client,
		clock:  time.Now,
		book:   ledger.NewBook(),
	}

	for _, option := range options {
		option(a)
	}

	return a
}

func (a *Adapter) GetMarketSnapshot(ctx context.Context, symbol string) (common.MarketSnapshot, error) {
	price, err := a.client.GetPrice(ctx, symbol)
	if err != nil {
		return common.MarketSnapshot{}, err
	}

	return common.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		Bid:       price.Sub(quoteHalfSpread),
		Ask:       price.Add(quoteHalfSpread),
		Bids:      []common.OrderBookLevel{},
		Asks:      []common.OrderBookLevel{},
		Trades:    []common.Trade{},
		TimeStamp: a.clock().UnixMilli(),
	}, nil
}

func (a *Adapter) GetPositions(_ context.Context, symbols ...string) (map[string]common.PositionSnapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.book.Snapshot(symbols...), nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, intent common.OrderIntent) (common.OrderUpdate, error) {
	if !intent.Side.Valid() || !intent.Size.IsPos() {
		a.logger.Warn("order rejected locally", intent.Fields()...)
		return common.OrderUpdate{
			OrderID:       unknownOrderID,
			ClientID:      intent.ClientID,
			Symbol:        intent.Symbol,
			Side:          intent.Side,
			Status:        common.OrderStatusRejected,
			FilledSize:    fixed.Zero,
			RemainingSize: intent.Size,
			TimeStamp:     a.clock().UnixMilli(),
			Raw:           map[string]any{"reason": "invalid order intent"},
		}, nil
	}

	resp, err := a.client.PlaceOrder(ctx, intent)
	if err != nil {
		return common.OrderUpdate{}, err
	}

	orderID := unknownOrderID
	if v, ok := lookup(resp, "data", "orderId"); ok {
		if id, ok := stringFromAny(v); ok {
			orderID = id
		}
	} else if v, ok := lookup(resp, "data", "order", "orderId"); ok {
		if id, ok := stringFromAny(v); ok {
			orderID = id
		}
	}

	avgPrice, err := a.fillPrice(ctx, intent, resp)
	if err != nil {
		return common.OrderUpdate{}, fmt.Errorf("order %s placed but fill price is unknown: %w", orderID, err)
	}

	pos, err := a.apply(intent, avgPrice)
	if err != nil {
		return common.OrderUpdate{}, fmt.Errorf("unable to book fill of order %s: %w", orderID, err)
	}

	a.logger.Info("order filled",
		append(intent.Fields(), zap.String("order_id", orderID), zap.String("fill_price", avgPrice.String()),
			zap.String("position_side", string(pos.Side)), zap.String("position_size", pos.Size.String()))...)

	return common.OrderUpdate{
		OrderID:       orderID,
		ClientID:      intent.ClientID,
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		Status:        common.OrderStatusFilled,
		FilledSize:    intent.Size,
		RemainingSize: fixed.Zero,
		AvgFillPrice:  &avgPrice,
		TimeStamp:     a.clock().UnixMilli(),
		Raw:           resp,
	}, nil
}

// CancelOrder does not reach the exchange, orders are treated as filled on placement.
func (a *Adapter) CancelOrder(_ context.Context, orderID, symbol string) (common.OrderUpdate, error) {
	return common.OrderUpdate{
		OrderID:       orderID,
		Symbol:        symbol,
		Status:        common.OrderStatusCancelled,
		FilledSize:    fixed.Zero,
		RemainingSize: fixed.Zero,
		TimeStamp:     a.clock().UnixMilli(),
		Raw:           map[string]any{"cancel": true},
	}, nil
}

func (a *Adapter) StreamMarketData(ctx context.Context, symbols []string, fn func(common.MarketSnapshot) error) error {
	if a.stream == nil {
		return exchange.ErrNotSupported
	}
	return a.stream.StreamMarketData(ctx, symbols, fn)
}

func (a *Adapter) apply(intent common.OrderIntent, price fixed.Point) (common.PositionSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.book.Apply(intent.Symbol, intent.Side, intent.Size, price)
}

func (a *Adapter) fillPrice(ctx context.Context, intent common.OrderIntent, resp map[string]any) (fixed.Point, error) {
	if v, ok := lookup(resp, "data", "order", "avgPrice"); ok {
		if p, ok := pointFromAny(v); ok && p.IsPos() {
			return p, nil
		}
	}
	if intent.Price != nil {
		return *intent.Price, nil
	}
	return a.client.GetPrice(ctx, intent.Symbol)
}
