package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/ledger"
	"github.com/peter-kozarec/botplatform/pkg/utility"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

const (
	simulatorComponentName = "exchange.sandbox.simulator"

	defaultOrderIDPrefix = "sandbox-order"
)

var (
	defaultPrice  = fixed.FromInt(100, 0)
	defaultSpread = fixed.One
)

// Simulator fills every order immediately and in full at the order price, or at the
// current price of the symbol for market orders. It keeps its own position book.
type Simulator struct {
	logger *zap.Logger

	mu   sync.RWMutex
	book *ledger.Book

	lastPrice     *LastPrice
	priceProvider PriceProvider
	defaultPrice  fixed.Point
	spread        fixed.Point
	clock         func() time.Time

	orderIDPrefix string
	orderIDs      *utility.Sequence
}

func NewSimulator(logger *zap.Logger, options ...Option) *Simulator {
	s := &Simulator{
		logger:        logger.Named(simulatorComponentName),
		book:          ledger.NewBook(),
		lastPrice:     NewLastPrice(),
		defaultPrice:  defaultPrice,
		spread:        defaultSpread,
		clock:         time.Now,
		orderIDPrefix: defaultOrderIDPrefix,
	}
	s.priceProvider = s.lastPrice

	for _, option := range options {
		option(s)
	}

	s.orderIDs = utility.NewSequence(s.orderIDPrefix)
	return s
}

// OnMarketSnapshot tracks the last price and marks the open position of the symbol.
func (s *Simulator) OnMarketSnapshot(_ context.Context, snapshot common.MarketSnapshot) error {
	s.lastPrice.Observe(snapshot)

	if snapshot.Price.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.book.Mark(snapshot.Symbol, snapshot.Price)
	return nil
}

func (s *Simulator) GetMarketSnapshot(_ context.Context, symbol string) (common.MarketSnapshot, error) {
	price := s.price(symbol)
	half := s.spread.DivInt(2)

	return common.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		Bid:       price.Sub(half),
		Ask:       price.Add(half),
		Bids:      []common.OrderBookLevel{},
		Asks:      []common.OrderBookLevel{},
		Trades:    []common.Trade{},
		TimeStamp: s.clock().UnixMilli(),
	}, nil
}

func (s *Simulator) GetPositions(_ context.Context, symbols ...string) (map[string]common.PositionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.book.Snapshot(symbols...), nil
}

func (s *Simulator) PlaceOrder(_ context.Context, intent common.OrderIntent) (common.OrderUpdate, error) {
	orderID := s.orderIDs.Next()

	price := s.price(intent.Symbol)
	if intent.Price != nil {
		price = *intent.Price
	}

	pos, err := s.apply(intent, price)
	if err != nil {
		s.logger.Warn("order rejected", append(intent.Fields(), zap.Error(err))...)
		return common.OrderUpdate{
			OrderID:       orderID,
			ClientID:      intent.ClientID,
			Symbol:        intent.Symbol,
			Side:          intent.Side,
			Status:        common.OrderStatusRejected,
			FilledSize:    fixed.Zero,
			RemainingSize: intent.Size,
			TimeStamp:     s.clock().UnixMilli(),
			Raw:           map[string]any{"sandbox": true, "reason": err.Error()},
		}, nil
	}

	s.logger.Debug("order filled",
		append(intent.Fields(), zap.String("order_id", orderID), zap.String("fill_price", price.String()),
			zap.String("position_side", string(pos.Side)), zap.String("position_size", pos.Size.String()))...)

	return common.OrderUpdate{
		OrderID:       orderID,
		ClientID:      intent.ClientID,
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		Status:        common.OrderStatusFilled,
		FilledSize:    intent.Size,
		RemainingSize: fixed.Zero,
		AvgFillPrice:  &price,
		TimeStamp:     s.clock().UnixMilli(),
		Raw:           map[string]any{"sandbox": true},
	}, nil
}

// CancelOrder has nothing to cancel since every order fills on placement.
func (s *Simulator) CancelOrder(_ context.Context, orderID, symbol string) (common.OrderUpdate, error) {
	return common.OrderUpdate{
		OrderID:       orderID,
		Symbol:        symbol,
		Status:        common.OrderStatusCancelled,
		FilledSize:    fixed.Zero,
		RemainingSize: fixed.Zero,
		TimeStamp:     s.clock().UnixMilli(),
		Raw:           map[string]any{"sandbox": true, "reason": "cancelled"},
	}, nil
}

func (s *Simulator) apply(intent common.OrderIntent, price fixed.Point) (common.PositionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.book.Apply(intent.Symbol, intent.Side, intent.Size, price)
}

func (s *Simulator) price(symbol string) fixed.Point {
	if p, ok := s.priceProvider.Price(symbol); ok {
		return p
	}
	return s.defaultPrice
}
