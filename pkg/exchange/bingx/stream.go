package bingx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

const (
	streamComponentName = "exchange.bingx.stream"

	StreamSource = "BingXMarketEngine"
)

var ErrNoSymbols = errors.New("no symbols to subscribe")

// Stream subscribes to ticker updates and turns them into market snapshots.
type Stream struct {
	logger *zap.Logger
	url    string
	dialer *websocket.Dialer
	clock  func() time.Time
}

func NewStream(logger *zap.Logger, url string) *Stream {
	return &Stream{
		logger: logger.Named(streamComponentName),
		url:    url,
		dialer: websocket.DefaultDialer,
		clock:  time.Now,
	}
}

func SubscribePayload(symbols []string) map[string]any {
	args := make([]any, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, "swap/ticker:"+s)
	}
	return map[string]any{"op": "subscribe", "args": args}
}

// StreamMarketData blocks until ctx is done, the connection drops or fn returns an error.
// Messages that are not ticker updates are skipped.
func (s *Stream) StreamMarketData(ctx context.Context, symbols []string, fn func(common.MarketSnapshot) error) error {
	if len(symbols) == 0 {
		return ErrNoSymbols
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("unable to dial %s: %w", s.url, err)
	}

	c := newConnection(s.logger, conn)
	c.start()
	defer c.stop()

	sub, err := json.Marshal(SubscribePayload(symbols))
	if err != nil {
		return err
	}
	if err := c.send(sub); err != nil {
		return fmt.Errorf("unable to subscribe: %w", err)
	}
	s.logger.Info("subscribed", zap.Strings("symbols", symbols))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-c.messages():
			if !ok {
				return c.cause()
			}
			snapshot, ok, err := ParseTicker(msg, s.clock)
			if err != nil {
				s.logger.Debug("skipping message", zap.ByteString("raw", msg), zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
			if err := fn(snapshot); err != nil {
				return err
			}
		}
	}
}

// ParseTicker maps {"data": {"symbol", "lastPrice", "bidPrice", "askPrice", "timestamp"}}
// to a snapshot. Missing bid or ask fall back to the last price, a missing timestamp to now.
// ok is false for messages without ticker data. A ticker without a usable lastPrice is a
// *exchange.ResponseError.
func ParseTicker(msg []byte, clock func() time.Time) (common.MarketSnapshot, bool, error) {
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := decode(msg, &envelope); err != nil {
		return common.MarketSnapshot{}, false, err
	}

	data := envelope.Data
	if len(data) == 0 {
		return common.MarketSnapshot{}, false, nil
	}
	symbol, _ := data["symbol"].(string)
	if symbol == "" {
		return common.MarketSnapshot{}, false, nil
	}

	price, ok := pointFromAny(data["lastPrice"])
	if !ok {
		return common.MarketSnapshot{}, false, &exchange.ResponseError{Op: "ticker", Field: "lastPrice", Payload: data}
	}

	bid := price
	if v, ok := pointFromAny(data["bidPrice"]); ok {
		bid = v
	}
	ask := price
	if v, ok := pointFromAny(data["askPrice"]); ok {
		ask = v
	}

	ts := clock().UnixMilli()
	if v, ok := int64FromAny(data["timestamp"]); ok {
		ts = v
	}

	return common.MarketSnapshot{
		Symbol: symbol,
		Price:  price,
		Bid:    bid,
		Ask:    ask,
		Bids:   []common.OrderBookLevel{{Price: bid, Size: fixed.Zero}},
		Asks:   []common.OrderBookLevel{{Price: ask, Size: fixed.Zero}},
		Trades: []common.Trade{{
			Price:     price,
			Size:      fixed.Zero,
			Side:      common.OrderSideBuy,
			TimeStamp: ts,
		}},
		TimeStamp: ts,
	}, true, nil
}
