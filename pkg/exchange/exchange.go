package exchange

import (
	"context"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

// Exchange is the execution backend used by the runtime. PlaceOrder folds the resulting fill
// into the backend's own position book before returning.
type Exchange interface {
	GetMarketSnapshot(ctx context.Context, symbol string) (common.MarketSnapshot, error)
	// GetPositions returns the requested positions, or every known position when no symbol is given.
	GetPositions(ctx context.Context, symbols ...string) (map[string]common.PositionSnapshot, error)
	PlaceOrder(ctx context.Context, intent common.OrderIntent) (common.OrderUpdate, error)
	// CancelOrder is idempotent: an unknown order id yields a CANCELLED update without side effects.
	CancelOrder(ctx context.Context, orderID, symbol string) (common.OrderUpdate, error)
}

type MarketStreamer interface {
	StreamMarketData(ctx context.Context, symbols []string, fn func(common.MarketSnapshot) error) error
}

type OrderUpdateStreamer interface {
	StreamOrderUpdates(ctx context.Context, fn func(common.OrderUpdate) error) error
}
