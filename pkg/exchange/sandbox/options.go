package sandbox

import (
	"time"

	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

type Option func(*Simulator)

// WithPriceProvider replaces the built-in last price tracker used for market orders.
func WithPriceProvider(provider PriceProvider) Option {
	return func(s *Simulator) {
		s.priceProvider = provider
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Simulator) {
		s.clock = clock
	}
}

// WithSpread sets the distance between bid and ask of synthesized snapshots.
func WithSpread(spread fixed.Point) Option {
	return func(s *Simulator) {
		s.spread = spread
	}
}

func WithOrderIDPrefix(prefix string) Option {
	return func(s *Simulator) {
		s.orderIDPrefix = prefix
	}
}

// WithDefaultPrice sets the price used for symbols that have not been observed yet.
func WithDefaultPrice(price fixed.Point) Option {
	return func(s *Simulator) {
		s.defaultPrice = price
	}
}
