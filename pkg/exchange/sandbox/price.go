package sandbox

import (
	"sync"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

type PriceProvider interface {
	Price(symbol string) (fixed.Point, bool)
}

type PriceFunc func(symbol string) (fixed.Point, bool)

func (f PriceFunc) Price(symbol string) (fixed.Point, bool) { return f(symbol) }

// StaticPrice quotes the same price for every symbol.
func StaticPrice(price fixed.Point) PriceProvider {
	return PriceFunc(func(string) (fixed.Point, bool) { return price, true })
}

// LastPrice remembers the last traded price per symbol seen on the market feed.
type LastPrice struct {
	mu     sync.RWMutex
	prices map[string]fixed.Point
}

func NewLastPrice() *LastPrice {
	return &LastPrice{prices: make(map[string]fixed.Point)}
}

func (l *LastPrice) Observe(snapshot common.MarketSnapshot) {
	if snapshot.Price.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prices[snapshot.Symbol] = snapshot.Price
}

func (l *LastPrice) Price(symbol string) (fixed.Point, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.prices[symbol]
	return p, ok
}
