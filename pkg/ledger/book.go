package ledger

import (
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

// Book is the per-symbol position table of one execution backend.
// It has a single writer and does no locking of its own.
type Book struct {
	positions map[string]common.PositionSnapshot
	symbols   []string
}

func NewBook() *Book {
	return &Book{positions: make(map[string]common.PositionSnapshot)}
}

// Position returns the position of symbol, creating it flat on first reference.
func (b *Book) Position(symbol string) common.PositionSnapshot {
	pos, ok := b.positions[symbol]
	if !ok {
		pos = common.NewFlatPosition(symbol)
		b.positions[symbol] = pos
		b.symbols = append(b.symbols, symbol)
	}
	return pos
}

// Apply folds a fill into the position of symbol. On error the book is unchanged.
func (b *Book) Apply(symbol string, side common.OrderSide, size, price fixed.Point) (common.PositionSnapshot, error) {
	next, err := ApplyFill(b.Position(symbol), side, size, price)
	if err != nil {
		return next, err
	}
	b.positions[symbol] = next
	return next, nil
}

// Mark recomputes the unrealized P&L of symbol at price.
func (b *Book) Mark(symbol string, price fixed.Point) common.PositionSnapshot {
	pos := b.Position(symbol)
	pos.UnrealizedPnL = UnrealizedPnL(pos, price)
	b.positions[symbol] = pos
	return pos
}

// Snapshot copies the requested positions. With no symbols every known position is returned.
// Requested symbols that were never referenced are returned flat without being added,
// so Snapshot is safe under a read lock.
func (b *Book) Snapshot(symbols ...string) map[string]common.PositionSnapshot {
	if len(symbols) == 0 {
		symbols = b.symbols
	}
	out := make(map[string]common.PositionSnapshot, len(symbols))
	for _, symbol := range symbols {
		pos, ok := b.positions[symbol]
		if !ok {
			pos = common.NewFlatPosition(symbol)
		}
		out[symbol] = pos
	}
	return out
}

func (b *Book) Symbols() []string {
	return append([]string(nil), b.symbols...)
}
