package ledger

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

var ErrInvalidFill = errors.New("invalid fill")

// ApplyFill folds one fill into a position and returns the resulting position.
// It is pure: the input is never modified and no state outside the arguments is read.
//
//   - flat: open on the fill side at the fill price
//   - same direction: size grows, entry becomes the size weighted average
//   - opposite direction, smaller fill: realize P&L on the fill, entry unchanged
//   - opposite direction, equal fill: realize P&L, position returns to flat with entry 0
//   - opposite direction, larger fill: close all, open the remainder on the fill side at the fill price
//
// Unrealized P&L is not touched, see UnrealizedPnL. A result that does not fit the decimal
// range is reported as ErrInvalidFill and pos is returned unchanged.
func ApplyFill(pos common.PositionSnapshot, side common.OrderSide, size, price fixed.Point) (common.PositionSnapshot, error) {
	if !side.Valid() {
		return pos, fmt.Errorf("%w: unknown side %q", ErrInvalidFill, side)
	}
	if !size.IsPos() {
		return pos, fmt.Errorf("%w: size %s must be positive", ErrInvalidFill, size)
	}
	if price.IsNeg() {
		return pos, fmt.Errorf("%w: negative price %s", ErrInvalidFill, price)
	}
	if !pos.Side.Valid() || pos.Size.IsNeg() {
		return pos, fmt.Errorf("%w: malformed position side=%q size=%s", ErrInvalidFill, pos.Side, pos.Size)
	}

	next := pos
	fillSide := side.PositionSide()

	if pos.Side == common.PositionSideNone || pos.Size.IsZero() {
		next.Side = fillSide
		next.Size = size
		next.EntryPrice = price
		return next, nil
	}

	var c arith

	if pos.Side == fillSide {
		cost := c.add(c.mul(pos.EntryPrice, pos.Size), c.mul(price, size))
		next.Size = c.add(pos.Size, size)
		next.EntryPrice = c.div(cost, next.Size)
		if c.err != nil {
			return pos, fmt.Errorf("%w: %w", ErrInvalidFill, c.err)
		}
		return next, nil
	}

	diff := c.sub(pos.EntryPrice, price)
	if pos.Side == common.PositionSideLong {
		diff = c.sub(price, pos.EntryPrice)
	}

	switch {
	case size.Lt(pos.Size):
		next.RealizedPnL = c.add(pos.RealizedPnL, c.mul(diff, size))
		next.Size = c.sub(pos.Size, size)
	case size.Eq(pos.Size):
		next.RealizedPnL = c.add(pos.RealizedPnL, c.mul(diff, pos.Size))
		next.Size = fixed.Zero
		next.Side = common.PositionSideNone
		next.EntryPrice = fixed.Zero
	default:
		next.RealizedPnL = c.add(pos.RealizedPnL, c.mul(diff, pos.Size))
		next.Size = c.sub(size, pos.Size)
		next.Side = fillSide
		next.EntryPrice = price
	}

	if c.err != nil {
		return pos, fmt.Errorf("%w: %w", ErrInvalidFill, c.err)
	}
	return next, nil
}

// arith keeps the first arithmetic error, later operations are skipped.
type arith struct {
	err error
}

func (a *arith) do(op func(fixed.Point, fixed.Point) (fixed.Point, error), x, y fixed.Point) fixed.Point {
	if a.err != nil {
		return fixed.Zero
	}
	r, err := op(x, y)
	if err != nil {
		a.err = err
	}
	return r
}

func (a *arith) add(x, y fixed.Point) fixed.Point { return a.do(fixed.Point.CheckedAdd, x, y) }
func (a *arith) sub(x, y fixed.Point) fixed.Point { return a.do(fixed.Point.CheckedSub, x, y) }
func (a *arith) mul(x, y fixed.Point) fixed.Point { return a.do(fixed.Point.CheckedMul, x, y) }
func (a *arith) div(x, y fixed.Point) fixed.Point { return a.do(fixed.Point.CheckedDiv, x, y) }

// UnrealizedPnL marks the open remainder of a position at price.
func UnrealizedPnL(pos common.PositionSnapshot, price fixed.Point) fixed.Point {
	if pos.Side == common.PositionSideNone || pos.Size.IsZero() {
		return fixed.Zero
	}
	return signedDiff(pos.Side, pos.EntryPrice, price).Mul(pos.Size)
}

func signedDiff(side common.PositionSide, entry, price fixed.Point) fixed.Point {
	if side == common.PositionSideShort {
		return entry.Sub(price)
	}
	return price.Sub(entry)
}
