package fixed

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/govalues/decimal"
)

var (
	Zero = Point{decimal.Zero}
	One  = Point{decimal.One}
	Two  = FromInt(2, 0)
	Ten  = FromInt(10, 0)
)

var (
	ErrInvalidPoint = errors.New("invalid decimal point")
	ErrArithmetic   = errors.New("decimal arithmetic failed")
)

// Point is an unsafe wrapper around decimal implementation. Caller must make sure the calculations
// are correct and will not result in an error state, otherwise it will panic
type Point struct {
	v decimal.Decimal
}

func FromInt(value int, scale int) Point {
	return Point{must(decimal.New(int64(value), scale))}
}

func FromInt64(value int64, scale int) Point {
	return Point{must(decimal.New(value, scale))}
}

func FromFloat64(value float64) Point {
	return Point{must(decimal.NewFromFloat64(value))}
}

// Parse converts a decimal string such as "0.001" or "-12.5" into a Point.
func Parse(s string) (Point, error) {
	d, err := decimal.Parse(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidPoint, s, err)
	}
	return Point{d}, nil
}

func MustParse(s string) Point {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Point) String() string           { return p.v.String() }
func (p Point) Float64() (float64, bool) { return p.v.Float64() }
func (p Point) Scale() int               { return p.v.Scale() }

func (p Point) Abs() Point { return Point{p.v.Abs()} }
func (p Point) Neg() Point { return Point{p.v.Neg()} }

func (p Point) Add(o Point) Point { return Point{must(p.v.Add(o.v))} }
func (p Point) Sub(o Point) Point { return Point{must(p.v.Sub(o.v))} }
func (p Point) Mul(o Point) Point { return Point{must(p.v.Mul(o.v))} }
func (p Point) Div(o Point) Point { return Point{must(p.v.Quo(o.v))} }

func (p Point) MulInt(o int) Point { return Point{must(p.v.Mul(decimal.MustNew(int64(o), 0)))} }
func (p Point) DivInt(o int) Point { return Point{must(p.v.Quo(decimal.MustNew(int64(o), 0)))} }

func (p Point) Eq(o Point) bool  { return p.v.Cmp(o.v) == 0 }
func (p Point) Gt(o Point) bool  { return p.v.Cmp(o.v) > 0 }
func (p Point) Lt(o Point) bool  { return p.v.Cmp(o.v) < 0 }
func (p Point) Gte(o Point) bool { return p.v.Cmp(o.v) >= 0 }
func (p Point) Lte(o Point) bool { return p.v.Cmp(o.v) <= 0 }

func (p Point) IsZero() bool { return p.v.IsZero() }
func (p Point) IsNeg() bool  { return p.v.IsNeg() }
func (p Point) IsPos() bool  { return p.v.IsPos() }
func (p Point) Sign() int    { return p.v.Sign() }

// Checked variants report decimal overflow and division by zero instead of panicking.

func (p Point) CheckedAdd(o Point) (Point, error) { return checked(p.v.Add(o.v)) }
func (p Point) CheckedSub(o Point) (Point, error) { return checked(p.v.Sub(o.v)) }
func (p Point) CheckedMul(o Point) (Point, error) { return checked(p.v.Mul(o.v)) }
func (p Point) CheckedDiv(o Point) (Point, error) { return checked(p.v.Quo(o.v)) }

func (p Point) Sqrt() Point { return Point{must(p.v.Sqrt())} }

func (p Point) Rescale(scale int) Point { return Point{p.v.Rescale(scale)} }

// Trim removes trailing zeros so that equal values render identically.
func (p Point) Trim() Point { return Point{p.v.Trim(0)} }

func Min(a, b Point) Point {
	if a.Lt(b) {
		return a
	}
	return b
}

func Max(a, b Point) Point {
	if a.Gt(b) {
		return a
	}
	return b
}

func (p Point) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Point) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalJSON encodes the value as a quoted string so no precision is lost in transit.
func (p Point) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
func (p *Point) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	return p.UnmarshalText(data)
}

func checked(v decimal.Decimal, err error) (Point, error) {
	if err != nil {
		return Zero, fmt.Errorf("%w: %w", ErrArithmetic, err)
	}
	return Point{v}, nil
}

func must(v decimal.Decimal, err error) decimal.Decimal {
	if err == nil {
		return v
	}
	panic(err)
}
