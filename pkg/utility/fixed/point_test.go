package fixed

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestFixedPoint_FromInt64(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		scale int
		want  string
	}{
		{"zero", 0, 0, "0"},
		{"positive", 123, 0, "123"},
		{"negative", -456, 0, "-456"},
		{"with scale", 123, 2, "1.23"},
		{"negative with scale", -456, 3, "-0.456"},
		{"base size", 1, 3, "0.001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromInt64(tt.value, tt.scale)
			if got.String() != tt.want {
				t.Errorf("FromInt64(%d, %d) = %s; want %s", tt.value, tt.scale, got.String(), tt.want)
			}
		})
	}
}

func TestFixedPoint_FromFloat64Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("FromFloat64(NaN) did not panic")
		}
	}()
	FromFloat64(math.NaN())
}

func TestFixedPoint_Parse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"integer", "100", "100", false},
		{"decimal", "0.001", "0.001", false},
		{"negative", "-12.5", "-12.5", false},
		{"garbage", "abc", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPoint) {
					t.Errorf("Parse(%q) error = %v; want ErrInvalidPoint", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("Parse(%q) = %s; want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestFixedPoint_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Point
		want string
	}{
		{"add", FromFloat64(12.34).Add(FromFloat64(56.78)), "69.12"},
		{"add different scales", FromInt64(1234, 2).Add(FromInt64(5678, 3)), "18.018"},
		{"sub", FromInt64(100, 0).Sub(FromInt64(200, 0)), "-100"},
		{"mul", FromFloat64(1.5).Mul(FromFloat64(2.5)), "3.75"},
		{"div", FromInt64(10, 0).Div(FromInt64(4, 0)), "2.5"},
		{"mul int", MustParse("0.5").MulInt(3), "1.5"},
		{"div int", MustParse("205").DivInt(2), "102.5"},
		{"abs", FromInt64(-456, 0).Abs(), "456"},
		{"neg", FromFloat64(12.34).Neg(), "-12.34"},
		{"min", Min(One, Two), "1"},
		{"max", Max(One, Two), "2"},
		{"trim", MustParse("102.5000").Trim(), "102.5"},
		{"sqrt", FromInt(16, 0).Sqrt().Trim(), "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.String() != tt.want {
				t.Errorf("%s = %s; want %s", tt.name, tt.got.String(), tt.want)
			}
		})
	}
}

func TestFixedPoint_DivByZeroPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Div by zero did not panic")
		}
	}()
	One.Div(Zero)
}

func TestFixedPoint_Comparison(t *testing.T) {
	a := MustParse("1.50")
	b := MustParse("1.5")
	c := MustParse("2")

	if !a.Eq(b) {
		t.Errorf("expected %s == %s", a, b)
	}
	if !c.Gt(a) || !a.Lt(c) {
		t.Errorf("expected %s < %s", a, c)
	}
	if !a.Gte(b) || !a.Lte(b) {
		t.Errorf("expected %s >= and <= %s", a, b)
	}
	if !Zero.IsZero() || Zero.IsPos() || Zero.IsNeg() {
		t.Errorf("zero sign predicates are wrong")
	}
	if c.Neg().Sign() != -1 || c.Sign() != 1 {
		t.Errorf("Sign() is wrong")
	}
}

func TestFixedPoint_JSON(t *testing.T) {
	type payload struct {
		Price Point  `json:"price"`
		Size  *Point `json:"size,omitempty"`
	}

	size := MustParse("0.001")
	out, err := json.Marshal(payload{Price: MustParse("100.25"), Size: &size})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"price":"100.25","size":"0.001"}` {
		t.Errorf("unexpected json: %s", out)
	}

	var in payload
	if err := json.Unmarshal([]byte(`{"price":101.5,"size":"2"}`), &in); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if in.Price.String() != "101.5" {
		t.Errorf("price = %s; want 101.5", in.Price)
	}
	if in.Size == nil || in.Size.String() != "2" {
		t.Errorf("size = %v; want 2", in.Size)
	}

	if err := json.Unmarshal([]byte(`{"price":"x"}`), &in); err == nil {
		t.Errorf("expected error on invalid price")
	}
}

func BenchmarkFixedPoint_Add(b *testing.B) {
	x := MustParse("100.125")
	y := MustParse("0.001")
	for i := 0; i < b.N; i++ {
		_ = x.Add(y)
	}
}
