package value

import (
	"errors"
	"math"
	"testing"

	"github.com/antibyte/kscr/pkg/shared"
)

// TestParseNumericSuffix tests that an explicit suffix selects the mode
func TestParseNumericSuffix(t *testing.T) {
	tests := []struct {
		text      string
		mode      Mode
		wantInt   int64
		wantFloat float64
	}{
		{"0i", ModeInt, 0, 0},
		{"42i", ModeInt, 42, 0},
		{"2147483647i", ModeInt, math.MaxInt32, 0},
		{"7l", ModeLong, 7, 0},
		{"9223372036854775807l", ModeLong, math.MaxInt64, 0},
		{"3f", ModeFloat, 0, 3},
		{"2.5f", ModeFloat, 0, 2.5},
		{"1.25d", ModeDouble, 0, 1.25},
		{"10d", ModeDouble, 0, 10},
		{"1f.5", ModeFloat, 0, 1.5},
		{"1l.5d", ModeDouble, 0, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n, err := ParseNumeric(tt.text)
			if err != nil {
				t.Fatalf("ParseNumeric(%q) failed: %v", tt.text, err)
			}
			if n.Mode() != tt.mode {
				t.Errorf("Expected mode %s, got %s", tt.mode, n.Mode())
			}
			if tt.mode.Integral() {
				if n.Int64() != tt.wantInt {
					t.Errorf("Expected %d, got %d", tt.wantInt, n.Int64())
				}
			} else if n.Float64() != tt.wantFloat {
				t.Errorf("Expected %v, got %v", tt.wantFloat, n.Float64())
			}
		})
	}
}

func TestParseNumericDefaults(t *testing.T) {
	n, err := ParseNumeric("12")
	if err != nil {
		t.Fatalf("ParseNumeric failed: %v", err)
	}
	if n.Mode() != ModeInt || n.Int64() != 12 {
		t.Errorf("Expected int 12, got %s", Describe(n))
	}

	n, err = ParseNumeric("2.2")
	if err != nil {
		t.Fatalf("ParseNumeric failed: %v", err)
	}
	if n.Mode() != ModeFloat || n.Float64() != float64(float32(2.2)) {
		t.Errorf("Expected float 2.2, got %s", Describe(n))
	}
}

func TestParseNumericInvalid(t *testing.T) {
	invalid := []string{
		"",
		"abc",
		"1x",
		"1.",
		".5",
		"-1",
		"1.5i",
		"1.5l",
		"1i.5",
		"2147483648",
		"2147483648i",
		"9223372036854775808l",
		"1e10",
		"1 2",
	}
	for _, text := range invalid {
		t.Run(text, func(t *testing.T) {
			_, err := ParseNumeric(text)
			if !errors.Is(err, shared.ErrInvalidLiteral) {
				t.Errorf("ParseNumeric(%q): expected invalid literal, got %v", text, err)
			}
			if shared.CategoryOf(err) != shared.ErrCategoryLiteral {
				t.Errorf("Expected category %q, got %q", shared.ErrCategoryLiteral, shared.CategoryOf(err))
			}
		})
	}
}

func TestParseNumericMode(t *testing.T) {
	b, err := ParseNumericMode("1", ModeByte)
	if err != nil {
		t.Fatalf("ParseNumericMode failed: %v", err)
	}
	if b.Mode() != ModeByte || b.Int64() != 1 {
		t.Errorf("Expected byte 1, got %s", Describe(b))
	}

	if _, err := ParseNumericMode("128", ModeByte); !errors.Is(err, shared.ErrInvalidLiteral) {
		t.Errorf("Expected byte overflow to fail, got %v", err)
	}
	if _, err := ParseNumericMode("5i", ModeLong); !errors.Is(err, shared.ErrInvalidLiteral) {
		t.Errorf("Expected conflicting suffix to fail, got %v", err)
	}
	d, err := ParseNumericMode("5", ModeDouble)
	if err != nil || d.Mode() != ModeDouble || d.Float64() != 5 {
		t.Errorf("Expected double 5, got %v (%v)", d, err)
	}
}

func TestBoolConstants(t *testing.T) {
	if v := Bool(true); v.Mode() != ModeByte || v.Int64() != 1 {
		t.Errorf("true should be byte 1, got %s", Describe(v))
	}
	if v := Bool(false); v.Mode() != ModeByte || v.Int64() != -1 {
		t.Errorf("false should be byte -1, got %s", Describe(v))
	}
}

// TestArithmeticPreservesMode checks a.plus(b).mode == a.mode and that minus undoes plus
func TestArithmeticPreservesMode(t *testing.T) {
	pairs := []struct {
		name string
		a, b *Numeric
	}{
		{"byte", Byte(100), Byte(100)},
		{"int", Int(math.MaxInt32), Int(1)},
		{"int negative", Int(-7), Int(12345)},
		{"long", Long(math.MinInt64), Long(-1)},
		{"float", Float(1.5), Float(0.25)},
		{"double", Double(1e10), Double(3.14159)},
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			sum, err := p.a.Plus(p.b)
			if err != nil {
				t.Fatalf("Plus failed: %v", err)
			}
			if sum.Mode() != p.a.Mode() {
				t.Errorf("Expected mode %s, got %s", p.a.Mode(), sum.Mode())
			}
			back, err := sum.Minus(p.b)
			if err != nil {
				t.Fatalf("Minus failed: %v", err)
			}
			if p.a.Mode().Integral() {
				if !back.Equal(p.a) {
					t.Errorf("Expected %s, got %s", p.a, back)
				}
			} else if math.Abs(back.Float64()-p.a.Float64()) > 1e-3 {
				t.Errorf("Expected about %s, got %s", p.a, back)
			}
		})
	}
}

func TestArithmeticResults(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b *Numeric) (*Numeric, error)
		a, b *Numeric
		want *Numeric
	}{
		{"int plus", (*Numeric).Plus, Int(1), Int(2), Int(3)},
		{"int minus", (*Numeric).Minus, Int(1), Int(2), Int(-1)},
		{"int multiply", (*Numeric).Multiply, Int(6), Int(7), Int(42)},
		{"int divide truncates", (*Numeric).Divide, Int(7), Int(2), Int(3)},
		{"int modulus", (*Numeric).Modulus, Int(7), Int(3), Int(1)},
		{"int wraps", (*Numeric).Plus, Int(math.MaxInt32), Int(1), Int(math.MinInt32)},
		{"byte wraps", (*Numeric).Multiply, Byte(64), Byte(2), Byte(-128)},
		{"long modulus", (*Numeric).Modulus, Long(-7), Long(3), Long(-1)},
		{"float divide", (*Numeric).Divide, Float(1), Float(4), Float(0.25)},
		{"double multiply", (*Numeric).Multiply, Double(1.5), Double(2), Double(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Expected %s, got %s", Describe(tt.want), Describe(got))
			}
		})
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b *Numeric) (*Numeric, error)
		a, b *Numeric
		want error
	}{
		{"mode mismatch", (*Numeric).Plus, Int(1), Float(2), shared.ErrModeMismatch},
		{"int vs long", (*Numeric).Minus, Int(1), Long(1), shared.ErrModeMismatch},
		{"int divide by zero", (*Numeric).Divide, Int(1), Int(0), shared.ErrDivisionByZero},
		{"byte modulus by zero", (*Numeric).Modulus, Byte(1), Byte(0), shared.ErrDivisionByZero},
		{"double divide by zero", (*Numeric).Divide, Double(1), Double(0), shared.ErrDivisionByZero},
		{"float divide by negative zero", (*Numeric).Divide, Float(1), Float(float32(math.Copysign(0, -1))), shared.ErrDivisionByZero},
		{"float modulus", (*Numeric).Modulus, Float(5), Float(2), shared.ErrUnsupportedOperation},
		{"double modulus", (*Numeric).Modulus, Double(5), Double(2), shared.ErrUnsupportedOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(tt.a, tt.b)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if got != nil {
				t.Errorf("Expected no result on error, got %s", got)
			}
			if shared.CategoryOf(err) != shared.ErrCategoryEvaluation {
				t.Errorf("Expected category %q, got %q", shared.ErrCategoryEvaluation, shared.CategoryOf(err))
			}
		})
	}
}

func TestConstantMasksPayload(t *testing.T) {
	n := Constant(ModeByte, 0x1ff)
	if n.Bits() != 0xff || n.Int64() != -1 {
		t.Errorf("Expected byte -1 with bits 0xff, got %d (bits %#x)", n.Int64(), n.Bits())
	}
	if Constant(ModeInt, 5) != Int(5) {
		t.Error("Expected equal constants to share storage in the global pool")
	}
}

func TestConstantPoolEviction(t *testing.T) {
	pool := NewConstantPool(10)
	for i := 0; i < 25; i++ {
		pool.Get(ModeLong, uint64(i))
	}
	stats := pool.GetStats()
	if size := stats["size"].(int); size > 10 {
		t.Errorf("Expected at most 10 entries, got %d", size)
	}
	if ev := stats["evictions"].(int64); ev == 0 {
		t.Error("Expected evictions to be recorded")
	}
	if n := pool.Get(ModeLong, 3); n.Int64() != 3 {
		t.Errorf("Evicted constants must be recreated with their value, got %d", n.Int64())
	}
}
