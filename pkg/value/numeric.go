package value

import (
	"math"
	"strconv"

	"github.com/antibyte/kscr/pkg/shared"
)

// Mode is the width and kind tag of a numeric value.
type Mode uint8

const (
	ModeByte Mode = iota
	ModeInt
	ModeLong
	ModeFloat
	ModeDouble
)

var modeNames = [...]string{
	ModeByte:   "byte",
	ModeInt:    "int",
	ModeLong:   "long",
	ModeFloat:  "float",
	ModeDouble: "double",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Integral reports whether the mode holds whole numbers.
func (m Mode) Integral() bool {
	return m == ModeByte || m == ModeInt || m == ModeLong
}

// Suffix returns the literal suffix selecting the mode. Byte has none.
func (m Mode) Suffix() string {
	switch m {
	case ModeInt:
		return "i"
	case ModeLong:
		return "l"
	case ModeFloat:
		return "f"
	case ModeDouble:
		return "d"
	}
	return ""
}

func (m Mode) mask() uint64 {
	switch m {
	case ModeByte:
		return 0xff
	case ModeInt, ModeFloat:
		return 0xffffffff
	}
	return math.MaxUint64
}

// Numeric is an immutable number. bits holds the payload of the active
// field only, masked to the width of the mode.
type Numeric struct {
	mode Mode
	bits uint64
}

func (n *Numeric) Mode() Mode {
	return n.mode
}

// Bits returns the raw payload.
func (n *Numeric) Bits() uint64 {
	return n.bits
}

// Int64 returns the value as a signed integer; floating modes truncate.
func (n *Numeric) Int64() int64 {
	switch n.mode {
	case ModeByte:
		return int64(int8(n.bits))
	case ModeInt:
		return int64(int32(n.bits))
	case ModeLong:
		return int64(n.bits)
	case ModeFloat:
		return int64(math.Float32frombits(uint32(n.bits)))
	case ModeDouble:
		return int64(math.Float64frombits(n.bits))
	}
	return 0
}

func (n *Numeric) Float64() float64 {
	switch n.mode {
	case ModeFloat:
		return float64(math.Float32frombits(uint32(n.bits)))
	case ModeDouble:
		return math.Float64frombits(n.bits)
	}
	return float64(n.Int64())
}

func (n *Numeric) float32() float32 {
	return math.Float32frombits(uint32(n.bits))
}

// IsZero reports whether the active field is zero (including -0.0).
func (n *Numeric) IsZero() bool {
	switch n.mode {
	case ModeFloat:
		return n.float32() == 0
	case ModeDouble:
		return math.Float64frombits(n.bits) == 0
	}
	return n.bits == 0
}

func (n *Numeric) String() string {
	switch n.mode {
	case ModeFloat:
		return strconv.FormatFloat(float64(n.float32()), 'g', -1, 32)
	case ModeDouble:
		return strconv.FormatFloat(math.Float64frombits(n.bits), 'g', -1, 64)
	}
	return strconv.FormatInt(n.Int64(), 10)
}

// Equal compares mode and payload.
func (n *Numeric) Equal(other *Numeric) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	return n.mode == other.mode && n.bits == other.bits
}

// Byte returns the byte constant v.
func Byte(v int8) *Numeric {
	return Constant(ModeByte, uint64(uint8(v)))
}

func Int(v int32) *Numeric {
	return Constant(ModeInt, uint64(uint32(v)))
}

func Long(v int64) *Numeric {
	return Constant(ModeLong, uint64(v))
}

func Float(v float32) *Numeric {
	return Constant(ModeFloat, uint64(math.Float32bits(v)))
}

func Double(v float64) *Numeric {
	return Constant(ModeDouble, math.Float64bits(v))
}

// Bool maps true to byte 1 and false to byte -1.
func Bool(v bool) *Numeric {
	if v {
		return Byte(1)
	}
	return Byte(-1)
}

// fromInt64 truncates r to the width of an integral mode.
func fromInt64(mode Mode, r int64) *Numeric {
	return Constant(mode, uint64(r))
}

type arithOp byte

const (
	opPlus arithOp = iota
	opMinus
	opMultiply
	opDivide
	opModulus
)

var arithSymbols = [...]string{"+", "-", "*", "/", "%"}

func (n *Numeric) Plus(other *Numeric) (*Numeric, error) {
	return n.apply(opPlus, other)
}

func (n *Numeric) Minus(other *Numeric) (*Numeric, error) {
	return n.apply(opMinus, other)
}

func (n *Numeric) Multiply(other *Numeric) (*Numeric, error) {
	return n.apply(opMultiply, other)
}

// Divide fails with a division-by-zero error for a zero divisor in every mode.
func (n *Numeric) Divide(other *Numeric) (*Numeric, error) {
	return n.apply(opDivide, other)
}

// Modulus is defined for byte, int and long only.
func (n *Numeric) Modulus(other *Numeric) (*Numeric, error) {
	return n.apply(opModulus, other)
}

func (n *Numeric) apply(op arithOp, other *Numeric) (*Numeric, error) {
	if n.mode != other.mode {
		return nil, shared.Errorf(shared.ErrModeMismatch, "%s %s %s", n.mode, arithSymbols[op], other.mode)
	}
	if op == opModulus && !n.mode.Integral() {
		return nil, shared.Errorf(shared.ErrUnsupportedOperation, "modulus on %s", n.mode)
	}
	if (op == opDivide || op == opModulus) && other.IsZero() {
		return nil, shared.Errorf(shared.ErrDivisionByZero, "%s %s 0", n, arithSymbols[op])
	}

	switch n.mode {
	case ModeFloat:
		a, b := n.float32(), other.float32()
		var r float32
		switch op {
		case opPlus:
			r = a + b
		case opMinus:
			r = a - b
		case opMultiply:
			r = a * b
		case opDivide:
			r = a / b
		}
		return Float(r), nil
	case ModeDouble:
		a, b := math.Float64frombits(n.bits), math.Float64frombits(other.bits)
		var r float64
		switch op {
		case opPlus:
			r = a + b
		case opMinus:
			r = a - b
		case opMultiply:
			r = a * b
		case opDivide:
			r = a / b
		}
		return Double(r), nil
	}

	// Integral modes compute in 64 bits and wrap to the mode width.
	a, b := n.Int64(), other.Int64()
	var r int64
	switch op {
	case opPlus:
		r = a + b
	case opMinus:
		r = a - b
	case opMultiply:
		r = a * b
	case opDivide:
		r = a / b
	case opModulus:
		r = a % b
	}
	return fromInt64(n.mode, r), nil
}
