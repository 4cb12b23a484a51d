package value

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/antibyte/kscr/pkg/shared"
)

// digits [suffix] ['.' digits [suffix]]
var numericPattern = regexp.MustCompile(`^(\d+)([ilfd])?(?:\.(\d+)([ilfd])?)?$`)

// IsNumeric reports whether text matches the numeric literal grammar.
// It does not check that the magnitude fits the selected mode.
func IsNumeric(text string) bool {
	return numericPattern.MatchString(text)
}

// ModeForSuffix maps a literal suffix character to its mode.
func ModeForSuffix(c byte) (Mode, bool) {
	switch c {
	case 'i':
		return ModeInt, true
	case 'l':
		return ModeLong, true
	case 'f':
		return ModeFloat, true
	case 'd':
		return ModeDouble, true
	}
	return 0, false
}

type numericLiteral struct {
	whole    string
	fraction string
	hasFrac  bool
	suffix   string // effective suffix, "" when none
}

func splitNumeric(text string) (numericLiteral, error) {
	m := numericPattern.FindStringSubmatch(text)
	if m == nil {
		return numericLiteral{}, shared.NewScriptError(shared.ErrInvalidLiteral, "not a number").WithName(text)
	}
	lit := numericLiteral{whole: m[1], fraction: m[3], hasFrac: m[3] != "", suffix: m[4]}
	if lit.suffix == "" {
		lit.suffix = m[2]
	}
	return lit, nil
}

// ParseNumeric parses a literal, selecting the mode from its suffix. The
// trailing suffix wins over a leading one; without a suffix a fractional
// literal is a float and an integral one an int.
func ParseNumeric(text string) (*Numeric, error) {
	lit, err := splitNumeric(text)
	if err != nil {
		return nil, err
	}
	mode := ModeInt
	switch {
	case lit.suffix != "":
		mode, _ = ModeForSuffix(lit.suffix[0])
	case lit.hasFrac:
		mode = ModeFloat
	}
	return lit.build(text, mode)
}

// ParseNumericMode parses text in the requested mode. This is the only way
// to obtain a byte from text. A suffix naming another mode is rejected.
func ParseNumericMode(text string, mode Mode) (*Numeric, error) {
	lit, err := splitNumeric(text)
	if err != nil {
		return nil, err
	}
	if lit.suffix != "" {
		if m, _ := ModeForSuffix(lit.suffix[0]); m != mode {
			return nil, shared.Errorf(shared.ErrInvalidLiteral, "suffix %q in %s literal", lit.suffix, mode).WithName(text)
		}
	}
	return lit.build(text, mode)
}

func (lit numericLiteral) build(text string, mode Mode) (*Numeric, error) {
	if mode.Integral() {
		if lit.hasFrac {
			return nil, shared.Errorf(shared.ErrInvalidLiteral, "fraction in %s literal", mode).WithName(text)
		}
		bitSize := 64
		switch mode {
		case ModeByte:
			bitSize = 8
		case ModeInt:
			bitSize = 32
		}
		v, err := strconv.ParseInt(lit.whole, 10, bitSize)
		if err != nil {
			return nil, literalRangeError(text, mode, err)
		}
		return fromInt64(mode, v), nil
	}

	digits := lit.whole
	if lit.hasFrac {
		digits += "." + lit.fraction
	}
	if mode == ModeFloat {
		f, err := strconv.ParseFloat(digits, 32)
		if err != nil {
			return nil, literalRangeError(text, mode, err)
		}
		return Float(float32(f)), nil
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil, literalRangeError(text, mode, err)
	}
	return Double(f), nil
}

func literalRangeError(text string, mode Mode, err error) error {
	detail := "malformed " + mode.String()
	if errors.Is(err, strconv.ErrRange) {
		detail = "out of range for " + mode.String()
	}
	return shared.NewScriptError(shared.ErrInvalidLiteral, detail).WithName(text)
}
