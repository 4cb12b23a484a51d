// Package value implements the runtime values of a script: numeric constants
// in five modes and content-interned strings.
package value

// Value is the result of evaluating an instruction. The set of
// implementations is closed: *Numeric and *Str.
type Value interface {
	String() string
	isValue()
}

func (*Numeric) isValue() {}
func (*Str) isValue()     {}

// Describe returns a short type-qualified rendering of v for diagnostics.
func Describe(v Value) string {
	switch x := v.(type) {
	case nil:
		return "<none>"
	case *Numeric:
		return x.mode.String() + " " + x.String()
	case *Str:
		return "str \"" + x.text + "\""
	}
	return "<unknown>"
}
