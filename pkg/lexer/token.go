package lexer

import "fmt"

// Kind is the type of a token.
type Kind int

const (
	Terminator Kind = iota
	Identifier
	DeclByte
	DeclNum
	DeclStr
	DeclVar
	DeclVoid
	NumberLiteral
	StringLiteral
	True
	False
	Plus
	Minus
	Multiply
	Divide
	Modulus
	Equals
	Return
)

var kindNames = [...]string{
	Terminator:    "terminator",
	Identifier:    "identifier",
	DeclByte:      "byte",
	DeclNum:       "num",
	DeclStr:       "str",
	DeclVar:       "var",
	DeclVoid:      "void",
	NumberLiteral: "number",
	StringLiteral: "string",
	True:          "true",
	False:         "false",
	Plus:          "+",
	Minus:         "-",
	Multiply:      "*",
	Divide:        "/",
	Modulus:       "%",
	Equals:        "=",
	Return:        "return",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsDeclaration reports whether k is a declaration keyword.
func (k Kind) IsDeclaration() bool {
	return k >= DeclByte && k <= DeclVoid
}

// IsOperator reports whether k is an arithmetic operator.
func (k Kind) IsOperator() bool {
	return k >= Plus && k <= Modulus
}

// IsOperand reports whether a token of kind k can stand for a value.
func (k Kind) IsOperand() bool {
	switch k {
	case Identifier, NumberLiteral, StringLiteral, True, False:
		return true
	}
	return false
}

// keywords are only recognised as a whole buffer
var keywords = map[string]Kind{
	"return": Return,
	"byte":   DeclByte,
	"num":    DeclNum,
	"str":    DeclStr,
	"var":    DeclVar,
	"void":   DeclVoid,
	"true":   True,
	"false":  False,
}

var operators = map[byte]Kind{
	'+': Plus,
	'-': Minus,
	'*': Multiply,
	'/': Divide,
	'%': Modulus,
	'=': Equals,
}

// Token is an immutable lexical unit. Text holds the identifier name, the
// literal digits or the string payload without quotes.
type Token struct {
	Kind Kind
	Text string
	Line int
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier, NumberLiteral:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
	case StringLiteral:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	}
	return t.Kind.String()
}
