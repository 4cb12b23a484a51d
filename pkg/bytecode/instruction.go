// Package bytecode compiles tokens into an instruction graph: a primary
// sequence of statements and an auxiliary pool of operand instructions
// linked by index.
package bytecode

import (
	"fmt"
	"strings"

	"github.com/antibyte/kscr/pkg/value"
)

// Kind is the instruction opcode.
type Kind byte

const (
	OpDeclaration Kind = iota
	OpAssignment
	OpLiteral
	OpVariableReference
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulus
	OpReturn
)

var kindNames = [...]string{
	OpDeclaration:       "DECL",
	OpAssignment:        "ASSIGN",
	OpLiteral:           "LIT",
	OpVariableReference: "REF",
	OpPlus:              "ADD",
	OpMinus:             "SUB",
	OpMultiply:          "MUL",
	OpDivide:            "DIV",
	OpModulus:           "MOD",
	OpReturn:            "RET",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("OP(%d)", byte(k))
}

// IsOperator reports whether k is one of the arithmetic operators.
func (k Kind) IsOperator() bool {
	return k >= OpPlus && k <= OpModulus
}

// DeclKind is the declared type of a Declaration.
type DeclKind byte

const (
	DeclNone DeclKind = iota
	DeclByte
	DeclNum
	DeclStr
	DeclVar
	DeclVoid
)

var declNames = [...]string{"", "byte", "num", "str", "var", "void"}

func (d DeclKind) String() string {
	if int(d) < len(declNames) {
		return declNames[d]
	}
	return fmt.Sprintf("decl(%d)", byte(d))
}

// Link is an index into Program.Aux.
type Link int

// NoLink marks an absent operand.
const NoLink Link = -1

// Valid reports whether the link refers to a pool slot.
func (l Link) Valid() bool {
	return l >= 0
}

// Instruction is one node of the program graph.
type Instruction struct {
	Kind    Kind
	Decl    DeclKind    // Declaration only
	Name    string      // Declaration, VariableReference
	Literal value.Value // Literal only
	Rhs     Link        // Assignment, Declaration with initializer
	Operand Link        // operators
	Next    Link        // following instruction of the same right-hand side
	// Target marks a VariableReference that is the target of the next Assignment.
	Target    bool
	Statement int
	Line      int
}

func newInstruction(kind Kind) Instruction {
	return Instruction{Kind: kind, Rhs: NoLink, Operand: NoLink, Next: NoLink}
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Kind.String())
	switch in.Kind {
	case OpDeclaration:
		fmt.Fprintf(&sb, " %s %s", in.Decl, in.Name)
	case OpVariableReference:
		sb.WriteString(" " + in.Name)
		if in.Target {
			sb.WriteString(" (target)")
		}
	case OpLiteral:
		sb.WriteString(" " + value.Describe(in.Literal))
	}
	if in.Rhs.Valid() {
		fmt.Fprintf(&sb, " rhs=@%d", in.Rhs)
	}
	if in.Operand.Valid() {
		fmt.Fprintf(&sb, " operand=@%d", in.Operand)
	}
	if in.Next.Valid() {
		fmt.Fprintf(&sb, " next=@%d", in.Next)
	}
	return sb.String()
}
