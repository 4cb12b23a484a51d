package bytecode

import (
	"errors"

	"github.com/antibyte/kscr/pkg/lexer"
	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/shared"
	"github.com/antibyte/kscr/pkg/value"
)

// Builder holds the state of one compilation. It is not reusable.
type Builder struct {
	tokens  []lexer.Token
	pos     int
	prog    *Program
	strings *value.StrTable

	stmt      int  // current statement, 1-based
	emitted   int  // primary instructions of the current statement
	lastIdx   int  // last primary instruction of the current statement, -1 if none
	tail      Link // end of the open right-hand side chain
	returning bool
}

// NewBuilder erstellt einen Builder für die gegebenen Tokens
func NewBuilder(tokens []lexer.Token) *Builder {
	return &Builder{
		tokens:  tokens,
		prog:    &Program{},
		strings: nil,
		stmt:    1,
		lastIdx: -1,
		tail:    NoLink,
	}
}

// WithStrings interns string literals in table instead of the process-wide table.
func (b *Builder) WithStrings(table *value.StrTable) *Builder {
	b.strings = table
	return b
}

// Compile builds a program from tokens.
func Compile(tokens []lexer.Token) (*Program, error) {
	return NewBuilder(tokens).Build()
}

// Build consumes all tokens. On error no partial program is returned.
func (b *Builder) Build() (*Program, error) {
	for b.pos < len(b.tokens) {
		if err := b.step(); err != nil {
			logger.Debug(logger.AreaCompiler, "Compilation failed: %v", err)
			return nil, err
		}
	}
	if b.emitted > 0 || b.returning {
		line := 0
		if n := len(b.tokens); n > 0 {
			line = b.tokens[n-1].Line
		}
		return nil, b.fail(shared.NewScriptError(shared.ErrSyntax, "missing ';' at end of input"), line)
	}
	logger.Debug(logger.AreaCompiler, "Compiled %d statements: %d primary, %d aux instructions",
		b.stmt-1, len(b.prog.Primary), len(b.prog.Aux))
	return b.prog, nil
}

func (b *Builder) peek(offset int) (lexer.Token, bool) {
	if i := b.pos + offset; i < len(b.tokens) {
		return b.tokens[i], true
	}
	return lexer.Token{}, false
}

func (b *Builder) fail(se *shared.ScriptError, line int) *shared.ScriptError {
	if line > 0 && se.Line == 0 {
		se.AtLine(line)
	}
	return se.InStatement(b.stmt)
}

func (b *Builder) syntaxError(tok lexer.Token, format string, args ...interface{}) error {
	return b.fail(shared.Errorf(shared.ErrSyntax, format, args...), tok.Line)
}

func (b *Builder) step() error {
	tok := b.tokens[b.pos]

	switch {
	case tok.Kind == lexer.Terminator:
		b.terminate(tok)
		b.pos++
		return nil

	case tok.Kind == lexer.Return:
		if b.emitted > 0 || b.returning {
			return b.syntaxError(tok, "misplaced return")
		}
		b.returning = true
		b.pos++
		return nil

	case tok.Kind.IsDeclaration():
		if b.emitted > 0 {
			return b.syntaxError(tok, "unexpected declaration")
		}
		name, ok := b.peek(1)
		if !ok || name.Kind != lexer.Identifier {
			return b.fail(shared.NewScriptError(shared.ErrSyntax, "missing variable name").WithName(tok.Kind.String()), tok.Line)
		}
		in := newInstruction(OpDeclaration)
		in.Decl = declKinds[tok.Kind]
		in.Name = name.Text
		b.appendPrimary(in, tok)
		b.pos += 2
		return nil

	case tok.Kind == lexer.Equals:
		return b.assignment(tok)

	case tok.Kind.IsOperator():
		return b.operator(tok)

	case tok.Kind.IsOperand():
		if b.emitted > 0 {
			return b.syntaxError(tok, "missing operator before %s", tok)
		}
		in, err := b.valueInstruction(tok)
		if err != nil {
			return err
		}
		b.appendPrimary(in, tok)
		b.pos++
		return nil
	}
	return b.syntaxError(tok, "unexpected %s", tok)
}

var declKinds = map[lexer.Kind]DeclKind{
	lexer.DeclByte: DeclByte,
	lexer.DeclNum:  DeclNum,
	lexer.DeclStr:  DeclStr,
	lexer.DeclVar:  DeclVar,
	lexer.DeclVoid: DeclVoid,
}

var operatorKinds = map[lexer.Kind]Kind{
	lexer.Plus:     OpPlus,
	lexer.Minus:    OpMinus,
	lexer.Multiply: OpMultiply,
	lexer.Divide:   OpDivide,
	lexer.Modulus:  OpModulus,
}

// assignment handles '=' after a Declaration or VariableReference. The
// right-hand side goes to the pool and stays open for following operators.
func (b *Builder) assignment(tok lexer.Token) error {
	if b.lastIdx < 0 || b.tail.Valid() {
		return b.syntaxError(tok, "misplaced '='")
	}
	target := &b.prog.Primary[b.lastIdx]
	if target.Kind != OpDeclaration && target.Kind != OpVariableReference {
		return b.syntaxError(tok, "misplaced '='")
	}

	rhs, err := b.operand(tok, "assignment")
	if err != nil {
		return err
	}
	if target.Kind == OpVariableReference {
		target.Target = true
	}
	in := newInstruction(OpAssignment)
	in.Rhs = rhs
	b.appendPrimary(in, tok)
	b.tail = rhs
	b.pos += 2
	return nil
}

// operator handles an arithmetic operator. Inside an open right-hand side
// it extends that chain, otherwise it becomes a statement instruction.
func (b *Builder) operator(tok lexer.Token) error {
	operand, err := b.operand(tok, "operator")
	if err != nil {
		return err
	}
	in := newInstruction(operatorKinds[tok.Kind])
	in.Operand = operand

	if b.tail.Valid() {
		link := b.appendAux(in, tok)
		b.prog.Aux[b.tail].Next = link
		b.tail = link
	} else {
		b.appendPrimary(in, tok)
	}
	b.pos += 2
	return nil
}

// operand builds the token after tok into the pool.
func (b *Builder) operand(tok lexer.Token, what string) (Link, error) {
	next, ok := b.peek(1)
	if !ok || next.Kind == lexer.Terminator {
		return NoLink, b.syntaxError(tok, "dangling %s '%s'", what, tok.Kind)
	}
	if !next.Kind.IsOperand() {
		return NoLink, b.syntaxError(next, "unexpected %s after '%s'", next, tok.Kind)
	}
	in, err := b.valueInstruction(next)
	if err != nil {
		return NoLink, err
	}
	return b.appendAux(in, next), nil
}

func (b *Builder) valueInstruction(tok lexer.Token) (Instruction, error) {
	if tok.Kind == lexer.Identifier {
		in := newInstruction(OpVariableReference)
		in.Name = tok.Text
		return in, nil
	}

	in := newInstruction(OpLiteral)
	switch tok.Kind {
	case lexer.NumberLiteral:
		n, err := value.ParseNumeric(tok.Text)
		if err != nil {
			var se *shared.ScriptError
			if errors.As(err, &se) {
				return in, b.fail(se, tok.Line)
			}
			return in, err
		}
		in.Literal = n
	case lexer.StringLiteral:
		if b.strings != nil {
			in.Literal = b.strings.Instance(tok.Text)
		} else {
			in.Literal = value.Instance(tok.Text)
		}
	case lexer.True:
		in.Literal = value.Bool(true)
	case lexer.False:
		in.Literal = value.Bool(false)
	}
	return in, nil
}

func (b *Builder) stamp(in *Instruction, tok lexer.Token) {
	in.Statement = b.stmt
	in.Line = tok.Line
}

func (b *Builder) appendPrimary(in Instruction, tok lexer.Token) {
	b.stamp(&in, tok)
	b.prog.Primary = append(b.prog.Primary, in)
	b.lastIdx = len(b.prog.Primary) - 1
	b.emitted++
}

func (b *Builder) appendAux(in Instruction, tok lexer.Token) Link {
	b.stamp(&in, tok)
	return b.prog.appendAux(in)
}

// terminate closes the current statement.
func (b *Builder) terminate(tok lexer.Token) {
	if b.returning {
		in := newInstruction(OpReturn)
		b.stamp(&in, tok)
		b.prog.Primary = append(b.prog.Primary, in)
	}
	b.stmt++
	b.emitted = 0
	b.lastIdx = -1
	b.tail = NoLink
	b.returning = false
}
