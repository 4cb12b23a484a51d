// Package lexer turns script source into tokens.
package lexer

import (
	"regexp"

	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/shared"
	"github.com/antibyte/kscr/pkg/value"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type commentState int

const (
	noComment commentState = iota
	lineComment
	blockComment
)

// Lexer scans one source buffer. It is not reusable.
type Lexer struct {
	src      []byte
	pos      int
	line     int
	buf      []byte
	bufLine  int
	inString bool
	comment  commentState
	tokens   []Token
}

// NewLexer erstellt einen neuen Lexer
func NewLexer(src []byte) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
	}
}

// Tokenize scans src completely and returns its tokens.
func Tokenize(src []byte) ([]Token, error) {
	return NewLexer(src).Tokenize()
}

func (l *Lexer) Tokenize() ([]Token, error) {
	for l.pos < len(l.src) {
		if err := l.step(); err != nil {
			logger.Debug(logger.AreaLexer, "Lexing failed at line %d: %v", l.line, err)
			return nil, err
		}
	}
	if l.inString {
		return nil, shared.NewScriptError(shared.ErrSyntax, "unterminated string").AtLine(l.bufLine)
	}
	if err := l.flush(); err != nil {
		return nil, err
	}
	logger.Debug(logger.AreaLexer, "Tokenized %d bytes into %d tokens", len(l.src), len(l.tokens))
	return l.tokens, nil
}

func (l *Lexer) peek() byte {
	if l.pos+1 < len(l.src) {
		return l.src[l.pos+1]
	}
	return 0
}

func (l *Lexer) step() error {
	c := l.src[l.pos]

	// Line feed
	if c == '\n' || (c == '\r' && l.peek() == '\n') {
		if l.inString {
			return shared.NewScriptError(shared.ErrSyntax, "unterminated string").AtLine(l.bufLine)
		}
		if c == '\r' {
			l.pos++
		}
		l.pos++
		if l.comment == lineComment {
			l.comment = noComment
		}
		var err error
		if l.comment == noComment {
			err = l.flush()
		}
		l.line++
		return err
	}

	switch l.comment {
	case lineComment:
		l.pos++
		return nil
	case blockComment:
		if c == '*' && l.peek() == '/' {
			l.comment = noComment
			l.pos += 2
			return nil
		}
		l.pos++
		return nil
	}

	if l.inString {
		l.buf = append(l.buf, c)
		if c == '"' {
			l.inString = false
		}
		l.pos++
		return nil
	}

	switch {
	case c == ' ' || c == '\t' || c == '\r':
		l.pos++
		return l.flush()
	case c == '/' && (l.peek() == '/' || l.peek() == '*'):
		if l.peek() == '/' {
			l.comment = lineComment
		} else {
			l.comment = blockComment
		}
		l.pos += 2
		return l.flush()
	case c == ';':
		l.pos++
		if err := l.flush(); err != nil {
			return err
		}
		l.emit(Terminator, "", l.line)
		return nil
	}

	if kind, ok := operators[c]; ok {
		l.pos++
		if err := l.flush(); err != nil {
			return err
		}
		l.emit(kind, "", l.line)
		return nil
	}

	if len(l.buf) == 0 {
		l.bufLine = l.line
		if c == '"' {
			l.inString = true
		}
	}
	l.buf = append(l.buf, c)
	l.pos++
	return nil
}

func (l *Lexer) emit(kind Kind, text string, line int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Line: line})
}

// flush classifies the buffer at a token boundary.
func (l *Lexer) flush() error {
	if len(l.buf) == 0 {
		return nil
	}
	text := string(l.buf)
	l.buf = l.buf[:0]

	if kind, ok := keywords[text]; ok {
		l.emit(kind, "", l.bufLine)
		return nil
	}

	switch c := text[0]; {
	case c == '"':
		if len(text) < 2 || text[len(text)-1] != '"' {
			return shared.NewScriptError(shared.ErrSyntax, "malformed string").WithName(text).AtLine(l.bufLine)
		}
		l.emit(StringLiteral, text[1:len(text)-1], l.bufLine)
		return nil
	case c >= '0' && c <= '9':
		if !value.IsNumeric(text) {
			return shared.NewScriptError(shared.ErrInvalidLiteral, "not a number").WithName(text).AtLine(l.bufLine)
		}
		l.emit(NumberLiteral, text, l.bufLine)
		return nil
	}

	if identifierPattern.MatchString(text) {
		l.emit(Identifier, text, l.bufLine)
		return nil
	}
	return shared.NewScriptError(shared.ErrSyntax, "unexpected input").WithName(text).AtLine(l.bufLine)
}
