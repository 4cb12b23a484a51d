package lexer

import (
	"errors"
	"reflect"
	"testing"

	"github.com/antibyte/kscr/pkg/shared"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeStatements(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kinds []Kind
		texts []string
	}{
		{
			name:  "declaration with initializer",
			src:   "num a = 1;",
			kinds: []Kind{DeclNum, Identifier, Equals, NumberLiteral, Terminator},
			texts: []string{"", "a", "", "1", ""},
		},
		{
			name:  "operators without spaces",
			src:   "a+2*3;",
			kinds: []Kind{Identifier, Plus, NumberLiteral, Multiply, NumberLiteral, Terminator},
			texts: []string{"a", "", "2", "", "3", ""},
		},
		{
			name:  "all operators",
			src:   "+ - * / % =",
			kinds: []Kind{Plus, Minus, Multiply, Divide, Modulus, Equals},
		},
		{
			name:  "keywords",
			src:   "return byte num str var void true false",
			kinds: []Kind{Return, DeclByte, DeclNum, DeclStr, DeclVar, DeclVoid, True, False},
		},
		{
			name:  "keyword prefix is an identifier",
			src:   "variable returned numeric;",
			kinds: []Kind{Identifier, Identifier, Identifier, Terminator},
			texts: []string{"variable", "returned", "numeric", ""},
		},
		{
			name:  "string literal keeps spaces and symbols",
			src:   `str s = "a; b + c // d";`,
			kinds: []Kind{DeclStr, Identifier, Equals, StringLiteral, Terminator},
			texts: []string{"", "s", "", "a; b + c // d", ""},
		},
		{
			name:  "empty string",
			src:   `"";`,
			kinds: []Kind{StringLiteral, Terminator},
			texts: []string{"", ""},
		},
		{
			name:  "suffixed numbers",
			src:   "1l 2.5d 3i.0f",
			kinds: []Kind{NumberLiteral, NumberLiteral, NumberLiteral},
			texts: []string{"1l", "2.5d", "3i.0f"},
		},
		{
			name:  "tabs and crlf",
			src:   "num\ta\r\n=\r\n1;\r\n",
			kinds: []Kind{DeclNum, Identifier, Equals, NumberLiteral, Terminator},
		},
		{
			name:  "trailing token without terminator",
			src:   "return x",
			kinds: []Kind{Return, Identifier},
		},
		{
			name:  "empty source",
			src:   "",
			kinds: []Kind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize([]byte(tt.src))
			if err != nil {
				t.Fatalf("Tokenize failed: %v", err)
			}
			if got := kinds(tokens); !reflect.DeepEqual(got, tt.kinds) {
				t.Fatalf("Expected kinds %v, got %v", tt.kinds, got)
			}
			for i, text := range tt.texts {
				if tokens[i].Text != text {
					t.Errorf("Token %d: expected text %q, got %q", i, text, tokens[i].Text)
				}
			}
		})
	}
}

func TestTokenLines(t *testing.T) {
	tokens, err := Tokenize([]byte("num a;\n\nreturn\na;"))
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	wantLines := []int{1, 1, 1, 3, 4, 4}
	for i, tok := range tokens {
		if tok.Line != wantLines[i] {
			t.Errorf("Token %d (%s): expected line %d, got %d", i, tok, wantLines[i], tok.Line)
		}
	}
}

// TestCommentStripping checks that comment spans do not change the token stream
func TestCommentStripping(t *testing.T) {
	tests := []struct {
		name      string
		commented string
		plain     string
	}{
		{"line comment", "num a = 1; // set a\nreturn a;", "num a = 1; \nreturn a;"},
		{"block comment", "num a /* the answer */ = 42;", "num a  = 42;"},
		{"multi-line block", "num a;\n/* one\ntwo; three */\na = 2;", "num a;\n\na = 2;"},
		{"comment at end", "return 1; // done", "return 1; "},
		{"slash inside block", "/* a / b // c */ return 0;", " return 0;"},
		{"unterminated block", "return 0; /* never closed", "return 0; "},
		{"operators in line comment", "a; // + - * ; =\nb;", "a; \nb;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withComments, err := Tokenize([]byte(tt.commented))
			if err != nil {
				t.Fatalf("Tokenize(commented) failed: %v", err)
			}
			without, err := Tokenize([]byte(tt.plain))
			if err != nil {
				t.Fatalf("Tokenize(plain) failed: %v", err)
			}
			if !reflect.DeepEqual(kinds(withComments), kinds(without)) {
				t.Fatalf("Token streams differ:\n%v\n%v", withComments, without)
			}
			for i := range without {
				if withComments[i].Text != without[i].Text {
					t.Errorf("Token %d: %q vs %q", i, withComments[i].Text, without[i].Text)
				}
			}
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unterminated string", `str s = "abc`, shared.ErrSyntax},
		{"string across lines", "str s = \"a\nb\";", shared.ErrSyntax},
		{"text after closing quote", `"abc"x;`, shared.ErrSyntax},
		{"invalid character", "num a$ = 1;", shared.ErrSyntax},
		{"bad number", "num a = 12ab;", shared.ErrInvalidLiteral},
		{"dangling fraction", "num a = 1.;", shared.ErrInvalidLiteral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize([]byte(tt.src))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v (tokens %v)", tt.want, err, tokens)
			}
			if tokens != nil {
				t.Error("No tokens should be returned on error")
			}
		})
	}
}

func TestKindPredicates(t *testing.T) {
	if !DeclVoid.IsDeclaration() || Identifier.IsDeclaration() {
		t.Error("IsDeclaration mismatch")
	}
	if !Modulus.IsOperator() || Equals.IsOperator() {
		t.Error("IsOperator mismatch")
	}
	if !False.IsOperand() || Return.IsOperand() {
		t.Error("IsOperand mismatch")
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("Unexpected name %q", Kind(99).String())
	}
}
