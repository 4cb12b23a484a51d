package eval

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/antibyte/kscr/pkg/bytecode"
	"github.com/antibyte/kscr/pkg/lexer"
	"github.com/antibyte/kscr/pkg/shared"
	"github.com/antibyte/kscr/pkg/value"
)

func compile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	tokens, err := lexer.Tokenize([]byte(src))
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", src, err)
	}
	prog, err := bytecode.Compile(tokens)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", src, err)
	}
	return prog
}

func TestExecuteExitCodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"declaration then use", "num a = 1; return a;", 1},
		{"left to right chaining", "num a = 1; a + 2 * 3;", 9},
		{"chained initializer", "num a = 1 + 2 * 3; return a;", 9},
		{"reassignment", "num a; a = 5; return a;", 5},
		{"self reference", "num a = 2; a = a * a + 1; return a;", 5},
		{"last statement wins", "1; 2; 3;", 3},
		{"return stops execution", "return 3; 4;", 3},
		{"bare return", "7; return;", 7},
		{"modulus", "7 % 3;", 1},
		{"long arithmetic", "10l - 20l;", -10},
		{"true is byte 1", "byte b = true; return b;", 1},
		{"false is byte -1", "return false;", -1},
		{"integer division", "var x = 7; x / 2;", 3},
		{"accumulator across statements", "num a = 4; a; - 1;", 3},
		{"redeclaration", "num a = 1; num a = 2; return a;", 2},
	}

	ev := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ev.Execute(compile(t, tt.src))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if res.NoExitValue {
				t.Fatalf("Unexpected NoExitValue: %s", res.Diagnostic)
			}
			if res.ExitCode != tt.want {
				t.Errorf("Expected exit code %d, got %d", tt.want, res.ExitCode)
			}
		})
	}
}

func TestExecuteNoExitValue(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		value string
	}{
		{"float result", "return 2.5;", "float 2.5"},
		{"double result", "1d + 1d;", "double 2"},
		{"string result", `str s = "done"; return s;`, `str "done"`},
		{"empty program", "", "<none>"},
		{"unbound declaration", "num a;", "<none>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(Options{}).Execute(compile(t, tt.src))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if !res.NoExitValue || res.ExitCode != 0 {
				t.Errorf("Expected NoExitValue with exit code 0, got %+v", res)
			}
			if got := value.Describe(res.Value); got != tt.value {
				t.Errorf("Expected value %s, got %s", tt.value, got)
			}
			if !strings.Contains(res.Diagnostic, shared.ErrNoExitValue.Error()) {
				t.Errorf("Diagnostic should name the condition, got %q", res.Diagnostic)
			}
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		want     error
		category string
	}{
		{"undefined variable", "return x;", shared.ErrUndefinedVariable, shared.ErrCategoryRuntime},
		{"unbound variable", "num a; return a;", shared.ErrUndefinedVariable, shared.ErrCategoryRuntime},
		{"assignment to undeclared", "x = 5;", shared.ErrUndefinedVariable, shared.ErrCategoryRuntime},
		{"division by zero", "num a = 1; num b = 0; a / b;", shared.ErrDivisionByZero, shared.ErrCategoryEvaluation},
		{"modulus by zero", "5 % 0;", shared.ErrDivisionByZero, shared.ErrCategoryEvaluation},
		{"mode mismatch", "num a = 1; num b = 2.0; a + b;", shared.ErrModeMismatch, shared.ErrCategoryEvaluation},
		{"int plus float", "num a = 1; num b = 2.2; return a + b;", shared.ErrModeMismatch, shared.ErrCategoryEvaluation},
		{"float modulus", "5.0 % 2.0;", shared.ErrUnsupportedOperation, shared.ErrCategoryEvaluation},
		{"string operand", `str s = "a"; s + 1;`, shared.ErrTypeError, shared.ErrCategoryEvaluation},
		{"string right operand", `1 + "a";`, shared.ErrTypeError, shared.ErrCategoryEvaluation},
		{"operator without accumulator", "+ 1;", shared.ErrTypeError, shared.ErrCategoryEvaluation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(Options{}).Execute(compile(t, tt.src))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v (result %+v)", tt.want, err, res)
			}
			if got := shared.CategoryOf(err); got != tt.category {
				t.Errorf("Expected category %q, got %q", tt.category, got)
			}
			if res.Value != nil || res.Env != nil {
				t.Error("No partial result should be returned")
			}
		})
	}
}

func TestUndefinedVariableNamesVariable(t *testing.T) {
	_, err := New(Options{}).Execute(compile(t, "num a = 1;\nreturn missing;"))
	var se *shared.ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("Expected ScriptError, got %v", err)
	}
	if se.Name != "missing" || se.Statement != 2 {
		t.Errorf("Expected name 'missing' in statement 2, got %q in %d", se.Name, se.Statement)
	}
}

func TestAssignmentWithoutTarget(t *testing.T) {
	lit := bytecode.Instruction{Kind: bytecode.OpLiteral, Literal: value.Int(1), Rhs: bytecode.NoLink, Operand: bytecode.NoLink, Next: bytecode.NoLink}
	assign := bytecode.Instruction{Kind: bytecode.OpAssignment, Rhs: 0, Operand: bytecode.NoLink, Next: bytecode.NoLink, Statement: 1}
	prog := &bytecode.Program{
		Primary: []bytecode.Instruction{lit, assign},
		Aux:     []bytecode.Instruction{lit},
	}

	_, err := New(Options{}).Execute(prog)
	if !errors.Is(err, shared.ErrUnboundTarget) {
		t.Fatalf("Expected unbound target, got %v", err)
	}
}

func TestDeclarationWithInitializer(t *testing.T) {
	lit := bytecode.Instruction{Kind: bytecode.OpLiteral, Literal: value.Long(42), Rhs: bytecode.NoLink, Operand: bytecode.NoLink, Next: bytecode.NoLink}
	decl := bytecode.Instruction{Kind: bytecode.OpDeclaration, Decl: bytecode.DeclNum, Name: "answer", Rhs: 0, Operand: bytecode.NoLink, Next: bytecode.NoLink}
	ref := bytecode.Instruction{Kind: bytecode.OpVariableReference, Name: "answer", Rhs: bytecode.NoLink, Operand: bytecode.NoLink, Next: bytecode.NoLink}
	prog := &bytecode.Program{
		Primary: []bytecode.Instruction{decl, ref},
		Aux:     []bytecode.Instruction{lit},
	}

	res, err := New(Options{}).Execute(prog)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.ExitCode != 42 {
		t.Errorf("Expected 42, got %d", res.ExitCode)
	}
	if v, ok := res.Env.Lookup("answer"); !ok || !v.(*value.Numeric).Equal(value.Long(42)) {
		t.Errorf("Expected answer bound to 42, got %v", v)
	}
}

func TestStepLimit(t *testing.T) {
	prog := compile(t, "1; 2; 3; 4;")

	if _, err := New(Options{MaxSteps: 3}).Execute(prog); !errors.Is(err, shared.ErrStepLimit) {
		t.Fatalf("Expected step limit error, got %v", err)
	} else if shared.CategoryOf(err) != shared.ErrCategoryResource {
		t.Errorf("Expected resource category, got %q", shared.CategoryOf(err))
	}

	res, err := New(Options{MaxSteps: 4}).Execute(prog)
	if err != nil {
		t.Fatalf("Execute within limit failed: %v", err)
	}
	if res.Steps != 4 || res.ExitCode != 4 {
		t.Errorf("Expected 4 steps and exit code 4, got %d steps, exit %d", res.Steps, res.ExitCode)
	}
}

func TestEnvironmentIsolation(t *testing.T) {
	prog := compile(t, "num a = 1; a + 2 * 3;")
	ev := New(Options{})

	const runs = 16
	codes := make([]int, runs)
	errs := make([]error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ev.Execute(prog)
			codes[i], errs[i] = res.ExitCode, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < runs; i++ {
		if errs[i] != nil || codes[i] != 9 {
			t.Errorf("Run %d: expected 9, got %d (%v)", i, codes[i], errs[i])
		}
	}
}

func TestExecuteInExistingEnvironment(t *testing.T) {
	env := NewEnvironment()
	env.Bind("seed", value.Int(10))

	res, err := New(Options{}).ExecuteIn(compile(t, "num b = 5; seed + 1;"), env)
	if err != nil {
		t.Fatalf("ExecuteIn failed: %v", err)
	}
	if res.ExitCode != 11 {
		t.Errorf("Expected 11, got %d", res.ExitCode)
	}
	names := env.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "seed" {
		t.Errorf("Unexpected names %v", names)
	}
}
