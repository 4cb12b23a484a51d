package shared

import (
	"errors"
	"fmt"
	"strconv"
)

// Error definitions for every stage of the script pipeline.
var (
	ErrSyntax               = errors.New("syntax error")
	ErrInvalidLiteral       = errors.New("invalid literal")
	ErrModeMismatch         = errors.New("numeric mode mismatch")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrTypeError            = errors.New("type error")
	ErrUndefinedVariable    = errors.New("undefined variable")
	ErrUnboundTarget        = errors.New("assignment without target")
	ErrNoExitValue          = errors.New("no exit value")
	ErrStepLimit            = errors.New("step limit exceeded")
	ErrSourceTooLarge       = errors.New("source too large")
	ErrBusy                 = errors.New("no execution slot available")
)

// Fehlerkategorien
const (
	// ErrCategorySyntax kennzeichnet Syntaxfehler beim Lexen oder Übersetzen.
	ErrCategorySyntax = "SYNTAX ERROR"
	// ErrCategoryLiteral kennzeichnet ungültige Zahlenliterale.
	ErrCategoryLiteral = "LITERAL ERROR"
	// ErrCategoryEvaluation kennzeichnet Fehler bei Operatoren.
	ErrCategoryEvaluation = "EVALUATION ERROR"
	// ErrCategoryRuntime kennzeichnet Fehler in der Variablenumgebung.
	ErrCategoryRuntime = "RUNTIME ERROR"
	// ErrCategoryResource kennzeichnet überschrittene Ausführungsgrenzen.
	ErrCategoryResource = "RESOURCE ERROR"
)

var categoryBySentinel = map[error]string{
	ErrSyntax:               ErrCategorySyntax,
	ErrInvalidLiteral:       ErrCategoryLiteral,
	ErrModeMismatch:         ErrCategoryEvaluation,
	ErrDivisionByZero:       ErrCategoryEvaluation,
	ErrUnsupportedOperation: ErrCategoryEvaluation,
	ErrTypeError:            ErrCategoryEvaluation,
	ErrUndefinedVariable:    ErrCategoryRuntime,
	ErrUnboundTarget:        ErrCategoryRuntime,
	ErrNoExitValue:          ErrCategoryRuntime,
	ErrStepLimit:            ErrCategoryResource,
	ErrSourceTooLarge:       ErrCategoryResource,
	ErrBusy:                 ErrCategoryResource,
}

// ScriptError is the structured error raised by the lexer, the builder and the evaluator.
// Unwrap yields one of the sentinel errors above, so callers match with errors.Is.
type ScriptError struct {
	Category  string
	Err       error
	Detail    string
	Name      string // bound identifier, if any
	Line      int    // source line, 0 when unknown
	Statement int    // 1-based statement index, 0 when unknown
}

// NewScriptError creates an error for the given sentinel; the category follows from the sentinel.
func NewScriptError(sentinel error, detail string) *ScriptError {
	category, ok := categoryBySentinel[sentinel]
	if !ok {
		category = ErrCategoryRuntime
	}
	return &ScriptError{
		Category: category,
		Err:      sentinel,
		Detail:   detail,
	}
}

// Errorf is NewScriptError with a formatted detail.
func Errorf(sentinel error, format string, args ...interface{}) *ScriptError {
	return NewScriptError(sentinel, fmt.Sprintf(format, args...))
}

func (se *ScriptError) Error() string {
	msg := se.Category
	switch {
	case se.Line > 0:
		msg += " IN LINE " + strconv.Itoa(se.Line)
	case se.Statement > 0:
		msg += " IN STATEMENT " + strconv.Itoa(se.Statement)
	}
	msg += ": " + se.Err.Error()
	if se.Name != "" {
		msg += " '" + se.Name + "'"
	}
	if se.Detail != "" {
		msg += " (" + se.Detail + ")"
	}
	return msg
}

func (se *ScriptError) Unwrap() error {
	return se.Err
}

// WithName fügt dem Fehler den betroffenen Bezeichner hinzu
func (se *ScriptError) WithName(name string) *ScriptError {
	se.Name = name
	return se
}

// AtLine fügt dem Fehler die Quelltextzeile hinzu
func (se *ScriptError) AtLine(line int) *ScriptError {
	se.Line = line
	return se
}

// InStatement records the statement index unless one is already set.
func (se *ScriptError) InStatement(n int) *ScriptError {
	if se.Statement == 0 {
		se.Statement = n
	}
	return se
}

// CategoryOf returns the category of a script error, or "" for foreign errors.
func CategoryOf(err error) string {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}
