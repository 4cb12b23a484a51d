// Package script is the entry point of the runtime: source text in, exit
// code or structured error out.
package script

import (
	"time"

	"github.com/antibyte/kscr/pkg/bytecode"
	"github.com/antibyte/kscr/pkg/configuration"
	"github.com/antibyte/kscr/pkg/eval"
	"github.com/antibyte/kscr/pkg/lexer"
	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/shared"
)

// Process exit codes for failed runs, by error category.
const (
	ExitFailure    = 1
	ExitSyntax     = 2
	ExitLiteral    = 3
	ExitEvaluation = 4
	ExitRuntime    = 5
	ExitResource   = 6
)

var exitByCategory = map[string]int{
	shared.ErrCategorySyntax:     ExitSyntax,
	shared.ErrCategoryLiteral:    ExitLiteral,
	shared.ErrCategoryEvaluation: ExitEvaluation,
	shared.ErrCategoryRuntime:    ExitRuntime,
	shared.ErrCategoryResource:   ExitResource,
}

// Options limit a run. Zero values mean unlimited.
type Options struct {
	MaxSteps       int
	MaxSourceBytes int
}

// DefaultOptions reads the [Runtime] section.
func DefaultOptions() Options {
	return Options{
		MaxSteps:       configuration.GetInt("Runtime", "max_steps", 0),
		MaxSourceBytes: configuration.GetInt("Runtime", "max_source_kb", 256) * 1024,
	}
}

// Runner compiles and executes sources with fixed options. It is safe for
// concurrent use.
type Runner struct {
	opts      Options
	evaluator *eval.Evaluator
}

func NewRunner(opts Options) *Runner {
	return &Runner{
		opts:      opts,
		evaluator: eval.New(eval.Options{MaxSteps: opts.MaxSteps}),
	}
}

// Compile tokenizes and builds src. Only len(src) bytes are read.
func (r *Runner) Compile(src []byte) (*bytecode.Program, error) {
	if r.opts.MaxSourceBytes > 0 && len(src) > r.opts.MaxSourceBytes {
		return nil, shared.Errorf(shared.ErrSourceTooLarge, "%d bytes, limit %d", len(src), r.opts.MaxSourceBytes)
	}
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return bytecode.Compile(tokens)
}

func (r *Runner) Execute(prog *bytecode.Program) (eval.Result, error) {
	return r.evaluator.Execute(prog)
}

// Run compiles and executes src.
func (r *Runner) Run(src []byte) (eval.Result, error) {
	start := time.Now()
	prog, err := r.Compile(src)
	if err != nil {
		logger.Info(logger.AreaCompiler, "Compilation failed: %v", err)
		return eval.Result{}, err
	}
	res, err := r.Execute(prog)
	if err != nil {
		logger.EvalInfo("Run failed after %v: %v", time.Since(start), err)
		return eval.Result{}, err
	}
	logger.EvalDebug("Run finished in %v with exit code %d", time.Since(start), res.ExitCode)
	return res, nil
}

// Run compiles and executes src with the configured options.
func Run(src []byte) (eval.Result, error) {
	return NewRunner(DefaultOptions()).Run(src)
}

func Compile(src []byte) (*bytecode.Program, error) {
	return NewRunner(DefaultOptions()).Compile(src)
}

func Execute(prog *bytecode.Program) (eval.Result, error) {
	return NewRunner(DefaultOptions()).Execute(prog)
}

// ExitCode maps the outcome of a run to a process status. A successful run
// yields its own exit code; errors map to a non-zero code per category.
func ExitCode(res eval.Result, err error) int {
	if err == nil {
		return res.ExitCode
	}
	if code, ok := exitByCategory[shared.CategoryOf(err)]; ok {
		return code
	}
	return ExitFailure
}
