package eval

import (
	"errors"
	"fmt"

	"github.com/antibyte/kscr/pkg/bytecode"
	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/shared"
	"github.com/antibyte/kscr/pkg/value"
)

// Options configure an Evaluator.
type Options struct {
	// MaxSteps limits the number of evaluated instructions, 0 means unlimited.
	MaxSteps int
}

// Result is the outcome of a completed execution.
type Result struct {
	Value       value.Value // final accumulator, nil when nothing ran
	ExitCode    int
	NoExitValue bool   // Value is not an integral number, ExitCode is 0
	Diagnostic  string // set together with NoExitValue
	Steps       int
	Env         *Environment
}

// Evaluator executes programs. It keeps no state between executions and
// may be used from several goroutines.
type Evaluator struct {
	opts Options
}

func New(opts Options) *Evaluator {
	return &Evaluator{opts: opts}
}

// execution is the state of one run of a program.
type execution struct {
	prog        *bytecode.Program
	opts        Options
	env         *Environment
	index       int
	accumulator value.Value
	target      string
	hasTarget   bool
	steps       int
}

// Execute runs prog with a fresh environment.
func (ev *Evaluator) Execute(prog *bytecode.Program) (Result, error) {
	return ev.ExecuteIn(prog, NewEnvironment())
}

// ExecuteIn runs prog against env. env must not be shared with a
// concurrent execution.
func (ev *Evaluator) ExecuteIn(prog *bytecode.Program, env *Environment) (Result, error) {
	x := &execution{prog: prog, opts: ev.opts, env: env}

	for x.index < len(prog.Primary) {
		in := prog.Primary[x.index]
		if in.Kind == bytecode.OpReturn {
			if err := x.tick(in); err != nil {
				return Result{}, err
			}
			break
		}
		v, err := x.eval(in, x.accumulator, true)
		if err != nil {
			logger.EvalDebug("Execution failed at instruction %d: %v", x.index, err)
			return Result{}, err
		}
		x.accumulator = v
		x.index++
	}

	res := Result{Value: x.accumulator, Steps: x.steps, Env: env}
	res.ExitCode, res.NoExitValue, res.Diagnostic = exitValue(x.accumulator)
	if res.NoExitValue {
		logger.EvalWarn("%s", res.Diagnostic)
	}
	logger.EvalDebug("Executed %d steps, result %s", x.steps, value.Describe(x.accumulator))
	return res, nil
}

// exitValue maps the final accumulator to a process exit code.
func exitValue(v value.Value) (int, bool, string) {
	switch x := v.(type) {
	case *value.Numeric:
		if x.Mode().Integral() {
			return int(x.Int64()), false, ""
		}
		return 0, true, fmt.Sprintf("%s: result is %s, exit code 0", shared.ErrNoExitValue, value.Describe(x))
	case *value.Str:
		return 0, true, fmt.Sprintf("%s: result is %s, exit code 0", shared.ErrNoExitValue, value.Describe(x))
	}
	return 0, true, fmt.Sprintf("%s: nothing was evaluated, exit code 0", shared.ErrNoExitValue)
}

func (x *execution) tick(in bytecode.Instruction) error {
	x.steps++
	if x.opts.MaxSteps > 0 && x.steps > x.opts.MaxSteps {
		return locate(shared.Errorf(shared.ErrStepLimit, "more than %d steps", x.opts.MaxSteps), in)
	}
	return nil
}

// resolve evaluates the chain starting at link. Operators in the chain
// take the running value of the chain as their left operand.
func (x *execution) resolve(link bytecode.Link) (value.Value, error) {
	var acc value.Value
	for link.Valid() {
		in, ok := x.prog.At(link)
		if !ok {
			return nil, fmt.Errorf("invalid operand link @%d", link)
		}
		v, err := x.eval(in, acc, false)
		if err != nil {
			return nil, err
		}
		acc = v
		link = in.Next
	}
	return acc, nil
}

// eval dispatches one instruction. left is the value the instruction sees
// as its left operand. Binding targets are only tracked for primary
// instructions.
func (x *execution) eval(in bytecode.Instruction, left value.Value, primary bool) (value.Value, error) {
	if err := x.tick(in); err != nil {
		return nil, err
	}

	var resolved value.Value
	var err error
	switch {
	case in.Rhs.Valid():
		resolved, err = x.resolve(in.Rhs)
	case in.Operand.Valid():
		resolved, err = x.resolve(in.Operand)
	}
	if err != nil {
		return nil, err
	}

	target, hasTarget := x.target, x.hasTarget
	if primary {
		x.hasTarget = false
	}

	switch in.Kind {
	case bytecode.OpDeclaration:
		if in.Rhs.Valid() {
			x.env.Bind(in.Name, resolved)
		} else {
			x.env.Declare(in.Name)
		}
		if primary {
			x.target, x.hasTarget = in.Name, true
		}
		return resolved, nil

	case bytecode.OpAssignment:
		if !primary || !hasTarget {
			return nil, locate(shared.NewScriptError(shared.ErrUnboundTarget, "no variable before '='"), in)
		}
		x.env.Bind(target, resolved)
		return resolved, nil

	case bytecode.OpLiteral:
		return in.Literal, nil

	case bytecode.OpVariableReference:
		// An assignment target only has to be declared.
		v, bound := x.env.Lookup(in.Name)
		if !bound && !(in.Target && primary && x.env.Declared(in.Name)) {
			return nil, undefined(in)
		}
		if primary {
			x.target, x.hasTarget = in.Name, true
		}
		return v, nil

	case bytecode.OpPlus, bytecode.OpMinus, bytecode.OpMultiply, bytecode.OpDivide, bytecode.OpModulus:
		return applyOperator(in, left, resolved)
	}
	return nil, fmt.Errorf("unknown instruction %s", in.Kind)
}

func undefined(in bytecode.Instruction) error {
	return locate(shared.NewScriptError(shared.ErrUndefinedVariable, "").WithName(in.Name), in)
}

// locate attaches the source position of in to se.
func locate(se *shared.ScriptError, in bytecode.Instruction) *shared.ScriptError {
	if se.Line == 0 && in.Line > 0 {
		se.AtLine(in.Line)
	}
	return se.InStatement(in.Statement)
}

func applyOperator(in bytecode.Instruction, left, right value.Value) (value.Value, error) {
	a, okA := left.(*value.Numeric)
	b, okB := right.(*value.Numeric)
	if !okA || !okB {
		return nil, locate(shared.Errorf(shared.ErrTypeError, "%s %s %s", value.Describe(left), in.Kind, value.Describe(right)), in)
	}

	var r *value.Numeric
	var err error
	switch in.Kind {
	case bytecode.OpPlus:
		r, err = a.Plus(b)
	case bytecode.OpMinus:
		r, err = a.Minus(b)
	case bytecode.OpMultiply:
		r, err = a.Multiply(b)
	case bytecode.OpDivide:
		r, err = a.Divide(b)
	case bytecode.OpModulus:
		r, err = a.Modulus(b)
	}
	if err != nil {
		var se *shared.ScriptError
		if errors.As(err, &se) {
			return nil, locate(se, in)
		}
		return nil, err
	}
	return r, nil
}
