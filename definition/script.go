package definition

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

const interruptedMessage = "RuntimeError: timeout"

// script is a compiled ECMAScript program evaluated against the bindings of
// a machine. Programs are compiled once; every evaluation gets a fresh
// runtime since a goja.Runtime is not safe for concurrent use.
type script struct {
	name    string
	source  string
	program *goja.Program
}

// compileExpression compiles a guard expression.
func compileExpression(name, src string) (*script, error) {
	program, err := goja.Compile(name, "("+src+")", true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidExpression, name, err)
	}

	return &script{name: name, source: src, program: program}, nil
}

// compileScript compiles an action body. The body runs as a function, so
// it may return an object whose properties are merged into the bindings.
func compileScript(name, src string) (*script, error) {
	program, err := goja.Compile(name, fmt.Sprintf("(function() {\n%s\n}());\n", src), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidExpression, name, err)
	}

	return &script{name: name, source: src, program: program}, nil
}

// env is what a script can see: a copy of the bindings, the current state
// and input names, and the functions installed by the caller.
type env struct {
	bindings map[string]any
	state    string
	input    string
	funcs    map[string]func(call goja.FunctionCall) goja.Value
}

// run evaluates the program. The runtime is interrupted when ctx is done.
func (s *script) run(ctx context.Context, vm *goja.Runtime, e env) (goja.Value, error) {
	if err := vm.Set("bindings", e.bindings); err != nil {
		return nil, err
	}

	if err := vm.Set("state", e.state); err != nil {
		return nil, err
	}

	if err := vm.Set("input", e.input); err != nil {
		return nil, err
	}

	for name, fn := range e.funcs {
		if err := vm.Set(name, fn); err != nil {
			return nil, err
		}
	}

	ictx, cancel := context.WithCancel(ctx)

	go func() {
		<-ictx.Done()
		// When run returns first, cancel() lands here after RunProgram
		// finished and the interrupt is never observed.
		vm.Interrupt(interruptedMessage)
	}()

	v, err := vm.RunProgram(s.program)

	cancel()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("%w: %s", ErrScriptInterrupted, s.name)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, s.name, err)
	}

	return v, nil
}
