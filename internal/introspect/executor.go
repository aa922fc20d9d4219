// Package introspect walks a target program's subcommand tree by probing
// it with help-flag invocations and parsing whatever text comes back. The
// walk is breadth-first and strictly bounded: a pathological target with an
// infinite subcommand tree costs a small constant number of subprocess
// calls, never unbounded work.
package introspect

import (
	"context"
	"time"
)

// ExecOptions controls one subprocess invocation.
type ExecOptions struct {
	// Timeout force-terminates the process when exceeded.
	Timeout time.Duration
	// AcceptOutputOnError resolves a non-zero exit as success when stdout is
	// non-empty. Many CLIs exit 1 or 2 on --help.
	AcceptOutputOnError bool
	// Env, when non-nil, replaces the child's environment.
	Env []string
	// Dir, when non-empty, is the child's working directory.
	Dir string
}

// ExecResult is one captured invocation. Stderr is carried for diagnostics
// only; the engine never inspects it.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Executor runs a named program and captures its output. The engine treats
// it as a black box; the host wires in a real subprocess runner, tests wire
// in stubs.
type Executor interface {
	Execute(ctx context.Context, name string, args []string, opts ExecOptions) (ExecResult, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, name string, args []string, opts ExecOptions) (ExecResult, error)

func (f ExecutorFunc) Execute(ctx context.Context, name string, args []string, opts ExecOptions) (ExecResult, error) {
	return f(ctx, name, args, opts)
}
