// Package execx is the host-side subprocess runner behind the introspection
// and discovery engines. It enforces timeouts by signalling SIGTERM with a
// short grace period before SIGKILL, caps captured output, and can build a
// scrubbed environment that keeps pagers and GUIs out of the way.
package execx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/Dicklesworthstone/cmdlens/internal/introspect"
)

const (
	// DefaultOutputCap bounds captured bytes per stream so a chatty child
	// cannot exhaust memory.
	DefaultOutputCap = 100_000

	// killGrace is how long a child gets between SIGTERM and SIGKILL.
	killGrace = 2 * time.Second
)

// Runner implements introspect.Executor with real subprocesses.
type Runner struct {
	// OutputCap overrides DefaultOutputCap when positive.
	OutputCap int
}

// cappedBuffer keeps at most cap bytes and silently discards the rest.
type cappedBuffer struct {
	buf []byte
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := b.max - len(b.buf); remaining > 0 {
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string { return string(b.buf) }

// Execute runs the named program, capturing stdout and stderr as text. On
// timeout the child is terminated (SIGTERM, then SIGKILL after a grace
// period). A non-zero exit resolves successfully when AcceptOutputOnError
// is set and stdout is non-empty; otherwise it is an error.
func (r *Runner) Execute(ctx context.Context, name string, args []string, opts introspect.ExecOptions) (introspect.ExecResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	max := r.OutputCap
	if max <= 0 {
		max = DefaultOutputCap
	}
	stdout := &cappedBuffer{max: max}
	stderr := &cappedBuffer{max: max}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Stdin = nil
	// Probed programs always run scrubbed; an explicit Env overrides.
	cmd.Env = opts.Env
	if cmd.Env == nil {
		cmd.Env = ScrubbedEnv()
	}
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	start := time.Now()
	err := cmd.Run()
	result := introspect.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		return result, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.ExitCode = -1
		return result, fmt.Errorf("%s timed out after %v", name, opts.Timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			if opts.AcceptOutputOnError && strings.TrimSpace(result.Stdout) != "" {
				return result, nil
			}
			return result, fmt.Errorf("%s exited %d", name, result.ExitCode)
		}
		// Spawn failure: the program does not exist or cannot run.
		result.ExitCode = -1
		return result, fmt.Errorf("running %s: %w", name, err)
	}
}

// ScrubbedEnv returns a copy of the current environment with pagers
// disabled, GUI display variables cleared, a dumb 80x24 terminal forced,
// and a marker variable set so well-behaved tools can detect
// non-interactive discovery mode.
func ScrubbedEnv() []string {
	drop := map[string]bool{
		"DISPLAY":         true,
		"WAYLAND_DISPLAY": true,
		"SSH_ASKPASS":     true,
	}

	var env []string
	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if ok && drop[key] {
			continue
		}
		env = append(env, kv)
	}
	return append(env,
		"PAGER=cat",
		"GIT_PAGER=cat",
		"MANPAGER=cat",
		"SYSTEMD_PAGER=cat",
		"GIT_TERMINAL_PROMPT=0",
		"TERM=dumb",
		"COLUMNS=80",
		"LINES=24",
		"NO_COLOR=1",
		"CMDLENS_DISCOVERY=1",
	)
}
