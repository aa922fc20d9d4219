package introspect

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Dicklesworthstone/cmdlens/internal/util"
)

// ProbeEvent records one subprocess invocation attempt, success or failure.
// Append-only telemetry; spawn failures surface here as exit code -1.
type ProbeEvent struct {
	Path      []string      `json:"path"`
	Args      []string      `json:"args"`
	ExitCode  int           `json:"exit_code"`
	Duration  time.Duration `json:"duration"`
	HasOutput bool          `json:"has_output"`
}

// helpProbes is the fixed sequence of argument patterns tried against a
// path, in order of how commonly real CLIs answer them.
var helpProbes = [][]string{
	{"--help"},
	{"-h"},
	{"help"},
	{"--help", "all"},
	{"--help", "full"},
	{"--long"},
}

const (
	// maxProbeAttempts caps invocations for a single help capture.
	maxProbeAttempts = 6

	probeBaseTimeout    = 5 * time.Second
	probeTimeoutPerHop  = 1 * time.Second
	probeTimeoutCeiling = 8 * time.Second
)

// probeTimeout grows with path depth: deeper subcommands sit behind slower
// startup chains, but the ceiling keeps a hung target from stalling the walk.
func probeTimeout(depth int) time.Duration {
	t := probeBaseTimeout + time.Duration(depth)*probeTimeoutPerHop
	if t > probeTimeoutCeiling {
		t = probeTimeoutCeiling
	}
	return t
}

// probeAttempts builds the ordered argument vectors for one capture. For
// non-root paths two fused forms join the table: "help <path>" and
// "<path> --help=full".
func probeAttempts(path []string) [][]string {
	attempts := make([][]string, 0, len(helpProbes)+2)
	for _, p := range helpProbes {
		attempts = append(attempts, append(append([]string{}, path...), p...))
	}
	if len(path) > 0 {
		attempts = append(attempts, append([]string{"help"}, path...))
		attempts = append(attempts, append(append([]string{}, path...), "--help=full"))
	}
	return attempts
}

// capture is the outcome of one help capture: the text of the first
// attempt that produced output, or the last attempt's (possibly empty)
// text when none did.
type capture struct {
	Stdout string
	Events []ProbeEvent
}

// captureHelp tries the probe table against path, stopping at the first
// attempt with non-empty stdout. Attempt vectors already tried during this
// walk are skipped. Probe failures are recorded and swallowed: "no help
// text" is a valid outcome, not an error.
func (it *Introspector) captureHelp(ctx context.Context, path []string, depth int, tried map[string]bool) capture {
	var out capture
	attempted := 0

	for _, args := range probeAttempts(path) {
		if attempted >= maxProbeAttempts {
			break
		}
		key := strings.Join(args, "\x00")
		if tried[key] {
			continue
		}
		tried[key] = true
		attempted++

		res, err := it.exec.Execute(ctx, it.target, args, ExecOptions{
			Timeout:             probeTimeout(depth),
			AcceptOutputOnError: true,
		})
		if err != nil {
			slog.Debug("help probe failed",
				"target", it.target, "args", args, "error", err)
			out.Events = append(out.Events, ProbeEvent{
				Path:     append([]string{}, path...),
				Args:     args,
				ExitCode: -1,
				Duration: res.Duration,
			})
			out.Stdout = ""
			continue
		}

		ev := ProbeEvent{
			Path:      append([]string{}, path...),
			Args:      args,
			ExitCode:  res.ExitCode,
			Duration:  res.Duration,
			HasOutput: strings.TrimSpace(res.Stdout) != "",
		}
		out.Events = append(out.Events, ev)
		out.Stdout = res.Stdout
		if ev.HasOutput {
			slog.Debug("help captured",
				"target", it.target, "args", args,
				"preview", util.Truncate(util.CollapseSpaces(res.Stdout), 80))
			return out
		}
	}
	return out
}
