package introspect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubExecutor answers probes from a canned map keyed by the joined
// argument vector, counting every invocation.
type stubExecutor struct {
	mu        sync.Mutex
	responses map[string]string
	calls     int
	err       error
}

func (s *stubExecutor) Execute(ctx context.Context, name string, args []string, opts ExecOptions) (ExecResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return ExecResult{}, s.err
	}
	out, ok := s.responses[strings.Join(args, " ")]
	if !ok {
		return ExecResult{ExitCode: 2}, nil
	}
	return ExecResult{Stdout: out, ExitCode: 0, Duration: time.Millisecond}, nil
}

func (s *stubExecutor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

const rootHelp = `Usage: tool [command]

Commands:
  add      Add a new item
  remote   Manage remotes

Advanced Commands:
  rebase   Rewrite history
`

const remoteHelp = `Usage: tool remote [command]

Commands:
  add      Add a remote
  rename   Rename a remote
`

func newStub() *stubExecutor {
	return &stubExecutor{responses: map[string]string{
		"--help":        rootHelp,
		"remote --help": remoteHelp,
	}}
}

func TestStructureDiscoversSubcommands(t *testing.T) {
	it := New("tool", newStub())

	st, err := it.Structure(context.Background())
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}

	if len(st.Commands) != 3 {
		t.Fatalf("got %d root commands: %+v", len(st.Commands), st.Commands)
	}

	subs, ok := st.Subcommands["remote"]
	if !ok {
		t.Fatalf("no subcommands for remote: %+v", st.Subcommands)
	}
	names := map[string]bool{}
	for _, s := range subs {
		names[s.Name] = true
		if len(s.Path) != 2 || s.Path[0] != "remote" {
			t.Errorf("subcommand path = %v, want [remote <name>]", s.Path)
		}
	}
	if !names["add"] || !names["rename"] {
		t.Errorf("missing subcommands: %v", names)
	}

	for _, c := range st.Commands {
		if c.Name == "remote" && !c.HasSubcommands {
			t.Error("remote should be marked hasSubcommands")
		}
	}
}

func TestCategorySplit(t *testing.T) {
	it := New("tool", newStub())
	st, _ := it.Structure(context.Background())

	byName := map[string]RootCommand{}
	for _, c := range st.Commands {
		byName[c.Name] = c
	}

	if byName["add"].Category != CategoryBasic {
		t.Errorf("add category = %q, want basic", byName["add"].Category)
	}
	if byName["remote"].Category != CategoryBasic {
		t.Errorf("remote category = %q, want basic", byName["remote"].Category)
	}
	if byName["rebase"].Category != CategoryAdvanced {
		t.Errorf("rebase category = %q, want advanced", byName["rebase"].Category)
	}
}

func TestAdvancedHeaderWinsOverPosition(t *testing.T) {
	// The only command section is labeled advanced, so first-section
	// position must not promote its commands to basic.
	stub := &stubExecutor{responses: map[string]string{
		"--help": `Usage: tool [command]

Advanced Commands:
  rebase   Rewrite history
  fsck     Check integrity
`,
	}}
	it := New("tool", stub)
	st, _ := it.Structure(context.Background())

	for _, c := range st.Commands {
		if c.Category != CategoryAdvanced {
			t.Errorf("%s category = %q, want advanced", c.Name, c.Category)
		}
	}
}

func TestStructureCacheHit(t *testing.T) {
	stub := newStub()
	it := New("tool", stub)

	if _, err := it.Structure(context.Background()); err != nil {
		t.Fatalf("first Structure failed: %v", err)
	}
	calls := stub.callCount()

	if _, err := it.Structure(context.Background()); err != nil {
		t.Fatalf("second Structure failed: %v", err)
	}
	if stub.callCount() != calls {
		t.Errorf("cache hit issued %d extra subprocess calls", stub.callCount()-calls)
	}
}

func TestStructureCacheExpiry(t *testing.T) {
	stub := newStub()
	it := New("tool", stub)

	now := time.Now()
	it.cache.SetClock(func() time.Time { return now })

	if _, err := it.Structure(context.Background()); err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	calls := stub.callCount()

	now = now.Add(6 * time.Minute)

	if _, err := it.Structure(context.Background()); err != nil {
		t.Fatalf("Structure after expiry failed: %v", err)
	}
	if stub.callCount() <= calls {
		t.Error("expired cache should trigger a fresh discovery")
	}
}

func TestClearCacheForcesRediscovery(t *testing.T) {
	stub := newStub()
	it := New("tool", stub)

	it.Structure(context.Background())
	calls := stub.callCount()

	it.ClearCache()
	it.Structure(context.Background())
	if stub.callCount() <= calls {
		t.Error("ClearCache should force a fresh discovery")
	}
}

func TestBoundedWorkOnRecursiveTarget(t *testing.T) {
	// A synthetic target that reports 50 subcommands at every level, each
	// answering the first probe. Total captures must stay within
	// 1 (root) + the subcommand budget.
	var listing strings.Builder
	listing.WriteString("Commands:\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&listing, "  cmd%02d    Does thing number %d\n", i, i)
	}

	exec := ExecutorFunc(func(ctx context.Context, name string, args []string, opts ExecOptions) (ExecResult, error) {
		if len(args) > 0 && args[len(args)-1] == "--help" {
			return ExecResult{Stdout: listing.String()}, nil
		}
		return ExecResult{ExitCode: 2}, nil
	})

	calls := 0
	counting := ExecutorFunc(func(ctx context.Context, name string, args []string, opts ExecOptions) (ExecResult, error) {
		calls++
		return exec.Execute(ctx, name, args, opts)
	})

	it := New("pathological", counting)
	st, err := it.Structure(context.Background())
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}

	limit := 1 + DefaultLimits().MaxSubcommandProbes
	if calls > limit {
		t.Errorf("issued %d probes, budget is %d", calls, limit)
	}
	if len(st.Commands) != 50 {
		t.Errorf("got %d root commands, want 50", len(st.Commands))
	}
}

func TestAllProbesFail(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, name string, args []string, opts ExecOptions) (ExecResult, error) {
		return ExecResult{}, errors.New("timeout")
	})

	it := New("deadtool", exec)
	st, err := it.Structure(context.Background())
	if err != nil {
		t.Fatalf("Structure must not fail on a dead target: %v", err)
	}

	if len(st.Commands) != 0 {
		t.Errorf("dead target produced commands: %+v", st.Commands)
	}
	if len(st.Subcommands) != 0 {
		t.Errorf("dead target produced subcommands: %+v", st.Subcommands)
	}
	if len(st.Telemetry.Probes) != maxProbeAttempts {
		t.Errorf("got %d probe events, want %d", len(st.Telemetry.Probes), maxProbeAttempts)
	}
	for _, ev := range st.Telemetry.Probes {
		if ev.HasOutput {
			t.Errorf("failed probe marked as having output: %+v", ev)
		}
		if ev.ExitCode != -1 {
			t.Errorf("failed probe exit code = %d, want -1", ev.ExitCode)
		}
	}
}

func TestSelfReferentialSubcommandExcluded(t *testing.T) {
	stub := &stubExecutor{responses: map[string]string{
		"--help": "Commands:\n  remote   Manage remotes\n",
		"remote --help": `Commands:
  remote   Manage remotes
  prune    Prune stale remotes
`,
	}}

	it := New("tool", stub)
	st, _ := it.Structure(context.Background())

	for _, s := range st.Subcommands["remote"] {
		if strings.EqualFold(s.Name, "remote") {
			t.Errorf("self-referential subcommand kept: %+v", s)
		}
	}
}

func TestProbeAttemptsFusedForms(t *testing.T) {
	root := probeAttempts(nil)
	if len(root) != len(helpProbes) {
		t.Errorf("root attempts = %d, want %d", len(root), len(helpProbes))
	}

	sub := probeAttempts([]string{"remote", "add"})
	joined := make([]string, len(sub))
	for i, a := range sub {
		joined[i] = strings.Join(a, " ")
	}
	want := map[string]bool{
		"help remote add":        false,
		"remote add --help=full": false,
		"remote add --help":      false,
	}
	for _, j := range joined {
		if _, ok := want[j]; ok {
			want[j] = true
		}
	}
	for form, seen := range want {
		if !seen {
			t.Errorf("attempt form %q missing from %v", form, joined)
		}
	}
}

func TestProbeTimeoutGrowsWithDepth(t *testing.T) {
	if probeTimeout(0) != 5*time.Second {
		t.Errorf("depth 0 timeout = %v", probeTimeout(0))
	}
	if probeTimeout(2) != 7*time.Second {
		t.Errorf("depth 2 timeout = %v", probeTimeout(2))
	}
	if probeTimeout(10) != 8*time.Second {
		t.Errorf("deep timeout should cap at ceiling, got %v", probeTimeout(10))
	}
}
