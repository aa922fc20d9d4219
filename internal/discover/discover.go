package discover

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Dicklesworthstone/cmdlens/internal/execx"
	"github.com/Dicklesworthstone/cmdlens/internal/introspect"
	"github.com/Dicklesworthstone/cmdlens/internal/util"
)

// CLI is one scored candidate. Identity is the base name; the first
// occurrence on the search path wins.
type CLI struct {
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Score        int      `json:"score"`
	AnsweredHelp bool     `json:"answered_help"`
	Tier         Tier     `json:"tier"`
	Location     Location `json:"location"`
}

// Options controls one discovery run.
type Options struct {
	// SearchPath overrides $PATH when non-empty.
	SearchPath string
	// MaxConcurrent bounds simultaneous candidate tests. Kept in single
	// digits so a wide PATH cannot fork-bomb the host.
	MaxConcurrent int
	// Timeout is the hard per-candidate budget.
	Timeout time.Duration
	// MinScore filters the returned list (the persisted cache keeps the
	// full set).
	MinScore int
	// Limit truncates the returned list; 0 means unlimited.
	Limit int
	// UseCache consults and refreshes the on-disk cache.
	UseCache bool
	// CacheTTL bounds cache age; default 24h.
	CacheTTL time.Duration
	// CacheDir overrides the per-user config directory.
	CacheDir string
}

func (o Options) withDefaults() Options {
	if o.SearchPath == "" {
		o.SearchPath = os.Getenv("PATH")
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 8
	}
	if o.Timeout <= 0 {
		o.Timeout = 3 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	return o
}

// helpProbeFlags are tried in order against each candidate; the first
// attempt yielding more than minHelpBytes of stdout wins.
var helpProbeFlags = []string{"--help", "-h", "-?"}

const minHelpBytes = 10

// Discoverer finds and ranks CLI candidates on the search path.
type Discoverer struct {
	exec introspect.Executor
	env  []string
}

// New creates a discoverer that tests candidates with the given executor
// inside a scrubbed environment.
func New(exec introspect.Executor) *Discoverer {
	return &Discoverer{exec: exec, env: execx.ScrubbedEnv()}
}

// NewWithEnv overrides the test environment. Test hook.
func NewWithEnv(exec introspect.Executor, env []string) *Discoverer {
	return &Discoverer{exec: exec, env: env}
}

// Discover scans, filters, tests and scores candidates. With a warm cache
// no subprocess work happens at all. The returned list honors MinScore and
// Limit; the persisted cache always holds the unfiltered, unlimited set so
// future calls with different filters can reuse it.
func (d *Discoverer) Discover(ctx context.Context, opts Options) ([]CLI, error) {
	opts = opts.withDefaults()
	hash := hashSearchPath(opts.SearchPath)

	if opts.UseCache {
		if clis, ok := loadCache(opts.cacheFile(), hash, opts.CacheTTL); ok {
			slog.Debug("discovery cache hit", "candidates", len(clis))
			return applyFilters(clis, opts), nil
		}
	}

	candidates := scanSearchPath(opts.SearchPath)
	kept := candidates[:0]
	for _, c := range candidates {
		if !isNoise(c.Name, c.Path) {
			kept = append(kept, c)
		}
	}
	slog.Debug("discovery scan",
		"found", len(candidates), "after_noise_filter", len(kept))

	scored := d.testAndScore(ctx, kept, opts)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})

	if opts.UseCache {
		if err := saveCache(opts.cacheFile(), hash, scored); err != nil {
			slog.Debug("discovery cache write failed", "error", err)
		}
	}
	return applyFilters(scored, opts), nil
}

// testAndScore probes candidates for help support in bounded concurrent
// batches. A hanging candidate delays only its own slot, never the batch.
func (d *Discoverer) testAndScore(ctx context.Context, candidates []candidate, opts Options) []CLI {
	sem := semaphore.NewWeighted(int64(opts.MaxConcurrent))
	results := make([]*CLI, len(candidates))

	var wg sync.WaitGroup
	for i, cand := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, cand candidate) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = d.scoreCandidate(ctx, cand, opts.Timeout)
		}(i, cand)
	}
	wg.Wait()

	var out []CLI
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// scoreCandidate tests one candidate and computes its total score, or nil
// when it falls below the discard threshold.
func (d *Discoverer) scoreCandidate(ctx context.Context, cand candidate, timeout time.Duration) *CLI {
	answered, output := d.testHelp(ctx, cand, timeout)

	hs, tier := helpScore(answered, output)
	loc := classifyLocation(cand.Path)
	total := hs + nameScore(cand.Name) + locationScore(loc)
	slog.Debug("candidate scored",
		"name", cand.Name,
		"score", total,
		"tier", tier,
		"help", util.FormatBytes(int64(len(output))))
	if total < discardBelow {
		return nil
	}
	return &CLI{
		Name:         cand.Name,
		Path:         cand.Path,
		Score:        total,
		AnsweredHelp: answered,
		Tier:         tier,
		Location:     loc,
	}
}

// testHelp tries the help flags in order inside the scrubbed environment.
func (d *Discoverer) testHelp(ctx context.Context, cand candidate, timeout time.Duration) (bool, string) {
	for _, flag := range helpProbeFlags {
		res, err := d.exec.Execute(ctx, cand.Path, []string{flag}, introspect.ExecOptions{
			Timeout:             timeout,
			AcceptOutputOnError: true,
			Env:                 d.env,
		})
		if err != nil {
			continue
		}
		if len(res.Stdout) > minHelpBytes {
			return true, res.Stdout
		}
	}
	return false, ""
}

func applyFilters(clis []CLI, opts Options) []CLI {
	var out []CLI
	for _, c := range clis {
		if c.Score >= opts.MinScore {
			out = append(out, c)
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
