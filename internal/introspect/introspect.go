package introspect

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dicklesworthstone/cmdlens/internal/helptext"
	"github.com/Dicklesworthstone/cmdlens/internal/ttlcache"
)

// Category splits root commands by which help section they surfaced in.
type Category string

const (
	// CategoryBasic marks commands from the first section that produced any
	// command in document order; help text conventionally leads with the
	// everyday commands.
	CategoryBasic Category = "basic"
	// CategoryAdvanced marks everything else.
	CategoryAdvanced Category = "advanced"
)

// RootCommand is a top-level command of the target program.
type RootCommand struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Category       Category `json:"category"`
	HasSubcommands bool     `json:"has_subcommands,omitempty"`
	Confidence     float64  `json:"confidence"`
	Section        int      `json:"section"`
}

// Subcommand is a command nested under a root command, with its full path
// from the program root (e.g. ["remote", "add"]).
type Subcommand struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Confidence  float64  `json:"confidence"`
	Path        []string `json:"path"`
}

// Telemetry aggregates everything observed during one discovery: the root
// parse, per-path subcommand parses, and the full probe log.
type Telemetry struct {
	Root    helptext.Telemetry            `json:"root"`
	PerPath map[string]helptext.Telemetry `json:"per_path,omitempty"`
	Probes  []ProbeEvent                  `json:"probes"`
}

// CommandStructure is one target program's discovered command surface.
// Built whole on a cache miss and replaced atomically; never patched in
// place. The public subcommand map is one level deep; deeper discoveries
// fold into telemetry only.
type CommandStructure struct {
	Target      string                  `json:"target"`
	Commands    []RootCommand           `json:"commands"`
	Subcommands map[string][]Subcommand `json:"subcommands"`
	Telemetry   Telemetry               `json:"telemetry"`
	CachedAt    time.Time               `json:"cached_at"`
}

// Limits bounds the discovery walk. Every field has a working default from
// DefaultLimits; hosts may loosen or tighten them from configuration.
type Limits struct {
	CacheTTL time.Duration
	// MaxSubcommandProbes caps help captures spent on subcommand paths per
	// discovery, independent of how many commands the target advertises.
	MaxSubcommandProbes int
	// MaxDepth caps the walk below the root (2 = sub-subcommands).
	MaxDepth int
	// SeedConfidence gates which root commands are probed at all.
	SeedConfidence float64
	// RequeueConfidence gates which discovered subcommands are probed deeper.
	RequeueConfidence float64
	// KeepConfidence gates which parsed entries are kept as commands.
	KeepConfidence float64
}

// DefaultLimits returns the stock walk bounds.
func DefaultLimits() Limits {
	return Limits{
		CacheTTL:            5 * time.Minute,
		MaxSubcommandProbes: 14,
		MaxDepth:            2,
		SeedConfidence:      0.45,
		RequeueConfidence:   0.5,
		KeepConfidence:      0.35,
	}
}

// Introspector discovers and caches one target program's command structure.
// The walk for a single target is strictly sequential: most CLIs are not
// safe to invoke concurrently against shared config or lock files.
type Introspector struct {
	target string
	exec   Executor
	parser *helptext.Parser
	limits Limits

	mu    sync.Mutex
	cache *ttlcache.Cache[*CommandStructure]
}

// New creates an introspector for target using the given executor.
func New(target string, exec Executor) *Introspector {
	return NewWith(target, exec, helptext.NewParser(), DefaultLimits())
}

// NewWith creates an introspector with an explicit parser and limits.
func NewWith(target string, exec Executor, parser *helptext.Parser, limits Limits) *Introspector {
	return &Introspector{
		target: target,
		exec:   exec,
		parser: parser,
		limits: limits,
		cache:  ttlcache.New[*CommandStructure](limits.CacheTTL),
	}
}

// Structure returns the target's command structure, rediscovering only when
// the cached copy has expired. A cache hit performs no subprocess work.
func (it *Introspector) Structure(ctx context.Context) (*CommandStructure, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.cache.Get(it.target, func() (*CommandStructure, error) {
		return it.discover(ctx), nil
	})
}

// ClearCache drops the cached structure; the next Structure call runs a
// full rediscovery.
func (it *Introspector) ClearCache() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.cache.Delete(it.target)
}

// Sweep discards an expired cached structure. Long-lived hosts call this
// on their own schedule; one-shot runs never need to.
func (it *Introspector) Sweep() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.cache.Sweep()
}

// workItem is one queued BFS step.
type workItem struct {
	path  []string
	depth int
}

// discover runs the full walk: root capture, then a bounded breadth-first
// probe of the subcommand tree. It never fails; a target that answers
// nothing yields an empty structure.
func (it *Introspector) discover(ctx context.Context) *CommandStructure {
	tried := map[string]bool{}
	tel := Telemetry{PerPath: map[string]helptext.Telemetry{}}

	structure := &CommandStructure{
		Target:      it.target,
		Subcommands: map[string][]Subcommand{},
	}

	rootCap := it.captureHelp(ctx, nil, 0, tried)
	tel.Probes = append(tel.Probes, rootCap.Events...)

	rootDoc := it.parser.Parse(rootCap.Stdout)
	tel.Root = rootDoc.Telemetry
	structure.Commands = it.rootCommands(rootDoc)

	// BFS over subcommand paths. The budget counts help captures, so even a
	// target that advertises 50 commands recursively costs a constant
	// number of probes.
	queue := make([]workItem, 0, len(structure.Commands))
	for _, cmd := range structure.Commands {
		if cmd.Confidence >= it.limits.SeedConfidence {
			queue = append(queue, workItem{path: []string{cmd.Name}, depth: 1})
		}
	}

	visited := map[string]bool{}
	captures := 0
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		key := strings.Join(item.path, " ")
		if visited[key] {
			continue
		}
		visited[key] = true

		if captures >= it.limits.MaxSubcommandProbes {
			break
		}
		captures++

		subCap := it.captureHelp(ctx, item.path, item.depth, tried)
		tel.Probes = append(tel.Probes, subCap.Events...)
		if strings.TrimSpace(subCap.Stdout) == "" {
			continue
		}

		doc := it.parser.Parse(subCap.Stdout)
		tel.PerPath[key] = doc.Telemetry

		subs := it.subcommandsOf(doc, item.path)
		if item.depth == 1 {
			structure.Subcommands[item.path[0]] = subs
		}

		if item.depth < it.limits.MaxDepth {
			for _, sub := range subs {
				if sub.Confidence >= it.limits.RequeueConfidence {
					queue = append(queue, workItem{path: sub.Path, depth: item.depth + 1})
				}
			}
		}
	}

	for i := range structure.Commands {
		if _, ok := structure.Subcommands[structure.Commands[i].Name]; ok {
			structure.Commands[i].HasSubcommands = true
		}
	}

	structure.Telemetry = tel
	structure.CachedAt = time.Now()

	slog.Debug("introspection complete",
		"target", it.target,
		"commands", len(structure.Commands),
		"subcommand_paths", len(structure.Subcommands),
		"probes", len(tel.Probes))
	return structure
}

// rootCommands filters and categorizes the root document's commands. The
// first section (in document order) that produced a command is "basic";
// later sections, and sections whose header says so, are "advanced".
// Single-section help degrades to one category.
func (it *Introspector) rootCommands(doc *helptext.Document) []RootCommand {
	firstSection := -1
	for _, c := range doc.Commands {
		if c.Confidence < it.limits.KeepConfidence {
			continue
		}
		if firstSection == -1 || c.Origin.Section < firstSection {
			firstSection = c.Origin.Section
		}
	}

	advancedHeader := func(idx int) bool {
		if idx < 0 || idx >= len(doc.Sections) {
			return false
		}
		sec := doc.Sections[idx]
		return helptext.SectionHeaderContains(sec, "advanced") ||
			helptext.SectionHeaderContains(sec, "experimental")
	}

	var cmds []RootCommand
	for _, c := range doc.Commands {
		if c.Confidence < it.limits.KeepConfidence {
			continue
		}
		category := CategoryAdvanced
		if c.Origin.Section == firstSection && !advancedHeader(c.Origin.Section) {
			category = CategoryBasic
		}
		cmds = append(cmds, RootCommand{
			Name:        c.Name,
			Description: c.Description,
			Category:    category,
			Confidence:  c.Confidence,
			Section:     c.Origin.Section,
		})
	}
	return cmds
}

// subcommandsOf extracts the commands of a subcommand help document,
// dropping self-referential entries (a "remote" page listing "remote") and
// case-insensitive duplicates, sorted by descending confidence.
func (it *Introspector) subcommandsOf(doc *helptext.Document, path []string) []Subcommand {
	self := strings.ToLower(path[len(path)-1])
	seen := map[string]bool{}

	var subs []Subcommand
	for _, c := range doc.Commands {
		if c.Confidence < it.limits.KeepConfidence {
			continue
		}
		name := strings.ToLower(c.Name)
		if name == self || seen[name] {
			continue
		}
		seen[name] = true
		subs = append(subs, Subcommand{
			Name:        c.Name,
			Description: c.Description,
			Confidence:  c.Confidence,
			Path:        append(append([]string{}, path...), c.Name),
		})
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].Confidence > subs[j].Confidence
	})
	return subs
}
