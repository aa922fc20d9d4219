package helptext

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Dicklesworthstone/cmdlens/internal/util"
)

// Origin is the (section, block, line) coordinate an entity was extracted
// from. Provenance for diagnostics, never used for re-rendering.
type Origin struct {
	Section int `json:"section"`
	Block   int `json:"block"`
	Line    int `json:"line"`
}

// Command is one subcommand name extracted from help text.
type Command struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Confidence  float64  `json:"confidence"`
	Origin      Origin   `json:"origin"`
}

// Option is one flag extracted from help text.
type Option struct {
	Long        string   `json:"long,omitempty"`
	Short       string   `json:"short,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	TakesValue  bool     `json:"takes_value"`
	Argument    string   `json:"argument,omitempty"`
	Default     string   `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
	Confidence  float64  `json:"confidence"`
	Origin      Origin   `json:"origin"`
}

// Usage is one usage line. Usage lines are additive evidence, never merged.
type Usage struct {
	Raw        string   `json:"raw"`
	Tokens     []string `json:"tokens"`
	Confidence float64  `json:"confidence"`
	Origin     Origin   `json:"origin"`
}

const (
	commandBaseConfidence = 0.4
	commandGapBonus       = 0.25
	commandLetterBonus    = 0.05
	commandShortLineBonus = 0.05
	commandConfidenceCap  = 0.95
	commaListConfidence   = 0.4
	denseListConfidence   = 0.45
	usageConfidence       = 0.6
	optionBaseConfidence  = 0.5
	optionAliasBonus      = 0.1
	optionAliasBonusCap   = 0.2
	optionArgBonus        = 0.15
	optionConfidenceCap   = 0.9
)

var (
	commandLinePattern = regexp.MustCompile(`^([A-Za-z0-9][-_A-Za-z0-9]*)(?:,\s*([A-Za-z0-9][-_A-Za-z0-9]*))*\s{2,}(\S.*)$`)
	denseListPattern   = regexp.MustCompile(`^(?:[-_A-Za-z0-9]+\s*,\s*){2,}[-_A-Za-z0-9]+,?$`)
	listTokenPattern   = regexp.MustCompile(`^[-_A-Za-z0-9]+$`)
	optionFlagsPattern = regexp.MustCompile(`^(--?[A-Za-z0-9][-A-Za-z0-9]*)((?:,\s*--?[A-Za-z0-9][-A-Za-z0-9]*)*)`)
	placeholderPattern = regexp.MustCompile(`^[=\s]*(<[^<>]+>|\[[^\[\]]+\]|[A-Z][A-Z0-9_]*|[a-z][a-z0-9-]*)$`)
	valueTailPattern   = regexp.MustCompile(`(=|\bto\b)\s+`)
	defaultPattern     = regexp.MustCompile(`(?i)default[:=]?\s*("(?:[^"]*)"|'(?:[^']*)'|[^\s,)\]]+)`)
	usageStripPattern  = regexp.MustCompile(`(?i)^usage:\s*`)
)

// extracted carries the raw entity lists out of block extraction, before
// merging.
type extracted struct {
	Commands []Command
	Options  []Option
	Usages   []Usage
	Warnings []string
}

// extractEntities dispatches every block of every section by role.
func extractEntities(flat []*Section) extracted {
	var out extracted
	for si, sec := range flat {
		for bi, blk := range sec.Blocks {
			switch blk.Role {
			case RoleCommandList:
				out.Commands = append(out.Commands, extractCommandList(blk, si, bi)...)
			case RoleCommaList:
				out.Commands = append(out.Commands, extractCommaList(blk, si, bi)...)
			case RoleOptionList:
				out.Options = append(out.Options, extractOptionList(blk, si, bi)...)
			case RoleUsage:
				out.Usages = append(out.Usages, extractUsage(blk, si, bi)...)
			case RoleTable, RoleKV, RoleParagraph:
				// Counted in telemetry, no entities.
			}
		}
	}
	return out
}

// commandConfidence implements the fixed formula: base 0.4, +0.25 for a
// label/description gap, +0.05 for any letters, +0.05 for short lines,
// capped at 0.95.
func commandConfidence(raw string) float64 {
	c := commandBaseConfidence
	if headGapPattern.MatchString(raw) {
		c += commandGapBonus
	}
	if strings.ContainsFunc(raw, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) {
		c += commandLetterBonus
	}
	if len(raw) < 80 {
		c += commandShortLineBonus
	}
	if c > commandConfidenceCap {
		c = commandConfidenceCap
	}
	return c
}

func extractCommandList(blk *Block, si, bi int) []Command {
	var cmds []Command
	var pending *Command
	baseIndent := blk.Lines[0].Indent
	pendingDead := false

	flush := func() {
		if pending != nil {
			cmds = append(cmds, *pending)
			pending = nil
		}
	}

	for _, line := range blk.Lines {
		origin := Origin{Section: si, Block: bi, Line: line.Index}

		// Dense comma lists inside a command block ("clone, fetch, pull,
		// push") yield low-confidence entries and end pending mode.
		if denseListPattern.MatchString(line.Text) {
			flush()
			pendingDead = true
			for _, tok := range strings.Split(line.Text, ",") {
				tok = strings.TrimSpace(tok)
				if listTokenPattern.MatchString(tok) {
					cmds = append(cmds, Command{Name: tok, Confidence: denseListConfidence, Origin: origin})
				}
			}
			continue
		}

		if m := commandLinePattern.FindStringSubmatch(line.Text); m != nil {
			flush()
			pendingDead = false
			cmd := Command{
				Name:        m[1],
				Description: strings.TrimSpace(m[3]),
				Confidence:  commandConfidence(line.Raw),
				Origin:      origin,
			}
			if m[2] != "" {
				for _, alias := range strings.Split(m[2], ",") {
					if alias = strings.TrimSpace(alias); alias != "" {
						cmd.Aliases = append(cmd.Aliases, alias)
					}
				}
			}
			pending = &cmd
			continue
		}

		// Indented continuations extend the pending description.
		if pending != nil && !pendingDead && line.Indent > baseIndent {
			pending.Description = util.CollapseSpaces(pending.Description + " " + line.Text)
		}
	}
	flush()
	return cmds
}

func extractCommaList(blk *Block, si, bi int) []Command {
	joined := make([]string, 0, len(blk.Lines))
	for _, line := range blk.Lines {
		joined = append(joined, line.Text)
	}
	origin := Origin{Section: si, Block: bi, Line: blk.Lines[0].Index}

	var cmds []Command
	for _, tok := range strings.Split(strings.Join(joined, ","), ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" && listTokenPattern.MatchString(tok) {
			cmds = append(cmds, Command{Name: tok, Confidence: commaListConfidence, Origin: origin})
		}
	}
	return cmds
}

func extractOptionList(blk *Block, si, bi int) []Option {
	var opts []Option
	var pending *Option
	baseIndent := blk.Lines[0].Indent

	flush := func() {
		if pending != nil {
			opts = append(opts, *pending)
			pending = nil
		}
	}

	for _, line := range blk.Lines {
		origin := Origin{Section: si, Block: bi, Line: line.Index}

		if opt, ok := parseOptionHead(line, origin); ok {
			flush()
			pending = opt
			continue
		}

		// Indented continuation: extend the description, and allow it to
		// supply a default the head line did not.
		if pending != nil && line.Indent > baseIndent {
			pending.Description = util.CollapseSpaces(pending.Description + " " + line.Text)
			if pending.Default == "" {
				if m := defaultPattern.FindStringSubmatch(line.Text); m != nil {
					pending.Default = m[1]
				}
			}
		}
	}
	flush()
	return opts
}

// parseOptionHead parses a line of the form
//
//	-s, --long PLACEHOLDER  description text (default VALUE)
//
// splitting head from description on a 2+ space gap, then classifying the
// comma-separated flags into long/short/aliases.
func parseOptionHead(line Line, origin Origin) (*Option, bool) {
	text := line.Text
	m := optionFlagsPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	head, desc := text, ""
	if idx := headGapPattern.FindStringIndex(text); idx != nil {
		head = strings.TrimSpace(text[:idx[0]+1])
		desc = strings.TrimSpace(text[idx[1]-1:])
	}

	flagsEnd := len(m[0])
	var flags []string
	for _, f := range strings.Split(m[0], ",") {
		if f = strings.TrimSpace(f); f != "" {
			flags = append(flags, f)
		}
	}

	opt := Option{Description: desc, Origin: origin}
	var aliases []string
	for _, f := range flags {
		switch {
		case strings.HasPrefix(f, "--") && opt.Long == "":
			opt.Long = f
		case !strings.HasPrefix(f, "--") && len(f) == 2 && opt.Short == "":
			opt.Short = f
		default:
			aliases = append(aliases, f)
		}
	}
	opt.Aliases = aliases

	// Whatever trails the flags before the description gap is the argument
	// placeholder ("string", "<file>", "PATH").
	if flagsEnd <= len(head) {
		tail := strings.TrimSpace(head[flagsEnd:])
		if pm := placeholderPattern.FindStringSubmatch(tail); pm != nil {
			opt.Argument = pm[1]
		}
	}

	opt.TakesValue = opt.Argument != "" || valueTailPattern.MatchString(desc)

	if dm := defaultPattern.FindStringSubmatch(desc); dm != nil {
		opt.Default = dm[1]
	}

	conf := optionBaseConfidence
	aliasContribution := optionAliasBonus * float64(len(flags)-1)
	if aliasContribution > optionAliasBonusCap {
		aliasContribution = optionAliasBonusCap
	}
	conf += aliasContribution
	if opt.Argument != "" {
		conf += optionArgBonus
	}
	if conf > optionConfidenceCap {
		conf = optionConfidenceCap
	}
	opt.Confidence = conf

	return &opt, true
}

func extractUsage(blk *Block, si, bi int) []Usage {
	var usages []Usage
	for _, line := range blk.Lines {
		if line.Text == "" {
			continue
		}
		raw := usageStripPattern.ReplaceAllString(line.Text, "")
		if raw == "" {
			continue
		}
		usages = append(usages, Usage{
			Raw:        raw,
			Tokens:     strings.Fields(raw),
			Confidence: usageConfidence,
			Origin:     Origin{Section: si, Block: bi, Line: line.Index},
		})
	}
	return usages
}

// mergeDescriptions combines two descriptions: empty yields the other, a
// substring containment yields the longer, anything else concatenates.
func mergeDescriptions(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	case strings.Contains(strings.ToLower(a), strings.ToLower(b)):
		return a
	case strings.Contains(strings.ToLower(b), strings.ToLower(a)):
		return b
	default:
		return a + "; " + b
	}
}

// MergeCommands deduplicates commands by case-folded name: highest
// confidence wins, aliases are unioned, descriptions combined. The result
// is sorted by descending confidence (name ascending on ties), so merging
// is order-independent.
func MergeCommands(cmds []Command) []Command {
	byName := map[string]*Command{}
	order := []string{}
	for _, c := range cmds {
		key := strings.ToLower(c.Name)
		existing, ok := byName[key]
		if !ok {
			dup := c
			byName[key] = &dup
			order = append(order, key)
			continue
		}
		existing.Description = mergeDescriptions(existing.Description, c.Description)
		existing.Aliases = unionFold(existing.Aliases, c.Aliases)
		if c.Confidence > existing.Confidence {
			existing.Confidence = c.Confidence
			existing.Origin = c.Origin
		}
	}

	merged := make([]Command, 0, len(order))
	for _, key := range order {
		merged = append(merged, *byName[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return strings.ToLower(merged[i].Name) < strings.ToLower(merged[j].Name)
	})
	return merged
}

// optionKey is the identity of an option: the sorted case-folded union of
// its long, short and alias forms.
func optionKey(o Option) string {
	forms := map[string]struct{}{}
	add := func(f string) {
		if f != "" {
			forms[strings.ToLower(f)] = struct{}{}
		}
	}
	add(o.Long)
	add(o.Short)
	for _, a := range o.Aliases {
		add(a)
	}
	keys := make([]string, 0, len(forms))
	for k := range forms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// MergeOptions mirrors MergeCommands but also back-fills missing long and
// short forms and ORs takesValue.
func MergeOptions(opts []Option) []Option {
	byKey := map[string]*Option{}
	order := []string{}
	for _, o := range opts {
		key := optionKey(o)
		existing, ok := byKey[key]
		if !ok {
			dup := o
			byKey[key] = &dup
			order = append(order, key)
			continue
		}
		if existing.Long == "" {
			existing.Long = o.Long
		}
		if existing.Short == "" {
			existing.Short = o.Short
		}
		if existing.Argument == "" {
			existing.Argument = o.Argument
		}
		if existing.Default == "" {
			existing.Default = o.Default
		}
		existing.TakesValue = existing.TakesValue || o.TakesValue
		existing.Description = mergeDescriptions(existing.Description, o.Description)
		existing.Aliases = unionFold(existing.Aliases, o.Aliases)
		if o.Confidence > existing.Confidence {
			existing.Confidence = o.Confidence
			existing.Origin = o.Origin
		}
	}

	merged := make([]Option, 0, len(order))
	for _, key := range order {
		merged = append(merged, *byKey[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		return optionKey(merged[i]) < optionKey(merged[j])
	})
	return merged
}

// unionFold unions two alias lists case-insensitively, keeping first-seen
// spellings and order.
func unionFold(a, b []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			key := strings.ToLower(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
