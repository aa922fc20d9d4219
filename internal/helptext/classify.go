package helptext

import (
	"regexp"
	"strings"
)

// BlockRole is the structural role assigned to a block of contiguous
// non-blank lines. A block's role is decided once from its accumulated
// score and never reclassified after extraction.
type BlockRole string

const (
	RoleOptionList  BlockRole = "option-list"
	RoleCommandList BlockRole = "command-list"
	RoleCommaList   BlockRole = "comma-list"
	RoleUsage       BlockRole = "usage"
	RoleTable       BlockRole = "table"
	RoleKV          BlockRole = "kv"
	RoleParagraph   BlockRole = "paragraph"
)

// BlockScore holds the six per-line shape features averaged over a block.
type BlockScore struct {
	FlagHead        float64 // fraction of lines starting with 1-2 dashes
	HeadGap         float64 // fraction of lines with a 2+ space label/description split
	CommaDensity    float64 // commas per character, against a 20-char floor
	PunctDensity    float64 // brackets/angles/pipes per character, same floor
	KVLikelihood    float64 // fraction of lines shaped like "word: value"
	TableLikelihood float64 // fraction of lines with pipes/box chars or --- separators
}

// Block is a contiguous run of non-blank lines with one assigned role.
type Block struct {
	Role  BlockRole
	Score BlockScore
	Start int // index into the normalized line slice
	End   int
	Lines []Line
}

// Weights centralizes the classifier's calibration constants. The values
// are an empirical starting point, not a derived optimum; hosts may
// override them from configuration.
type Weights struct {
	// RoleThreshold is the minimum winning role score. Blocks below it stay
	// paragraphs: unknown beats confidently wrong.
	RoleThreshold float64 `toml:"role_threshold"`

	OptionGapWeight  float64 `toml:"option_gap_weight"`
	OptionFlagBonus  float64 `toml:"option_flag_bonus"`
	OptionFlagCutoff float64 `toml:"option_flag_cutoff"`

	CommandGapWeight   float64 `toml:"command_gap_weight"`
	CommandFlagPenalty float64 `toml:"command_flag_penalty"`
	CommandBonus       float64 `toml:"command_bonus"`
	CommandGapCutoff   float64 `toml:"command_gap_cutoff"`
	CommandFlagMaximum float64 `toml:"command_flag_maximum"`

	CommaWeight      float64 `toml:"comma_weight"`
	CommaBonus       float64 `toml:"comma_bonus"`
	CommaBonusCutoff float64 `toml:"comma_bonus_cutoff"`

	UsagePunctWeight float64 `toml:"usage_punct_weight"`
	UsageHintBonus   float64 `toml:"usage_hint_bonus"`

	TableWeight      float64 `toml:"table_weight"`
	TableBonus       float64 `toml:"table_bonus"`
	TableBonusCutoff float64 `toml:"table_bonus_cutoff"`

	KVWeight      float64 `toml:"kv_weight"`
	KVFlagPenalty float64 `toml:"kv_flag_penalty"`
	KVGapPenalty  float64 `toml:"kv_gap_penalty"`
}

// DefaultWeights returns the stock calibration.
func DefaultWeights() Weights {
	return Weights{
		RoleThreshold: 0.15,

		OptionGapWeight:  0.3,
		OptionFlagBonus:  0.5,
		OptionFlagCutoff: 0.3,

		CommandGapWeight:   0.8,
		CommandFlagPenalty: 0.6,
		CommandBonus:       0.4,
		CommandGapCutoff:   0.4,
		CommandFlagMaximum: 0.1,

		CommaWeight:      4.0,
		CommaBonus:       0.3,
		CommaBonusCutoff: 0.08,

		UsagePunctWeight: 2.5,
		UsageHintBonus:   0.6,

		TableWeight:      0.8,
		TableBonus:       0.2,
		TableBonusCutoff: 0.5,

		KVWeight:      0.5,
		KVFlagPenalty: 0.3,
		KVGapPenalty:  0.2,
	}
}

var (
	flagHeadPattern   = regexp.MustCompile(`^-{1,2}[A-Za-z0-9]`)
	headGapPattern    = regexp.MustCompile(`\S {2,}\S`)
	kvLinePattern     = regexp.MustCompile(`\b\w+\s*[=:]\s*\S`)
	tableSepPattern   = regexp.MustCompile(`[-=]{3,}`)
	usagePrefixRegexp = regexp.MustCompile(`(?i)^usage[:\s]`)
)

// blockBuilder accumulates line features for the block under construction.
// The per-line update is cheap; averages are taken once at finish.
type blockBuilder struct {
	lines []Line
	start int

	flagHead  int
	headGap   int
	kvLines   int
	tableLine int
	commaSum  float64
	punctSum  float64
}

func (b *blockBuilder) add(line Line, pos int) {
	if len(b.lines) == 0 {
		b.start = pos
	}
	b.lines = append(b.lines, line)

	text := line.Text
	if flagHeadPattern.MatchString(text) {
		b.flagHead++
	}
	if headGapPattern.MatchString(line.Raw) {
		b.headGap++
	}
	if kvLinePattern.MatchString(text) {
		b.kvLines++
	}
	if strings.ContainsAny(text, "|│┃║") || tableSepPattern.MatchString(text) {
		b.tableLine++
	}

	floor := float64(len(text))
	if floor < 20 {
		floor = 20
	}
	b.commaSum += float64(strings.Count(text, ",")) / floor
	b.punctSum += float64(countAny(text, "<>[]|")) / floor
}

func (b *blockBuilder) empty() bool { return len(b.lines) == 0 }

// finish computes the block's averaged score, decides its role and resets
// the builder.
func (b *blockBuilder) finish(w Weights) *Block {
	if b.empty() {
		return nil
	}
	n := float64(len(b.lines))
	score := BlockScore{
		FlagHead:        float64(b.flagHead) / n,
		HeadGap:         float64(b.headGap) / n,
		CommaDensity:    b.commaSum / n,
		PunctDensity:    b.punctSum / n,
		KVLikelihood:    float64(b.kvLines) / n,
		TableLikelihood: float64(b.tableLine) / n,
	}

	blk := &Block{
		Role:  classifyScore(score, b.lines, w),
		Score: score,
		Start: b.start,
		End:   b.start + len(b.lines) - 1,
		Lines: b.lines,
	}
	*b = blockBuilder{}
	return blk
}

// classifyScore combines the averaged features into one candidate score per
// role and picks the winner, falling back to paragraph below the threshold.
func classifyScore(s BlockScore, lines []Line, w Weights) BlockRole {
	option := s.FlagHead + w.OptionGapWeight*s.HeadGap
	if s.FlagHead > w.OptionFlagCutoff {
		option += w.OptionFlagBonus
	}

	command := w.CommandGapWeight*s.HeadGap - w.CommandFlagPenalty*s.FlagHead
	if s.HeadGap > w.CommandGapCutoff && s.FlagHead < w.CommandFlagMaximum {
		command += w.CommandBonus
	}

	comma := w.CommaWeight * s.CommaDensity
	if s.CommaDensity > w.CommaBonusCutoff {
		comma += w.CommaBonus
	}

	usage := w.UsagePunctWeight * s.PunctDensity
	if len(lines) > 0 && usagePrefixRegexp.MatchString(lines[0].Text) {
		usage += w.UsageHintBonus
	}

	table := w.TableWeight * s.TableLikelihood
	if s.TableLikelihood > w.TableBonusCutoff {
		table += w.TableBonus
	}

	kv := w.KVWeight*s.KVLikelihood - w.KVFlagPenalty*s.FlagHead - w.KVGapPenalty*s.HeadGap

	// First-listed role wins ties; anything below the threshold stays a
	// paragraph.
	best, bestScore := RoleParagraph, w.RoleThreshold-1e-9
	for _, c := range []struct {
		role  BlockRole
		score float64
	}{
		{RoleOptionList, option},
		{RoleCommandList, command},
		{RoleCommaList, comma},
		{RoleUsage, usage},
		{RoleTable, table},
		{RoleKV, kv},
	} {
		if c.score > bestScore {
			best, bestScore = c.role, c.score
		}
	}
	return best
}

func countAny(s, chars string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(chars, r) {
			n++
		}
	}
	return n
}
