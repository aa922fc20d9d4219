// Package helptext turns the free-form text a CLI prints for --help into a
// structured, confidence-scored model of its commands, options and usage
// patterns. Parsing is heuristic: the guarantee is graceful degradation to
// "no structure detected", never an exception, and never confidently wrong
// structure.
package helptext

import "strings"

// Telemetry carries structural counters and warnings produced alongside a
// parse. Diagnostics only; nothing reads it for control flow.
type Telemetry struct {
	RawLines             int            `json:"raw_lines"`
	Lines                int            `json:"lines"`
	Sections             int            `json:"sections"`
	Blocks               int            `json:"blocks"`
	BlockRoles           map[string]int `json:"block_roles,omitempty"`
	AvgCommandConfidence float64        `json:"avg_command_confidence"`
	AvgOptionConfidence  float64        `json:"avg_option_confidence"`
	Warnings             []string       `json:"warnings,omitempty"`
}

// Document is the parser's output. Produced fresh on every Parse call and
// never mutated afterward.
type Document struct {
	Commands  []Command  `json:"commands"`
	Options   []Option   `json:"options"`
	Usages    []Usage    `json:"usages"`
	Root      *Section   `json:"-"`
	Sections  []*Section `json:"-"`
	Telemetry Telemetry  `json:"telemetry"`
}

// Parser converts raw help output into Documents. Zero-value unusable; use
// NewParser. A Parser holds no per-parse state and is safe for concurrent
// use on independent inputs.
type Parser struct {
	weights Weights
}

// NewParser returns a parser with the stock calibration.
func NewParser() *Parser {
	return NewParserWith(DefaultWeights())
}

// NewParserWith returns a parser using the given classifier calibration.
func NewParserWith(w Weights) *Parser {
	return &Parser{weights: w}
}

// Parse runs the full pipeline: normalize, segment, classify, extract,
// merge. Pure computation; no process or network I/O.
func (p *Parser) Parse(raw string) *Document {
	norm := normalize(raw)
	root, flat := segment(norm, p.weights)
	ents := extractEntities(flat)

	doc := &Document{
		Commands: MergeCommands(ents.Commands),
		Options:  MergeOptions(ents.Options),
		Usages:   ents.Usages,
		Root:     root,
		Sections: flat,
	}
	doc.Telemetry = buildTelemetry(norm, flat, doc, ents.Warnings)
	return doc
}

func buildTelemetry(norm normalized, flat []*Section, doc *Document, extractWarnings []string) Telemetry {
	tel := Telemetry{
		RawLines:   norm.RawLines,
		Lines:      len(norm.Lines),
		Sections:   len(flat),
		BlockRoles: map[string]int{},
	}
	tel.Warnings = append(tel.Warnings, norm.Warnings...)
	tel.Warnings = append(tel.Warnings, extractWarnings...)

	for _, sec := range flat {
		for _, blk := range sec.Blocks {
			tel.Blocks++
			tel.BlockRoles[string(blk.Role)]++
		}
	}

	tel.AvgCommandConfidence = avgCommandConfidence(doc.Commands)
	tel.AvgOptionConfidence = avgOptionConfidence(doc.Options)

	if tel.Blocks > 0 && tel.BlockRoles[string(RoleParagraph)] == tel.Blocks &&
		len(doc.Commands) == 0 && len(doc.Options) == 0 {
		tel.Warnings = append(tel.Warnings, "no structured blocks detected")
	}
	return tel
}

func avgCommandConfidence(cmds []Command) float64 {
	if len(cmds) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range cmds {
		sum += c.Confidence
	}
	return sum / float64(len(cmds))
}

func avgOptionConfidence(opts []Option) float64 {
	if len(opts) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range opts {
		sum += o.Confidence
	}
	return sum / float64(len(opts))
}

// SectionHeaderContains reports whether the section's header contains the
// given word, case-insensitively. Convenience for hosts inspecting the
// section tree.
func SectionHeaderContains(sec *Section, word string) bool {
	return strings.Contains(strings.ToLower(sec.Header), strings.ToLower(word))
}
