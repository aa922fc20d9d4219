package helptext

import (
	"regexp"
	"strings"
	"unicode"
)

// Section is a node in the help document's section tree. The synthetic
// root (depth 0, no header) always exists, even for headerless documents.
type Section struct {
	Header   string
	Depth    int
	Start    int // first line index covered (normalized line positions)
	End      int // last line index covered
	Blocks   []*Block
	Children []*Section
}

var underlinePattern = regexp.MustCompile(`^[-=]{3,}$`)

// segment walks normalized lines, splits them into header-delimited
// sections nested by indentation depth and groups the remaining lines into
// classified blocks. Returns the root plus every section in discovery
// order (root first); entity origins index into the flat list.
func segment(n normalized, w Weights) (*Section, []*Section) {
	lines := n.Lines
	last := len(lines) - 1
	root := &Section{Depth: 0, Start: 0, End: last}
	flat := []*Section{root}
	stack := []*Section{root}

	var builder blockBuilder

	flush := func() {
		if blk := builder.finish(w); blk != nil {
			top := stack[len(stack)-1]
			top.Blocks = append(top.Blocks, blk)
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line.Text == "" {
			flush()
			continue
		}

		header, underlined := headerAt(lines, i)
		if !header {
			builder.add(line, i)
			continue
		}

		flush()

		depth := 1 + line.Indent/n.IndentUnit
		for len(stack) > 1 && stack[len(stack)-1].Depth >= depth {
			closed := stack[len(stack)-1]
			closed.End = i - 1
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		if parent != root {
			parent.End = i - 1
		}

		sec := &Section{
			Header: strings.TrimSuffix(line.Text, ":"),
			Depth:  depth,
			Start:  i,
			End:    i,
		}
		parent.Children = append(parent.Children, sec)
		flat = append(flat, sec)
		stack = append(stack, sec)

		if underlined {
			i++ // skip the ---/=== underline
		}
	}

	flush()
	for _, sec := range stack {
		if sec.End < last {
			sec.End = last
		}
	}
	return root, flat
}

// headerAt reports whether lines[i] is a section header and whether the
// following line is its underline. A line is a header when it is underlined
// with 3+ dashes or equals signs, ends with a colon, or is a short
// Title-Case/ALL-CAPS label introducing a more-indented body.
func headerAt(lines []Line, i int) (header, underlined bool) {
	line := lines[i]
	if i+1 < len(lines) && underlinePattern.MatchString(lines[i+1].Text) {
		return true, true
	}
	if strings.HasSuffix(line.Text, ":") && len(line.Text) > 1 {
		return true, false
	}
	if len(line.Text) <= 50 && (isTitleCase(line.Text) || isAllCaps(line.Text)) {
		if i+1 < len(lines) && lines[i+1].Text != "" && lines[i+1].Indent > line.Indent {
			return true, false
		}
	}
	return false, false
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func isTitleCase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
