package helptext

import (
	"regexp"
	"strings"
)

// Line is one normalized help line. Immutable once produced.
type Line struct {
	Raw    string  // right-trimmed text, original indentation intact
	Text   string  // fully trimmed text
	Indent int     // leading whitespace width (tabs count as one column)
	Tokens []Token // classified substrings, sorted by column
	Index  int     // index in the original (pre-reflow) line sequence
}

var (
	ansiEscapePattern    = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]`)
	pagerArtifactPattern = regexp.MustCompile(`^\s*(?:--More--.*|\(END\)|:\s*)$`)
	terminalPunctuation  = ".:;!?"
)

// normalized is the Line Normalizer's output: logical lines plus the layout
// hints (dominant indent unit, detected wrap width) the segmenter and
// classifier need.
type normalized struct {
	Lines      []Line
	RawLines   int
	IndentUnit int
	WrapWidth  int // 0 when no soft-wrap width was detected
	Warnings   []string
}

// stripANSI removes color and other terminal escape sequences.
func stripANSI(s string) string {
	if !strings.ContainsRune(s, 0x1b) {
		return s
	}
	return ansiEscapePattern.ReplaceAllString(s, "")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// normalize turns raw captured output into logical lines: strips escapes,
// drops pager artifacts, detects the dominant indent unit and, when the
// output shows a consistent soft-wrap width, reflows wrapped continuations
// back onto their parent line.
func normalize(raw string) normalized {
	out := normalized{IndentUnit: 2}

	clean := stripANSI(raw)
	split := strings.Split(strings.ReplaceAll(clean, "\r\n", "\n"), "\n")
	out.RawLines = len(split)

	lines := make([]Line, 0, len(split))
	dropped := 0
	for i, s := range split {
		s = strings.TrimRight(s, " \t\r")
		if pagerArtifactPattern.MatchString(s) {
			dropped++
			continue
		}
		lines = append(lines, Line{
			Raw:    s,
			Text:   strings.TrimSpace(s),
			Indent: indentOf(s),
			Tokens: tokenize(s),
			Index:  i,
		})
	}
	if dropped > 0 {
		out.Warnings = append(out.Warnings, "dropped pager artifact lines")
	}

	out.IndentUnit = dominantIndentUnit(lines)
	out.WrapWidth = detectWrapWidth(lines)
	if out.WrapWidth > 0 {
		lines = reflow(lines, out.WrapWidth)
	}

	out.Lines = lines
	return out
}

// dominantIndentUnit buckets every line's leading-space count (counts above
// 8 are halved and rounded, approximating nested levels of the same unit)
// and returns the most frequent nonzero bucket. Defaults to 2.
func dominantIndentUnit(lines []Line) int {
	buckets := map[int]int{}
	for _, l := range lines {
		if l.Text == "" || l.Indent == 0 {
			continue
		}
		b := l.Indent
		for b > 8 {
			b = (b + 1) / 2
		}
		buckets[b]++
	}

	best, bestCount := 2, 0
	for b, n := range buckets {
		if n > bestCount || (n == bestCount && b < best) {
			best, bestCount = b, n
		}
	}
	if bestCount == 0 {
		return 2
	}
	return best
}

// detectWrapWidth looks for a line length in [60,120] that recurs more than
// three times. Terminal soft-wrapping produces many lines of near-identical
// length; prose does not.
func detectWrapWidth(lines []Line) int {
	hist := map[int]int{}
	for _, l := range lines {
		n := len(l.Raw)
		if n >= 60 && n <= 120 {
			hist[n]++
		}
	}

	width, count := 0, 0
	for n, c := range hist {
		if c > 3 && (c > count || (c == count && n > width)) {
			width, count = n, c
		}
	}
	return width
}

// reflow merges soft-wrapped continuations back onto their parent line. A
// line was artificially wrapped when its length sits near the wrap width,
// it does not end in terminal punctuation, and the following line is a
// more-indented non-blank continuation.
func reflow(lines []Line, wrap int) []Line {
	merged := make([]Line, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		cur := lines[i]
		for i+1 < len(lines) {
			n := len(cur.Raw)
			if n < wrap-8 || n > wrap+4 {
				break
			}
			if strings.ContainsAny(lastChar(cur.Text), terminalPunctuation) {
				break
			}
			next := lines[i+1]
			if next.Text == "" || next.Indent <= cur.Indent {
				break
			}
			joined := cur.Raw + " " + next.Text
			cur = Line{
				Raw:    joined,
				Text:   strings.TrimSpace(joined),
				Indent: cur.Indent,
				Tokens: tokenize(joined),
				Index:  cur.Index,
			}
			i++
		}
		merged = append(merged, cur)
	}
	return merged
}

func lastChar(s string) string {
	if s == "" {
		return ""
	}
	return s[len(s)-1:]
}
