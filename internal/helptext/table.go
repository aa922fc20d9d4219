package helptext

// ColumnBoundary is a half-open [Start, End) character-column range where a
// table column edge sits.
type ColumnBoundary struct {
	Start int
	End   int
}

// DetectColumns locates column boundaries in table-like lines by counting
// space/non-space transitions per character column across all lines. A
// column with gradient >= 2 is an edge; adjacent edge columns merge into
// one boundary, and the final boundary is padded out to the widest line.
//
// Standalone utility: entity extraction does not consume it yet, but table
// blocks are expected to grow row-level parsing on top of it.
func DetectColumns(lines []string) []ColumnBoundary {
	maxWidth := 0
	for _, l := range lines {
		if len(l) > maxWidth {
			maxWidth = len(l)
		}
	}
	if maxWidth == 0 {
		return nil
	}

	gradient := make([]int, maxWidth+1)
	for _, l := range lines {
		prevSpace := true
		for i := 0; i < len(l); i++ {
			isSpace := l[i] == ' ' || l[i] == '\t'
			if isSpace != prevSpace {
				gradient[i]++
			}
			prevSpace = isSpace
		}
		// Trailing non-space to end-of-line counts as an edge too.
		if !prevSpace {
			gradient[len(l)]++
		}
	}

	var boundaries []ColumnBoundary
	inEdge := false
	for col := 0; col <= maxWidth; col++ {
		if gradient[col] >= 2 {
			if !inEdge {
				boundaries = append(boundaries, ColumnBoundary{Start: col, End: col + 1})
				inEdge = true
			} else {
				boundaries[len(boundaries)-1].End = col + 1
			}
		} else {
			inEdge = false
		}
	}

	if len(boundaries) > 0 {
		boundaries[len(boundaries)-1].End = maxWidth
		if boundaries[len(boundaries)-1].Start >= maxWidth {
			boundaries[len(boundaries)-1].End = maxWidth + 1
		}
	}
	return boundaries
}
