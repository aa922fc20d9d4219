package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Text outputs plain text to the formatter's writer
func (f *Formatter) Text(format string, args ...interface{}) {
	fmt.Fprintf(f.writer, format, args...)
}

// Textln outputs plain text with a newline to the formatter's writer
func (f *Formatter) Textln(format string, args ...interface{}) {
	fmt.Fprintf(f.writer, format+"\n", args...)
}

// Line outputs a blank line
func (f *Formatter) Line() {
	fmt.Fprintln(f.writer)
}

// Println writes text with newline to the formatter's writer
func (f *Formatter) Println(v ...interface{}) {
	fmt.Fprintln(f.writer, v...)
}

// Header writes a styled section header.
func (f *Formatter) Header(text string) {
	if f.color {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
		fmt.Fprintln(f.writer, style.Render(text))
		return
	}
	fmt.Fprintln(f.writer, text)
}

// Dim writes de-emphasized text, for telemetry and footnotes.
func (f *Formatter) Dim(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	if f.color {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		text = style.Render(text)
	}
	fmt.Fprintln(f.writer, text)
}

// Table outputs tabular data in text format
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	widths  []int
	color   bool
}

// NewTable creates a new table with headers
func NewTable(w io.Writer, headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	return &Table{
		writer:  w,
		headers: headers,
		rows:    [][]string{},
		widths:  widths,
	}
}

// Table starts a styled table bound to the formatter.
func (f *Formatter) Table(headers ...string) *Table {
	t := NewTable(f.writer, headers...)
	t.color = f.color
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(cols ...string) {
	for i, c := range cols {
		if w := runewidth.StringWidth(c); i < len(t.widths) && w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, cols)
}

// Render outputs the table
func (t *Table) Render() {
	headerStyle := lipgloss.NewStyle().Bold(true)

	var line strings.Builder
	writeRow := func(cols []string, styled bool) {
		line.Reset()
		line.WriteString("  ")
		for i := range t.headers {
			cell := ""
			if i < len(cols) {
				cell = cols[i]
			}
			padded := cell + strings.Repeat(" ", t.widths[i]-runewidth.StringWidth(cell))
			if styled && t.color {
				padded = headerStyle.Render(padded)
			}
			line.WriteString(padded)
			if i < len(t.headers)-1 {
				line.WriteString("  ")
			}
		}
		fmt.Fprintln(t.writer, strings.TrimRight(line.String(), " "))
	}

	writeRow(t.headers, true)

	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	writeRow(seps, false)

	for _, row := range t.rows {
		writeRow(row, false)
	}
}

// Truncate truncates a string to max length, adding "..." if needed, respecting UTF-8 boundaries.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		lastValid := 0
		for i := range s {
			if i > maxLen {
				break
			}
			lastValid = i
		}
		if lastValid == 0 && len(s) > 0 {
			return ""
		}
		return s[:lastValid]
	}
	targetLen := maxLen - 3
	prevI := 0
	for i := range s {
		if i > targetLen {
			return s[:prevI] + "..."
		}
		prevI = i
	}
	return s[:prevI] + "..."
}

// Pluralize returns singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// CountStr returns "N item(s)" string
func CountStr(count int, singular, plural string) string {
	return fmt.Sprintf("%d %s", count, Pluralize(count, singular, plural))
}
