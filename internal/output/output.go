// Package output renders parse, inspect, and discovery results for humans
// and machines. Human output is styled tables and word-wrapped prose; machine
// output is JSON or YAML on demand, or automatically when stdout is a pipe.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"
)

// Format selects the serialization of results.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// DetectFormat picks JSON when forced or when stdout is not a terminal.
func DetectFormat(forceJSON bool) Format {
	if forceJSON {
		return FormatJSON
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatJSON
	}
	return FormatTable
}

// Formatter writes results in the configured format.
type Formatter struct {
	writer io.Writer
	format Format
	color  bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithWriter redirects output; default is stdout.
func WithWriter(w io.Writer) Option {
	return func(f *Formatter) { f.writer = w }
}

// WithFormat sets the serialization format.
func WithFormat(format Format) Option {
	return func(f *Formatter) { f.format = format }
}

// WithJSON forces JSON output when true.
func WithJSON(force bool) Option {
	return func(f *Formatter) {
		if force {
			f.format = FormatJSON
		}
	}
}

// WithColor overrides color detection.
func WithColor(enabled bool) Option {
	return func(f *Formatter) { f.color = enabled }
}

// New creates a formatter. Without options it writes tables to stdout with
// color when stdout is a terminal.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		writer: os.Stdout,
		format: FormatTable,
		color:  colorDefault(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// colorDefault honors NO_COLOR and terminal capability before anything
// else asks for styled output.
func colorDefault() bool {
	if termenv.EnvNoColor() {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// Format reports the active format.
func (f *Formatter) Format() Format {
	return f.format
}

// Machine reports whether output is meant for parsing rather than reading.
func (f *Formatter) Machine() bool {
	return f.format != FormatTable
}

// Encode serializes v in the machine format. Table-format callers get
// indented JSON; they should prefer the typed Print helpers instead.
func (f *Formatter) Encode(v any) error {
	switch f.format {
	case FormatYAML:
		enc := yaml.NewEncoder(f.writer)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(f.writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}
}
