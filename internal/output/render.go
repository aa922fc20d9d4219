package output

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/cmdlens/internal/discover"
	"github.com/Dicklesworthstone/cmdlens/internal/helptext"
	"github.com/Dicklesworthstone/cmdlens/internal/introspect"
)

const fallbackWidth = 100

// termWidth returns the usable terminal width, or a fixed fallback when
// stdout is not a terminal.
func termWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 20 {
			return w
		}
	}
	return fallbackWidth
}

// descColumn wraps a description to fit beside the other table columns.
func descColumn(desc string, used int) string {
	avail := termWidth() - used
	if avail < 24 {
		avail = 24
	}
	wrapped := wordwrap.String(desc, avail)
	// Tables are single-line per row; keep the first wrapped line.
	if i := strings.IndexByte(wrapped, '\n'); i >= 0 {
		return wrapped[:i] + "..."
	}
	return wrapped
}

// PrintDocument renders a parsed help document.
func (f *Formatter) PrintDocument(doc *helptext.Document) error {
	if f.Machine() {
		return f.Encode(doc)
	}

	if len(doc.Usages) > 0 {
		f.Header("Usage")
		for _, u := range doc.Usages {
			f.Textln("  %s", u.Raw)
		}
		f.Line()
	}

	if len(doc.Commands) > 0 {
		f.Header("Commands")
		t := f.Table("NAME", "ALIASES", "CONF", "DESCRIPTION")
		for _, c := range doc.Commands {
			t.AddRow(c.Name, strings.Join(c.Aliases, ", "),
				fmt.Sprintf("%.2f", c.Confidence), descColumn(c.Description, 40))
		}
		t.Render()
		f.Line()
	}

	if len(doc.Options) > 0 {
		f.Header("Options")
		t := f.Table("FLAGS", "ARG", "DEFAULT", "DESCRIPTION")
		for _, o := range doc.Options {
			t.AddRow(optionFlags(o), o.Argument, o.Default, descColumn(o.Description, 48))
		}
		t.Render()
		f.Line()
	}

	tel := doc.Telemetry
	f.Dim("%s, %s, %s parsed in %d lines",
		CountStr(len(doc.Commands), "command", "commands"),
		CountStr(len(doc.Options), "option", "options"),
		CountStr(tel.Sections, "section", "sections"),
		tel.Lines)
	return nil
}

// optionFlags joins an option's spellings the way help text shows them.
func optionFlags(o helptext.Option) string {
	var parts []string
	if o.Short != "" {
		parts = append(parts, o.Short)
	}
	if o.Long != "" {
		parts = append(parts, o.Long)
	}
	for _, a := range o.Aliases {
		if a != o.Short && a != o.Long {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, ", ")
}

// PrintStructure renders a probed command structure.
func (f *Formatter) PrintStructure(s *introspect.CommandStructure) error {
	if f.Machine() {
		return f.Encode(s)
	}

	f.Header(s.Target)
	f.Line()

	basic, advanced := splitByCategory(s.Commands)
	if len(basic) > 0 {
		f.Header("Commands")
		renderCommandTable(f, basic, s)
		f.Line()
	}
	if len(advanced) > 0 {
		f.Header("Advanced")
		renderCommandTable(f, advanced, s)
		f.Line()
	}
	if len(s.Commands) == 0 {
		f.Println("  no subcommands detected")
	}

	f.Dim("%s across %s, cached %s",
		CountStr(len(s.Telemetry.Probes), "probe", "probes"),
		CountStr(len(s.Telemetry.PerPath), "path", "paths"),
		s.CachedAt.Format("15:04:05"))
	return nil
}

func splitByCategory(cmds []introspect.RootCommand) (basic, advanced []introspect.RootCommand) {
	for _, c := range cmds {
		if c.Category == introspect.CategoryAdvanced {
			advanced = append(advanced, c)
		} else {
			basic = append(basic, c)
		}
	}
	return basic, advanced
}

func renderCommandTable(f *Formatter, cmds []introspect.RootCommand, s *introspect.CommandStructure) {
	t := f.Table("NAME", "SUBCOMMANDS", "DESCRIPTION")
	for _, c := range cmds {
		subs := ""
		if children, ok := s.Subcommands[c.Name]; ok && len(children) > 0 {
			names := make([]string, 0, len(children))
			for _, sc := range children {
				names = append(names, sc.Name)
			}
			sort.Strings(names)
			subs = Truncate(strings.Join(names, " "), 40)
		} else if c.HasSubcommands {
			subs = "..."
		}
		t.AddRow(c.Name, subs, descColumn(c.Description, 52))
	}
	t.Render()
}

// PrintCLIs renders discovery results.
func (f *Formatter) PrintCLIs(clis []discover.CLI) error {
	if f.Machine() {
		return f.Encode(clis)
	}

	if len(clis) == 0 {
		f.Println("no CLIs found")
		return nil
	}

	t := f.Table("NAME", "SCORE", "HELP", "WHERE", "PATH")
	for _, c := range clis {
		t.AddRow(c.Name, strconv.Itoa(c.Score), string(c.Tier),
			string(c.Location), Truncate(c.Path, 50))
	}
	t.Render()
	f.Dim("%s on the search path", CountStr(len(clis), "CLI", "CLIs"))
	return nil
}
