package helptext

import (
	"reflect"
	"strings"
	"testing"
)

const toolHelp = `Usage: tool [command]

Commands:
  add      Add a new item
  remove   Remove an item

Flags:
  -v, --verbose   Enable verbose output
  --config string   Path to config file (default "~/.toolrc")
`

func findCommand(doc *Document, name string) *Command {
	for i := range doc.Commands {
		if doc.Commands[i].Name == name {
			return &doc.Commands[i]
		}
	}
	return nil
}

func findOption(doc *Document, long string) *Option {
	for i := range doc.Options {
		if doc.Options[i].Long == long {
			return &doc.Options[i]
		}
	}
	return nil
}

func TestParseToolHelp(t *testing.T) {
	doc := NewParser().Parse(toolHelp)

	t.Run("commands", func(t *testing.T) {
		if len(doc.Commands) != 2 {
			t.Fatalf("got %d commands, want 2: %+v", len(doc.Commands), doc.Commands)
		}
		for _, name := range []string{"add", "remove"} {
			cmd := findCommand(doc, name)
			if cmd == nil {
				t.Fatalf("command %q not found", name)
			}
			if cmd.Confidence < 0.65 {
				t.Errorf("command %q confidence %.2f, want >= 0.65", name, cmd.Confidence)
			}
		}
		if got := findCommand(doc, "add").Description; got != "Add a new item" {
			t.Errorf("add description = %q", got)
		}
	})

	t.Run("options", func(t *testing.T) {
		if len(doc.Options) != 2 {
			t.Fatalf("got %d options, want 2: %+v", len(doc.Options), doc.Options)
		}

		verbose := findOption(doc, "--verbose")
		if verbose == nil {
			t.Fatal("--verbose not found")
		}
		if verbose.Short != "-v" {
			t.Errorf("verbose short = %q, want -v", verbose.Short)
		}
		if verbose.TakesValue {
			t.Error("--verbose should not take a value")
		}

		config := findOption(doc, "--config")
		if config == nil {
			t.Fatal("--config not found")
		}
		if !config.TakesValue {
			t.Error("--config should take a value")
		}
		if config.Argument != "string" {
			t.Errorf("config argument = %q, want string", config.Argument)
		}
		if config.Default != `"~/.toolrc"` {
			t.Errorf("config default = %q, want %q", config.Default, `"~/.toolrc"`)
		}
	})

	t.Run("usage", func(t *testing.T) {
		if len(doc.Usages) != 1 {
			t.Fatalf("got %d usages, want 1: %+v", len(doc.Usages), doc.Usages)
		}
		if doc.Usages[0].Raw != "tool [command]" {
			t.Errorf("usage raw = %q, want %q", doc.Usages[0].Raw, "tool [command]")
		}
		if !reflect.DeepEqual(doc.Usages[0].Tokens, []string{"tool", "[command]"}) {
			t.Errorf("usage tokens = %v", doc.Usages[0].Tokens)
		}
	})

	t.Run("sections", func(t *testing.T) {
		// Root plus Commands plus Flags.
		if len(doc.Sections) != 3 {
			t.Fatalf("got %d sections: %+v", len(doc.Sections), doc.Sections)
		}
		if doc.Sections[0].Depth != 0 {
			t.Errorf("first section depth = %d, want root depth 0", doc.Sections[0].Depth)
		}
		if doc.Sections[1].Header != "Commands" {
			t.Errorf("second section header = %q", doc.Sections[1].Header)
		}
	})
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t\n  "} {
		doc := NewParser().Parse(input)
		if len(doc.Commands) != 0 || len(doc.Options) != 0 || len(doc.Usages) != 0 {
			t.Errorf("Parse(%q) extracted entities from nothing: %+v", input, doc)
		}
		if len(doc.Sections) != 1 || doc.Sections[0].Depth != 0 {
			t.Errorf("Parse(%q) should yield only the root section, got %d", input, len(doc.Sections))
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	p := NewParser()
	a := p.Parse(toolHelp)
	b := p.Parse(toolHelp)

	if !reflect.DeepEqual(a.Commands, b.Commands) {
		t.Error("commands differ between identical parses")
	}
	if !reflect.DeepEqual(a.Options, b.Options) {
		t.Error("options differ between identical parses")
	}
	if !reflect.DeepEqual(a.Usages, b.Usages) {
		t.Error("usages differ between identical parses")
	}
	if !reflect.DeepEqual(a.Telemetry, b.Telemetry) {
		t.Error("telemetry differs between identical parses")
	}
}

func TestConfidenceBounds(t *testing.T) {
	inputs := []string{
		toolHelp,
		"Commands:\n  " + strings.Repeat("x", 200) + "  desc\n",
		"alpha, beta, gamma, delta, epsilon\n",
		"Flags:\n  -a, -b, -c, --dee, --eee <value>  many aliases\n",
	}
	for _, input := range inputs {
		doc := NewParser().Parse(input)
		for _, c := range doc.Commands {
			if c.Confidence < 0 || c.Confidence > 0.95 {
				t.Errorf("command %q confidence %.3f out of bounds", c.Name, c.Confidence)
			}
		}
		for _, o := range doc.Options {
			if o.Confidence < 0 || o.Confidence > 0.9 {
				t.Errorf("option %q confidence %.3f out of bounds", o.Long, o.Confidence)
			}
		}
	}
}

func TestParseStripsANSI(t *testing.T) {
	colored := "\x1b[1mCommands:\x1b[0m\n  add      Add a new item\n"
	doc := NewParser().Parse(colored)
	if findCommand(doc, "add") == nil {
		t.Fatalf("ANSI-wrapped header broke extraction: %+v", doc.Commands)
	}
	if doc.Sections[1].Header != "Commands" {
		t.Errorf("header = %q, want Commands", doc.Sections[1].Header)
	}
}

func TestTelemetryCounts(t *testing.T) {
	doc := NewParser().Parse(toolHelp)
	tel := doc.Telemetry

	if tel.Sections != 3 {
		t.Errorf("telemetry sections = %d, want 3", tel.Sections)
	}
	if tel.BlockRoles[string(RoleCommandList)] != 1 {
		t.Errorf("command-list blocks = %d, want 1", tel.BlockRoles[string(RoleCommandList)])
	}
	if tel.BlockRoles[string(RoleOptionList)] != 1 {
		t.Errorf("option-list blocks = %d, want 1", tel.BlockRoles[string(RoleOptionList)])
	}
	if tel.BlockRoles[string(RoleUsage)] != 1 {
		t.Errorf("usage blocks = %d, want 1", tel.BlockRoles[string(RoleUsage)])
	}
	if tel.AvgCommandConfidence <= 0 || tel.AvgCommandConfidence > 1 {
		t.Errorf("avg command confidence %.3f out of range", tel.AvgCommandConfidence)
	}
}

func TestParagraphOverMisclassification(t *testing.T) {
	prose := `This tool helps you manage items in a straightforward way.
It was written long ago and has seen many maintainers since then.
Nothing in here should look like a flag or a command listing.
`
	doc := NewParser().Parse(prose)
	if len(doc.Commands) != 0 || len(doc.Options) != 0 {
		t.Errorf("prose should not produce entities: %+v %+v", doc.Commands, doc.Options)
	}
}
