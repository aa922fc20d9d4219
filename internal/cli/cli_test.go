package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dicklesworthstone/cmdlens/internal/output"
)

// resetFlags resets global flags to default values between tests
func resetFlags() {
	cfgFile = ""
	jsonOutput = false
	outputFormat = ""
	noColor = false
	verbose = false
	discoverMinScore = 0
	discoverLimit = 0
	discoverNoCache = false
	discoverWatch = false
}

// isolateConfig points config resolution at a nonexistent file so tests
// never read the developer's real config.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("CMDLENS_CONFIG", filepath.Join(t.TempDir(), "none.toml"))
}

func TestExecuteHelp(t *testing.T) {
	resetFlags()
	isolateConfig(t)
	rootCmd.SetArgs([]string{"--help"})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() with --help failed: %v", err)
	}
	if !strings.Contains(buf.String(), "parse") || !strings.Contains(buf.String(), "discover") {
		t.Errorf("help output missing subcommands:\n%s", buf.String())
	}
}

func TestVersionCmdExecutes(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"default version", []string{"version"}},
		{"json version", []string{"version", "--json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			isolateConfig(t)
			rootCmd.SetArgs(tt.args)

			if err := rootCmd.Execute(); err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
		})
	}
}

func TestParseCmdFromStdin(t *testing.T) {
	resetFlags()
	isolateConfig(t)
	rootCmd.SetArgs([]string{"parse", "--json"})
	rootCmd.SetIn(strings.NewReader("Usage: tool [options]\n\nOptions:\n  -v, --verbose   Louder\n"))

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
}

func TestParseCmdMissingFile(t *testing.T) {
	resetFlags()
	isolateConfig(t)
	rootCmd.SetArgs([]string{"parse", filepath.Join(t.TempDir(), "missing.txt")})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseCmdTooManyArgs(t *testing.T) {
	resetFlags()
	isolateConfig(t)
	rootCmd.SetArgs([]string{"parse", "a.txt", "b.txt"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected an argument-count error")
	}
}

func TestInspectUnknownTool(t *testing.T) {
	resetFlags()
	isolateConfig(t)
	rootCmd.SetArgs([]string{"inspect", "definitely-not-a-real-tool-xyz"})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected an error for an unknown tool")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v", err)
	}
}

func TestBadConfigFails(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[introspect]\nmax_depth = -3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetArgs([]string{"version", "--config", path})

	if err := rootCmd.Execute(); err == nil {
		t.Error("invalid config should fail the run")
	}
}

func TestGetFormatterRespectsFlags(t *testing.T) {
	resetFlags()
	isolateConfig(t)

	jsonOutput = true
	if f := getFormatter(); f.Format() != output.FormatJSON {
		t.Errorf("--json: format = %q", f.Format())
	}

	resetFlags()
	outputFormat = "yaml"
	if f := getFormatter(); f.Format() != output.FormatYAML {
		t.Errorf("--format yaml: format = %q", f.Format())
	}
}
