package cli

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/cmdlens/internal/execx"
	"github.com/Dicklesworthstone/cmdlens/internal/helptext"
	"github.com/Dicklesworthstone/cmdlens/internal/introspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <tool>",
	Short: "Probe a tool's command structure by running its help",
	Long: `Inspect runs a tool's help output through the parser, then probes the
subcommands it advertises, bounded in depth and probe count so even the
largest CLIs finish quickly.

Examples:
  cmdlens inspect git
  cmdlens inspect kubectl --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		path := name
		if !strings.ContainsRune(name, filepath.Separator) {
			resolved, err := exec.LookPath(name)
			if err != nil {
				return fmt.Errorf("%s: not found on the search path", name)
			}
			path = resolved
		}

		it := introspect.NewWith(path, &execx.Runner{},
			helptext.NewParserWith(cfg.Parser.Weights), cfg.IntrospectLimits())
		structure, err := it.Structure(cmd.Context())
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", name, err)
		}
		return getFormatter().PrintStructure(structure)
	},
}
