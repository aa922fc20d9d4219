package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/cmdlens/internal/helptext"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse help text into commands, options, and usage lines",
	Long: `Parse reads help text from a file or stdin and extracts the commands,
options, and usage patterns it advertises, with a confidence score on every
entry.

Examples:
  git --help | cmdlens parse
  cmdlens parse saved-help.txt --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 1 && args[0] != "-" {
			data, err = os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}

		parser := helptext.NewParserWith(cfg.Parser.Weights)
		doc := parser.Parse(string(data))
		return getFormatter().PrintDocument(doc)
	},
}
