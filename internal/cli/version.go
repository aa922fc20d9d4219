package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := getFormatter()
		if f.Machine() {
			return f.Encode(map[string]string{
				"version": Version,
				"commit":  Commit,
				"date":    Date,
			})
		}
		f.Textln("cmdlens %s (commit %s, built %s)", Version, Commit, Date)
		return nil
	},
}
