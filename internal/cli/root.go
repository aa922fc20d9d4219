// Package cli implements the cmdlens command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/cmdlens/internal/config"
	"github.com/Dicklesworthstone/cmdlens/internal/output"
)

var (
	cfgFile string
	cfg     *config.Config

	// Global JSON output flag - inherited by all subcommands
	jsonOutput bool

	// Explicit output format - overrides detection when set
	outputFormat string

	// Global color control flag - inherited by all subcommands
	noColor bool

	verbose bool

	// Build information - set by goreleaser via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cmdlens",
	Short: "Inspect command-line tools through their own help text",
	Long: `cmdlens learns what a CLI can do by reading the same help text you would:
it parses --help output into commands, options, and usage lines, probes
subcommands recursively, and scans your PATH for tools worth knowing about.

Quick Start:
  cmdlens discover                  # Rank the CLIs on your PATH
  cmdlens inspect git               # Probe git's command structure
  tool --help | cmdlens parse       # Parse help text from a pipe
  cmdlens serve                     # Expose everything over a local API`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if noColor {
			os.Setenv("NO_COLOR", "1")
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		// SilenceErrors is set so JSON consumers never see prose on stdout
		if !jsonOutput {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

// getFormatter builds a formatter from the global flags and config.
func getFormatter() *output.Formatter {
	format := output.DetectFormat(jsonOutput)
	if outputFormat != "" {
		format = output.Format(outputFormat)
	} else if !jsonOutput && cfg != nil && cfg.Output.Format != "" {
		if f := output.Format(cfg.Output.Format); f != output.FormatTable {
			format = f
		}
	}

	color := !noColor
	if cfg != nil {
		switch cfg.Output.Color {
		case "always":
			color = true
		case "never":
			color = false
		}
	}
	if noColor {
		color = false
	}

	return output.New(output.WithFormat(format), output.WithColor(color))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/cmdlens/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (machine-readable)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "Output format: table, json, or yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		parseCmd,
		inspectCmd,
		discoverCmd,
		serveCmd,
		versionCmd,
	)
}
