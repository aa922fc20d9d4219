package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/cmdlens/internal/discover"
	"github.com/Dicklesworthstone/cmdlens/internal/execx"
)

var (
	discoverMinScore int
	discoverLimit    int
	discoverNoCache  bool
	discoverWatch    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan the search path for CLIs worth knowing about",
	Long: `Discover walks your PATH, filters out libraries and background helpers,
tests whether each remaining candidate answers --help, and ranks the result.
Results are cached on disk for a day; --no-cache forces a fresh scan.

With --watch, discovery re-runs whenever an executable appears in or leaves
a search-path directory.

Examples:
  cmdlens discover --min-score 10 --limit 25
  cmdlens discover --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cfg.DiscoverOptions()
		if cmd.Flags().Changed("min-score") {
			opts.MinScore = discoverMinScore
		}
		if cmd.Flags().Changed("limit") {
			opts.Limit = discoverLimit
		}
		if discoverNoCache {
			opts.UseCache = false
		}

		d := discover.New(&execx.Runner{})

		run := func(ctx context.Context) error {
			clis, err := d.Discover(ctx, opts)
			if err != nil {
				return fmt.Errorf("discovering: %w", err)
			}
			return getFormatter().PrintCLIs(clis)
		}

		if !discoverWatch {
			return run(cmd.Context())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := run(ctx); err != nil {
			return err
		}

		changed := make(chan struct{}, 1)
		w, err := discover.WatchSearchPath(opts.SearchPath, func(dir string) {
			slog.Debug("search path changed", "dir", dir)
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("watching search path: %w", err)
		}
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
				// Let a burst of events settle before rescanning.
				time.Sleep(500 * time.Millisecond)
				drain(changed)
				if err := discover.InvalidateCache(opts); err != nil {
					slog.Warn("invalidating cache", "error", err)
				}
				if err := run(ctx); err != nil {
					return err
				}
			}
		}
	},
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func init() {
	discoverCmd.Flags().IntVar(&discoverMinScore, "min-score", 0, "Hide candidates scoring below this")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 0, "Show at most this many results (0 = all)")
	discoverCmd.Flags().BoolVar(&discoverNoCache, "no-cache", false, "Ignore the on-disk cache and rescan")
	discoverCmd.Flags().BoolVar(&discoverWatch, "watch", false, "Rescan when search-path directories change")
}
