package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/contrib/watch"
	"github.com/syssam/relmap/internal/config"
)

// newWatchCommand creates the watch command
func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild and check the mapping whenever descriptors change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			opts := []watch.Option{
				watch.WithLogger(a.log),
				watch.OnReload(func(c *relmap.Configuration, err error) {
					if err != nil {
						errorColor.Fprintf(out, "✗ %v\n", err)
						return
					}
					successColor.Fprintln(out, "✓ mapping reloaded")
				}),
			}
			if a.cfg.Sources.Kind == config.SourcePackages {
				opts = append(opts, watch.WithPatterns("*.go"))
			}
			w := watch.New(watchDirs(a.cfg), func(ctx context.Context) (*relmap.Configuration, error) {
				m, _, err := a.cfg.Mapping(ctx, a.log)
				return m, err
			}, opts...)
			return w.Run(ctx)
		},
	}
}

// watchDirs returns the directories holding the configured descriptors.
func watchDirs(cfg *config.Config) []string {
	if cfg.Sources.Kind == config.SourcePackages {
		return []string{cfg.Sources.Dir}
	}
	var dirs []string
	for _, p := range cfg.Sources.Paths {
		if dir := filepath.Dir(p); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
