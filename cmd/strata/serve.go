// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"strata/internal/issue"
	"strata/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch plugin locations and reload on changes",
	Long: `Runs an initial rescan, then watches every configured location and
re-runs the full pipeline when bundle archives change. Event bursts are
debounced into a single rescan. A failed rescan keeps the previously
published partitions in force; the next filesystem change is the retry.

Blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			reportError(err)
			return err
		}
		defer app.Close()

		// Initial load. Failures here are cycle-scoped like any other: log
		// them and keep serving, the operator may fix the directory and save
		// again.
		if err := app.Loader.Rescan(ctx); err != nil {
			reportError(err)
		}

		if len(app.Config.Locations) == 0 {
			return fmt.Errorf("no watched locations configured")
		}

		fmt.Fprintln(cmd.OutOrStdout(),
			SubtitleStyle.Render("watching for plugin changes (Ctrl+C to stop)..."))

		return runWatchers(ctx, app)
	},
}

// runWatchers starts one watcher per configured location and blocks until
// the context is cancelled or a watcher dies with a fatal error. Any change
// in any location triggers a full rescan over all locations: the partition
// set is always replaced as a whole.
func runWatchers(ctx context.Context, app *App) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rescan := func(ctx context.Context, changed []string) error {
		slog.Info("plugin change detected, rescanning", "changed", changed)
		if err := app.Loader.Rescan(ctx); err != nil {
			reportError(err)
		}
		return nil
	}

	errCh := make(chan error, len(app.Config.Locations))
	var wg sync.WaitGroup

	for _, loc := range app.Config.Locations {
		w, err := watch.New(watch.Config{
			BaseDir:  loc.Path,
			Debounce: app.Config.DebounceDuration(),
			OnChange: rescan,
			Logger:   slog.Default().With("location", loc.Name),
		})
		if err != nil {
			cancel()
			wg.Wait()
			return issue.NewErrorContext().
				WithOperation("watch plugin location").
				WithResource(loc.Path).
				WithSuggestion("Verify the directory exists and is readable").
				Wrap(err).
				BuildError()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if runErr := w.Run(watchCtx); runErr != nil {
				errCh <- issue.WrapWithOperation(runErr, "watch plugin location")
				cancel()
			}
		}()
	}

	wg.Wait()
	close(errCh)

	// First fatal watcher error wins; clean shutdown returns nil.
	for err := range errCh {
		if err != nil {
			reportError(err)
			return err
		}
	}
	return nil
}
