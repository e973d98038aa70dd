package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCommand(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "watch [flags] FILE...",
		Short: "Re-run a query whenever the files change",
		Example: `  logq watch app.log --level ERROR
  logq watch "logs/*.log" -s timeout -o text`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.queryParams(f)
			if err != nil {
				return err
			}
			paths, err := expandPatterns(args)
			if err != nil {
				return err
			}
			for _, p := range paths {
				if p == stdinPath {
					return fmt.Errorf("watch needs files, not standard input")
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return watchFiles(ctx, paths, a.settings.Debounce, func() error {
				fmt.Fprintf(out, "--- %s ---\n", time.Now().Format(time.TimeOnly))
				return a.printQuery(cmd, paths, params)
			})
		},
	}
	addQueryFlags(cmd, &f)
	cmd.Flags().Duration("debounce", 200*time.Millisecond, "wait this long after a change before re-running")
	configFlag(cmd.Flags(), "debounce", "debounce")
	return cmd
}

// watchFiles calls run once, then again after each burst of changes to paths,
// until ctx is done. The parent directories are watched so files replaced by
// rename (as editors and log rotation do) keep being followed.
func watchFiles(ctx context.Context, paths []string, debounce time.Duration, run func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("cannot watch %s: %w", dir, err)
		}
	}

	if err := run(); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("watcher error: %v", err)
		case <-pending:
			pending = nil
			if err := run(); err != nil {
				logger.Warnf("query failed: %v", err)
			}
		}
	}
}
