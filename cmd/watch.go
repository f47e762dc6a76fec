package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check conflicts every time the project file changes",
	Long: `Scans the project once, then again after every save until interrupted.
A file that fails to parse mid-edit is reported and the next save is awaited.`,
	Args: cobra.NoArgs,
	RunE: withRuntime(runWatch),
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(rt *runtime, cmd *cobra.Command, _ []string) error {
	path, err := rt.projectPath()
	if err != nil {
		return err
	}
	w, err := watch.New(path)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.logger.Info("watching project", "path", w.Path)
	rescan(rt)
	return watchLoop(ctx, rt, w.Changes)
}

// watchLoop rescans on every change until ctx is done or changes closes.
func watchLoop(ctx context.Context, rt *runtime, changes <-chan watch.Change) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			rt.logger.Debug("project changed", "kind", c.Kind, "path", c.Path)
			if c.Kind == watch.ChangeRemoved {
				rt.logger.Warn("project file removed; waiting for it to return", "path", c.Path)
				continue
			}
			rescan(rt)
		}
	}
}

// rescan reloads the project and prints its conflicts. Failures are logged
// so a half-written file does not end the watch.
func rescan(rt *runtime) {
	store, err := rt.loadProject()
	if err != nil {
		rt.logger.Warn("project unreadable", "error", err)
		return
	}
	if err := checkConflicts(rt, store); err != nil && !errors.Is(err, errConflicts) {
		rt.logger.Warn("conflict scan failed", "error", err)
	}
	fmt.Fprintln(rt.out)
}
