package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/report"
	"github.com/papapumpkin/gantry/internal/schedule"
	"github.com/papapumpkin/gantry/internal/task"
	"github.com/papapumpkin/gantry/internal/telemetry"
)

// errConflicts makes the exit status non-zero when a scan finds conflicts,
// so the command can gate a CI job.
var errConflicts = errors.New("schedule has conflicts")

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Find tasks that start before their dependencies finish",
	Long: `Scans every finish-to-start dependency and reports tasks that start before
the dependency ends (plus lag), and dependencies on tasks that do not exist.

With --fix, each conflicting task is moved to the earliest legal start, keeping
its duration, and the project file is rewritten. Conflicts that survive a fix,
such as those inside a dependency cycle, are still reported.`,
	Args: cobra.NoArgs,
	RunE: withRuntime(runConflicts),
}

func init() {
	conflictsCmd.Flags().Bool("fix", false, "reschedule conflicting tasks")
	conflictsCmd.Flags().Bool("dry-run", false, "with --fix, report the changes without saving them")
	rootCmd.AddCommand(conflictsCmd)
}

func runConflicts(rt *runtime, cmd *cobra.Command, _ []string) error {
	fix, _ := cmd.Flags().GetBool("fix")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	if !fix {
		return checkConflicts(rt, store)
	}
	return fixConflicts(rt, store, !dryRun)
}

// checkConflicts reports conflicts in store and returns errConflicts when
// there are any.
func checkConflicts(rt *runtime, store *task.Store) error {
	r := schedule.DetectAllConflicts(store)
	rt.record(telemetry.KindConflictsDetected, "", map[string]int{
		"conflicts": len(r.Conflicts),
		"tasks":     len(r.TaskIDs),
	})

	if rt.jsonOutput() {
		if err := writeJSON(rt.out, toConflictsJSON(r, nil)); err != nil {
			return err
		}
	} else {
		s := report.ConflictStrategy{Styles: rt.styles}
		if _, err := fmt.Fprint(rt.out, s.Render(report.View{Tasks: store, Conflicts: r})); err != nil {
			return err
		}
	}
	if !r.Empty() {
		return fmt.Errorf("%w: %d on %d task(s)", errConflicts, len(r.Conflicts), len(r.TaskIDs))
	}
	return nil
}

// fixConflicts reschedules store, optionally saves it, and reports what
// moved plus any residual conflicts.
func fixConflicts(rt *runtime, store *task.Store, save bool) error {
	res := schedule.Resolve(store, schedule.WithLogger(rt.logger))
	for _, f := range res.Fixes {
		rt.record(telemetry.KindFixApplied, f.TaskID, map[string]string{
			"after":     f.DependencyID,
			"old_start": calendar.FormatDate(f.OldStart),
			"new_start": calendar.FormatDate(f.NewStart),
			"new_end":   calendar.FormatDate(f.NewEnd),
		})
	}

	if save && len(res.Fixes) > 0 {
		if err := rt.saveProject(store); err != nil {
			return err
		}
	}

	if rt.jsonOutput() {
		if err := writeJSON(rt.out, toConflictsJSON(res.Residual, res.Fixes)); err != nil {
			return err
		}
	} else {
		s := report.FixStrategy{Styles: rt.styles}
		if _, err := fmt.Fprint(rt.out, s.Render(report.View{Tasks: store, Resolution: res})); err != nil {
			return err
		}
	}
	if !res.Residual.Empty() {
		return fmt.Errorf("%w: %d left after fixing", errConflicts, len(res.Residual.Conflicts))
	}
	return nil
}
