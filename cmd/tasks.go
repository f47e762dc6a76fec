package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/task"
	"github.com/papapumpkin/gantry/internal/telemetry"
)

var addCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a task to the project",
	Long: `Adds a task and saves the project. Either --end or --duration fixes the
length; with neither the task lasts one day. Dependencies named with --after
are checked the same way "deps link" checks them.`,
	Args: cobra.ExactArgs(1),
	RunE: withRuntime(runAdd),
}

var deleteCmd = &cobra.Command{
	Use:   "delete TASK",
	Short: "Delete a task and every reference to it",
	Long: `Deletes a task and strips it from other tasks' dependencies. Without
--cascade its children move up to its parent; with --cascade they are deleted too.`,
	Args: cobra.ExactArgs(1),
	RunE: withRuntime(runDelete),
}

func init() {
	f := addCmd.Flags()
	f.String("id", "", "task id (default: generated)")
	f.String("start", "", "start date YYYY-MM-DD (required)")
	f.String("end", "", "end date YYYY-MM-DD")
	f.Int("duration", 0, "duration in days")
	f.String("duration-type", string(calendar.CalendarDays), "calendar or business days")
	f.String("parent", "", "parent task id")
	f.Bool("milestone", false, "mark the task as a milestone")
	f.StringSlice("after", nil, "ids of tasks this task depends on")
	_ = addCmd.MarkFlagRequired("start")

	deleteCmd.Flags().Bool("cascade", false, "delete the whole subtree (default from config)")

	rootCmd.AddCommand(addCmd, deleteCmd)
}

func runAdd(rt *runtime, cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	id, _ := f.GetString("id")
	start, _ := f.GetString("start")
	end, _ := f.GetString("end")
	duration, _ := f.GetInt("duration")
	durationType, _ := f.GetString("duration-type")
	parent, _ := f.GetString("parent")
	milestone, _ := f.GetBool("milestone")
	after, _ := f.GetStringSlice("after")

	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	if parent != "" && !store.Has(parent) {
		return fmt.Errorf("%w: parent %s", task.ErrTaskNotFound, parent)
	}

	rec := task.Record{
		ID:           id,
		Name:         strings.TrimSpace(args[0]),
		Start:        start,
		End:          end,
		DurationType: durationType,
		IsMilestone:  milestone,
		ParentID:     parent,
	}
	if end == "" {
		if duration < 1 {
			duration = 1
		}
		rec.Duration = &duration
	}
	t, err := task.Normalize(rec)
	if err != nil {
		return err
	}
	if err := store.Add(t); err != nil {
		return err
	}

	if err := linkAll(rt, store, t.ID, after); err != nil {
		return err
	}
	if err := rt.saveProject(store); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "%s added %s %s..%s\n", rt.styles.Success.Render("✓"), t.ID,
		calendar.FormatDate(t.Start), calendar.FormatDate(t.End))
	return nil
}

func runDelete(rt *runtime, cmd *cobra.Command, args []string) error {
	cascade := rt.cfg.Cascade
	if cmd.Flags().Changed("cascade") {
		cascade, _ = cmd.Flags().GetBool("cascade")
	}

	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	removed, err := store.Delete(args[0], cascade)
	if err != nil {
		return err
	}
	for _, id := range removed {
		rt.record(telemetry.KindTaskDeleted, id, map[string]bool{"cascade": cascade})
	}
	if err := rt.saveProject(store); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "deleted %s\n", strings.Join(removed, ", "))
	return nil
}
