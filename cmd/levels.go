package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/graph"
	"github.com/papapumpkin/gantry/internal/report"
	"github.com/papapumpkin/gantry/internal/task"
	"github.com/papapumpkin/gantry/internal/telemetry"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Lay tasks out in PERT levels",
	Long: `Assigns every task a level so that each task sits strictly above all of its
dependencies. Tasks caught in a dependency cycle share one extra level at the end.

With --visible, tasks hidden under a collapsed summary are left out and the
summary stands in for them. With --leaves, only tasks without children are laid out.`,
	Args: cobra.NoArgs,
	RunE: withRuntime(runLevels),
}

var criticalCmd = &cobra.Command{
	Use:   "critical",
	Short: "Show the longest duration chain through the leaf tasks",
	Args:  cobra.NoArgs,
	RunE:  withRuntime(runCritical),
}

func init() {
	levelsCmd.Flags().Bool("visible", false, "lay out only visible tasks")
	levelsCmd.Flags().Bool("leaves", false, "lay out only leaf tasks")
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(criticalCmd)
}

func runLevels(rt *runtime, cmd *cobra.Command, _ []string) error {
	visible, _ := cmd.Flags().GetBool("visible")
	leaves, _ := cmd.Flags().GetBool("leaves")
	if visible && leaves {
		return errors.New("levels: --visible and --leaves are mutually exclusive")
	}

	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	eng := graph.New(store, graph.WithLogger(rt.logger))

	var keep graph.Filter
	switch {
	case visible:
		keep = eng.Visible()
	case leaves:
		keep = graph.LeavesOnly
	}
	return writeLevels(rt, rt.out, store, eng.Levels(keep))
}

func writeLevels(rt *runtime, w io.Writer, store *task.Store, layout graph.Layout) error {
	if len(layout.Cyclic) > 0 {
		rt.record(telemetry.KindLevelsCyclic, "", map[string]any{"tasks": layout.Cyclic})
	}
	if rt.jsonOutput() {
		return writeJSON(w, toLayoutJSON(layout))
	}
	s := report.LevelsStrategy{Styles: rt.styles}
	_, err := fmt.Fprint(w, s.Render(report.View{Tasks: store, Layout: layout}))
	return err
}

func runCritical(rt *runtime, _ *cobra.Command, _ []string) error {
	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	eng := graph.New(store, graph.WithLogger(rt.logger))
	layout := eng.Levels(graph.LeavesOnly)

	if rt.jsonOutput() {
		return writeJSON(rt.out, struct {
			Path []string `json:"path"`
			Days int      `json:"days"`
		}{layout.CriticalPath, layout.CriticalDays})
	}
	s := report.CriticalPathStrategy{Styles: rt.styles}
	_, err = fmt.Fprint(rt.out, s.Render(report.View{Tasks: store, Layout: layout}))
	return err
}
