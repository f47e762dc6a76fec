package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/graph"
	"github.com/papapumpkin/gantry/internal/report"
	"github.com/papapumpkin/gantry/internal/task"
	"github.com/papapumpkin/gantry/internal/telemetry"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Inspect and edit task dependencies",
}

var depsEffectiveCmd = &cobra.Command{
	Use:   "effective [TASK]",
	Short: "List the dependencies drawn for visible tasks",
	Long: `Lists effective dependencies. A leaf keeps its own edges. A collapsed summary
carries the external dependencies of its hidden descendants as derived edges.
An expanded summary draws none.

With TASK, only that task's effective dependencies are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: withRuntime(runDepsEffective),
}

var depsCheckCmd = &cobra.Command{
	Use:   "check FROM TO",
	Short: "Check whether FROM may depend on TO",
	Args:  cobra.ExactArgs(2),
	RunE:  withRuntime(runDepsCheck),
}

var depsLinkCmd = &cobra.Command{
	Use:   "link FROM TO",
	Short: "Make FROM depend on TO and save the project",
	Args:  cobra.ExactArgs(2),
	RunE:  withRuntime(runDepsLink),
}

var depsUnlinkCmd = &cobra.Command{
	Use:   "unlink FROM TO",
	Short: "Remove FROM's dependency on TO and save the project",
	Args:  cobra.ExactArgs(2),
	RunE:  withRuntime(runDepsUnlink),
}

func init() {
	depsLinkCmd.Flags().Int("lag", 0, "days between TO finishing and FROM starting")
	depsCmd.AddCommand(depsEffectiveCmd, depsCheckCmd, depsLinkCmd, depsUnlinkCmd)
	rootCmd.AddCommand(depsCmd)
}

func runDepsEffective(rt *runtime, _ *cobra.Command, args []string) error {
	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	eng := graph.New(store, graph.WithLogger(rt.logger))

	var all []graph.TaskEdges
	if len(args) == 1 {
		if !store.Has(args[0]) {
			return fmt.Errorf("%w: %s", graph.ErrTaskNotFound, args[0])
		}
		if edges := eng.EffectiveDependencies(args[0]); len(edges) > 0 {
			all = []graph.TaskEdges{{TaskID: args[0], Edges: edges}}
		}
	} else {
		all = eng.VisibleEffectiveDependencies()
	}

	if rt.jsonOutput() {
		var flat []graph.Edge
		for _, te := range all {
			flat = append(flat, te.Edges...)
		}
		return writeJSON(rt.out, toEdgesJSON(flat))
	}
	s := report.EdgesStrategy{Styles: rt.styles}
	_, err = fmt.Fprint(rt.out, s.Render(report.View{Tasks: store, Edges: all}))
	return err
}

func runDepsCheck(rt *runtime, _ *cobra.Command, args []string) error {
	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	eng := graph.New(store, graph.WithLogger(rt.logger))
	from, to := args[0], args[1]

	checkErr := eng.CanAddDependency(from, to)
	if rt.jsonOutput() {
		out := struct {
			From    string `json:"from"`
			To      string `json:"to"`
			Allowed bool   `json:"allowed"`
			Reason  string `json:"reason,omitempty"`
		}{from, to, checkErr == nil, graph.Rejection(checkErr)}
		if err := writeJSON(rt.out, out); err != nil {
			return err
		}
		return checkErr
	}
	if checkErr != nil {
		fmt.Fprintf(rt.out, "%s %s depends on %s: %s\n",
			rt.styles.Danger.Render("✗"), from, to, graph.Rejection(checkErr))
		return checkErr
	}
	fmt.Fprintf(rt.out, "%s %s may depend on %s\n", rt.styles.Success.Render("✓"), from, to)
	return nil
}

func runDepsLink(rt *runtime, cmd *cobra.Command, args []string) error {
	lag, _ := cmd.Flags().GetInt("lag")
	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	eng := graph.New(store, graph.WithLogger(rt.logger))
	from, to := args[0], args[1]

	if err := link(rt, eng, from, to, lag); err != nil {
		return err
	}
	if err := rt.saveProject(store); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "%s %s %s %s\n", rt.styles.Success.Render("✓"), from, report.StrokeNative, to)
	return nil
}

// link adds one gated edge and records the outcome.
func link(rt *runtime, eng *graph.Engine, from, to string, lag int) error {
	if err := eng.Link(from, to, lag); err != nil {
		rt.record(telemetry.KindDependencyRejected, from, map[string]string{
			"to":     to,
			"reason": graph.Rejection(err),
		})
		return err
	}
	rt.record(telemetry.KindDependencyAdded, from, map[string]any{"to": to, "lag": lag})
	return nil
}

// linkAll makes from depend on each of targets, stopping at the first
// rejection.
func linkAll(rt *runtime, store *task.Store, from string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}
	eng := graph.New(store, graph.WithLogger(rt.logger))
	for _, to := range targets {
		if err := link(rt, eng, from, strings.TrimSpace(to), 0); err != nil {
			return err
		}
	}
	return nil
}

func runDepsUnlink(rt *runtime, _ *cobra.Command, args []string) error {
	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	from, to := args[0], args[1]
	if !store.RemoveDependency(from, to) {
		return fmt.Errorf("deps: %s does not depend on %s", from, to)
	}
	if err := rt.saveProject(store); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "removed %s %s %s\n", from, report.StrokeNative, to)
	return nil
}
