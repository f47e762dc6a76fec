package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/gantry/internal/kvstore"
	"github.com/papapumpkin/gantry/internal/taskfile"
	"github.com/papapumpkin/gantry/internal/telemetry"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save and restore named copies of the project",
	Long: `Snapshots are whole-project copies kept in a SQLite database (--db, default
gantry.db) under a name of your choosing.`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save KEY",
	Short: "Save the project under KEY, replacing any earlier snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  withRuntime(runSnapshotSave),
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load KEY",
	Short: "Write snapshot KEY to the project file (or --out)",
	Args:  cobra.ExactArgs(1),
	RunE:  withRuntime(runSnapshotLoad),
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots",
	Args:  cobra.NoArgs,
	RunE:  withRuntime(runSnapshotList),
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Delete snapshot KEY",
	Args:  cobra.ExactArgs(1),
	RunE:  withRuntime(runSnapshotDelete),
}

func init() {
	snapshotLoadCmd.Flags().String("out", "", "write to this file instead of the project file")
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd, snapshotListCmd, snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// openSnapshots opens the configured snapshot database.
func openSnapshots(rt *runtime, cmd *cobra.Command) (*kvstore.Store, error) {
	db, err := kvstore.Open(cmd.Context(), rt.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	rt.logger.Debug("snapshot database open", "path", rt.cfg.DBPath)
	return db, nil
}

func runSnapshotSave(rt *runtime, cmd *cobra.Command, args []string) error {
	store, err := rt.loadProject()
	if err != nil {
		return err
	}
	db, err := openSnapshots(rt, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Save(cmd.Context(), args[0], store); err != nil {
		return err
	}
	rt.record(telemetry.KindSnapshotSaved, "", map[string]any{"key": args[0], "tasks": store.Len()})
	fmt.Fprintf(rt.out, "%s saved %q (%d tasks)\n", rt.styles.Success.Render("✓"), args[0], store.Len())
	return nil
}

func runSnapshotLoad(rt *runtime, cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		path, err := rt.projectPath()
		if err != nil {
			return err
		}
		out = path
	}

	db, err := openSnapshots(rt, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := db.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := taskfile.Save(out, store); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "%s restored %q to %s (%d tasks)\n", rt.styles.Success.Render("✓"), args[0], out, store.Len())
	return nil
}

func runSnapshotList(rt *runtime, cmd *cobra.Command, _ []string) error {
	db, err := openSnapshots(rt, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	metas, err := db.List(cmd.Context())
	if err != nil {
		return err
	}

	if rt.jsonOutput() {
		type metaJSON struct {
			Key       string `json:"key"`
			Tasks     int    `json:"tasks"`
			UpdatedAt string `json:"updated_at"`
		}
		out := make([]metaJSON, len(metas))
		for i, m := range metas {
			out[i] = metaJSON{m.Key, m.TaskCount, m.UpdatedAt.Format(time.RFC3339)}
		}
		return writeJSON(rt.out, out)
	}

	if len(metas) == 0 {
		fmt.Fprintln(rt.out, "No snapshots.")
		return nil
	}
	for _, m := range metas {
		fmt.Fprintf(rt.out, "  %-24s %4d tasks  %s\n", m.Key, m.TaskCount,
			rt.styles.Muted.Render(m.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	return nil
}

func runSnapshotDelete(rt *runtime, cmd *cobra.Command, args []string) error {
	db, err := openSnapshots(rt, cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	rt.record(telemetry.KindSnapshotDeleted, "", map[string]string{"key": args[0]})
	fmt.Fprintf(rt.out, "deleted snapshot %q\n", args[0])
	return nil
}
