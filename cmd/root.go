package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/gantry/internal/config"
	"github.com/papapumpkin/gantry/internal/report"
	"github.com/papapumpkin/gantry/internal/task"
	"github.com/papapumpkin/gantry/internal/taskfile"
	"github.com/papapumpkin/gantry/internal/telemetry"
)

// errNoProject is returned by commands that need a project file when none
// was given by flag, env, or config.
var errNoProject = errors.New("no project file: pass --project or set GANTRY_PROJECT")

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Dependency engine for Gantt and PERT schedules",
	Long: `Gantry checks a project's task dependencies: it lays tasks out in PERT
levels, finds tasks that start before their dependencies finish, reschedules
them, and guards every new dependency against cycles and hierarchy conflicts.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .gantry.yaml)")
	pf.StringP("project", "p", "", "project file (.json, .yaml, .yml, .toml)")
	pf.String("db", "", "snapshot database path")
	pf.String("format", "", "output format: text or json")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("telemetry", "", "append JSONL audit events to this file")
	pf.Bool("no-color", false, "disable colored output")

	_ = viper.BindPFlag("project", pf.Lookup("project"))
	_ = viper.BindPFlag("db_path", pf.Lookup("db"))
	_ = viper.BindPFlag("format", pf.Lookup("format"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("telemetry_path", pf.Lookup("telemetry"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".gantry")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("GANTRY")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// runtime bundles what every subcommand needs once flags and config have
// been resolved.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	emitter *telemetry.Emitter
	styles  report.Styles
	out     io.Writer
}

// newRuntime loads config and builds the logger, telemetry emitter, and
// styles for cmd. Callers must Close the result.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.Color = false
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))

	var emitter *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		emitter, err = telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return nil, err
		}
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		emitter: emitter,
		styles:  report.NewStyles(cfg.Color),
		out:     cmd.OutOrStdout(),
	}, nil
}

// Close flushes and closes the telemetry file, if any.
func (rt *runtime) Close() error {
	return rt.emitter.Close()
}

// record emits a telemetry event and logs, rather than returns, a failure:
// the audit trail never blocks the command it describes.
func (rt *runtime) record(kind, taskID string, data any) {
	if err := rt.emitter.Record(kind, rt.cfg.Project, taskID, data); err != nil {
		rt.logger.Warn("telemetry write failed", "kind", kind, "error", err)
	}
}

func (rt *runtime) projectPath() (string, error) {
	if rt.cfg.Project == "" {
		return "", errNoProject
	}
	return rt.cfg.Project, nil
}

// loadProject reads the configured project file.
func (rt *runtime) loadProject() (*task.Store, error) {
	path, err := rt.projectPath()
	if err != nil {
		return nil, err
	}
	store, err := taskfile.Load(path, task.WithLogger(rt.logger))
	if err != nil {
		return nil, err
	}
	rt.logger.Debug("project loaded", "path", path, "tasks", store.Len())
	return store, nil
}

// saveProject writes store back to the configured project file in the
// format its extension names.
func (rt *runtime) saveProject(store *task.Store) error {
	path, err := rt.projectPath()
	if err != nil {
		return err
	}
	if err := taskfile.Save(path, store); err != nil {
		return err
	}
	rt.logger.Info("project saved", "path", path, "tasks", store.Len())
	return nil
}

func (rt *runtime) jsonOutput() bool {
	return rt.cfg.Format == config.FormatJSON
}

// withRuntime adapts a runtime-aware handler to cobra's RunE.
func withRuntime(fn func(rt *runtime, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(rt, cmd, args)
	}
}
