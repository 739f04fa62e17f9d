package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type GlobalOptions struct {
	JSON        bool
	Quiet       bool
	Yes         bool
	Environment string
	DataDir     string
	ConfigPath  string
	LogLevel    string
	Timeout     time.Duration
}

type commandDeps struct {
	out     io.Writer
	build   BuildInfo
	globals *GlobalOptions
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{}
	deps := commandDeps{out: out, build: build, globals: globals}

	cmd := &cobra.Command{
		Use:           "joblens",
		Short:         "Track job applications from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON output")
	flags.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.BoolVarP(&globals.Yes, "yes", "y", false, "Skip confirmation prompts for destructive commands")
	flags.StringVar(&globals.Environment, "env", "", "Catalog environment: development or production")
	flags.StringVar(&globals.DataDir, "data-dir", "", "Directory holding the catalog files")
	flags.StringVar(&globals.ConfigPath, "config", "", "Path to config.toml")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.DurationVar(&globals.Timeout, "timeout", 0, "Per-command timeout (for example 30s)")

	cmd.AddCommand(newAddCommand(deps))
	cmd.AddCommand(newEditCommand(deps))
	cmd.AddCommand(newShowCommand(deps))
	cmd.AddCommand(newListCommand(deps))
	cmd.AddCommand(newRemoveCommand(deps))
	cmd.AddCommand(newStatsCommand(deps))
	cmd.AddCommand(newExportCommand(deps))
	cmd.AddCommand(newImportCommand(deps))
	cmd.AddCommand(newClearCommand(deps))
	cmd.AddCommand(newBrowseCommand(deps))
	cmd.AddCommand(newLabelsCommand(deps))
	cmd.AddCommand(newDoctorCommand(deps))
	cmd.AddCommand(newVersionCommand(deps))
	cmd.InitDefaultCompletionCmd()
	return cmd
}
