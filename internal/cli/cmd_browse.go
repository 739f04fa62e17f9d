package cli

import (
	"context"
	"os"

	"github.com/Jduquenne/job-lens/internal/tui"
	"github.com/spf13/cobra"
)

func newBrowseCommand(deps commandDeps) *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse applications in an interactive terminal view",
		Example: "  joblens browse\n" +
			"  joblens browse --active --status interview",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("browse does not accept positional arguments")
			}
			if !isTerminalFn(os.Stdin) || !isTerminalFn(os.Stdout) {
				return usageErrorf("browse requires an interactive terminal; use ls instead")
			}
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withRuntime(cmd, deps, func(_ context.Context, env runtimeEnv) error {
				return tui.Run(tui.Options{
					Client: tuiClient{apps: env.apps, timeout: env.cfg.Command.Timeout},
					Filter: filter,
				})
			})
		},
	}
	flags.bind(cmd)
	return cmd
}
