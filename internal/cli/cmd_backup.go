package cli

import (
	"context"
	"strings"

	"github.com/Jduquenne/job-lens/internal/app"
	"github.com/spf13/cobra"
)

func newExportCommand(deps commandDeps) *cobra.Command {
	var (
		output string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every application to a JSON backup file",
		Example: "  joblens export\n" +
			"  joblens export --dir ~/backups\n" +
			"  joblens export --output - > applications.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("export does not accept positional arguments")
			}
			if strings.TrimSpace(output) != "" && strings.TrimSpace(dir) != "" {
				return usageErrorf("export accepts --output or --dir, not both")
			}
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				if output == "-" {
					_, err := env.backups.WriteExport(ctx, deps.out)
					return err
				}
				req := app.ExportRequest{OutputPath: output, Directory: dir}
				if req.OutputPath == "" && req.Directory == "" {
					req.Directory = env.cfg.Export.Directory
				}
				result, err := env.backups.Export(ctx, req)
				if err != nil {
					return err
				}
				env.logger.Info("exported applications", "path", result.Path, "count", result.Count)
				if deps.globals.JSON {
					return printJSON(deps.out, result)
				}
				return printLine(deps, "exported %d applications to %s", result.Count, result.Path)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path, or - for stdout")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory for the dated backup file")
	return cmd
}

func newImportCommand(deps commandDeps) *cobra.Command {
	var atomic bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace every application with the contents of a JSON backup",
		Long: "Import reads a JSON array of application records and replaces the whole collection.\n" +
			"Records are stored as-is and upgraded on the next read. By default a failing record\n" +
			"stops the import and keeps the records written before it; --atomic rolls back instead.",
		Example: "  joblens import job-lens-backup-2024-07-14.json\n" +
			"  joblens --yes import --atomic backup.json\n" +
			"  cat backup.json | joblens --yes import -",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("import requires exactly one file path (use - for stdin)")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if path == "-" && !deps.globals.Yes {
				return usageErrorf("import from stdin requires --yes")
			}
			if err := confirmDestructive(cmd, deps, "Replace all applications with "+path+"?"); err != nil {
				return mapCommandError(err)
			}
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				var (
					result *app.ImportResult
					err    error
				)
				if path == "-" {
					result, err = env.backups.ImportFrom(ctx, cmd.InOrStdin(), atomic)
				} else {
					result, err = env.backups.Import(ctx, app.ImportRequest{InputPath: path, Atomic: atomic})
				}
				if err != nil {
					env.logger.Warn("import failed", "path", path, "atomic", atomic, "error", err)
					return err
				}
				env.logger.Info("imported applications", "path", path, "count", result.Imported, "atomic", atomic)
				if deps.globals.JSON {
					return printJSON(deps.out, result)
				}
				return printLine(deps, "imported %d applications", result.Imported)
			})
		},
	}
	cmd.Flags().BoolVar(&atomic, "atomic", false, "Roll back the whole import when any record fails")
	return cmd
}

func newClearCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every application",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("clear does not accept positional arguments")
			}
			if err := confirmDestructive(cmd, deps, "Delete every application?"); err != nil {
				return mapCommandError(err)
			}
			return withRuntime(cmd, deps, func(ctx context.Context, env runtimeEnv) error {
				count, err := env.store.Applications.Count(ctx)
				if err != nil {
					return err
				}
				if err := env.backups.Clear(ctx); err != nil {
					return err
				}
				env.logger.Info("cleared applications", "count", count)
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"cleared": count})
				}
				return printLine(deps, "cleared %d applications", count)
			})
		},
	}
}
