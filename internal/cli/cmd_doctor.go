package cli

import (
	"context"
	"fmt"
	"strings"

	debugpkg "github.com/Jduquenne/job-lens/internal/debug"
	logpkg "github.com/Jduquenne/job-lens/internal/log"
	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/Jduquenne/job-lens/internal/storage"
	"github.com/spf13/cobra"
)

func newDoctorCommand(deps commandDeps) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check config and catalog health",
		Example: "  joblens doctor\n" +
			"  joblens doctor --output ./joblens-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("doctor does not accept positional arguments")
			}

			bundle := debugpkg.NewBundle()
			bundle.Version = map[string]any{
				"version":    deps.build.Version,
				"commit":     deps.build.Commit,
				"build_time": deps.build.BuildTime,
			}
			runDoctorChecks(cmd, deps, &bundle)

			if path := strings.TrimSpace(outputPath); path != "" {
				if err := debugpkg.WriteBundle(path, bundle); err != nil {
					return mapCommandError(err)
				}
			}

			if deps.globals.JSON {
				if err := printJSON(deps.out, bundle); err != nil {
					return mapCommandError(err)
				}
			} else if !deps.globals.Quiet {
				for _, check := range bundle.Checks {
					state := "ok"
					if !check.OK {
						state = "fail"
					}
					if _, err := fmt.Fprintf(deps.out, "%s: %s (%s)\n", check.Name, state, check.Message); err != nil {
						return mapCommandError(err)
					}
				}
			}

			if !bundle.Healthy() {
				return asExitError(ExitCodeGeneric, fmt.Errorf("doctor: one or more checks failed"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Also write the diagnostics bundle to this JSON file")
	return cmd
}

func runDoctorChecks(cmd *cobra.Command, deps commandDeps, bundle *debugpkg.Bundle) {
	cfg, report, err := loadConfigFn(configLoadOptions(cmd, deps.globals))
	if err != nil {
		bundle.Fail("config", err)
		return
	}
	source := "defaults"
	if report.FileLoaded {
		source = report.ConfigPath
	}
	bundle.Pass("config", "loaded from "+source)

	store, err := storage.Open(storage.Options{
		DataDir:     cfg.Store.DataDir,
		Environment: cfg.Environment(),
		Logger:      logpkg.Discard(),
	})
	if err != nil {
		bundle.Fail("catalog", err)
		return
	}
	defer store.Close()
	bundle.Pass("catalog", store.Path())

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Command.Timeout)
	defer cancel()

	apps, readReport, err := store.Applications.GetAllWithReport(ctx)
	if err != nil {
		bundle.Fail("records", err)
		return
	}
	bundle.Catalog = map[string]any{
		"environment":     string(store.Environment()),
		"catalog_version": storage.CurrentCatalogVersion(),
		"schema_version":  record.CurrentSchemaVersion,
		"records":         len(apps),
		"migrated":        readReport.Migrated,
		"read_failures":   len(readReport.Failures),
	}
	switch {
	case len(readReport.Failures) > 0:
		ids := make([]string, 0, len(readReport.Failures))
		for _, failure := range readReport.Failures {
			ids = append(ids, failure.ID)
		}
		bundle.Fail("records", fmt.Errorf("%d unreadable records: %s", len(ids), strings.Join(ids, ", ")))
	case readReport.SaveFailed:
		bundle.Fail("records", fmt.Errorf("migrated records were not saved: %w", readReport.SaveErr))
	default:
		bundle.Pass("records", fmt.Sprintf("%d readable, %d migrated", len(apps), readReport.Migrated))
	}
}
