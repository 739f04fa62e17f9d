package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Jduquenne/job-lens/internal/app"
	"github.com/Jduquenne/job-lens/internal/config"
	logpkg "github.com/Jduquenne/job-lens/internal/log"
	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/Jduquenne/job-lens/internal/storage"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loadConfigFn = config.Load
	isTerminalFn = func(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }
	confirmFn    = confirmPrompt
)

type runtimeEnv struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *storage.Store
	apps    *app.ApplicationService
	backups *app.BackupService
}

// withRuntime loads config, builds the logger and opens the store once for
// the duration of a single command.
func withRuntime(cmd *cobra.Command, deps commandDeps, fn func(context.Context, runtimeEnv) error) error {
	cfg, report, err := loadConfigFn(configLoadOptions(cmd, deps.globals))
	if err != nil {
		return mapCommandError(fmt.Errorf("load config: %w", err))
	}

	logger, closer, err := logpkg.New(logpkg.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return mapCommandError(fmt.Errorf("init logging: %w", err))
	}
	defer closer.Close()
	logger.Debug("config loaded",
		"path", report.ConfigPath,
		"file_loaded", report.FileLoaded,
		"env_overrides", report.EnvOverrides,
	)

	store, err := storage.Open(storage.Options{
		DataDir:     cfg.Store.DataDir,
		Environment: cfg.Environment(),
		Logger:      logger,
	})
	if err != nil {
		logger.Error("open catalog failed", "error", err)
		return mapCommandError(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close catalog failed", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Command.Timeout)
	defer cancel()

	env := runtimeEnv{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		apps:    app.NewApplicationService(store.Applications, nil),
		backups: app.NewBackupService(store.Applications),
	}
	return mapCommandError(fn(ctx, env))
}

func configLoadOptions(cmd *cobra.Command, globals *GlobalOptions) config.LoadOptions {
	opts := config.LoadOptions{}
	if globals == nil {
		return opts
	}
	opts.ConfigPath = strings.TrimSpace(globals.ConfigPath)

	flags := cmd.Flags()
	if flags.Changed("env") {
		value := strings.TrimSpace(globals.Environment)
		opts.Flags.Environment = &value
	}
	if flags.Changed("data-dir") {
		value := strings.TrimSpace(globals.DataDir)
		opts.Flags.DataDir = &value
	}
	if flags.Changed("log-level") {
		value := strings.TrimSpace(globals.LogLevel)
		opts.Flags.LogLevel = &value
	}
	if flags.Changed("timeout") {
		value := globals.Timeout
		opts.Flags.Timeout = &value
	}
	return opts
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func printLine(deps commandDeps, format string, args ...any) error {
	if deps.globals.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(deps.out, format+"\n", args...)
	return err
}

// confirmDestructive asks before a command replaces or wipes the collection.
// Non-interactive callers must pass --yes.
func confirmDestructive(cmd *cobra.Command, deps commandDeps, prompt string) error {
	if deps.globals.Yes {
		return nil
	}
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminalFn(in) {
		return usageErrorf("%s needs confirmation; pass --yes when not running in a terminal", cmd.CommandPath())
	}
	confirmed, err := confirmFn(prompt)
	if err != nil {
		return err
	}
	if !confirmed {
		return errAborted
	}
	return nil
}

func confirmPrompt(title string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	return confirmed, err
}

// tuiClient adapts ApplicationService to the browser. Each call gets its own
// deadline because a browse session outlives a single command timeout.
type tuiClient struct {
	apps    *app.ApplicationService
	timeout time.Duration
}

func (c tuiClient) List(ctx context.Context, filter record.Filter) ([]record.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	result, err := c.apps.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return result.Applications, nil
}

func (c tuiClient) SetStatus(ctx context.Context, id string, status record.Status) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.apps.Edit(ctx, app.UpdateApplicationRequest{ID: id, Status: &status})
	return err
}

func (c tuiClient) SetArchived(ctx context.Context, id string, archived bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.apps.Edit(ctx, app.UpdateApplicationRequest{ID: id, Archived: &archived})
	return err
}

func (c tuiClient) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.apps.Delete(ctx, id)
}
