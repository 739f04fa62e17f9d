package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jduquenne/job-lens/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigPrecedenceFlagOverEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[command]
timeout = "10s"

[store]
environment = "production"
`)

	flagTimeout := 5 * time.Second
	flagEnv := "dev"
	cfg, _, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"JOBLENS_COMMAND_TIMEOUT": "20s",
			"JOBLENS_ENV":             "production",
			"JOBLENS_HOME":            t.TempDir(),
		},
		Flags: FlagOverrides{
			Timeout:     &flagTimeout,
			Environment: &flagEnv,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.Command.Timeout)
	require.Equal(t, storage.EnvDevelopment, cfg.Environment())
}

func TestLoadConfigPrecedenceEnvOverFile(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[command]
timeout = "10s"
`)

	cfg, report, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"JOBLENS_COMMAND_TIMEOUT": "20s",
			"JOBLENS_HOME":            t.TempDir(),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 20*time.Second, cfg.Command.Timeout)
	require.Contains(t, report.EnvOverrides, "JOBLENS_COMMAND_TIMEOUT")
}

func TestLoadConfigPrecedenceFileOverDefault(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[command]
timeout = "10s"
`)

	cfg, report, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env:        map[string]string{"JOBLENS_HOME": t.TempDir()},
	})
	require.NoError(t, err)
	require.True(t, report.FileLoaded)
	require.Equal(t, cfgPath, report.ConfigPath)
	require.Equal(t, 10*time.Second, cfg.Command.Timeout)
}

func TestLoadConfigFromTOMLParsesAllSupportedFields(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[store]
environment = "development"
data_dir = "/tmp/joblens-data"

[command]
timeout = "45s"

[logging]
level = "debug"
file = "/tmp/joblens.log"
max_size_mb = 42
max_files = 9

[export]
directory = "/tmp/joblens-exports"
`)

	cfg, _, err := Load(LoadOptions{
		ConfigPath: cfgPath,
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Store.Environment)
	require.Equal(t, "/tmp/joblens-data", cfg.Store.DataDir)
	require.Equal(t, 45*time.Second, cfg.Command.Timeout)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "/tmp/joblens.log", cfg.Logging.File)
	require.Equal(t, 42, cfg.Logging.MaxSizeMB)
	require.Equal(t, 9, cfg.Logging.MaxFiles)
	require.Equal(t, "/tmp/joblens-exports", cfg.Export.Directory)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, report, err := Load(LoadOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Env:        map[string]string{"JOBLENS_HOME": home},
	})
	require.NoError(t, err)
	require.False(t, report.FileLoaded)
	require.Equal(t, storage.EnvProduction, cfg.Environment())
	require.Equal(t, home, cfg.Store.DataDir)
	require.Equal(t, defaultCommandTimeout, cfg.Command.Timeout)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigNormalizesEnvironmentAlias(t *testing.T) {
	t.Parallel()

	cfg, _, err := Load(LoadOptions{
		ConfigPath: writeConfigFile(t, "[store]\nenvironment = \"prod\"\n"),
		Env:        map[string]string{"JOBLENS_HOME": t.TempDir()},
	})
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Store.Environment)
}

func TestLoadConfigValidationRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
	}{
		{name: "negative-timeout", contents: "[command]\ntimeout = \"-1s\"\n"},
		{name: "huge-timeout", contents: "[command]\ntimeout = \"1h\"\n"},
		{name: "bad-duration", contents: "[command]\ntimeout = \"soon\"\n"},
		{name: "unknown-environment", contents: "[store]\nenvironment = \"staging\"\n"},
		{name: "unknown-log-level", contents: "[logging]\nlevel = \"loud\"\n"},
		{name: "zero-log-size", contents: "[logging]\nmax_size_mb = 0\n"},
		{name: "malformed-toml", contents: "[store\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := Load(LoadOptions{
				ConfigPath: writeConfigFile(t, tt.contents),
				Env:        map[string]string{"JOBLENS_HOME": t.TempDir()},
			})
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigRejectsBadEnvNumber(t *testing.T) {
	t.Parallel()

	_, _, err := Load(LoadOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Env: map[string]string{
			"JOBLENS_HOME":          t.TempDir(),
			"JOBLENS_LOG_MAX_FILES": "many",
		},
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, "[export]\ndirectory = \"/tmp/from-env\"\n")

	cfg, _, err := Load(LoadOptions{
		Env: map[string]string{
			"JOBLENS_CONFIG_PATH": cfgPath,
			"JOBLENS_HOME":        t.TempDir(),
		},
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-env", cfg.Export.Directory)
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}
