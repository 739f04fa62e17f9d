package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/Jduquenne/job-lens/internal/storage"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultEnvironment    = string(storage.EnvProduction)
	defaultCommandTimeout = 30 * time.Second
	defaultLogLevel       = "warn"
	defaultLogMaxSizeMB   = 10
	defaultLogMaxFiles    = 5
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Store   StoreConfig   `toml:"store"`
	Command CommandConfig `toml:"command"`
	Logging LoggingConfig `toml:"logging"`
	Export  ExportConfig  `toml:"export"`
}

type StoreConfig struct {
	Environment string `toml:"environment"`
	DataDir     string `toml:"data_dir"`
}

type CommandConfig struct {
	Timeout time.Duration `toml:"timeout"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type ExportConfig struct {
	Directory string `toml:"directory"`
}

type LoadOptions struct {
	ConfigPath string
	Env        map[string]string
	Flags      FlagOverrides
}

type FlagOverrides struct {
	Environment *string
	DataDir     *string
	Timeout     *time.Duration
	LogLevel    *string
}

// LoadReport records where values came from; the CLI logs it at debug level.
type LoadReport struct {
	ConfigPath   string
	FileLoaded   bool
	EnvOverrides []string
}

func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Environment: defaultEnvironment,
			DataDir:     "",
		},
		Command: CommandConfig{
			Timeout: defaultCommandTimeout,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			File:      "",
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
		Export: ExportConfig{
			Directory: "",
		},
	}
}

func Load(opts LoadOptions) (Config, LoadReport, error) {
	cfg := DefaultConfig()
	report := LoadReport{EnvOverrides: []string{}}

	configPath, err := resolveConfigPath(opts)
	if err != nil {
		return Config{}, report, fmt.Errorf("resolve config path: %w", err)
	}
	report.ConfigPath = configPath

	loaded, err := loadAndApplyFile(configPath, &cfg)
	if err != nil {
		return Config{}, report, err
	}
	report.FileLoaded = loaded

	if err := applyEnvOverrides(&cfg, opts, &report); err != nil {
		return Config{}, report, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if cfg.Store.DataDir == "" {
		dataDir, err := defaultDataDir(opts)
		if err != nil {
			return Config{}, report, err
		}
		cfg.Store.DataDir = dataDir
	}

	if err := validate(&cfg); err != nil {
		return Config{}, report, err
	}

	return cfg, report, nil
}

// Environment returns the validated store environment.
func (c Config) Environment() storage.Environment {
	env, err := storage.ParseEnvironment(c.Store.Environment)
	if err != nil {
		return storage.Environment(defaultEnvironment)
	}
	return env
}

type rawConfig struct {
	Store   *rawStore   `toml:"store"`
	Command *rawCommand `toml:"command"`
	Logging *rawLogging `toml:"logging"`
	Export  *rawExport  `toml:"export"`
}

type rawStore struct {
	Environment *string `toml:"environment"`
	DataDir     *string `toml:"data_dir"`
}

type rawCommand struct {
	Timeout *string `toml:"timeout"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

type rawExport struct {
	Directory *string `toml:"directory"`
}

func loadAndApplyFile(path string, cfg *Config) (bool, error) {
	if path == "" {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false, fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}

	if err := applyRawConfig(cfg, raw); err != nil {
		return false, err
	}
	return true, nil
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Store != nil {
		setString(raw.Store.Environment, &cfg.Store.Environment)
		setString(raw.Store.DataDir, &cfg.Store.DataDir)
	}

	if raw.Command != nil {
		if err := setDuration("command.timeout", raw.Command.Timeout, &cfg.Command.Timeout); err != nil {
			return err
		}
	}

	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}

	if raw.Export != nil {
		setString(raw.Export.Directory, &cfg.Export.Directory)
	}

	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions, report *LoadReport) error {
	stringVars := []struct {
		key    string
		target *string
	}{
		{"JOBLENS_ENV", &cfg.Store.Environment},
		{"JOBLENS_DATA_DIR", &cfg.Store.DataDir},
		{"JOBLENS_LOG_LEVEL", &cfg.Logging.Level},
		{"JOBLENS_LOG_FILE", &cfg.Logging.File},
		{"JOBLENS_EXPORT_DIR", &cfg.Export.Directory},
	}
	for _, v := range stringVars {
		if value, ok := lookupEnv(opts, v.key); ok {
			*v.target = value
			report.EnvOverrides = append(report.EnvOverrides, v.key)
		}
	}

	if value, ok := lookupEnv(opts, "JOBLENS_COMMAND_TIMEOUT"); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: parse JOBLENS_COMMAND_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		cfg.Command.Timeout = d
		report.EnvOverrides = append(report.EnvOverrides, "JOBLENS_COMMAND_TIMEOUT")
	}
	if value, ok := lookupEnv(opts, "JOBLENS_LOG_MAX_SIZE_MB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse JOBLENS_LOG_MAX_SIZE_MB: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxSizeMB = parsed
		report.EnvOverrides = append(report.EnvOverrides, "JOBLENS_LOG_MAX_SIZE_MB")
	}
	if value, ok := lookupEnv(opts, "JOBLENS_LOG_MAX_FILES"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse JOBLENS_LOG_MAX_FILES: %v", ErrInvalidConfig, err)
		}
		cfg.Logging.MaxFiles = parsed
		report.EnvOverrides = append(report.EnvOverrides, "JOBLENS_LOG_MAX_FILES")
	}

	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	setString(flags.Environment, &cfg.Store.Environment)
	setString(flags.DataDir, &cfg.Store.DataDir)
	setString(flags.LogLevel, &cfg.Logging.Level)
	if flags.Timeout != nil {
		cfg.Command.Timeout = *flags.Timeout
	}
}

func validate(cfg *Config) error {
	env, err := storage.ParseEnvironment(strings.ToLower(strings.TrimSpace(cfg.Store.Environment)))
	if err != nil {
		return fmt.Errorf("%w: store.environment: %v", ErrInvalidConfig, err)
	}
	cfg.Store.Environment = string(env)

	if cfg.Command.Timeout <= 0 || cfg.Command.Timeout > 10*time.Minute {
		return fmt.Errorf("%w: command.timeout must be > 0 and <= 10m", ErrInvalidConfig)
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
		cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("%w: logging.max_size_mb must be > 0", ErrInvalidConfig)
	}
	if cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging.max_files must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw == nil {
		return
	}
	*target = *raw
}

func setInt(raw *int, target *int) {
	if raw == nil {
		return
	}
	*target = *raw
}

func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	if value, ok := lookupEnv(opts, "JOBLENS_CONFIG_PATH"); ok {
		return value, nil
	}
	return defaultConfigPath(opts)
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		if value, ok := opts.Env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

func defaultDataDir(opts LoadOptions) (string, error) {
	if value, ok := lookupEnv(opts, "JOBLENS_HOME"); ok && value != "" {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "JobLens"), nil
	}

	dataHome := filepath.Join(home, ".local", "share")
	if xdgDataHome, ok := lookupEnv(opts, "XDG_DATA_HOME"); ok && xdgDataHome != "" {
		dataHome = xdgDataHome
	}
	return filepath.Join(dataHome, "joblens"), nil
}

func defaultConfigPath(opts LoadOptions) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "JobLens", "config.toml"), nil
	}

	configHome := filepath.Join(home, ".config")
	if xdgConfigHome, ok := lookupEnv(opts, "XDG_CONFIG_HOME"); ok && xdgConfigHome != "" {
		configHome = xdgConfigHome
	}
	return filepath.Join(configHome, "joblens", "config.toml"), nil
}
