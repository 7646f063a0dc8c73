// SPDX-License-Identifier: MPL-2.0

// Package config loads the strata configuration: the set of watched plugin
// locations plus watch and UI settings. The config file is CUE, validated
// against an embedded schema and merged into Viper so defaults, file values,
// and future overrides compose the usual way.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"strata/pkg/cueutil"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "strata"
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema []byte

type (
	// WatchedLocation is one configured plugin directory. Immutable once
	// loaded; the name doubles as the partition name for plugins found there.
	WatchedLocation struct {
		// Name is the unique human-assigned label.
		Name string `mapstructure:"name"`
		// Path is the directory to scan.
		Path string `mapstructure:"path"`
	}

	// WatchSettings controls the filesystem watch trigger.
	WatchSettings struct {
		// Debounce is the quiet period before a rescan fires.
		Debounce string `mapstructure:"debounce"`
	}

	// UISettings controls CLI output.
	UISettings struct {
		// Verbose enables debug-level logging.
		Verbose bool `mapstructure:"verbose"`
	}

	// Config is the loaded strata configuration.
	Config struct {
		Locations []WatchedLocation `mapstructure:"locations"`
		Watch     WatchSettings     `mapstructure:"watch"`
		UI        UISettings        `mapstructure:"ui"`
	}

	// LoadOptions controls where Load looks for the config file.
	LoadOptions struct {
		// ConfigFilePath, when set, is used exclusively.
		ConfigFilePath string
		// ConfigDirPath overrides the platform config directory.
		ConfigDirPath string
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Watch: WatchSettings{Debounce: "500ms"},
	}
}

// DebounceDuration parses the configured debounce, falling back to the
// default on parse failure. The schema keeps malformed values out of loaded
// configs; the fallback covers hand-constructed Config values.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ConfigDir returns the strata configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS,
// $XDG_CONFIG_HOME (default ~/.config) elsewhere.
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves and loads the configuration. Search order: the explicit
// ConfigFilePath when set, then <config-dir>/config.cue, then ./config.cue.
// Absent files mean defaults, not an error. Returns the config and the path
// it was loaded from ("" when defaults were used).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", err
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		localCuePath := ConfigFileName + "." + ConfigFileExt
		switch {
		case fileExists(cuePath):
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", err
			}
			resolvedPath = cuePath
		case fileExists(localCuePath):
			if err := loadCUEIntoViper(v, localCuePath); err != nil {
				return nil, "", err
			}
			resolvedPath = localCuePath
		}
		// No config file found: defaults only, no error.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateLocations(cfg.Locations); err != nil {
		return nil, "", err
	}

	return &cfg, resolvedPath, nil
}

// validateLocations enforces the constraint CUE cannot express: watched
// location names must be unique.
func validateLocations(locations []WatchedLocation) error {
	seen := make(map[string]string, len(locations))
	for _, loc := range locations {
		if prev, ok := seen[loc.Name]; ok {
			return fmt.Errorf("duplicate watched location name %q (paths %s and %s)",
				loc.Name, prev, loc.Path)
		}
		seen[loc.Name] = loc.Path
	}
	return nil
}

func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into Viper. Manual CUE handling instead of
// cueutil.Decode because the result must land in Viper's config map, not a
// struct, and config fields are optional (Concrete(false)).
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: compile config schema: %w", schemaValue.Err())
	}

	docValue := ctx.CompileBytes(data, cue.Filename(path))
	if docValue.Err() != nil {
		return cueutil.FormatError(docValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(docValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
