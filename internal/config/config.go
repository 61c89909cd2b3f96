// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/thinpack/thinpack/internal/issue"
	"github.com/thinpack/thinpack/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "thinpack"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (THINPACK_CACHE_DIR, ...).
	EnvPrefix = "THINPACK"

	extNamespacesKey = "ext_namespaces"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the thinpack configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config). ConfigDirEnv
// replaces the platform directory when set.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if dir, ok := overriddenConfigDir(); ok {
		return dir, nil
	}

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
	default: // Linux and others
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

// loadWithOptions performs option-driven config loading. It returns the
// resolved config file path, or "" when only defaults were used.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	var extNamespaces map[string]any

	// If a custom config file path is set via --config flag, use it exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'thinpack config show' to see default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		// Config dir first, then the current directory.
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
		// If no config file found, use defaults (no error)
	}

	if resolvedPath != "" {
		ns, err := loadCUEIntoViper(v, resolvedPath)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'thinpack config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
		extNamespaces = ns
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ExtNamespaces = extNamespaces

	if cfg.ExtNamespacesFile != "" {
		nsPath := cfg.ExtNamespacesFile
		if !filepath.IsAbs(nsPath) && resolvedPath != "" {
			nsPath = filepath.Join(filepath.Dir(resolvedPath), nsPath)
		}
		fromFile, err := LoadNamespacesFile(nsPath)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load external namespaces").
				WithResource(nsPath).
				WithSuggestion("Check that ext_namespaces_file points to a .cue, .toml, .yaml or .json file").
				WithSuggestion("Each namespace needs path, py-version and dependencies").
				Wrap(err).
				BuildError()
		}
		merged, err := MergeNamespaces(cfg.ExtNamespaces, fromFile)
		if err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load external namespaces").
				WithResource(nsPath).
				WithSuggestion("Define each namespace either inline or in ext_namespaces_file, not both").
				Wrap(err).
				BuildError()
		}
		cfg.ExtNamespaces = merged
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Run 'thinpack config show' to inspect the effective configuration").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("compression", defaults.Compression)
	v.SetDefault("extra_mods", defaults.ExtraMods)
	v.SetDefault("so_mods", defaults.SoMods)
	v.SetDefault("absonly", defaults.Absonly)
	v.SetDefault("overwrite", defaults.Overwrite)
	v.SetDefault("python.bin", defaults.Python.Bin)
	v.SetDefault("python.version", defaults.Python.Version)
	v.SetDefault("python.path", defaults.Python.Path)
	v.SetDefault("python.agent_version", defaults.Python.AgentVersion)
	v.SetDefault("alternates", defaults.Alternates)
	v.SetDefault("ext_namespaces_file", defaults.ExtNamespacesFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("shim.thin_dir", defaults.Shim.ThinDir)
	v.SetDefault("shim.pythons", defaults.Shim.Pythons)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper. The ext_namespaces block is returned
// separately instead of being merged, because viper lowercases keys.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return nil, cueutil.FormatError(userValue.Err(), path)
	}

	// Unify with schema to validate against #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var extNamespaces map[string]any
	if raw, ok := configMap[extNamespacesKey]; ok {
		extNamespaces, _ = raw.(map[string]any)
		delete(configMap, extNamespacesKey)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return extNamespaces, nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// ConfigFilePath returns the default config file location.
//
//nolint:revive // Mirrors ConfigDir
func ConfigFilePath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// CreateDefaultConfig creates a default config file if it doesn't exist.
// It returns the path of the config file.
func CreateDefaultConfig() (string, error) {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// thinpack configuration file\n\n")

	if cfg.CacheDir != "" {
		fmt.Fprintf(&sb, "cache_dir: %q\n", cfg.CacheDir)
	}
	fmt.Fprintf(&sb, "compression: %q\n", cfg.Compression)
	writeCUEList(&sb, "", "extra_mods", cfg.ExtraMods)
	writeCUEList(&sb, "", "so_mods", cfg.SoMods)
	fmt.Fprintf(&sb, "absonly: %v\n", cfg.Absonly)
	fmt.Fprintf(&sb, "overwrite: %v\n", cfg.Overwrite)
	writeCUEList(&sb, "", "alternates", cfg.Alternates)
	if cfg.ExtNamespacesFile != "" {
		fmt.Fprintf(&sb, "ext_namespaces_file: %q\n", cfg.ExtNamespacesFile)
	}
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("\npython: {\n")
	fmt.Fprintf(&sb, "\tbin: %q\n", cfg.Python.Bin)
	if cfg.Python.Version != "" {
		fmt.Fprintf(&sb, "\tversion: %q\n", cfg.Python.Version)
	}
	if len(cfg.Python.Path) > 0 {
		writeCUEList(&sb, "\t", "path", cfg.Python.Path)
	}
	if cfg.Python.AgentVersion != "" {
		fmt.Fprintf(&sb, "\tagent_version: %q\n", cfg.Python.AgentVersion)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	sb.WriteString("\nshim: {\n")
	fmt.Fprintf(&sb, "\tthin_dir: %q\n", cfg.Shim.ThinDir)
	writeCUEList(&sb, "\t", "pythons", cfg.Shim.Pythons)
	sb.WriteString("}\n")

	return sb.String()
}

func writeCUEList(sb *strings.Builder, indent, key string, items []string) {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, fmt.Sprintf("%q", it))
	}
	fmt.Fprintf(sb, "%s%s: [%s]\n", indent, key, strings.Join(quoted, ", "))
}
