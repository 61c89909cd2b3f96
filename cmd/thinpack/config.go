// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thinpack/thinpack/internal/config"
)

// newConfigCommand creates the `thinpack config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage thinpack configuration",
		Long: `Manage thinpack configuration.

Configuration is stored in:
  - Linux: ~/.config/thinpack/config.cue
  - macOS: ~/Library/Application Support/thinpack/config.cue
  - Windows: %APPDATA%\thinpack\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			path, err := config.ConfigFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", dir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	out := app.stdout
	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	if app.flags.configPath != "" {
		showKey(out, "Config file", app.flags.configPath)
	} else if path, pathErr := config.ConfigFilePath(); pathErr == nil {
		showKey(out, "Config file", path)
	}
	fmt.Fprintln(out)

	cacheDir := cfg.CacheDir.String()
	if cacheDir == "" {
		cacheDir = SubtitleStyle.Render("(platform cache dir)")
	}
	showKey(out, "cache_dir", cacheDir)
	showKey(out, "compression", cfg.Compression)
	showKey(out, "extra_mods", listOrNone(cfg.ExtraMods))
	showKey(out, "so_mods", listOrNone(cfg.SoMods))
	showKey(out, "absonly", fmt.Sprintf("%v", cfg.Absonly))
	showKey(out, "overwrite", fmt.Sprintf("%v", cfg.Overwrite))
	showKey(out, "alternates", listOrNone(cfg.Alternates))
	showKey(out, "log_level", cfg.LogLevel.String())

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", KeyStyle.Render("python"))
	fmt.Fprintf(out, "  bin: %s\n", SuccessStyle.Render(cfg.Python.Bin.String()))
	if cfg.Python.Version != "" {
		fmt.Fprintf(out, "  version: %s\n", SuccessStyle.Render(cfg.Python.Version))
	} else {
		fmt.Fprintf(out, "  version: %s\n", SubtitleStyle.Render("(probed)"))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", KeyStyle.Render("ext_namespaces"))
	if len(cfg.ExtNamespaces) == 0 {
		fmt.Fprintf(out, "  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		for _, name := range sortedNames(cfg.ExtNamespaces) {
			fmt.Fprintf(out, "  - %s\n", SuccessStyle.Render(name))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", KeyStyle.Render("shim"))
	fmt.Fprintf(out, "  thin_dir: %s\n", SuccessStyle.Render(cfg.Shim.ThinDir))
	fmt.Fprintf(out, "  pythons: %s\n", listOrNone(cfg.Shim.Pythons))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", KeyStyle.Render("ui"))
	fmt.Fprintf(out, "  color_scheme: %s\n", SuccessStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(out, "  verbose: %s\n", SuccessStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
	return nil
}

func showKey(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(key), SuccessStyle.Render(value))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return SubtitleStyle.Render("(none)")
	}
	return strings.Join(items, ", ")
}

func sortedNames[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
