// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thinpack/thinpack/internal/thin"
)

// buildFlagValues are the per-invocation overrides of a build command.
type buildFlagValues struct {
	compression string
	extraMods   string
	soMods      string
	overwrite   bool
	absonly     bool
	python      string
	alternates  []string
}

// options converts the flags that were actually set into builder options.
func (f *buildFlagValues) options(cmd *cobra.Command) []thin.Option {
	var opts []thin.Option
	flags := cmd.Flags()
	if flags.Changed("compression") {
		opts = append(opts, thin.WithCompression(f.compression))
	}
	if flags.Changed("extra-mods") {
		opts = append(opts, thin.WithExtraMods(thin.ParseModList(f.extraMods)...))
	}
	if flags.Changed("so-mods") {
		opts = append(opts, thin.WithSoMods(thin.ParseModList(f.soMods)...))
	}
	if flags.Changed("overwrite") {
		opts = append(opts, thin.WithOverwrite(f.overwrite))
	}
	if flags.Changed("absonly") {
		opts = append(opts, thin.WithAbsonly(f.absonly))
	}
	if flags.Changed("python") {
		opts = append(opts, thin.WithPython(f.python))
	}
	if flags.Changed("alternate") {
		opts = append(opts, thin.WithAlternates(f.alternates...))
	}
	return opts
}

func (f *buildFlagValues) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.compression, "compression", "", "archive encoding: "+compressionList())
	fl.StringVar(&f.extraMods, "extra-mods", "", "comma-separated extra modules to bundle")
	fl.StringVar(&f.soMods, "so-mods", "", "comma-separated compiled modules to bundle")
	fl.BoolVar(&f.overwrite, "overwrite", false, "rebuild even if the artifact is current")
	fl.BoolVar(&f.absonly, "absonly", false, "skip module locations that are not absolute")
	fl.StringVar(&f.python, "python", "", "host interpreter to probe")
	fl.StringSliceVar(&f.alternates, "alternate", nil, "additional interpreter to bundle for (repeatable)")
}

func compressionList() string {
	names := make([]string, 0, len(thin.Compressions()))
	for _, c := range thin.Compressions() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

// newBuildCommand creates `thinpack thin` or `thinpack min`.
func newBuildCommand(app *App, v thin.Variant) *cobra.Command {
	var flags buildFlagValues

	short := "Build the thin bundle"
	long := `Build the thin bundle: the agent, its runtime dependencies, every configured
alternate interpreter and external namespace, and the launcher.`
	if v == thin.VariantMin {
		short = "Build the minimal bundle"
		long = `Build the minimal bundle: the reduced agent module set needed for remote
execution plus the launcher.`
	}

	cmd := &cobra.Command{
		Use:   v.String(),
		Short: short,
		Long: long + `

The artifact path is printed on stdout. An artifact built by the same
interpreter version is reused unless --overwrite is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := app.newBuilder(cmd.Context(), flags.options(cmd)...)
			if err != nil {
				return err
			}
			path, err := b.Gen(cmd.Context(), v)
			if err != nil {
				return app.fail(err, "build "+v.String()+" bundle", b.Config().CacheDir)
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// newSumCommand creates `thinpack sum thin|min`.
func newSumCommand(app *App) *cobra.Command {
	var (
		flags buildFlagValues
		form  string
	)

	cmd := &cobra.Command{
		Use:       "sum thin|min",
		Short:     "Print the digest of a bundle, building it if needed",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{thin.VariantThin.String(), thin.VariantMin.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			v := thin.Variant(args[0])
			if !v.IsValid() {
				return fmt.Errorf("unknown bundle %q (expected thin or min)", args[0])
			}
			b, err := app.newBuilder(cmd.Context(), flags.options(cmd)...)
			if err != nil {
				return err
			}
			digest, err := b.Sum(cmd.Context(), v, form)
			if err != nil {
				return app.fail(err, "checksum "+v.String()+" bundle", form)
			}
			fmt.Fprintln(app.stdout, digest)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&form, "form", "sha256", "hash algorithm: "+strings.Join(thin.HashForms(), ", "))
	return cmd
}

// newManifestCommand creates `thinpack manifest thin|min`.
func newManifestCommand(app *App) *cobra.Command {
	var flags buildFlagValues

	cmd := &cobra.Command{
		Use:   "manifest thin|min",
		Short: "List what a bundle would contain without building it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := thin.Variant(args[0])
			if !v.IsValid() {
				return fmt.Errorf("unknown bundle %q (expected thin or min)", args[0])
			}
			b, err := app.newBuilder(cmd.Context(), flags.options(cmd)...)
			if err != nil {
				return err
			}
			m, err := b.Manifest(cmd.Context(), v)
			if err != nil {
				return app.fail(err, "resolve "+v.String()+" manifest", "")
			}

			out := app.stdout
			fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("variant"), m.Variant)
			fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("compression"), m.Compression)
			fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("version"), m.Version)
			fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("python"), m.GenPyVersion)
			for _, prefix := range m.Prefixes() {
				fmt.Fprintf(out, "%s:\n", KeyStyle.Render(prefix))
				for _, top := range m.Tops[prefix] {
					fmt.Fprintf(out, "  %s\n", top)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// newTopsCommand creates `thinpack tops`.
func newTopsCommand(app *App) *cobra.Command {
	var flags buildFlagValues

	cmd := &cobra.Command{
		Use:   "tops",
		Short: "Print the module locations bundled for the host interpreter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := app.newBuilder(cmd.Context(), flags.options(cmd)...)
			if err != nil {
				return err
			}
			host, err := b.HostInterpreter(cmd.Context())
			if err != nil {
				return app.fail(err, "probe host interpreter", b.Config().Interpreter.Bin)
			}
			cfg := b.Config()
			set, err := thin.GetTops(b.Env(), host.Locator(), thin.TopsOptions{
				ExtraMods: cfg.ExtraMods,
				SoMods:    cfg.SoMods,
			})
			if err != nil {
				return app.fail(err, "resolve tops", host.Bin)
			}
			for _, top := range set.Paths() {
				fmt.Fprintln(app.stdout, top)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// newCheckExtCommand creates `thinpack check-ext`.
func newCheckExtCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check-ext",
		Short: "Validate the external namespace configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			env, err := app.newEnv(cfg)
			if err != nil {
				return err
			}
			if len(cfg.ExtNamespaces) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no external namespaces configured)"))
				return nil
			}
			if _, err := thin.GetExtTops(env, cfg.ExtNamespaces); err != nil {
				return app.fail(err, "validate external namespaces", cfg.ExtNamespacesFile)
			}
			namespaces, err := thin.DecodeNamespaces(cfg.ExtNamespaces)
			if err != nil {
				return app.fail(err, "validate external namespaces", cfg.ExtNamespacesFile)
			}

			for _, name := range sortedNames(namespaces) {
				ns := namespaces[name]
				fmt.Fprintf(app.stdout, "%s %s (python %s, %d dependencies)\n",
					SuccessStyle.Render("✓"), KeyStyle.Render(name), ns.PyVersion, len(ns.Dependencies))
			}
			return nil
		},
	}
}

// newLauncherCommand creates `thinpack launcher`.
func newLauncherCommand(app *App) *cobra.Command {
	var flags buildFlagValues

	cmd := &cobra.Command{
		Use:   "launcher",
		Short: "Print the launcher script embedded in the thin bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := app.newBuilder(cmd.Context(), flags.options(cmd)...)
			if err != nil {
				return err
			}
			m, err := b.Manifest(cmd.Context(), thin.VariantThin)
			if err != nil {
				return app.fail(err, "render launcher", "")
			}
			_, err = app.stdout.Write(m.Launcher)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
