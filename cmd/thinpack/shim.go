// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinpack/thinpack/internal/shim"
	"github.com/thinpack/thinpack/internal/thin"
)

// newShimCommand creates `thinpack shim`.
func newShimCommand(app *App) *cobra.Command {
	var (
		thinDir      string
		agentVersion string
		pythons      []string
		compression  string
		unpack       string
	)

	cmd := &cobra.Command{
		Use:   "shim",
		Short: "Print the POSIX shell shim that starts a bundle on a remote host",
		Long: `Print the POSIX shell shim that starts a bundle on a remote host.

The shim looks for a usable interpreter, checks the version marker in the
thin directory and either runs the launcher or exits with the deploy code so
the caller can deliver the bundle and retry.

With --unpack ARCHIVE the remote unpack command is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			opts := shim.Options{
				ThinDir:     cfg.Shim.ThinDir,
				Version:     agentVersion,
				Compression: thin.Compression(cfg.Compression),
				Pythons:     cfg.Shim.Pythons,
			}
			if cmd.Flags().Changed("thin-dir") {
				opts.ThinDir = thinDir
			}
			if cmd.Flags().Changed("python") {
				opts.Pythons = pythons
			}
			if cmd.Flags().Changed("compression") {
				opts.Compression = thin.Compression(compression)
			}
			if !opts.Compression.IsValid() {
				opts.Compression = thin.DefaultCompression
			}

			if unpack != "" {
				line, err := shim.UnpackCommand(opts, unpack)
				if err != nil {
					return app.fail(err, "render unpack command", unpack)
				}
				fmt.Fprintln(app.stdout, line)
				return nil
			}

			if opts.Version == "" {
				b, err := app.newBuilder(cmd.Context())
				if err != nil {
					return err
				}
				host, err := b.HostInterpreter(cmd.Context())
				if err != nil {
					return app.fail(err, "probe host interpreter", b.Config().Interpreter.Bin)
				}
				opts.Version = host.AgentVersion
			}

			script, err := shim.Generate(opts)
			if err != nil {
				return app.fail(err, "render shim", opts.ThinDir)
			}
			fmt.Fprint(app.stdout, script)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&thinDir, "thin-dir", "", "absolute remote directory the bundle is unpacked into")
	fl.StringVar(&agentVersion, "agent-version", "", "expected bundle version (default: probed from the host interpreter)")
	fl.StringSliceVar(&pythons, "python", nil, "remote interpreter candidate, in order (repeatable)")
	fl.StringVar(&compression, "compression", "", "archive encoding of the delivered bundle")
	fl.StringVar(&unpack, "unpack", "", "print the remote command that unpacks `ARCHIVE`")
	return cmd
}
