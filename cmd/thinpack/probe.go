// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// newProbeCommand creates `thinpack probe`.
func newProbeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [python]",
		Short: "Describe an interpreter as JSON",
		Long: `Run the interpreter once and print its version, module search path and
importable agent version as JSON. Without an argument the configured host
interpreter is probed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			env, err := app.newEnv(cfg)
			if err != nil {
				return err
			}

			bin := cfg.Python.Bin.String()
			if len(args) == 1 {
				bin = args[0]
			}
			if bin == "" {
				bin = "python3"
			}

			interp, err := app.probe(env).Probe(cmd.Context(), bin)
			if err != nil {
				return app.fail(err, "probe interpreter", bin)
			}

			enc := json.NewEncoder(app.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(interp)
		},
	}
}
