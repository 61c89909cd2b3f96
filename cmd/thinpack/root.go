// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/thinpack/thinpack/internal/thin"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every command.
type rootFlagValues struct {
	configPath string
	verbose    bool
	logLevel   string
	cacheDir   string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thinpack",
		Short: "Build relocatable agent bundles for agentless remote execution",
		Long: TitleStyle.Render("thinpack") + SubtitleStyle.Render(" - relocatable agent bundles") + `

thinpack collects the agent package and its dependencies from a local Python
installation and packs them, with a small launcher, into a single archive that
runs on a remote host with a different Python version and no agent installed.

` + SubtitleStyle.Render("Examples:") + `
  thinpack thin                  Build (or reuse) the thin bundle
  thinpack min                   Build (or reuse) the minimal bundle
  thinpack sum thin              Print the thin bundle digest
  thinpack check-ext             Validate external namespaces
  thinpack shim                  Print the remote shim script`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is "+defaultConfigHint()+")")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&app.flags.cacheDir, "cache-dir", "", "artifact cache directory")

	rootCmd.AddCommand(
		newBuildCommand(app, thin.VariantThin),
		newBuildCommand(app, thin.VariantMin),
		newSumCommand(app),
		newManifestCommand(app),
		newTopsCommand(app),
		newCheckExtCommand(app),
		newLauncherCommand(app),
		newShimCommand(app),
		newProbeCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main.
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(exitCode(err))
	}
}
