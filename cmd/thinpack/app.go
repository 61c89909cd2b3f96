// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/thinpack/thinpack/internal/config"
	"github.com/thinpack/thinpack/internal/issue"
	"github.com/thinpack/thinpack/internal/shim"
	"github.com/thinpack/thinpack/internal/thin"
	"github.com/thinpack/thinpack/pkg/types"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. Cobra handlers receive
	// an App and never reach for globals.
	App struct {
		Config ConfigProvider
		// Probe replaces the subprocess interpreter probe when set.
		Probe  thin.Probe
		stdout io.Writer
		stderr io.Writer
		flags  rootFlagValues
		// scheme is the color scheme of the last loaded configuration.
		scheme config.ColorScheme
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Probe  thin.Probe
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		Probe:  deps.Probe,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// loadConfig loads the configuration selected by --config. Load failures
// print the configuration issue page before returning.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		a.renderIssue(issue.ConfigLoadFailedId)
		return nil, &ExitError{Code: types.ExitCodeConfig, Err: err}
	}
	a.scheme = cfg.UI.ColorScheme
	if a.flags.cacheDir != "" {
		cfg.CacheDir = config.CacheDirPath(a.flags.cacheDir)
	}
	return cfg, nil
}

// newEnv creates the build context for one invocation. --log-level wins over
// the configured level; --verbose lowers the level to debug.
func (a *App) newEnv(cfg *config.Config) (*thin.Env, error) {
	name := cfg.LogLevel.String()
	if a.flags.logLevel != "" {
		name = a.flags.logLevel
	}
	if name == "" {
		name = config.LogLevelWarn.String()
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	if a.flags.verbose || cfg.UI.Verbose {
		level = log.DebugLevel
	}
	return thin.NewEnv(a.stderr, level), nil
}

// newBuilder loads configuration and returns a Builder for it with the
// command-level overrides applied last.
func (a *App) newBuilder(ctx context.Context, overrides ...thin.Option) (*thin.Builder, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	env, err := a.newEnv(cfg)
	if err != nil {
		return nil, err
	}

	tc := thinConfig(cfg)
	tc.Apply(overrides...)

	var opts []thin.BuilderOption
	if a.Probe != nil {
		opts = append(opts, thin.WithProbe(a.Probe))
	}
	return thin.NewBuilder(env, tc, opts...), nil
}

// probe returns the interpreter probe for env.
func (a *App) probe(env *thin.Env) thin.Probe {
	if a.Probe != nil {
		return a.Probe
	}
	return thin.NewExecProbe(env)
}

// fail wraps err with operation context and prints the matching issue page,
// if any. Classified failures exit with ExitCodeConfig. The returned error is
// what the command should return.
func (a *App) fail(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	id := classifyError(err)
	a.renderIssue(id)

	ae := issue.WrapWithContext(err, operation, resource)
	if a.flags.verbose {
		fmt.Fprintln(a.stderr, ae.Format(true))
	}
	if id == 0 {
		return ae
	}
	return &ExitError{Code: types.ExitCodeConfig, Err: ae}
}

// renderIssue prints the catalog page for id to stderr. A zero id is a no-op.
func (a *App) renderIssue(id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(issueStyle(a.scheme))
	if err != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+"failed to render help: "+err.Error())
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

// classifyError maps failures onto issue catalog ids.
func classifyError(err error) issue.Id {
	switch {
	case errors.Is(err, thin.ErrPythonTooOld):
		return issue.PythonTooOldId
	case errors.Is(err, thin.ErrInterpreter):
		return issue.PythonNotFoundId
	case errors.Is(err, thin.ErrAgentNotFound):
		return issue.AgentNotFoundId
	case errors.Is(err, thin.ErrModuleNotFound):
		return issue.ModuleNotFoundId
	case errors.Is(err, thin.ErrExtNamespaces):
		return issue.ExtNamespacesInvalidId
	case errors.Is(err, thin.ErrUnknownHashForm):
		return issue.UnknownHashFormId
	case errors.Is(err, shim.ErrInvalidOptions):
		return issue.ShimOptionsInvalidId
	case errors.Is(err, thin.ErrCacheDir), errors.Is(err, os.ErrPermission):
		return issue.CacheNotWritableId
	default:
		return 0
	}
}

// issueStyle picks the glamour style for a color scheme.
func issueStyle(scheme config.ColorScheme) string {
	switch scheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		if lipgloss.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
}

// defaultConfigHint is shown in the --config flag help.
func defaultConfigHint() string {
	path, err := config.ConfigFilePath()
	if err != nil {
		return "<config dir>/thinpack/config.cue"
	}
	return path
}
