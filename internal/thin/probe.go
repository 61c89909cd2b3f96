// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"

	"github.com/thinpack/thinpack/pkg/types"
)

//go:embed scripts/probe.py
var probeScript string

type (
	// Interpreter describes one Python installation.
	Interpreter struct {
		// Bin is the executable used to reach the interpreter.
		Bin string `json:"-"`
		// Version is the interpreter (major, minor).
		Version types.PythonVersion `json:"version"`
		// Path is the interpreter's module search path.
		Path []string `json:"path"`
		// AgentVersion is the agent version importable by the interpreter.
		AgentVersion string `json:"agent_version"`
	}

	// Probe asks an interpreter about itself.
	Probe interface {
		Probe(ctx context.Context, bin string) (*Interpreter, error)
	}

	// ExecProbe runs the interpreter once with an inline script and parses
	// the JSON it prints.
	ExecProbe struct {
		env *Env
	}
)

// NewExecProbe creates a subprocess backed probe.
func NewExecProbe(env *Env) *ExecProbe {
	return &ExecProbe{env: env}
}

// Locator returns a search path locator over the interpreter's sys.path.
func (i *Interpreter) Locator() *SearchPathLocator {
	return NewSearchPathLocator(i.Path)
}

// Probe runs bin exactly once. A failing or unparsable run is a
// ConfigurationError; the call is not retried.
func (p *ExecProbe) Probe(ctx context.Context, bin string) (*Interpreter, error) {
	logger := p.env.Logger()
	logger.Debug("Probing interpreter", "bin", bin)

	cmd := exec.CommandContext(ctx, bin, "-c", probeScript)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, kindError(ErrInterpreter, "interpreter %q probe exited with code %d: %s", bin, exitErr.ExitCode(), detail)
		}
		return nil, kindError(ErrInterpreter, "interpreter %q could not be executed: %v", bin, err)
	}

	var interp Interpreter
	if err := json.Unmarshal(stdout.Bytes(), &interp); err != nil {
		return nil, kindError(ErrInterpreter, "interpreter %q probe returned unparsable output: %v", bin, err)
	}
	if interp.Version.IsZero() {
		return nil, kindError(ErrInterpreter, "interpreter %q probe did not report a version", bin)
	}
	interp.Bin = bin
	logger.Debug("Interpreter probed", "bin", bin, "version", interp.Version, "agent_version", interp.AgentVersion)
	return &interp, nil
}
