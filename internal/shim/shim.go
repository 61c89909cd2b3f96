// SPDX-License-Identifier: MPL-2.0

package shim

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path"
	"strings"
	"text/template"

	"mvdan.cc/sh/v3/syntax"

	"github.com/thinpack/thinpack/internal/thin"
	"github.com/thinpack/thinpack/pkg/types"
)

// DeployToken is printed by the shim when the bundle must be delivered.
const DeployToken = "deploy"

var (
	//go:embed shim.tmpl
	shimTemplate string

	shimTmpl = template.Must(template.New("shim").Parse(shimTemplate))

	// DefaultPythons is the interpreter search order on the remote host.
	DefaultPythons = []string{"python3", "python", "python2"}

	// ErrInvalidOptions is the sentinel for rejected shim options.
	ErrInvalidOptions = errors.New("invalid shim options")
)

type (
	// Options describes the remote side of a bundle.
	Options struct {
		// ThinDir is the absolute remote directory the bundle is unpacked into.
		ThinDir string
		// Version is the expected content of the bundle version marker.
		Version string
		// Compression is the encoding of the delivered archive.
		Compression thin.Compression
		// Pythons are candidate interpreters, tried in order.
		Pythons []string
	}

	// InvalidOptionsError lists every problem with an Options value.
	InvalidOptionsError struct {
		Problems []string
	}
)

// Error implements the error interface.
func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid shim options: %s", strings.Join(e.Problems, "; "))
}

// Unwrap returns ErrInvalidOptions for errors.Is() compatibility.
func (e *InvalidOptionsError) Unwrap() error { return ErrInvalidOptions }

// Validate checks the options.
func (o Options) Validate() error {
	var problems []string
	if o.ThinDir == "" || !path.IsAbs(o.ThinDir) {
		problems = append(problems, fmt.Sprintf("thin dir %q must be an absolute path", o.ThinDir))
	}
	if strings.TrimSpace(o.Version) == "" {
		problems = append(problems, "version must not be empty")
	}
	for _, py := range o.Pythons {
		if strings.TrimSpace(py) == "" {
			problems = append(problems, "python candidates must not be empty")
			break
		}
	}
	if len(problems) > 0 {
		return &InvalidOptionsError{Problems: problems}
	}
	return nil
}

// Generate renders the shim. The result is parsed and reprinted so only
// valid POSIX shell leaves this function.
func Generate(opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	pythons := opts.Pythons
	if len(pythons) == 0 {
		pythons = DefaultPythons
	}

	quotedPythons := make([]string, 0, len(pythons))
	for _, py := range pythons {
		q, err := quote(py)
		if err != nil {
			return "", err
		}
		quotedPythons = append(quotedPythons, q)
	}
	thinDir, err := quote(opts.ThinDir)
	if err != nil {
		return "", err
	}
	version, err := quote(opts.Version)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = shimTmpl.Execute(&buf, map[string]any{
		"ThinDir":       thinDir,
		"Version":       version,
		"Pythons":       strings.Join(quotedPythons, " "),
		"Launcher":      thin.LauncherName,
		"VersionMarker": thin.VersionMarkerName,
		"DeployToken":   DeployToken,
		"DeployCode":    int(types.ExitCodeDeploy),
		"NoPythonCode":  int(types.ExitCodeNoPython),
	})
	if err != nil {
		return "", fmt.Errorf("render shim: %w", err)
	}
	return reprint(buf.String())
}

// UnpackCommand renders the remote command that unpacks archive into
// opts.ThinDir.
func UnpackCommand(opts Options, archive string) (string, error) {
	if opts.ThinDir == "" || !path.IsAbs(opts.ThinDir) {
		return "", &InvalidOptionsError{Problems: []string{fmt.Sprintf("thin dir %q must be an absolute path", opts.ThinDir)}}
	}
	dir, err := quote(opts.ThinDir)
	if err != nil {
		return "", err
	}
	src, err := quote(archive)
	if err != nil {
		return "", err
	}

	var cmd string
	switch opts.Compression {
	case thin.CompressionZip:
		cmd = fmt.Sprintf("mkdir -p %s && unzip -o -q %s -d %s", dir, src, dir)
	case thin.CompressionZstd:
		cmd = fmt.Sprintf("mkdir -p %s && zstd -dc %s | tar -xf - -C %s", dir, src, dir)
	default:
		cmd = fmt.Sprintf("mkdir -p %s && tar -xzf %s -C %s", dir, src, dir)
	}
	return reprint(cmd)
}

func quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf("%w: cannot quote %q: %v", ErrInvalidOptions, s, err)
	}
	return q, nil
}

func reprint(script string) (string, error) {
	file, err := syntax.NewParser(syntax.KeepComments(true), syntax.Variant(syntax.LangPOSIX)).
		Parse(strings.NewReader(script), "shim")
	if err != nil {
		return "", fmt.Errorf("generated shell does not parse: %w", err)
	}
	var out bytes.Buffer
	if err := syntax.NewPrinter(syntax.Indent(0)).Print(&out, file); err != nil {
		return "", fmt.Errorf("print shell: %w", err)
	}
	return out.String(), nil
}
