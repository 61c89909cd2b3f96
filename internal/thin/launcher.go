// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/thinpack/thinpack/pkg/types"
)

//go:embed scripts/launcher.py.tmpl
var launcherTemplate string

var launcherTmpl = template.Must(template.New("launcher").Parse(launcherTemplate))

// GenerateLauncher renders the bundle launcher. The script contains the
// literal lines "namespaces = {...}" and "syspaths = [...]" with the given
// values JSON encoded, which is also valid Python literal syntax.
func GenerateLauncher(syspaths []string, namespaces map[string]types.PythonVersion) ([]byte, error) {
	if syspaths == nil {
		syspaths = []string{}
	}
	if namespaces == nil {
		namespaces = map[string]types.PythonVersion{}
	}

	nsJSON, err := pyLiteral(namespaces)
	if err != nil {
		return nil, fmt.Errorf("encode namespaces: %w", err)
	}
	spJSON, err := pyLiteral(syspaths)
	if err != nil {
		return nil, fmt.Errorf("encode syspaths: %w", err)
	}

	var buf bytes.Buffer
	if err := launcherTmpl.Execute(&buf, struct {
		Namespaces string
		Syspaths   string
	}{nsJSON, spJSON}); err != nil {
		return nil, fmt.Errorf("render launcher: %w", err)
	}
	return buf.Bytes(), nil
}

func pyLiteral(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
