// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/thinpack/thinpack/internal/testutil"
	"github.com/thinpack/thinpack/pkg/types"
)

const testAgentVersion = testutil.AgentVersion

// newTestEnv returns an Env that logs every level into the returned buffer.
func newTestEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewEnv(&buf, log.DebugLevel), &buf
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	testutil.MustWriteFile(t, path, content)
}

func newSitePackages(t *testing.T) string {
	t.Helper()
	return testutil.NewSitePackages(t)
}

func staticInterpreter(site string) Interpreter {
	return Interpreter{
		Bin:          "python3",
		Version:      types.PythonVersion{Major: 3, Minor: 11},
		Path:         []string{site},
		AgentVersion: testAgentVersion,
	}
}

// validNamespace returns a namespace block whose paths all exist under root.
func validNamespace(t *testing.T, root string, major, minor int) map[string]any {
	t.Helper()
	deps := map[string]any{}
	for _, name := range RequiredDependencies {
		dir := filepath.Join(root, name)
		writeFile(t, filepath.Join(dir, "__init__.py"), "")
		deps[name] = dir
	}
	agent := filepath.Join(root, "salt")
	writeFile(t, filepath.Join(agent, "__init__.py"), "")
	return map[string]any{
		"path":         agent,
		"py-version":   []any{major, minor},
		"dependencies": deps,
	}
}
