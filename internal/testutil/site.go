// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"
)

// AgentVersion is the agent version reported by NewSitePackages trees.
const AgentVersion = "3006.1"

// NewSitePackages lays out an interpreter search directory holding the
// agent, the required dependencies, one optional dependency, an extra pure
// module, a native module and some bytecode that must never be bundled.
func NewSitePackages(t testing.TB) string {
	t.Helper()
	site := filepath.Join(t.TempDir(), "site-packages")
	files := map[string]string{
		"salt/__init__.py":                "",
		"salt/scripts.py":                 "def salt_call():\n    pass\n",
		"salt/version.py":                 "__version__ = '" + AgentVersion + "'\n",
		"salt/utils/__init__.py":          "",
		"salt/utils/files.py":             "X = 1\n",
		"salt/__pycache__/scripts.pyc":    "bytecode",
		"salt/utils/files.pyc":            "bytecode",
		"jinja2/__init__.py":              "",
		"yaml/__init__.py":                "",
		"tornado/__init__.py":             "",
		"msgpack/__init__.py":             "",
		"markupsafe/__init__.py":          "",
		"six.py":                          "",
		"_speedups.cpython-311-x86_64.so": "ELF",
	}
	for rel, content := range files {
		MustWriteFile(t, filepath.Join(site, filepath.FromSlash(rel)), content)
	}
	return site
}
