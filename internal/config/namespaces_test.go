// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thinpack/thinpack/internal/thin"
	"github.com/thinpack/thinpack/pkg/types"
)

var namespaceFixtures = map[string]string{
	".cue": `
py27: {
	path: "/opt/py27/salt"
	"py-version": [2, 7]
	dependencies: {
		jinja2: "/opt/py27/jinja2"
		yaml: "/opt/py27/yaml"
	}
}
`,
	".toml": `
[py27]
path = "/opt/py27/salt"
py-version = [2, 7]

[py27.dependencies]
jinja2 = "/opt/py27/jinja2"
yaml = "/opt/py27/yaml"
`,
	".yaml": `
py27:
  path: /opt/py27/salt
  py-version: [2, 7]
  dependencies:
    jinja2: /opt/py27/jinja2
    yaml: /opt/py27/yaml
`,
	".json": `{
  "py27": {
    "path": "/opt/py27/salt",
    "py-version": [2, 7],
    "dependencies": {"jinja2": "/opt/py27/jinja2", "yaml": "/opt/py27/yaml"}
  }
}`,
}

func TestParseNamespaces_FormatsAgree(t *testing.T) {
	t.Parallel()

	want := map[string]thin.NamespaceConfig{
		"py27": {
			Path:      "/opt/py27/salt",
			PyVersion: types.PythonVersion{Major: 2, Minor: 7},
			Dependencies: map[string]string{
				"jinja2": "/opt/py27/jinja2",
				"yaml":   "/opt/py27/yaml",
			},
		},
	}

	for ext, data := range namespaceFixtures {
		t.Run(strings.TrimPrefix(ext, "."), func(t *testing.T) {
			t.Parallel()

			raw, err := ParseNamespaces([]byte(data), ext, "ns"+ext)
			if err != nil {
				t.Fatalf("ParseNamespaces() error = %v", err)
			}
			got, err := thin.DecodeNamespaces(raw)
			if err != nil {
				t.Fatalf("DecodeNamespaces() error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("namespaces mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadNamespacesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "alt.yml")
	if err := os.WriteFile(path, []byte(namespaceFixtures[".yaml"]), 0o644); err != nil {
		t.Fatal(err)
	}

	raw, err := LoadNamespacesFile(path)
	if err != nil {
		t.Fatalf("LoadNamespacesFile() error = %v", err)
	}
	if _, ok := raw["py27"]; !ok {
		t.Errorf("py27 missing from %v", raw)
	}

	if _, err := LoadNamespacesFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseNamespaces_Errors(t *testing.T) {
	t.Parallel()

	if _, err := ParseNamespaces([]byte("py27 = 1"), ".ini", "ns.ini"); !errors.Is(err, ErrUnsupportedNamespacesFormat) {
		t.Errorf("expected ErrUnsupportedNamespacesFormat, got %v", err)
	}
	if _, err := ParseNamespaces([]byte("{"), ".json", "ns.json"); err == nil {
		t.Error("expected a JSON syntax error")
	}
	if _, err := ParseNamespaces([]byte("py27: 3"), ".cue", "ns.cue"); err == nil {
		t.Error("expected a schema error for a non-struct namespace")
	}
}

func TestParseNamespaces_Empty(t *testing.T) {
	t.Parallel()

	raw, err := ParseNamespaces(nil, ".yaml", "empty.yaml")
	if err != nil {
		t.Fatalf("ParseNamespaces() error = %v", err)
	}
	if raw == nil || len(raw) != 0 {
		t.Errorf("expected an empty map, got %#v", raw)
	}
}

func TestMergeNamespaces(t *testing.T) {
	t.Parallel()

	inline := map[string]any{"a": map[string]any{}}
	fromFile := map[string]any{"b": map[string]any{}}

	merged, err := MergeNamespaces(inline, fromFile)
	if err != nil {
		t.Fatalf("MergeNamespaces() error = %v", err)
	}
	if len(merged) != 2 {
		t.Errorf("expected 2 namespaces, got %v", merged)
	}

	if got, err := MergeNamespaces(nil, fromFile); err != nil || len(got) != 1 {
		t.Errorf("MergeNamespaces(nil, b) = %v, %v", got, err)
	}

	_, err = MergeNamespaces(map[string]any{"b": 1, "c": 1}, map[string]any{"c": 2, "b": 2})
	if !errors.Is(err, ErrDuplicateNamespace) {
		t.Fatalf("expected ErrDuplicateNamespace, got %v", err)
	}
	if !strings.Contains(err.Error(), "b, c") {
		t.Errorf("duplicates should be listed sorted, got %q", err)
	}
}
