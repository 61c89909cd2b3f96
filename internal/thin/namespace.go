// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/thinpack/thinpack/pkg/types"
)

const (
	keyPath         = "path"
	keyPyVersion    = "py-version"
	keyDependencies = "dependencies"
)

// NamespaceConfig is the typed form of one external namespace block.
type NamespaceConfig struct {
	// Path is the agent package tree for this namespace.
	Path string
	// PyVersion is the interpreter version the namespace is locked to.
	PyVersion types.PythonVersion
	// Dependencies maps a dependency name to its on-disk location.
	Dependencies map[string]string
}

// ExtNamespaces validates the name and py-version of every namespace in cfg
// and returns the locked versions by namespace name. SharedPrefix and the
// per-major prefixes (py2, py3, ...) are not valid namespace names.
func ExtNamespaces(cfg map[string]any) (map[string]types.PythonVersion, error) {
	namespaces := make(map[string]types.PythonVersion, len(cfg))
	for _, ns := range sortedKeys(cfg) {
		if isReservedPrefix(ns) {
			return nil, kindError(ErrExtNamespaces,
				"Alternative agent library for namespace %q: name collides with a bundle directory of the same name", ns)
		}
		v, err := namespaceVersion(ns, cfg[ns])
		if err != nil {
			return nil, err
		}
		namespaces[ns] = v
	}
	return namespaces, nil
}

// isReservedPrefix reports whether name is an archive prefix the builder
// fills itself.
func isReservedPrefix(name string) bool {
	if name == SharedPrefix {
		return true
	}
	return len(name) == 3 && strings.HasPrefix(name, "py") && name[2] >= '0' && name[2] <= '9'
}

func namespaceVersion(ns string, raw any) (types.PythonVersion, error) {
	block, _ := asMap(raw)
	pyv, ok := block[keyPyVersion]
	if !ok {
		return types.PythonVersion{}, kindError(ErrExtNamespaces,
			"Alternative agent library for namespace %q: missing specific locked Python version", ns)
	}

	items, ok := asSlice(pyv)
	if !ok || len(items) != 2 {
		return types.PythonVersion{}, badVersion(ns)
	}
	major, okMajor := asInt(items[0])
	minor, okMinor := asInt(items[1])
	if !okMajor || !okMinor {
		return types.PythonVersion{}, badVersion(ns)
	}
	return types.PythonVersion{Major: major, Minor: minor}, nil
}

func badVersion(ns string) *ConfigurationError {
	return kindError(ErrExtNamespaces,
		"Alternative agent library for namespace %q: specific locked Python version should be a list of major/minor version", ns)
}

// DecodeNamespaces converts a raw namespace config into its typed form. The
// input is expected to have passed GetExtTops.
func DecodeNamespaces(cfg map[string]any) (map[string]NamespaceConfig, error) {
	versions, err := ExtNamespaces(cfg)
	if err != nil {
		return nil, err
	}

	out := make(map[string]NamespaceConfig, len(cfg))
	for ns, raw := range cfg {
		block, _ := asMap(raw)
		path, _ := block[keyPath].(string)
		if path == "" {
			return nil, kindError(ErrExtNamespaces, "Alternative agent library for namespace %q: missing agent library path", ns)
		}
		out[ns] = NamespaceConfig{
			Path:         path,
			PyVersion:    versions[ns],
			Dependencies: stringMap(block[keyDependencies]),
		}
	}
	return out, nil
}

// asMap accepts both map[string]any and the map[any]any some decoders yield.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// asSlice accepts any slice or array kind. Strings are not sequences here.
func asSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// asInt accepts the integer representations produced by the supported
// config decoders. Booleans and fractional numbers are rejected.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), n <= math.MaxInt
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), n <= math.MaxInt
	case float64:
		return floatInt(n)
	case float32:
		return floatInt(float64(n))
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func floatInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// stringMap returns the string-valued entries of a dependency block.
// Non-string values become empty paths so the merger reports them.
func stringMap(v any) map[string]string {
	m, _ := asMap(v)
	out := make(map[string]string, len(m))
	for k, val := range m {
		s, _ := val.(string)
		out[k] = s
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
