// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thinpack/thinpack/pkg/cueutil"
)

var (
	// ErrUnsupportedNamespacesFormat is returned for namespace files with an
	// unknown extension.
	ErrUnsupportedNamespacesFormat = errors.New("unsupported namespaces file format")
	// ErrDuplicateNamespace is returned when a namespace is defined twice.
	ErrDuplicateNamespace = errors.New("duplicate namespace")
)

// NamespacesFileExtensions lists the accepted namespace file extensions.
func NamespacesFileExtensions() []string {
	return []string{".cue", ".toml", ".yaml", ".yml", ".json"}
}

// LoadNamespacesFile reads an external namespace file. The top level of the
// file is the namespace mapping itself. Values are returned the way the
// format's decoder produces them; numbers are not normalised here.
func LoadNamespacesFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read namespaces file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}
	return ParseNamespaces(data, filepath.Ext(path), path)
}

// ParseNamespaces decodes namespace data in the format named by ext.
func ParseNamespaces(data []byte, ext, filename string) (map[string]any, error) {
	ns := map[string]any{}
	switch strings.ToLower(ext) {
	case ".cue":
		result, err := cueutil.ParseAndDecodeString[map[string]any](configSchema, data, "#Namespaces",
			cueutil.WithFilename(filename))
		if err != nil {
			return nil, err
		}
		ns = *result.Value
	case ".toml":
		if err := toml.Unmarshal(data, &ns); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &ns); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&ns); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnsupportedNamespacesFormat, ext,
			strings.Join(NamespacesFileExtensions(), ", "))
	}
	if ns == nil {
		ns = map[string]any{}
	}
	return ns, nil
}

// MergeNamespaces combines inline and file namespaces. A name defined in
// both is an error.
func MergeNamespaces(inline, fromFile map[string]any) (map[string]any, error) {
	if len(inline) == 0 {
		return fromFile, nil
	}
	merged := make(map[string]any, len(inline)+len(fromFile))
	for name, block := range inline {
		merged[name] = block
	}
	var dups []string
	for name, block := range fromFile {
		if _, exists := merged[name]; exists {
			dups = append(dups, name)
			continue
		}
		merged[name] = block
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNamespace, strings.Join(dups, ", "))
	}
	return merged, nil
}
