// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"path/filepath"
	"slices"
	"strings"
)

const (
	reasonMissingConfig = "has missing configuration"
	reasonNotAFile      = "configured with not a file or does not exist"
	reasonNotImportable = "is not a Python importable module"
	reasonNoAgentTree   = "is not an existing directory"
)

// GetExtTops validates an external namespace configuration. Version problems
// fail immediately; every other problem is collected across all namespaces
// and reported together. A valid configuration is
// returned unchanged.
func GetExtTops(env *Env, cfg map[string]any) (map[string]any, error) {
	if _, err := ExtNamespaces(cfg); err != nil {
		return nil, err
	}

	logger := env.Logger()
	var missing []string
	var invalid []InvalidDependency

	for _, ns := range sortedKeys(cfg) {
		block, _ := asMap(cfg[ns])
		if rec, ok := checkNamespacePath(ns, block[keyPath]); !ok {
			logger.Warn("Invalid agent path in external configuration",
				"namespace", ns, "path", rec.Path, "reason", rec.Reason)
			invalid = append(invalid, rec)
		}
		deps := dependencyPaths(block[keyDependencies])

		for _, req := range RequiredDependencies {
			if _, ok := deps[req]; !ok {
				missing = append(missing, req)
			}
		}

		for _, name := range sortedKeys(deps) {
			p := deps[name]
			reason := checkDependencyPath(p)
			if reason == "" {
				continue
			}
			rec := InvalidDependency{Namespace: ns, Dependency: name, Path: p, Reason: reason}
			logger.Warn("Invalid dependency path in external configuration",
				"namespace", ns, "module", name, "path", p, "reason", reason)
			invalid = append(invalid, rec)
		}
	}

	if len(missing) > 0 || len(invalid) > 0 {
		slices.Sort(missing)
		return nil, &ConfigurationError{
			Message: "Missing dependencies for the alternative version in the external configuration",
			Missing: slices.Compact(missing),
			Invalid: invalid,
			Kind:    ErrExtNamespaces,
		}
	}
	return cfg, nil
}

// dependencyPaths normalises a dependency block. A mapping is taken as is;
// a plain list of names is accepted and reported as unconfigured paths.
func dependencyPaths(v any) map[string]string {
	if _, ok := asMap(v); ok {
		return stringMap(v)
	}
	items, ok := asSlice(v)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		if name, ok := it.(string); ok {
			out[name] = ""
		}
	}
	return out
}

// checkNamespacePath validates the agent tree of namespace ns. The returned
// record has an empty Dependency.
func checkNamespacePath(ns string, raw any) (InvalidDependency, bool) {
	p, _ := raw.(string)
	rec := InvalidDependency{Namespace: ns, Path: p}
	switch {
	case p == "":
		rec.Reason = reasonMissingConfig
	case !isDir(p):
		rec.Reason = reasonNoAgentTree
	default:
		return rec, true
	}
	return rec, false
}

// checkDependencyPath returns the rejection reason for p, or "" when p is
// a usable module file or package directory.
func checkDependencyPath(p string) string {
	switch {
	case p == "":
		return reasonMissingConfig
	case strings.HasSuffix(p, ".py"):
		if !isRegularFile(p) {
			return reasonNotAFile
		}
		return ""
	case isRegularFile(filepath.Join(p, "__init__.py")):
		return ""
	default:
		return reasonNotImportable
	}
}
