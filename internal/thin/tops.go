// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"path/filepath"
	"slices"
)

type (
	// TopSet is an insertion-ordered set of top paths. Paths are compared
	// after filepath.Clean, so "/a/b/" and "/a/b" are the same member.
	TopSet struct {
		paths []string
		seen  map[string]struct{}
	}

	// TopsOptions are the caller-specified additions to the built-in set.
	TopsOptions struct {
		// ExtraMods are additional pure modules or packages to bundle.
		ExtraMods []string
		// SoMods are compiled extension modules bundled as single files.
		SoMods []string
	}
)

// NewTopSet creates a set holding paths.
func NewTopSet(paths ...string) *TopSet {
	s := &TopSet{seen: make(map[string]struct{})}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was new.
func (s *TopSet) Add(p string) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	key := filepath.Clean(p)
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.paths = append(s.paths, key)
	return true
}

// Contains reports whether p is a member.
func (s *TopSet) Contains(p string) bool {
	_, ok := s.seen[filepath.Clean(p)]
	return ok
}

// Len returns the number of members.
func (s *TopSet) Len() int { return len(s.paths) }

// Paths returns the members in insertion order.
func (s *TopSet) Paths() []string { return slices.Clone(s.paths) }

// GetTops resolves the top paths needed to run the agent on the interpreter
// behind loc: every installed LocalDependencies entry, every extra module, and
// every shared native module.
func GetTops(env *Env, loc Locator, opts TopsOptions) (*TopSet, error) {
	return resolveTops(env, loc, LocalDependencies, opts)
}

func resolveTops(env *Env, loc Locator, builtin []string, opts TopsOptions) (*TopSet, error) {
	logger := env.Logger()
	var found []string

	for _, name := range builtin {
		ref, ok := loc.Locate(name)
		if !ok {
			logger.Debug("Optional dependency not available, skipping", "module", name)
			continue
		}
		AddDependency(&found, ref)
	}

	for _, name := range opts.ExtraMods {
		ref, ok := loc.Locate(name)
		if !ok {
			return nil, kindError(ErrModuleNotFound, "extra module %q cannot be located on the interpreter search path", name)
		}
		AddDependency(&found, ref)
	}

	for _, name := range opts.SoMods {
		ref, ok := loc.Locate(name)
		if !ok {
			return nil, kindError(ErrModuleNotFound, "shared module %q cannot be located on the interpreter search path", name)
		}
		found = append(found, ref.File)
	}

	tops := NewTopSet()
	for _, p := range found {
		if !tops.Add(p) {
			logger.Debug("Dropping duplicate top", "path", p)
		}
	}
	return tops, nil
}
