// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// packageEntryPrefix marks the file that turns a directory into a package.
const packageEntryPrefix = "__init__."

type (
	// ModuleRef is what a Locator knows about an importable name.
	ModuleRef struct {
		// Name is the dotted import name.
		Name string
		// File is the declared file location of the module. For packages this
		// is the package entry point (<dir>/__init__.py).
		File string
		// IsPackage is true when File is a package entry point.
		IsPackage bool
	}

	// Locator resolves an import name to the file that would be loaded for it.
	Locator interface {
		Locate(name string) (ModuleRef, bool)
	}

	// SearchPathLocator resolves names against an ordered list of directories,
	// the way an interpreter walks sys.path. Zipped eggs on the search path are
	// looked into as well.
	SearchPathLocator struct {
		dirs []string
	}

	// StaticLocator is a fixed manifest of name -> module reference.
	StaticLocator map[string]ModuleRef
)

// NewSearchPathLocator creates a locator over dirs. Empty entries are ignored.
func NewSearchPathLocator(dirs []string) *SearchPathLocator {
	clean := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if strings.TrimSpace(d) != "" {
			clean = append(clean, d)
		}
	}
	return &SearchPathLocator{dirs: clean}
}

// Dirs returns the search directories in lookup order.
func (l *SearchPathLocator) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// Locate returns the first match for name on the search path.
func (l *SearchPathLocator) Locate(name string) (ModuleRef, bool) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, dir := range l.dirs {
		info, err := os.Stat(dir)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if ref, ok := locateInEgg(dir, name); ok {
				return ref, true
			}
			continue
		}

		if entry := filepath.Join(dir, rel, "__init__.py"); isRegularFile(entry) {
			return ModuleRef{Name: name, File: entry, IsPackage: true}, true
		}
		if mod := filepath.Join(dir, rel+".py"); isRegularFile(mod) {
			return ModuleRef{Name: name, File: mod}, true
		}
		if native, ok := findNative(dir, rel); ok {
			return ModuleRef{Name: name, File: native}, true
		}
	}
	return ModuleRef{}, false
}

// findNative looks for a compiled extension module (foo.so, foo.cpython-311-x86_64-linux-gnu.so, foo.pyd).
func findNative(dir, rel string) (string, bool) {
	for _, pattern := range []string{rel + ".so", rel + ".*.so", rel + ".pyd"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if isRegularFile(m) {
				return m, true
			}
		}
	}
	return "", false
}

// locateInEgg looks for name inside a zipped egg. The returned File points
// through the egg (/x/foo.egg/pkg/__init__.py), matching what zipimport reports.
func locateInEgg(egg, name string) (ModuleRef, bool) {
	r, err := zip.OpenReader(egg)
	if err != nil {
		return ModuleRef{}, false
	}
	defer func() { _ = r.Close() }() // Read-only archive; close error non-critical

	rel := strings.ReplaceAll(name, ".", "/")
	pkgEntry := path.Join(rel, "__init__.py")
	modEntry := rel + ".py"
	var mod *ModuleRef
	for _, f := range r.File {
		switch f.Name {
		case pkgEntry:
			return ModuleRef{Name: name, File: filepath.Join(egg, filepath.FromSlash(pkgEntry)), IsPackage: true}, true
		case modEntry:
			mod = &ModuleRef{Name: name, File: filepath.Join(egg, filepath.FromSlash(modEntry))}
		}
	}
	if mod != nil {
		return *mod, true
	}
	return ModuleRef{}, false
}

// Locate returns the manifest entry for name.
func (s StaticLocator) Locate(name string) (ModuleRef, bool) {
	ref, ok := s[name]
	return ref, ok
}

// NewStaticLocator builds a manifest from name -> declared file location.
func NewStaticLocator(files map[string]string) StaticLocator {
	s := make(StaticLocator, len(files))
	for name, file := range files {
		s[name] = ModuleRef{Name: name, File: file, IsPackage: isPackageEntry(file)}
	}
	return s
}

func isPackageEntry(file string) bool {
	return strings.HasPrefix(filepath.Base(file), packageEntryPrefix)
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
