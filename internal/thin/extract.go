// SPDX-License-Identifier: MPL-2.0

package thin

import "path/filepath"

// AddDependency appends the path that has to be copied to ship ref.
// A package entry point (.../pkg/__init__.py) contributes its directory, any
// other file contributes itself. Nothing is checked on disk here.
func AddDependency(container *[]string, ref ModuleRef) {
	if isPackageEntry(ref.File) {
		*container = append(*container, filepath.Dir(ref.File))
		return
	}
	*container = append(*container, ref.File)
}
