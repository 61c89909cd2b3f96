// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/thinpack/thinpack/pkg/types"
)

const (
	// AgentPackage is the import name of the agent shipped in every bundle.
	AgentPackage = "salt"

	// LauncherName is the archive member executed first on the remote host.
	LauncherName = "salt-call"
	// VersionMarkerName holds the agent version the bundle was built from.
	VersionMarkerName = "version"
	// CodeChecksumName holds the digest of every bundled source file (thin only).
	CodeChecksumName = "code-checksum"

	// SharedPrefix is the archive subtree for version-independent packages.
	SharedPrefix = "pyall"
)

var (
	// MinimumPythonVersion is the oldest interpreter allowed to drive a build.
	MinimumPythonVersion = types.PythonVersion{Major: 2, Minor: 6}

	// RequiredDependencies must be mapped to a path by every external namespace.
	RequiredDependencies = []string{"jinja2", "yaml", "tornado", "msgpack"}

	// LocalDependencies are looked up on the host interpreter. Entries that
	// are not installed are skipped.
	LocalDependencies = []string{
		AgentPackage,
		"jinja2",
		"yaml",
		"tornado",
		"msgpack",
		"certifi",
		"singledispatch",
		"singledispatch_helpers",
		"ssl_match_hostname",
		"markupsafe",
		"backports_abc",
	}

	// shareable packages run unchanged on every interpreter major version.
	shareable = []string{AgentPackage, "jinja2", "msgpack", "certifi"}
)

// isShareable reports whether a top belongs in the pyall subtree.
func isShareable(top string) bool {
	return slices.Contains(shareable, filepath.Base(top))
}

// versionPrefix is the archive subtree for a given interpreter major version.
func versionPrefix(major int) string {
	return "py" + strconv.Itoa(major)
}

// ParseModList splits a comma separated module list, dropping blanks.
func ParseModList(s string) []string {
	var mods []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			mods = append(mods, part)
		}
	}
	return mods
}
