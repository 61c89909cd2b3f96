// SPDX-License-Identifier: MPL-2.0

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPythonVersion is the sentinel error wrapped by InvalidPythonVersionError.
var ErrInvalidPythonVersion = errors.New("invalid python version")

type (
	// PythonVersion is a major/minor interpreter version pair.
	// Its JSON form is a two-element array ([3, 6]) so it round-trips through
	// the launcher script and the interpreter probe unchanged.
	PythonVersion struct {
		Major int
		Minor int
	}

	// InvalidPythonVersionError is returned when a version string cannot be parsed.
	InvalidPythonVersionError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidPythonVersionError) Error() string {
	return fmt.Sprintf("invalid python version %q (expected <major>.<minor>)", e.Value)
}

// Unwrap returns ErrInvalidPythonVersion for errors.Is() compatibility.
func (e *InvalidPythonVersionError) Unwrap() error { return ErrInvalidPythonVersion }

// ParsePythonVersion parses "3.6" (or "3.6.15", extra components are ignored).
func ParsePythonVersion(s string) (PythonVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return PythonVersion{}, &InvalidPythonVersionError{Value: s}
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return PythonVersion{}, &InvalidPythonVersionError{Value: s}
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return PythonVersion{}, &InvalidPythonVersionError{Value: s}
	}
	return PythonVersion{Major: major, Minor: minor}, nil
}

// String returns the "<major>.<minor>" form.
func (v PythonVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsZero reports whether the version is unset.
func (v PythonVersion) IsZero() bool { return v.Major == 0 && v.Minor == 0 }

// Less reports whether v sorts before o.
func (v PythonVersion) Less(o PythonVersion) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// AtLeast reports whether v >= o.
func (v PythonVersion) AtLeast(o PythonVersion) bool { return !v.Less(o) }

// MarshalJSON encodes the version as [major, minor].
func (v PythonVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{v.Major, v.Minor})
}

// UnmarshalJSON decodes a [major, minor] array. Longer arrays (as produced by
// sys.version_info) are accepted and truncated.
func (v *PythonVersion) UnmarshalJSON(data []byte) error {
	var parts []int
	if err := json.Unmarshal(data, &parts); err != nil {
		return &InvalidPythonVersionError{Value: string(data)}
	}
	if len(parts) < 2 {
		return &InvalidPythonVersionError{Value: string(data)}
	}
	v.Major, v.Minor = parts[0], parts[1]
	return nil
}
