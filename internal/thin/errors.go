// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrInterpreter marks an interpreter that could not be probed.
	ErrInterpreter = errors.New("interpreter unusable")
	// ErrPythonTooOld marks a host interpreter below MinimumPythonVersion.
	ErrPythonTooOld = errors.New("python too old")
	// ErrAgentNotFound marks a host interpreter without the agent package.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrModuleNotFound marks an extra or shared module that cannot be located.
	ErrModuleNotFound = errors.New("module not found")
	// ErrExtNamespaces marks an invalid external namespace configuration.
	ErrExtNamespaces = errors.New("invalid external namespaces")
	// ErrCacheDir marks a missing cache directory setting.
	ErrCacheDir = errors.New("cache directory unusable")
)

type (
	// ConfigurationError is the single fatal error kind of the bundle builder.
	// It is never retried. When raised by the external namespace merger it
	// lists every problem found in the invocation, not just the first one.
	ConfigurationError struct {
		// Message is the human-readable summary.
		Message string
		// Missing holds required dependency names absent from one or more
		// namespaces, sorted and de-duplicated.
		Missing []string
		// Invalid holds one record per unusable configured path.
		Invalid []InvalidDependency
		// Kind is one of the ErrXxx sentinels above, or nil.
		Kind error
	}

	// InvalidDependency describes a path rejected by GetExtTops. Dependency is
	// empty when the namespace's own agent path was rejected.
	InvalidDependency struct {
		Namespace  string
		Dependency string
		Path       string
		Reason     string
	}
)

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if len(e.Missing) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts := make([]string, 0, len(e.Invalid))
		for _, d := range e.Invalid {
			parts = append(parts, d.String())
		}
		fmt.Fprintf(&sb, " (%d invalid dependency path(s): %s)", len(e.Invalid), strings.Join(parts, "; "))
	}
	return sb.String()
}

// Unwrap returns ErrConfiguration and, when set, Kind.
func (e *ConfigurationError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Kind}
}

// String renders the record the way it is logged.
func (d InvalidDependency) String() string {
	if d.Dependency == "" {
		return fmt.Sprintf("agent path of namespace %q %s: %q", d.Namespace, d.Reason, d.Path)
	}
	if d.Path == "" {
		return fmt.Sprintf("module %s in namespace %q %s", d.Dependency, d.Namespace, d.Reason)
	}
	return fmt.Sprintf("module %s in namespace %q %s: %s", d.Dependency, d.Namespace, d.Reason, d.Path)
}

func configError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

func kindError(kind error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...), Kind: kind}
}
