// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitCodeConfig is returned by thinpack when a build cannot start because
	// the configuration or the host interpreter is unusable.
	ExitCodeConfig ExitCode = 2
	// ExitCodeNoPython is returned by the remote shim when no usable Python
	// interpreter is found on the target host.
	ExitCodeNoPython ExitCode = 10
	// ExitCodeDeploy is returned by the remote shim when the bundle is missing
	// or stale and must be re-delivered before the agent can run.
	ExitCodeDeploy ExitCode = 11
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// NeedsDeploy reports whether the shim asked for the bundle to be shipped again.
func (c ExitCode) NeedsDeploy() bool { return c == ExitCodeDeploy }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
