// SPDX-License-Identifier: MPL-2.0

// Package shim renders the POSIX sh snippet executed on the remote host
// before the bundle launcher. The shim checks the unpacked bundle against
// the expected version, reports "deploy" with exit code 11 when the bundle
// has to be (re)delivered, and otherwise execs the launcher with the first
// interpreter found.
package shim
