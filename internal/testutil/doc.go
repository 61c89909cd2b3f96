// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixtures shared by thinpack's tests: a fake
// interpreter search directory, a controllable clock, file helpers that fail
// the test on error, and a semaphore for container-backed integration tests.
package testutil
