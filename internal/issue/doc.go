// SPDX-License-Identifier: MPL-2.0

// Package issue holds thinpack's user-facing error guidance: ActionableError
// for errors that carry remediation hints, and a catalog of Markdown issue
// pages rendered with glamour for the failures users hit most.
package issue
