// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the thinpack command tree.
//
// Every command receives an *App, the composition root that owns the
// configuration provider, the interpreter probe and the output streams.
// Commands translate the loaded configuration into internal/thin options,
// run the builder, and map failures onto internal/issue guidance.
package cmd
