// SPDX-License-Identifier: MPL-2.0

// Package thin builds the relocatable agent bundles shipped to hosts that have
// no agent installed.
//
// Two variants exist. A "thin" bundle carries the agent package together with
// every library it imports, laid out per interpreter major version plus one
// subtree per externally configured namespace. A "min" bundle carries only the
// agent package and expects its dependencies on the remote host.
//
// The main entry point is Builder:
//
//	env := thin.NewEnv(os.Stderr, log.InfoLevel)
//	b := thin.NewBuilder(env, thin.DefaultConfig())
//	path, err := b.GenThin(ctx)
//	sum, err := b.ThinSum(ctx, "sha256")
//
// Each variant occupies a single canonical slot inside the cache directory
// (<cache>/thin/thin.tgz, <cache>/min/min.tgz). Archives are written to a
// temporary file next to the slot and renamed into place, so a reader never
// observes a partially written bundle.
package thin
