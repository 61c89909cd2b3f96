// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles user CUE documents against an embedded schema
// definition and decodes the result into Go values.
//
// Both config.cue and external namespace files go through the same steps:
// the schema is compiled, the user document is compiled and unified with a
// named definition (#Config, #Namespaces), and the unified value is
// validated and decoded. Errors carry the file name and a dotted field path:
//
//	config.cue: shim.thin_dir: invalid value "tmp" (does not match =~"^/")
package cueutil
