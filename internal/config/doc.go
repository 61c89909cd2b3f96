// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/thinpack/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/thinpack/config.cue on macOS, %APPDATA%\thinpack\config.cue
// on Windows), falling back to ./config.cue. THINPACK_CONFIG_DIR replaces the platform
// directory. Every key can be overridden through a THINPACK_ prefixed environment
// variable.
//
// Configuration validation is performed against a CUE schema (config_schema.cue).
// External namespace blocks are only shape-checked here; their content is validated by
// the bundle builder so all problems are reported together. Namespaces may also live in
// a separate file in CUE, TOML, YAML or JSON format.
package config
