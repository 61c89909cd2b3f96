// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// These benchmarks cover the hot paths of a bundle build:
//   - CUE configuration and namespace file parsing
//   - Dependency resolution on an interpreter search path
//   - Archive generation for every compression
//   - Artifact digests, launcher and shim rendering
//
// To generate a profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
