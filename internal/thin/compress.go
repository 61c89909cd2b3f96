// SPDX-License-Identifier: MPL-2.0

package thin

import "slices"

// Compression names an archive encoding.
type Compression string

const (
	// CompressionGzip is a gzipped tarball. It is the default and the
	// fallback for unknown tokens.
	CompressionGzip Compression = "gzip"
	// CompressionZip is a deflated zip archive.
	CompressionZip Compression = "zip"
	// CompressionZstd is a zstandard compressed tarball.
	CompressionZstd Compression = "zstd"

	// DefaultCompression is used when nothing else is configured.
	DefaultCompression = CompressionGzip
)

// Compressions lists every supported encoding.
func Compressions() []Compression {
	return []Compression{CompressionGzip, CompressionZip, CompressionZstd}
}

// IsValid reports whether c is a supported encoding.
func (c Compression) IsValid() bool {
	return slices.Contains(Compressions(), c)
}

// Extension is the file extension of the canonical artifact.
func (c Compression) Extension() string {
	switch c {
	case CompressionZip:
		return "zip"
	case CompressionZstd:
		return "tzst"
	default:
		return "tgz"
	}
}

// String returns the config token.
func (c Compression) String() string { return string(c) }

// resolveCompression maps a config token to an encoding. An unknown token
// logs exactly one warning and yields the default.
func resolveCompression(env *Env, token string) Compression {
	if token == "" {
		return DefaultCompression
	}
	if c := Compression(token); c.IsValid() {
		return c
	}
	env.Logger().Warnf("Unknown compression type: %q. Falling back to %q compression.", token, DefaultCompression.String())
	return DefaultCompression
}
