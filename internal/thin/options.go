// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"os"
	"path/filepath"
)

// CacheDirEnv overrides the default cache directory.
const CacheDirEnv = "THINPACK_CACHE_DIR"

type (
	// Config holds everything a Builder needs besides its environment.
	Config struct {
		// CacheDir is the root of the artifact slots.
		// Default: <user cache dir>/thinpack
		CacheDir string

		// Compression is the raw compression token. Unknown tokens fall back
		// to gzip with a warning.
		Compression string

		// ExtraMods are additional modules bundled with the agent.
		ExtraMods []string

		// SoMods are compiled extension modules bundled as single files.
		SoMods []string

		// Overwrite rebuilds even when the existing artifact is current.
		Overwrite bool

		// Absonly skips tops that are not absolute paths.
		Absonly bool

		// Interpreter is the host interpreter. When Version is zero it is
		// probed through Interpreter.Bin.
		Interpreter Interpreter

		// Alternates are additional interpreters whose own dependency trees
		// are bundled into the thin archive.
		Alternates []string

		// ExtNamespaces is the raw external namespace configuration.
		ExtNamespaces map[string]any
	}

	// Option is a functional option for configuring a Config.
	Option func(*Config)
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	cacheDir := os.Getenv(CacheDirEnv)
	if cacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(dir, "thinpack")
		}
	}

	return &Config{
		CacheDir:    cacheDir,
		Compression: DefaultCompression.String(),
		Interpreter: Interpreter{Bin: "python3"},
	}
}

// WithCacheDir returns an Option that sets CacheDir on the config.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

// WithCompression returns an Option that sets the compression token.
func WithCompression(token string) Option {
	return func(c *Config) {
		c.Compression = token
	}
}

// WithExtraMods returns an Option that sets ExtraMods on the config.
func WithExtraMods(mods ...string) Option {
	return func(c *Config) {
		c.ExtraMods = mods
	}
}

// WithSoMods returns an Option that sets SoMods on the config.
func WithSoMods(mods ...string) Option {
	return func(c *Config) {
		c.SoMods = mods
	}
}

// WithOverwrite returns an Option that forces a rebuild.
func WithOverwrite(overwrite bool) Option {
	return func(c *Config) {
		c.Overwrite = overwrite
	}
}

// WithAbsonly returns an Option that sets Absonly on the config.
func WithAbsonly(absonly bool) Option {
	return func(c *Config) {
		c.Absonly = absonly
	}
}

// WithInterpreter returns an Option that sets the host interpreter.
func WithInterpreter(interp Interpreter) Option {
	return func(c *Config) {
		c.Interpreter = interp
	}
}

// WithPython returns an Option that selects the host interpreter binary
// and clears any static description so it gets probed.
func WithPython(bin string) Option {
	return func(c *Config) {
		c.Interpreter = Interpreter{Bin: bin}
	}
}

// WithAlternates returns an Option that sets the alternate interpreters.
func WithAlternates(bins ...string) Option {
	return func(c *Config) {
		c.Alternates = bins
	}
}

// WithExtNamespaces returns an Option that sets the external namespace config.
func WithExtNamespaces(cfg map[string]any) Option {
	return func(c *Config) {
		c.ExtNamespaces = cfg
	}
}

// Apply applies the given options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
