// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/thinpack/thinpack/internal/config"
	"github.com/thinpack/thinpack/internal/shim"
	"github.com/thinpack/thinpack/internal/testutil"
	"github.com/thinpack/thinpack/internal/thin"
	"github.com/thinpack/thinpack/pkg/types"
)

const (
	// sampleConfig is a representative config.cue exercising every section.
	sampleConfig = `
cache_dir:   "/var/cache/thinpack"
compression: "zstd"
extra_mods:  ["six", "requests"]
so_mods:     ["_speedups"]
absonly:     false
overwrite:   false
alternates:  ["/usr/bin/python2.7"]
log_level:   "warn"

python: {
	bin:     "python3"
	version: "3.11"
	path:    ["/usr/lib/python3.11", "/usr/lib/python3/dist-packages"]
	agent_version: "3006.1"
}

ext_namespaces: {
	legacy: {
		"py-version": [2, 7]
		dependencies: {
			jinja2:  "/opt/py27/jinja2"
			yaml:    "/opt/py27/yaml"
			tornado: "/opt/py27/tornado"
			msgpack: "/opt/py27/msgpack"
		}
	}
}

ui: {
	color_scheme: "dark"
	verbose:      false
}

shim: {
	thin_dir: "/var/tmp/.thinpack"
	pythons:  ["python3", "python"]
}
`

	// sampleNamespaces is a standalone namespace file with several entries.
	sampleNamespaces = `
py26: {
	"py-version": [2, 6]
	dependencies: {jinja2: "/opt/py26/jinja2", yaml: "/opt/py26/yaml", tornado: "/opt/py26/tornado", msgpack: "/opt/py26/msgpack"}
}
py27: {
	"py-version": [2, 7]
	dependencies: {jinja2: "/opt/py27/jinja2", yaml: "/opt/py27/yaml", tornado: "/opt/py27/tornado", msgpack: "/opt/py27/msgpack"}
}
py36: {
	"py-version": [3, 6]
	dependencies: {jinja2: "/opt/py36/jinja2", yaml: "/opt/py36/yaml", tornado: "/opt/py36/tornado", msgpack: "/opt/py36/msgpack"}
}
`
)

func newEnv() *thin.Env {
	return thin.NewEnv(io.Discard, log.ErrorLevel)
}

func newHost(b *testing.B) thin.Interpreter {
	b.Helper()
	return thin.Interpreter{
		Bin:          "python3",
		Version:      types.PythonVersion{Major: 3, Minor: 11},
		Path:         []string{testutil.NewSitePackages(b)},
		AgentVersion: testutil.AgentVersion,
	}
}

// BenchmarkConfigLoad benchmarks loading and validating a full config file.
func BenchmarkConfigLoad(b *testing.B) {
	path := filepath.Join(b.TempDir(), "config.cue")
	testutil.MustWriteFile(b, path, sampleConfig)
	provider := config.NewProvider()
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		if _, err := provider.Load(ctx, config.LoadOptions{ConfigFilePath: path}); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}

// BenchmarkNamespacesParse benchmarks parsing and decoding a namespace file.
func BenchmarkNamespacesParse(b *testing.B) {
	data := []byte(sampleNamespaces)

	b.ResetTimer()
	for b.Loop() {
		raw, err := config.ParseNamespaces(data, ".cue", "namespaces.cue")
		if err != nil {
			b.Fatalf("ParseNamespaces failed: %v", err)
		}
		if _, err := thin.DecodeNamespaces(raw); err != nil {
			b.Fatalf("DecodeNamespaces failed: %v", err)
		}
	}
}

// BenchmarkGetTops benchmarks dependency resolution on a search path.
func BenchmarkGetTops(b *testing.B) {
	host := newHost(b)
	env := newEnv()
	opts := thin.TopsOptions{ExtraMods: []string{"six"}}

	b.ResetTimer()
	for b.Loop() {
		if _, err := thin.GetTops(env, host.Locator(), opts); err != nil {
			b.Fatalf("GetTops failed: %v", err)
		}
	}
}

// BenchmarkGen benchmarks a forced rebuild of each variant and compression.
func BenchmarkGen(b *testing.B) {
	for _, v := range []thin.Variant{thin.VariantThin, thin.VariantMin} {
		for _, c := range thin.Compressions() {
			b.Run(v.String()+"/"+c.String(), func(b *testing.B) {
				cfg := thin.DefaultConfig()
				cfg.Apply(
					thin.WithCacheDir(b.TempDir()),
					thin.WithCompression(c.String()),
					thin.WithOverwrite(true),
					thin.WithInterpreter(newHost(b)),
				)
				builder := thin.NewBuilder(newEnv(), cfg)
				ctx := context.Background()

				b.ResetTimer()
				for b.Loop() {
					if _, err := builder.Gen(ctx, v); err != nil {
						b.Fatalf("Gen failed: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkGenCached benchmarks the reuse path of a current artifact.
func BenchmarkGenCached(b *testing.B) {
	cfg := thin.DefaultConfig()
	cfg.Apply(
		thin.WithCacheDir(b.TempDir()),
		thin.WithInterpreter(newHost(b)),
	)
	builder := thin.NewBuilder(newEnv(), cfg)
	ctx := context.Background()
	if _, err := builder.GenThin(ctx); err != nil {
		b.Fatalf("GenThin failed: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := builder.GenThin(ctx); err != nil {
			b.Fatalf("GenThin failed: %v", err)
		}
	}
}

// BenchmarkGetHash benchmarks the artifact digest.
func BenchmarkGetHash(b *testing.B) {
	cfg := thin.DefaultConfig()
	cfg.Apply(
		thin.WithCacheDir(b.TempDir()),
		thin.WithInterpreter(newHost(b)),
	)
	path, err := thin.NewBuilder(newEnv(), cfg).GenThin(context.Background())
	if err != nil {
		b.Fatalf("GenThin failed: %v", err)
	}

	for _, form := range []string{"md5", "sha256", "sha512"} {
		b.Run(form, func(b *testing.B) {
			for b.Loop() {
				if _, err := thin.GetHash(path, form); err != nil {
					b.Fatalf("GetHash failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkGenerateLauncher benchmarks launcher rendering.
func BenchmarkGenerateLauncher(b *testing.B) {
	namespaces := map[string]types.PythonVersion{
		"py26": {Major: 2, Minor: 6},
		"py27": {Major: 2, Minor: 7},
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := thin.GenerateLauncher([]string{thin.SharedPrefix}, namespaces); err != nil {
			b.Fatalf("GenerateLauncher failed: %v", err)
		}
	}
}

// BenchmarkShimGenerate benchmarks shim rendering and shell reprinting.
func BenchmarkShimGenerate(b *testing.B) {
	opts := shim.Options{
		ThinDir:     "/var/tmp/.thinpack",
		Version:     testutil.AgentVersion,
		Compression: thin.CompressionGzip,
	}

	b.ResetTimer()
	for b.Loop() {
		if _, err := shim.Generate(opts); err != nil {
			b.Fatalf("Generate failed: %v", err)
		}
	}
}
