// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/thinpack/thinpack/internal/config"
	"github.com/thinpack/thinpack/internal/thin"
)

// thinConfig translates the loaded configuration into builder settings.
// An empty cache dir keeps the builder default.
func thinConfig(cfg *config.Config) *thin.Config {
	tc := thin.DefaultConfig()
	tc.Apply(
		thin.WithCompression(cfg.Compression),
		thin.WithExtraMods(cfg.ExtraMods...),
		thin.WithSoMods(cfg.SoMods...),
		thin.WithOverwrite(cfg.Overwrite),
		thin.WithAbsonly(cfg.Absonly),
		thin.WithAlternates(cfg.Alternates...),
		thin.WithExtNamespaces(cfg.ExtNamespaces),
		thin.WithInterpreter(interpreterFromConfig(cfg.Python)),
	)
	if cfg.CacheDir != "" {
		tc.Apply(thin.WithCacheDir(cfg.CacheDir.String()))
	}
	return tc
}

func interpreterFromConfig(py config.PythonConfig) thin.Interpreter {
	bin := py.Bin.String()
	if bin == "" {
		bin = "python3"
	}
	return thin.Interpreter{
		Bin:          bin,
		Version:      py.StaticVersion(),
		Path:         py.Path,
		AgentVersion: py.AgentVersion,
	}
}
