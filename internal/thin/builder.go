// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/thinpack/thinpack/pkg/types"
)

const (
	// VariantThin bundles the agent with every dependency.
	VariantThin Variant = "thin"
	// VariantMin bundles the agent only.
	VariantMin Variant = "min"
)

// buildGroup collapses concurrent builds of the same slot and settings.
var buildGroup singleflight.Group

type (
	// Variant selects what a bundle carries.
	Variant string

	// Manifest is everything that goes into one archive.
	Manifest struct {
		Variant     Variant
		Compression Compression
		// Tops maps an archive prefix to the tops copied under it.
		Tops map[string][]string
		// Launcher is the rendered launcher script.
		Launcher []byte
		// Version is the agent version written to the version marker.
		Version string
		// GenPyVersion is the host interpreter version.
		GenPyVersion string
	}

	// Builder produces thin and min artifacts in a cache directory.
	Builder struct {
		cfg   *Config
		env   *Env
		probe Probe
		now   func() time.Time

		// generate and hash are the two steps of a sum request.
		generate func(ctx context.Context, v Variant) (string, error)
		hash     func(path, form string) (string, error)
	}

	// BuilderOption configures a Builder.
	BuilderOption func(*Builder)
)

// String returns the variant name.
func (v Variant) String() string { return string(v) }

// IsValid reports whether v is thin or min.
func (v Variant) IsValid() bool { return v == VariantThin || v == VariantMin }

// GenMarker is the name of the generating interpreter version marker.
func (v Variant) GenMarker() string { return "." + string(v) + "-gen-py-version" }

// Prefixes returns the archive prefixes in write order.
func (m *Manifest) Prefixes() []string {
	prefixes := make([]string, 0, len(m.Tops))
	for p := range m.Tops {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes
}

// WithProbe replaces the interpreter probe.
func WithProbe(p Probe) BuilderOption {
	return func(b *Builder) {
		b.probe = p
	}
}

// WithClock sets the time source used for generated archive members.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder. A nil cfg means DefaultConfig().
func NewBuilder(env *Env, cfg *Config, opts ...BuilderOption) *Builder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	b := &Builder{
		cfg:   cfg,
		env:   env,
		probe: NewExecProbe(env),
		now:   time.Now,
		hash:  GetHash,
	}
	b.generate = b.gen
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the builder configuration.
func (b *Builder) Config() *Config { return b.cfg }

// Env returns the builder's environment.
func (b *Builder) Env() *Env { return b.env }

// GenThin makes sure a current thin artifact exists and returns its path.
func (b *Builder) GenThin(ctx context.Context) (string, error) {
	return b.generate(ctx, VariantThin)
}

// GenMin makes sure a current min artifact exists and returns its path.
func (b *Builder) GenMin(ctx context.Context) (string, error) {
	return b.generate(ctx, VariantMin)
}

// Gen builds the given variant.
func (b *Builder) Gen(ctx context.Context, v Variant) (string, error) {
	if !v.IsValid() {
		return "", fmt.Errorf("unknown bundle variant %q", v)
	}
	return b.generate(ctx, v)
}

func (b *Builder) gen(ctx context.Context, v Variant) (string, error) {
	cacheDir, err := b.cacheDir()
	if err != nil {
		return "", err
	}
	comp := resolveCompression(b.env, b.cfg.Compression)
	slot := SlotPath(cacheDir, v, comp)

	// The build ignores caller cancellation; a cancelled caller only stops
	// waiting for it.
	buildCtx := context.WithoutCancel(ctx)
	ch := buildGroup.DoChan(b.buildKey(slot), func() (any, error) {
		return b.build(buildCtx, v, slot, comp)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			b.env.Logger().Debug("Joined in-flight build", "variant", v, "path", slot)
		}
		return res.Val.(string), nil
	}
}

// buildKey identifies one build: the slot it writes plus every setting that
// changes the slot's contents.
func (b *Builder) buildKey(slot string) string {
	c := b.cfg
	ns, err := json.Marshal(c.ExtNamespaces)
	if err != nil {
		ns = fmt.Appendf(nil, "%v", c.ExtNamespaces)
	}
	return strings.Join([]string{
		slot,
		strconv.FormatBool(c.Overwrite),
		strconv.FormatBool(c.Absonly),
		strings.Join(c.ExtraMods, ","),
		strings.Join(c.SoMods, ","),
		strings.Join(c.Alternates, ","),
		c.Interpreter.Bin,
		c.Interpreter.Version.String(),
		c.Interpreter.AgentVersion,
		strings.Join(c.Interpreter.Path, string(os.PathListSeparator)),
		string(ns),
	}, "\x00")
}

func (b *Builder) cacheDir() (string, error) {
	if strings.TrimSpace(b.cfg.CacheDir) == "" {
		return "", kindError(ErrCacheDir, "cache directory is not configured")
	}
	dir, err := filepath.Abs(b.cfg.CacheDir)
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return dir, nil
}

func (b *Builder) build(ctx context.Context, v Variant, slot string, comp Compression) (string, error) {
	logger := b.env.Logger()

	host, err := b.prepare(ctx)
	if err != nil {
		return "", err
	}

	if !b.cfg.Overwrite && isFresh(slot, v, host) {
		logger.Debug("Artifact is current, reusing", "variant", v, "path", slot)
		return slot, nil
	}

	m, err := b.manifest(ctx, v, host, comp)
	if err != nil {
		return "", err
	}

	logger.Info("Building bundle", "variant", v, "compression", comp, "path", slot)
	if err := b.write(slot, m); err != nil {
		return "", err
	}
	if err := writeMarkers(slot, v, m); err != nil {
		return "", err
	}
	return slot, nil
}

// prepare resolves the host interpreter and enforces the interpreter floor.
func (b *Builder) prepare(ctx context.Context) (*Interpreter, error) {
	host, err := b.HostInterpreter(ctx)
	if err != nil {
		return nil, err
	}
	if host.Version.Less(MinimumPythonVersion) {
		return nil, kindError(ErrPythonTooOld, "The minimum required python version to run salt-ssh is %q.", MinimumPythonVersion.String())
	}
	return host, nil
}

// HostInterpreter returns the configured host interpreter, probing it when no
// static version is configured.
func (b *Builder) HostInterpreter(ctx context.Context) (*Interpreter, error) {
	if !b.cfg.Interpreter.Version.IsZero() {
		interp := b.cfg.Interpreter
		return &interp, nil
	}
	bin := b.cfg.Interpreter.Bin
	if bin == "" {
		bin = "python3"
	}
	return b.probe.Probe(ctx, bin)
}

// Manifest resolves what an archive of the given variant would contain
// without writing anything.
func (b *Builder) Manifest(ctx context.Context, v Variant) (*Manifest, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("unknown bundle variant %q", v)
	}
	host, err := b.prepare(ctx)
	if err != nil {
		return nil, err
	}
	return b.manifest(ctx, v, host, resolveCompression(b.env, b.cfg.Compression))
}

func (b *Builder) manifest(ctx context.Context, v Variant, host *Interpreter, comp Compression) (*Manifest, error) {
	loc := host.Locator()
	if _, ok := loc.Locate(AgentPackage); !ok {
		return nil, kindError(ErrAgentNotFound, "agent package %q is not importable by interpreter %q", AgentPackage, host.Bin)
	}
	if host.AgentVersion == "" {
		return nil, kindError(ErrAgentNotFound, "agent version of interpreter %q is unknown", host.Bin)
	}

	tops := map[string]*TopSet{}
	add := func(prefix string, paths ...string) {
		if tops[prefix] == nil {
			tops[prefix] = NewTopSet()
		}
		for _, p := range paths {
			tops[prefix].Add(p)
		}
	}

	opts := TopsOptions{ExtraMods: b.cfg.ExtraMods, SoMods: b.cfg.SoMods}
	var nsVersions map[string]types.PythonVersion

	switch v {
	case VariantMin:
		set, err := resolveTops(b.env, loc, []string{AgentPackage}, opts)
		if err != nil {
			return nil, err
		}
		add(SharedPrefix, set.Paths()...)

	default:
		set, err := GetTops(b.env, loc, opts)
		if err != nil {
			return nil, err
		}
		b.addHostTops(add, host.Version.Major, set)

		if err := b.addAlternates(ctx, add, host); err != nil {
			return nil, err
		}

		nsVersions, err = b.addNamespaces(add)
		if err != nil {
			return nil, err
		}
	}

	launcher, err := GenerateLauncher([]string{SharedPrefix}, nsVersions)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Variant:      v,
		Compression:  comp,
		Tops:         make(map[string][]string, len(tops)),
		Launcher:     launcher,
		Version:      host.AgentVersion,
		GenPyVersion: host.Version.String(),
	}
	for prefix, set := range tops {
		m.Tops[prefix] = set.Paths()
	}
	return m, nil
}

func (b *Builder) addHostTops(add func(string, ...string), major int, set *TopSet) {
	for _, top := range set.Paths() {
		if isShareable(top) {
			add(SharedPrefix, top)
		} else {
			add(versionPrefix(major), top)
		}
	}
}

// addAlternates probes every alternate interpreter once and bundles its
// version specific dependencies. Shareable tops come from the host.
func (b *Builder) addAlternates(ctx context.Context, add func(string, ...string), host *Interpreter) error {
	logger := b.env.Logger()
	for _, bin := range b.cfg.Alternates {
		alt, err := b.probe.Probe(ctx, bin)
		if err != nil {
			return err
		}
		if alt.Version.Major == host.Version.Major {
			logger.Debug("Alternate interpreter shares the host major version, skipping", "bin", bin, "version", alt.Version)
			continue
		}
		set, err := resolveTops(b.env, alt.Locator(), LocalDependencies, TopsOptions{})
		if err != nil {
			return err
		}
		for _, top := range set.Paths() {
			if !isShareable(top) {
				add(versionPrefix(alt.Version.Major), top)
			}
		}
	}
	return nil
}

func (b *Builder) addNamespaces(add func(string, ...string)) (map[string]types.PythonVersion, error) {
	if len(b.cfg.ExtNamespaces) == 0 {
		return nil, nil
	}
	cfg, err := GetExtTops(b.env, b.cfg.ExtNamespaces)
	if err != nil {
		return nil, err
	}
	namespaces, err := DecodeNamespaces(cfg)
	if err != nil {
		return nil, err
	}

	versions := make(map[string]types.PythonVersion, len(namespaces))
	for _, name := range sortedKeys(namespaces) {
		ns := namespaces[name]
		add(name, ns.Path)
		for _, dep := range sortedKeys(ns.Dependencies) {
			add(name, ns.Dependencies[dep])
		}
		versions[name] = ns.PyVersion
	}
	return versions, nil
}

func (b *Builder) write(slot string, m *Manifest) error {
	return writeArchive(slot, m.Compression, func(aw archiveWriter) error {
		bw := newBundleWriter(b.env, aw, m.Variant == VariantThin, b.cfg.Absonly, b.now())
		for _, prefix := range m.Prefixes() {
			for _, top := range m.Tops[prefix] {
				if err := bw.addTop(prefix, top); err != nil {
					return err
				}
			}
		}
		if err := bw.addBytes(LauncherName, m.Launcher, 0o755); err != nil {
			return err
		}
		if err := bw.addBytes(VersionMarkerName, []byte(m.Version), 0o644); err != nil {
			return err
		}
		if m.Variant != VariantThin {
			return nil
		}
		if err := bw.addBytes(m.Variant.GenMarker(), []byte(m.GenPyVersion), 0o644); err != nil {
			return err
		}
		return bw.addBytes(CodeChecksumName, []byte(bw.CodeChecksum()), 0o644)
	})
}

// MarkerPath returns where the freshness marker name of slot is kept. Every
// slot carries its own markers so that slots of different compressions never
// vouch for each other.
func MarkerPath(slot, name string) string {
	return slot + "." + strings.TrimPrefix(name, ".")
}

// writeMarkers records what slot was built from, next to the slot.
func writeMarkers(slot string, v Variant, m *Manifest) error {
	markers := map[string]string{
		VersionMarkerName: m.Version,
		v.GenMarker():     m.GenPyVersion,
	}
	for name, content := range markers {
		if err := os.WriteFile(MarkerPath(slot, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write marker %s: %w", name, err)
		}
	}
	return nil
}

// isFresh reports whether slot was built for the current agent version by an
// interpreter of the same major version.
func isFresh(slot string, v Variant, host *Interpreter) bool {
	if !isRegularFile(slot) {
		return false
	}
	version, err := os.ReadFile(MarkerPath(slot, VersionMarkerName))
	if err != nil || strings.TrimSpace(string(version)) != host.AgentVersion {
		return false
	}
	gen, err := os.ReadFile(MarkerPath(slot, v.GenMarker()))
	if err != nil {
		return false
	}
	genVersion, err := types.ParsePythonVersion(strings.TrimSpace(string(gen)))
	return err == nil && genVersion.Major == host.Version.Major
}
