// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetTops(t *testing.T) {
	t.Parallel()

	site := newSitePackages(t)
	env, buf := newTestEnv(t)

	tops, err := GetTops(env, NewSearchPathLocator([]string{site}), TopsOptions{
		ExtraMods: []string{"six"},
		SoMods:    []string{"_speedups"},
	})
	if err != nil {
		t.Fatalf("GetTops() error = %v", err)
	}

	want := []string{
		filepath.Join(site, "salt"),
		filepath.Join(site, "jinja2"),
		filepath.Join(site, "yaml"),
		filepath.Join(site, "tornado"),
		filepath.Join(site, "msgpack"),
		filepath.Join(site, "markupsafe"),
		filepath.Join(site, "six.py"),
		filepath.Join(site, "_speedups.cpython-311-x86_64.so"),
	}
	if diff := cmp.Diff(want, tops.Paths()); diff != "" {
		t.Errorf("GetTops() mismatch (-want +got):\n%s", diff)
	}

	if strings.Contains(buf.String(), "WARN") {
		t.Errorf("missing optional dependencies must not warn, got log:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "certifi") {
		t.Errorf("expected a debug record for the skipped certifi, got log:\n%s", buf.String())
	}
}

func TestGetTops_MissingExtraMod(t *testing.T) {
	t.Parallel()

	site := newSitePackages(t)
	env, _ := newTestEnv(t)

	_, err := GetTops(env, NewSearchPathLocator([]string{site}), TopsOptions{ExtraMods: []string{"nope"}})
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrConfiguration and ErrModuleNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), `"nope"`) {
		t.Errorf("error should name the module, got %q", err.Error())
	}
}

func TestResolveTops_CountIsOrderIndependent(t *testing.T) {
	t.Parallel()

	const (
		n = 5
		k = 3
		m = 2
	)

	manifest := map[string]string{}
	var required, extra, so []string
	for i := range n {
		name := fmt.Sprintf("req%d", i)
		manifest[name] = fmt.Sprintf("/site/%s/__init__.py", name)
		required = append(required, name)
	}
	for i := range k {
		name := fmt.Sprintf("extra%d", i)
		manifest[name] = fmt.Sprintf("/site/%s.py", name)
		extra = append(extra, name)
	}
	for i := range m {
		name := fmt.Sprintf("native%d", i)
		manifest[name] = fmt.Sprintf("/site/%s.so", name)
		so = append(so, name)
	}
	loc := NewStaticLocator(manifest)

	rng := rand.New(rand.NewPCG(1, 2))
	for round := range 20 {
		rng.Shuffle(len(required), func(i, j int) { required[i], required[j] = required[j], required[i] })
		rng.Shuffle(len(extra), func(i, j int) { extra[i], extra[j] = extra[j], extra[i] })
		rng.Shuffle(len(so), func(i, j int) { so[i], so[j] = so[j], so[i] })

		tops, err := resolveTops(nil, loc, required, TopsOptions{ExtraMods: extra, SoMods: so})
		if err != nil {
			t.Fatalf("round %d: resolveTops() error = %v", round, err)
		}
		if tops.Len() != n+k+m {
			t.Fatalf("round %d: got %d tops, want %d", round, tops.Len(), n+k+m)
		}
		assertUnique(t, tops.Paths())
	}
}

func TestResolveTops_Deduplicates(t *testing.T) {
	t.Parallel()

	loc := NewStaticLocator(map[string]string{
		"salt":       "/site/salt/__init__.py",
		"salt.utils": "/site/salt/utils/__init__.py",
		"alias":      "/site/salt/__init__.py",
	})

	tops, err := resolveTops(nil, loc, []string{"salt", "salt"}, TopsOptions{ExtraMods: []string{"alias", "salt.utils"}})
	if err != nil {
		t.Fatalf("resolveTops() error = %v", err)
	}
	want := []string{"/site/salt", "/site/salt/utils"}
	if diff := cmp.Diff(want, tops.Paths()); diff != "" {
		t.Errorf("tops mismatch (-want +got):\n%s", diff)
	}
}

func TestTopSet(t *testing.T) {
	t.Parallel()

	s := NewTopSet("/a/b/", "/a/b")
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if !s.Contains("/a/./b") {
		t.Error("Contains should compare cleaned paths")
	}
	if s.Add("/a/b") {
		t.Error("Add of a member should report false")
	}
	if !s.Add("/a/c") {
		t.Error("Add of a new path should report true")
	}

	paths := s.Paths()
	paths[0] = "mutated"
	if s.Paths()[0] != "/a/b" {
		t.Error("Paths must return a copy")
	}
}

func assertUnique(t *testing.T, paths []string) {
	t.Helper()
	seen := map[string]bool{}
	for _, p := range paths {
		if seen[p] {
			t.Errorf("duplicate path %q", p)
		}
		seen[p] = true
	}
}
