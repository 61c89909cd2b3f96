// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSitePackages(t *testing.T) {
	t.Parallel()

	site := NewSitePackages(t)
	for _, rel := range []string{"salt/__init__.py", "six.py", "_speedups.cpython-311-x86_64.so"} {
		if _, err := os.Stat(filepath.Join(site, rel)); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(site, "salt", "version.py"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "__version__ = '" + AgentVersion + "'\n"; string(data) != want {
		t.Errorf("version.py = %q, want %q", data, want)
	}
}

func TestFakeClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	if !clock.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", clock.Now(), start)
	}
	clock.Advance(90 * time.Second)
	if got := clock.Now().Sub(start); got != 90*time.Second {
		t.Errorf("Advance moved the clock by %v", got)
	}
}

func TestMustSetenv(t *testing.T) {
	const key = "THINPACK_TESTUTIL_PROBE"
	t.Run("set", func(t *testing.T) {
		MustSetenv(t, key, "1")
		if os.Getenv(key) != "1" {
			t.Errorf("%s not set", key)
		}
	})
	if _, ok := os.LookupEnv(key); ok {
		t.Errorf("%s should be unset after cleanup", key)
	}
}

func TestContainerParallelism(t *testing.T) {
	MustSetenv(t, "THINPACK_TEST_CONTAINER_PARALLEL", "5")
	if got := containerParallelism(); got != 5 {
		t.Errorf("containerParallelism() = %d, want 5", got)
	}
	MustSetenv(t, "THINPACK_TEST_CONTAINER_PARALLEL", "zero")
	if got := containerParallelism(); got < 1 || got > 2 {
		t.Errorf("containerParallelism() = %d, want 1 or 2", got)
	}
}
