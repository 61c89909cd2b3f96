// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thinpack/thinpack/pkg/types"
)

// fakePython writes an executable that prints stdout and exits with code.
func fakePython(t *testing.T, stdout string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreters are shell scripts")
	}
	bin := filepath.Join(t.TempDir(), "python")
	script := "#!/bin/sh\ncat <<'JSON'\n" + stdout + "\nJSON\nexit " + strconv.Itoa(code) + "\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake interpreter: %v", err)
	}
	return bin
}

func TestExecProbe(t *testing.T) {
	t.Parallel()

	bin := fakePython(t, `{"version": [2, 7], "path": ["/usr/lib/python2.7", "/usr/lib/python2.7/site-packages"], "agent_version": "2019.2.8"}`, 0)
	env, _ := newTestEnv(t)

	got, err := NewExecProbe(env).Probe(context.Background(), bin)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	want := &Interpreter{
		Bin:          bin,
		Version:      types.PythonVersion{Major: 2, Minor: 7},
		Path:         []string{"/usr/lib/python2.7", "/usr/lib/python2.7/site-packages"},
		AgentVersion: "2019.2.8",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Probe() mismatch (-want +got):\n%s", diff)
	}
}

func TestExecProbe_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stdout string
		code   int
	}{
		{"non-zero exit", `{"version": [3, 6], "path": []}`, 1},
		{"garbage output", "Traceback (most recent call last):", 0},
		{"no version", `{"path": ["/x"]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bin := fakePython(t, tt.stdout, tt.code)
			env, _ := newTestEnv(t)
			_, err := NewExecProbe(env).Probe(context.Background(), bin)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestExecProbe_MissingBinary(t *testing.T) {
	t.Parallel()

	env, _ := newTestEnv(t)
	_, err := NewExecProbe(env).Probe(context.Background(), filepath.Join(t.TempDir(), "no-python"))
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, ErrInterpreter) {
		t.Errorf("expected ErrConfiguration and ErrInterpreter, got %v", err)
	}
}
