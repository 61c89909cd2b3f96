// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	if err := FormatError(nil, "config.cue"); err != nil {
		t.Errorf("FormatError(nil) = %v, want nil", err)
	}

	err := FormatError(errors.New("boom"), "config.cue")
	if err == nil || err.Error() != "config.cue: boom" {
		t.Errorf("FormatError(plain) = %v, want %q", err, "config.cue: boom")
	}
}

func TestFormatError_CUEPath(t *testing.T) {
	t.Parallel()

	schema := `#Shim: {thin_dir?: =~"^/", pythons?: [...string]}`
	_, err := ParseAndDecodeString[map[string]any](schema, []byte(`thin_dir: "tmp"`), "#Shim",
		WithFilename("config.cue"))
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.HasPrefix(err.Error(), "config.cue: thin_dir: ") {
		t.Errorf("error should be prefixed with file and field path, got %q", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"compression"}, "compression"},
		{[]string{"python", "bin"}, "python.bin"},
		{[]string{"alternates", "0"}, "alternates[0]"},
		{[]string{"ext_namespaces", "py27", "py-version", "1"}, "ext_namespaces.py27.py-version[1]"},
		{[]string{"0"}, "0"},
	}

	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 100), 100, "ns.cue"); err != nil {
		t.Errorf("data at the limit should pass, got %v", err)
	}
	if err := CheckFileSize(nil, 100, "ns.cue"); err != nil {
		t.Errorf("empty data should pass, got %v", err)
	}

	err := CheckFileSize(make([]byte, 101), 100, "ns.cue")
	if err == nil {
		t.Fatal("expected an error above the limit")
	}
	for _, want := range []string{"ns.cue", "101", "100"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err, want)
		}
	}
}
