// SPDX-License-Identifier: MPL-2.0

package thin

import (
	"errors"
	"testing"
)

func TestConfigurationError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ConfigurationError
		want string
	}{
		{
			name: "message only",
			err:  &ConfigurationError{Message: "cache directory is not configured"},
			want: "cache directory is not configured",
		},
		{
			name: "missing and invalid",
			err: &ConfigurationError{
				Message: "Missing dependencies",
				Missing: []string{"jinja2", "yaml"},
				Invalid: []InvalidDependency{
					{Namespace: "py27", Dependency: "yaml", Path: "/nope", Reason: reasonNotAFile},
				},
			},
			want: `Missing dependencies: jinja2, yaml (1 invalid dependency path(s): module yaml in namespace "py27" ` +
				reasonNotAFile + `: /nope)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigurationError_Kind(t *testing.T) {
	t.Parallel()

	plain := configError("boom")
	if !errors.Is(plain, ErrConfiguration) {
		t.Error("plain error should match ErrConfiguration")
	}
	if errors.Is(plain, ErrInterpreter) {
		t.Error("plain error should not match a kind")
	}

	kinded := kindError(ErrModuleNotFound, "extra module %q missing", "six")
	if !errors.Is(kinded, ErrConfiguration) || !errors.Is(kinded, ErrModuleNotFound) {
		t.Errorf("kinded error should match both sentinels: %v", kinded)
	}
	if kinded.Error() != `extra module "six" missing` {
		t.Errorf("Error() = %q", kinded.Error())
	}
}
