// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thinpack/thinpack/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// LogLevelDebug logs everything, including skipped optional dependencies.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs build progress.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs degraded conditions only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidBinaryFilePath is returned when a BinaryFilePath value is whitespace-only.
	ErrInvalidBinaryFilePath = errors.New("invalid binary file path")
	// ErrInvalidCacheDirPath is returned when a CacheDirPath value is whitespace-only.
	ErrInvalidCacheDirPath = errors.New("invalid cache dir path")
	// ErrInvalidPythonConfig is the sentinel error wrapped by InvalidPythonConfigError.
	ErrInvalidPythonConfig = errors.New("invalid python config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// LogLevel is the minimum level written to the build log.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// BinaryFilePath represents a filesystem path or PATH name of an executable.
	// The zero value ("") is valid and means "use the default interpreter".
	BinaryFilePath string

	// InvalidBinaryFilePathError is returned when a BinaryFilePath value is
	// non-empty but whitespace-only.
	InvalidBinaryFilePathError struct {
		Value BinaryFilePath
	}

	// CacheDirPath represents a filesystem path to a cache directory.
	// The zero value ("") is valid and means "use default cache directory".
	// Non-zero values must not be whitespace-only.
	CacheDirPath string

	// InvalidCacheDirPathError is returned when a CacheDirPath value is
	// non-empty but whitespace-only.
	InvalidCacheDirPathError struct {
		Value CacheDirPath
	}

	// InvalidPythonConfigError is returned when a PythonConfig has invalid fields.
	InvalidPythonConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// CacheDir is where artifacts are built. Empty means the platform cache dir.
		CacheDir CacheDirPath `json:"cache_dir" mapstructure:"cache_dir"`
		// Compression is the archive encoding token (gzip, zip, zstd).
		// Unknown tokens are accepted here and fall back at build time.
		Compression string `json:"compression" mapstructure:"compression"`
		// ExtraMods are additional modules bundled with the agent.
		ExtraMods []string `json:"extra_mods" mapstructure:"extra_mods"`
		// SoMods are compiled extension modules bundled as single files.
		SoMods []string `json:"so_mods" mapstructure:"so_mods"`
		// Absonly skips relative tops.
		Absonly bool `json:"absonly" mapstructure:"absonly"`
		// Overwrite always rebuilds artifacts.
		Overwrite bool `json:"overwrite" mapstructure:"overwrite"`
		// Python describes the host interpreter.
		Python PythonConfig `json:"python" mapstructure:"python"`
		// Alternates are additional interpreters probed for the thin bundle.
		Alternates []string `json:"alternates" mapstructure:"alternates"`
		// ExtNamespaces is the raw external namespace configuration. It is kept
		// out of viper so namespace names keep their case.
		ExtNamespaces map[string]any `json:"ext_namespaces,omitempty" mapstructure:"-"`
		// ExtNamespacesFile points to a separate namespace file
		// (.cue, .toml, .yaml, .yml or .json).
		ExtNamespacesFile string `json:"ext_namespaces_file,omitempty" mapstructure:"ext_namespaces_file"`
		// LogLevel is the minimum level written to stderr.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Shim configures the generated remote shim.
		Shim ShimConfig `json:"shim" mapstructure:"shim"`
	}

	// PythonConfig describes the host interpreter. When Version is empty the
	// interpreter is probed through Bin.
	PythonConfig struct {
		// Bin is the interpreter executable (default: python3).
		Bin BinaryFilePath `json:"bin" mapstructure:"bin"`
		// Version is the static "major.minor" version.
		Version string `json:"version,omitempty" mapstructure:"version"`
		// Path is the static module search path.
		Path []string `json:"path,omitempty" mapstructure:"path"`
		// AgentVersion is the static agent version.
		AgentVersion string `json:"agent_version,omitempty" mapstructure:"agent_version"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// ShimConfig configures the remote shim.
	ShimConfig struct {
		// ThinDir is the remote directory the bundle is unpacked into.
		ThinDir string `json:"thin_dir" mapstructure:"thin_dir"`
		// Pythons are the remote interpreter candidates, in order.
		Pythons []string `json:"pythons" mapstructure:"pythons"`
	}
)

// IsValid returns whether the PythonConfig has valid fields.
func (c PythonConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Bin.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Version != "" {
		if _, err := types.ParsePythonVersion(c.Version); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidPythonConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// StaticVersion returns the configured version, or the zero value when the
// interpreter has to be probed.
func (c PythonConfig) StaticVersion() types.PythonVersion {
	v, err := types.ParsePythonVersion(c.Version)
	if err != nil {
		return types.PythonVersion{}
	}
	return v
}

// Error implements the error interface for InvalidPythonConfigError.
func (e *InvalidPythonConfigError) Error() string {
	return fmt.Sprintf("invalid python config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidPythonConfig for errors.Is() compatibility.
func (e *InvalidPythonConfigError) Unwrap() error { return ErrInvalidPythonConfig }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.CacheDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Python.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, alt := range c.Alternates {
		if strings.TrimSpace(alt) == "" {
			errs = append(errs, &InvalidBinaryFilePathError{Value: BinaryFilePath(alt)})
		}
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// String returns the string representation of the BinaryFilePath.
func (p BinaryFilePath) String() string { return string(p) }

// IsValid returns whether the BinaryFilePath is valid.
// The zero value ("") is valid. Non-zero values must not be whitespace-only.
func (p BinaryFilePath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidBinaryFilePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidBinaryFilePathError.
func (e *InvalidBinaryFilePathError) Error() string {
	return fmt.Sprintf("invalid binary file path %q: must not be empty or whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidBinaryFilePath for errors.Is() compatibility.
func (e *InvalidBinaryFilePathError) Unwrap() error { return ErrInvalidBinaryFilePath }

// String returns the string representation of the CacheDirPath.
func (p CacheDirPath) String() string { return string(p) }

// IsValid returns whether the CacheDirPath is valid.
// The zero value ("") is valid (means "use default cache directory").
// Non-zero values must not be whitespace-only.
func (p CacheDirPath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidCacheDirPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCacheDirPathError.
func (e *InvalidCacheDirPathError) Error() string {
	return fmt.Sprintf("invalid cache dir path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidCacheDirPath for errors.Is() compatibility.
func (e *InvalidCacheDirPathError) Unwrap() error { return ErrInvalidCacheDirPath }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error {
	return ErrInvalidLogLevel
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheDir:    "", // Will use the platform cache dir if empty
		Compression: "gzip",
		ExtraMods:   []string{},
		SoMods:      []string{},
		Python: PythonConfig{
			Bin: "python3",
		},
		Alternates: []string{},
		LogLevel:   LogLevelWarn,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
		Shim: ShimConfig{
			ThinDir: "/var/tmp/.thinpack",
			Pythons: []string{"python3", "python", "python2"},
		},
	}
}
