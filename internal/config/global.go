// SPDX-License-Identifier: MPL-2.0

package config

import "os"

// ConfigDirEnv names a directory that replaces the platform config directory.
const ConfigDirEnv = EnvPrefix + "_CONFIG_DIR"

// configDirOverride pins ConfigDir for the whole process. It wins over
// ConfigDirEnv.
var configDirOverride string

// Reset drops a directory pinned with SetConfigDirOverride.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride pins ConfigDir to dir. Tests use it to keep
// CreateDefaultConfig and the default config lookup inside a temp directory.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// overriddenConfigDir returns the pinned or environment-selected config
// directory, if any.
func overriddenConfigDir() (string, bool) {
	if configDirOverride != "" {
		return configDirOverride, true
	}
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, true
	}
	return "", false
}
