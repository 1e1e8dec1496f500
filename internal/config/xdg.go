// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for minecontrol.
// Respects XDG_CONFIG_HOME; falls back to ~/.config/minecontrol.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "minecontrol"), nil
}

// ResolvePath picks the config file to load. An explicit path always
// wins; otherwise the XDG config file is used if it exists. An empty
// result means environment-only configuration.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}
