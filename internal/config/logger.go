// Copyright 2025 Kadir Pekel
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

import "fmt"

// LoggerConfig is the config file's logger section; it is loaded, given
// defaults and validated with the rest of the file. The CLI sets up the
// process logger from its --log-level and --log-format flags only: it
// does not read this section or any environment variable for logging,
// and it has no --log-file flag.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `yaml:"level,omitempty"`

	// File is the log file path. Empty means stderr.
	File string `yaml:"file,omitempty"`

	// Format is "simple" (level + message) or "verbose" (standard slog
	// text, with timestamps). Default: simple.
	Format string `yaml:"format,omitempty"`
}

// SetDefaults applies default values to LoggerConfig.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate checks the logger configuration.
func (c *LoggerConfig) Validate() error {
	if c.Level != "" {
		validLevels := map[string]bool{
			"debug": true, "info": true, "warn": true, "warning": true, "error": true,
		}
		if !validLevels[c.Level] {
			return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Level)
		}
	}
	// Format can be "simple", "verbose", or any custom value; no validation.
	return nil
}
