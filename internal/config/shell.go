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

import (
	"fmt"
	"time"

	"github.com/kadirpekel/hectorassist/internal/shell"
)

// ShellConfig configures the safe shell executor's policy: which
// commands are additionally blocked or allow-listed beyond the built-in
// lists, whether sudo/network commands are permitted, and execution
// limits.
type ShellConfig struct {
	// AdditionalBlocked extends the built-in blocked-command list.
	AdditionalBlocked []string `yaml:"additional_blocked,omitempty"`

	// AdditionalSafe extends the built-in safe-command list.
	AdditionalSafe []string `yaml:"additional_safe,omitempty"`

	// AllowSudo permits sudo-prefixed commands. Default: false.
	AllowSudo bool `yaml:"allow_sudo,omitempty"`

	// AllowNetwork permits network-capable commands (curl, wget, ...).
	// Default: true.
	AllowNetwork *bool `yaml:"allow_network,omitempty"`

	// SandboxDir is where non-safe commands run against a copy of the
	// working directory. Empty means a fresh temporary directory per
	// command.
	SandboxDir string `yaml:"sandbox_dir,omitempty"`

	// TimeoutSeconds bounds how long a single command may run.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// TrackFiles enables pre/post file snapshotting for rollback.
	// Default: true.
	TrackFiles *bool `yaml:"track_files,omitempty"`

	// WorkingDir is the directory commands run in. Default: process cwd.
	WorkingDir string `yaml:"working_dir,omitempty"`
}

// SetDefaults applies default values to ShellConfig.
func (c *ShellConfig) SetDefaults() {
	if c.AllowNetwork == nil {
		allow := true
		c.AllowNetwork = &allow
	}
	if c.TrackFiles == nil {
		track := true
		c.TrackFiles = &track
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
}

// Validate checks the shell configuration.
func (c *ShellConfig) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be non-negative")
	}
	return nil
}

// ToPolicy builds a shell.CommandPolicy from the configured overrides.
func (c ShellConfig) ToPolicy() *shell.CommandPolicy {
	opts := []shell.PolicyOption{
		shell.WithAdditionalBlocked(c.AdditionalBlocked...),
		shell.WithAdditionalSafe(c.AdditionalSafe...),
		shell.WithAllowSudo(c.AllowSudo),
	}
	if c.AllowNetwork != nil {
		opts = append(opts, shell.WithAllowNetwork(*c.AllowNetwork))
	}
	return shell.NewCommandPolicy(opts...)
}

// ToExecutor builds a shell.SafeShellExecutor from the configured policy
// and execution limits.
func (c ShellConfig) ToExecutor() *shell.SafeShellExecutor {
	opts := []shell.ExecutorOption{
		shell.WithPolicy(c.ToPolicy()),
		shell.WithTimeout(time.Duration(c.TimeoutSeconds) * time.Second),
	}
	if c.SandboxDir != "" {
		opts = append(opts, shell.WithSandboxDir(c.SandboxDir))
	}
	if c.TrackFiles != nil {
		opts = append(opts, shell.WithTrackFiles(*c.TrackFiles))
	}
	if c.WorkingDir != "" {
		opts = append(opts, shell.WithWorkingDir(c.WorkingDir))
	}
	return shell.NewSafeShellExecutor(opts...)
}
