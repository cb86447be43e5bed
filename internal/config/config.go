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

// Package config loads and validates the assistant's configuration file:
// a single root Config tree covering storage, the LLM/embedder backend,
// PEAL's tunables, the scheduler's time rules, the safe-shell policy, and
// the HTTP server, expanded from YAML plus environment variable
// substitution the way the teacher's pkg/config package does it.
package config

import (
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/errkind"
)

// Config is the root configuration tree, unmarshaled from a YAML file by
// Load. Every nested section carries its own Validate, called in turn
// from Config.Validate; every section except Scheduler also carries a
// SetDefaults, called in turn from Config.SetDefaults.
type Config struct {
	Logger       LoggerConfig       `yaml:"logger,omitempty"`
	Server       ServerConfig       `yaml:"server,omitempty"`
	Databases    DatabasesConfig    `yaml:"databases,omitempty"`
	VectorStores VectorStoresConfig `yaml:"vector_stores,omitempty"`
	LLM          LLMConfig          `yaml:"llm,omitempty"`
	Embedder     EmbedderConfig     `yaml:"embedder,omitempty"`
	Memory       MemoryConfig       `yaml:"memory,omitempty"`
	Peal         PealConfig         `yaml:"peal,omitempty"`
	Scheduler    SchedulerConfig    `yaml:"scheduler,omitempty"`
	Shell        ShellConfig        `yaml:"shell,omitempty"`
}

// SetDefaults fills in every section's defaults in place.
func (c *Config) SetDefaults() {
	c.Logger.SetDefaults()
	c.Server.SetDefaults()
	c.Databases.SetDefaults()
	c.VectorStores.SetDefaults()
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.Memory.SetDefaults()
	c.Peal.SetDefaults()
	c.Shell.SetDefaults()
}

// Validate checks every section, returning the first error encountered
// wrapped with the section name so a misconfigured file is easy to place.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		err  error
	}{
		{"logger", c.Logger.Validate()},
		{"server", c.Server.Validate()},
		{"databases", c.Databases.Validate()},
		{"vector_stores", c.VectorStores.Validate()},
		{"llm", c.LLM.Validate()},
		{"embedder", c.Embedder.Validate()},
		{"memory", c.Memory.Validate()},
		{"peal", c.Peal.Validate()},
		{"scheduler", c.Scheduler.Validate()},
		{"shell", c.Shell.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			return errkind.New(errkind.InvalidArgument, fmt.Errorf("%s: %w", s.name, s.err))
		}
	}
	return nil
}
