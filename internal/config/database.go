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

// defaultDatabaseName is the SQLite store every existing component
// (graph.OpenSQLStore, taskqueue.NewManager, scheduler.New) shares
// today; extra named entries are accepted but unconsumed until a
// component asks for a second store by name.
const defaultDatabaseName = "default"

// DatabaseConfig configures one SQLite-backed graph.Store. The teacher's
// database config spans postgres/mysql/sqlite with pool-size knobs;
// graph.OpenSQLStore(path string) only ever opens a SQLite file with no
// pool to size, so this is scoped down to just the file path.
type DatabaseConfig struct {
	// Path is the SQLite database file. Default: "hectorassist.db".
	Path string `yaml:"path,omitempty"`
}

// SetDefaults applies default values to the database config.
func (c *DatabaseConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "hectorassist.db"
	}
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// DatabasesConfig names zero or more DatabaseConfig entries (spec's
// `databases`, plural). Every component the assistant wires today
// shares a single SQLite-backed graph.Store, so in practice only the
// "default" entry is read, but the map shape leaves room for a
// deployment to split, say, the task queue's backing store from the
// SMLG's without a config-schema change.
type DatabasesConfig map[string]*DatabaseConfig

// SetDefaults ensures a "default" entry exists and applies its defaults.
func (c *DatabasesConfig) SetDefaults() {
	if *c == nil {
		*c = DatabasesConfig{}
	}
	if _, ok := (*c)[defaultDatabaseName]; !ok {
		(*c)[defaultDatabaseName] = &DatabaseConfig{}
	}
	for _, dc := range *c {
		dc.SetDefaults()
	}
}

// Validate validates every named database config.
func (c DatabasesConfig) Validate() error {
	for name, dc := range c {
		if err := dc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Default returns the "default" named database config.
func (c DatabasesConfig) Default() *DatabaseConfig {
	return c[defaultDatabaseName]
}
