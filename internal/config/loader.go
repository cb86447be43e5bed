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

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Loader reads a YAML configuration file through koanf, expands
// environment variable references, and unmarshals the result into a
// Config. The teacher's Loader also supports consul/etcd/zookeeper
// remote providers and live-reload watching; this one is scoped to the
// single local file the assistant actually runs with.
type Loader struct {
	path string
}

// NewLoader builds a Loader for the given YAML file path.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	return &Loader{path: path}, nil
}

// Load reads, expands, unmarshals, defaults, and validates the config
// file, returning a ready-to-use Config.
func (l *Loader) Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", l.path, err)
	}

	expanded := ExpandEnvVarsInData(k.Raw())
	expandedMap, ok := expanded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected type after environment variable expansion")
	}

	// Round-trip through yaml.v3 rather than re-loading the expanded map
	// into a fresh koanf instance (which would need the confmap provider,
	// a dependency nothing else in this module needs) — koanf.Raw()
	// already gives us a plain map that yaml.v3 marshals and unmarshals
	// using the same `yaml` struct tags koanf itself honors.
	rawYAML, err := yamlv3.Marshal(expandedMap)
	if err != nil {
		return nil, fmt.Errorf("re-marshal expanded config: %w", err)
	}

	cfg := &Config{}
	if err := yamlv3.Unmarshal(rawYAML, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is a convenience wrapper that builds a Loader and calls Load on it.
func Load(path string) (*Config, error) {
	loader, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
