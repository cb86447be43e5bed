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

	"github.com/kadirpekel/hectorassist/internal/vector"
)

// defaultVectorStoreName is the provider consulted by components that
// don't care which named backend they get (currently the only consumer,
// the SMLG's concept-embedding search).
const defaultVectorStoreName = "default"

// VectorStoresConfig names zero or more vector.ProviderConfig backends,
// keyed by the name components look them up with through the Registry
// (spec's `vector_stores`, plural: a deployment may run the SMLG's
// concept embeddings against chromem while keeping a second, qdrant-
// backed store for some other collection).
type VectorStoresConfig map[string]*vector.ProviderConfig

// SetDefaults ensures a "default" entry exists and applies every named
// provider's own defaults.
func (c *VectorStoresConfig) SetDefaults() {
	if *c == nil {
		*c = VectorStoresConfig{}
	}
	if _, ok := (*c)[defaultVectorStoreName]; !ok {
		(*c)[defaultVectorStoreName] = &vector.ProviderConfig{}
	}
	for _, pc := range *c {
		pc.SetDefaults()
	}
}

// Validate validates every named provider config.
func (c VectorStoresConfig) Validate() error {
	for name, pc := range c {
		if err := pc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ToRegistry builds a vector.Registry with every named provider
// constructed and registered, ready for components to Get() by name.
func (c VectorStoresConfig) ToRegistry() (*vector.Registry, error) {
	registry := vector.NewRegistry()
	for name, pc := range c {
		provider, err := vector.NewProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("build vector store %q: %w", name, err)
		}
		if err := registry.Register(name, provider); err != nil {
			return nil, fmt.Errorf("register vector store %q: %w", name, err)
		}
	}
	return registry, nil
}

// Default returns the "default" named provider config, the one the SMLG
// uses unless a deployment wires something else up explicitly.
func (c VectorStoresConfig) Default() *vector.ProviderConfig {
	return c[defaultVectorStoreName]
}
