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

// MemoryConfig tunes the working-memory activation graph (workingmem.New)
// and the async edge replicator (replicator.New) that sits in front of
// the durable graph store.
type MemoryConfig struct {
	// ReinforceDelta is added to an edge's weight each time it's accessed.
	ReinforceDelta float64 `yaml:"reinforce_delta,omitempty"`

	// MaxWeight caps an edge's reinforced weight.
	MaxWeight float64 `yaml:"max_weight,omitempty"`

	// ReplicatorQueueSize bounds the replicator's pending-update buffer;
	// Enqueue blocks and EnqueueNowait drops once it's full.
	ReplicatorQueueSize int `yaml:"replicator_queue_size,omitempty"`
}

// SetDefaults applies default values to MemoryConfig.
func (c *MemoryConfig) SetDefaults() {
	if c.ReinforceDelta == 0 {
		c.ReinforceDelta = 0.1
	}
	if c.MaxWeight == 0 {
		c.MaxWeight = 1.0
	}
	if c.ReplicatorQueueSize == 0 {
		c.ReplicatorQueueSize = 256
	}
}

// Validate checks the memory configuration.
func (c *MemoryConfig) Validate() error {
	if c.ReinforceDelta < 0 {
		return fmt.Errorf("reinforce_delta must be non-negative")
	}
	if c.MaxWeight <= 0 {
		return fmt.Errorf("max_weight must be positive")
	}
	if c.ReplicatorQueueSize < 1 {
		return fmt.Errorf("replicator_queue_size must be at least 1")
	}
	return nil
}
