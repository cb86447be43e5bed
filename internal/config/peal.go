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

	"github.com/kadirpekel/hectorassist/internal/peal"
)

// PealConfig is the YAML-facing form of peal.Config: the Plan-Execute-
// Adapt loop's confidence gate, retry cap, and fast-path/fallback
// switches.
type PealConfig struct {
	// PlanMinConfidence gates low-confidence plans into ask_user.
	PlanMinConfidence float64 `yaml:"plan_min_confidence,omitempty"`

	// MaxAdaptationAttempts bounds the retry-with-adaptation loop.
	MaxAdaptationAttempts int `yaml:"max_adaptation_attempts,omitempty"`

	// SkipLLMForObvious enables the deterministic-parser fast path.
	SkipLLMForObvious bool `yaml:"skip_llm_for_obvious,omitempty"`

	// AskUserFallbackEnabled gates the ask_user short-circuit on empty plans.
	AskUserFallbackEnabled bool `yaml:"ask_user_fallback_enabled,omitempty"`
}

// SetDefaults applies default values to PealConfig, matching peal.DefaultConfig.
func (c *PealConfig) SetDefaults() {
	def := peal.DefaultConfig()
	if c.PlanMinConfidence == 0 {
		c.PlanMinConfidence = def.PlanMinConfidence
	}
	if c.MaxAdaptationAttempts == 0 {
		c.MaxAdaptationAttempts = def.MaxAdaptationAttempts
	}
}

// Validate checks the PEAL configuration.
func (c *PealConfig) Validate() error {
	if c.PlanMinConfidence < 0 || c.PlanMinConfidence > 1 {
		return fmt.Errorf("plan_min_confidence must be between 0 and 1, got %v", c.PlanMinConfidence)
	}
	if c.MaxAdaptationAttempts < 0 {
		return fmt.Errorf("max_adaptation_attempts must be non-negative")
	}
	return nil
}

// ToEngineConfig converts PealConfig to the peal.Config the Engine
// constructor expects.
func (c PealConfig) ToEngineConfig() peal.Config {
	return peal.Config{
		PlanMinConfidence:      c.PlanMinConfidence,
		MaxAdaptationAttempts:  c.MaxAdaptationAttempts,
		SkipLLMForObvious:      c.SkipLLMForObvious,
		AskUserFallbackEnabled: c.AskUserFallbackEnabled,
	}
}
