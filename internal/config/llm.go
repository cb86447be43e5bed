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

// LLMConfig describes the chat-completion backend PEAL and the learning
// engine talk to through an llmclient.Client. The assistant ships only a
// llmclient.Client interface plus a test fake (production deployments
// supply their own Client), so this section is descriptive: it records
// what to wire up rather than wiring a provider SDK itself.
type LLMConfig struct {
	// Provider names the backend (anthropic, openai, gemini, ollama).
	Provider string `yaml:"provider,omitempty"`

	// Model is the model identifier (e.g. "claude-sonnet-4-20250514").
	Model string `yaml:"model,omitempty"`

	// APIKey authenticates against the provider. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature passed to Client.Chat.
	Temperature float64 `yaml:"temperature,omitempty"`
}

// SetDefaults applies default values to LLMConfig.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.Model == "" {
		switch c.Provider {
		case "anthropic":
			c.Model = "claude-sonnet-4-20250514"
		case "openai":
			c.Model = "gpt-4o"
		case "gemini":
			c.Model = "gemini-2.0-flash"
		case "ollama":
			c.Model = "llama3.1"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.APIKey == "" {
		c.APIKey = providerAPIKeyFromEnv(c.Provider)
	}
}

// Validate checks the LLM configuration.
func (c *LLMConfig) Validate() error {
	validProviders := map[string]bool{"anthropic": true, "openai": true, "gemini": true, "ollama": true}
	if c.Provider != "" && !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q (valid: anthropic, openai, gemini, ollama)", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	return nil
}

// EmbedderConfig describes the embedding backend used by the learning
// engine's Embed calls. Mirrors LLMConfig's shape since most providers
// serve both chat and embedding under the same credentials.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// SetDefaults applies default values to EmbedderConfig.
func (c *EmbedderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.Model == "" {
		switch c.Provider {
		case "openai":
			c.Model = "text-embedding-3-small"
		case "gemini":
			c.Model = "text-embedding-004"
		default:
			c.Model = "voyage-3"
		}
	}
	if c.APIKey == "" {
		c.APIKey = providerAPIKeyFromEnv(c.Provider)
	}
}

// Validate checks the embedder configuration.
func (c *EmbedderConfig) Validate() error {
	validProviders := map[string]bool{"anthropic": true, "openai": true, "gemini": true, "ollama": true}
	if c.Provider != "" && !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q (valid: anthropic, openai, gemini, ollama)", c.Provider)
	}
	return nil
}
