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

// Package llmclient defines the capability interface PEAL and SMLG use
// to talk to a language model and embedding backend, replacing the
// teacher's protobuf-message, multi-provider llms.LLMProvider with a
// single small interface scoped to what this system actually calls.
package llmclient

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// ResponseFormat requests structured output from the backend, mirroring
// OpenAI's response_format parameter (JSON mode / JSON schema).
type ResponseFormat struct {
	Type   string // "json_object" or "json_schema"
	Schema map[string]any
}

// Client is the capability interface consumed by the PEAL loop and the
// learning engine: a chat completion call and an embedding call. Real
// network wiring (OpenAI, Anthropic, ...) is out of scope; production
// deployments provide their own Client implementation.
type Client interface {
	Chat(ctx context.Context, messages []Message, temperature float64, format *ResponseFormat) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}
