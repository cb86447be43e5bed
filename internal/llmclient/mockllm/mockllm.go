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

// Package mockllm provides a deterministic, scripted llmclient.Client for
// tests and offline mode, ported from original_source/openai_client.py's
// FakeOpenAIClient.
package mockllm

import (
	"context"
	"fmt"
	"sync"

	"github.com/kadirpekel/hectorassist/internal/llmclient"
)

// Client replays a scripted sequence of chat responses and returns a
// fixed embedding vector, recording the last request it saw so tests can
// assert on prompt construction.
type Client struct {
	mu sync.Mutex

	responses []string
	callIndex int
	embedding []float32
	chatErr   error
	embedErr  error

	LastMessages    []llmclient.Message
	LastFormat      *llmclient.ResponseFormat
	LastTemperature float64
}

var _ llmclient.Client = (*Client)(nil)

// New builds a Client that returns each of responses in order on
// successive Chat calls (the last response repeats once exhausted), and
// embedding for every Embed call.
func New(responses []string, embedding []float32) *Client {
	if embedding == nil {
		embedding = []float32{0, 0, 0}
	}
	return &Client{responses: responses, embedding: embedding}
}

// SetChatError makes every subsequent Chat call fail with err.
func (c *Client) SetChatError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatErr = err
}

// SetEmbedError makes every subsequent Embed call fail with err.
func (c *Client) SetEmbedError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embedErr = err
}

// Chat returns the next scripted response, recording the request.
func (c *Client) Chat(ctx context.Context, messages []llmclient.Message, temperature float64, format *llmclient.ResponseFormat) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.LastMessages = messages
	c.LastFormat = format
	c.LastTemperature = temperature

	if c.chatErr != nil {
		return "", fmt.Errorf("mock chat failed: %w", c.chatErr)
	}
	if len(c.responses) == 0 {
		return "", nil
	}
	idx := c.callIndex
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	} else {
		c.callIndex++
	}
	return c.responses[idx], nil
}

// Embed returns the fixed embedding vector regardless of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.embedErr != nil {
		return nil, fmt.Errorf("mock embed failed: %w", c.embedErr)
	}
	out := make([]float32, len(c.embedding))
	copy(out, c.embedding)
	return out, nil
}
