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

package learning_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/learning"
	"github.com/kadirpekel/hectorassist/internal/llmclient/mockllm"
)

func TestAnalyzeFailureParsesLLMJSON(t *testing.T) {
	llm := mockllm.New([]string{`{
		"root_cause": "selector not found",
		"lessons_learned": ["wait for DOM load"],
		"suggested_fixes": [{"step_index": 1, "fix": "add wait_for", "reason": "page not ready"}],
		"transferable_knowledge": "always wait before clicking",
		"confidence": 0.8
	}`}, nil)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	plan := map[string]any{"steps": []any{map[string]any{"action": "click", "selector": "#submit"}}}
	results := map[string]any{"error": "element not found: #submit"}

	analysis := engine.AnalyzeFailure(context.Background(), "submit the form", plan, results, nil)

	assert.Equal(t, "selector not found", analysis.RootCause)
	assert.Equal(t, []string{"wait for DOM load"}, analysis.LessonsLearned)
	require.Len(t, analysis.SuggestedFixes, 1)
	assert.Equal(t, 1, analysis.SuggestedFixes[0].StepIndex)
	assert.Equal(t, 0.8, analysis.Confidence)
}

func TestAnalyzeFailureFallsBackOnLLMError(t *testing.T) {
	llm := mockllm.New([]string{"irrelevant"}, nil)
	llm.SetChatError(assert.AnError)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	results := map[string]any{"error": "timeout waiting for selector"}
	analysis := engine.AnalyzeFailure(context.Background(), "click button", map[string]any{}, results, nil)

	assert.Equal(t, "timeout waiting for selector", analysis.RootCause)
	assert.NotEmpty(t, analysis.LessonsLearned)
	assert.NotEmpty(t, analysis.SuggestedFixes)
}

func TestAnalyzeFailureFallsBackOnUnparsableJSON(t *testing.T) {
	llm := mockllm.New([]string{"not json at all"}, nil)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	results := map[string]any{"error": "boom"}
	analysis := engine.AnalyzeFailure(context.Background(), "do a thing", map[string]any{}, results, nil)

	assert.Equal(t, "boom", analysis.RootCause)
}

func TestAnalyzeFailureTruncatesLongErrorInFallback(t *testing.T) {
	llm := mockllm.New([]string{"not json"}, nil)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	longErr := ""
	for i := 0; i < 50; i++ {
		longErr += "0123456789"
	}
	results := map[string]any{"error": longErr}
	analysis := engine.AnalyzeFailure(context.Background(), "req", map[string]any{}, results, nil)

	assert.Len(t, analysis.RootCause, 200)
}

func TestLearnFromSuccessReturnsEmptyWhenNoSuccessfulSteps(t *testing.T) {
	llm := mockllm.New([]string{"{}"}, nil)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	results := map[string]any{"steps": []any{map[string]any{"status": "failed"}}}
	uuid := engine.LearnFromSuccess(context.Background(), "book a flight", results, graph.NewProvenance("peal", 0.9, "trace-1"))

	assert.Empty(t, uuid)
}

func TestLearnFromSuccessStoresKnowledgeNode(t *testing.T) {
	llm := mockllm.New([]string{`{
		"what_worked": ["used correct API"],
		"key_success_factors": ["clear instructions"],
		"reusable_patterns": ["retry on 429"],
		"best_practices": ["validate input first"]
	}`}, []float32{0.1, 0.2, 0.3})
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	results := map[string]any{"steps": []any{map[string]any{"status": "success", "action": "create_event"}}}
	uuid := engine.LearnFromSuccess(context.Background(), "schedule a meeting", results, graph.NewProvenance("peal", 0.9, "trace-2"))

	require.NotEmpty(t, uuid)
	node, ok, err := store.GetNode(context.Background(), uuid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "topic", node.Kind)
	assert.Contains(t, node.Labels, "Knowledge")
	assert.Contains(t, node.Labels, "Lesson")
	assert.Contains(t, node.Labels, "Success")
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, node.Embedding)
	assert.Equal(t, []string{"used correct API"}, node.Props["what_worked"])
}

func TestLearnFromSuccessReturnsEmptyOnLLMError(t *testing.T) {
	llm := mockllm.New([]string{"x"}, nil)
	llm.SetChatError(assert.AnError)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	results := map[string]any{"steps": []any{map[string]any{"status": "success"}}}
	uuid := engine.LearnFromSuccess(context.Background(), "req", results, graph.NewProvenance("peal", 0.9, "trace-3"))

	assert.Empty(t, uuid)
}

func TestLearnFromSuccessReturnsEmptyOnUnparsableJSON(t *testing.T) {
	llm := mockllm.New([]string{"not valid json"}, nil)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	results := map[string]any{"steps": []any{map[string]any{"status": "success"}}}
	uuid := engine.LearnFromSuccess(context.Background(), "req", results, graph.NewProvenance("peal", 0.9, "trace-4"))

	assert.Empty(t, uuid)
}

func TestLearnFromUserFeedbackStoresCorrectionNode(t *testing.T) {
	llm := mockllm.New([]string{`{
		"what_was_wrong": ["wrong contact picked"],
		"correct_approach": "confirm contact before sending",
		"lessons": ["always disambiguate"],
		"future_guidance": "ask for clarification when multiple matches"
	}`}, []float32{0.4, 0.5})
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	plan := map[string]any{"steps": []any{map[string]any{"action": "send_email"}}}
	results := map[string]any{"steps": []any{map[string]any{"status": "success"}}}

	uuid := engine.LearnFromUserFeedback(
		context.Background(),
		"that was the wrong John, I meant John Smith",
		"email John about the report",
		plan,
		results,
		graph.NewProvenance("peal", 0.9, "trace-5"),
	)

	require.NotEmpty(t, uuid)
	node, ok, err := store.GetNode(context.Background(), uuid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "topic", node.Kind)
	assert.Contains(t, node.Labels, "Knowledge")
	assert.Contains(t, node.Labels, "Correction")
	assert.Contains(t, node.Labels, "UserFeedback")
	assert.Equal(t, "confirm contact before sending", node.Props["correct_approach"])
}

func TestLearnFromUserFeedbackReturnsEmptyOnLLMError(t *testing.T) {
	llm := mockllm.New([]string{"x"}, nil)
	llm.SetChatError(assert.AnError)
	store := graph.NewMemStore()
	engine := learning.New(store, llm)

	uuid := engine.LearnFromUserFeedback(
		context.Background(), "no that's wrong", "do the thing", map[string]any{}, map[string]any{},
		graph.NewProvenance("peal", 0.9, "trace-6"),
	)

	assert.Empty(t, uuid)
}
