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

package peal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/learning"
	"github.com/kadirpekel/hectorassist/internal/llmclient/mockllm"
	"github.com/kadirpekel/hectorassist/internal/peal"
	"github.com/kadirpekel/hectorassist/internal/taskqueue"
	"github.com/kadirpekel/hectorassist/internal/tool/mocktools"
)

func newEngine(t *testing.T, llm *mockllm.Client) (*peal.Engine, *graph.MemStore, *mocktools.Task, *mocktools.Calendar, *mocktools.Contacts, *mocktools.Web) {
	t.Helper()
	store := graph.NewMemStore()
	queue := taskqueue.NewManager(store, "default")
	learningEngine := learning.New(store, llm)
	taskTool := mocktools.NewTask()
	calTool := mocktools.NewCalendar()
	contactsTool := mocktools.NewContacts()
	webTool := mocktools.NewWeb()

	engine := peal.New(store, llm, queue, learningEngine,
		peal.WithTask(taskTool),
		peal.WithCalendar(calTool),
		peal.WithContacts(contactsTool),
		peal.WithWeb(webTool),
	)
	return engine, store, taskTool, calTool, contactsTool, webTool
}

func TestExecuteTaskIntentEndToEnd(t *testing.T) {
	llm := mockllm.New([]string{
		`{"intent":"task","steps":[{"tool":"tasks.create","params":{"title":"buy milk","due":"","priority":2,"notes":"","links":[]}}],"confidence":0.95}`,
		`{"what_worked":["created task"],"key_success_factors":[],"reusable_patterns":[],"best_practices":[]}`,
	}, []float32{0.1, 0.2})
	engine, store, taskTool, _, _, _ := newEngine(t, llm)

	result := engine.Execute(context.Background(), "remind me to buy milk")

	require.Equal(t, "success", result.Status)
	require.NotNil(t, result.Execution)
	assert.Equal(t, "success", result.Execution.Status)

	created, err := taskTool.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "buy milk", created[0]["title"])

	// A procedure and a procedure-run node should have been persisted and
	// linked by a run_of edge.
	edges, err := store.GetEdges(context.Background(), graph.EdgeFilter{Rel: graph.RelRunOf})
	require.NoError(t, err)
	require.Len(t, edges, 1)

	procNode, ok, err := store.GetNode(context.Background(), edges[0].ToNode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, graph.KindProcedure, procNode.Kind)
	assert.Equal(t, true, procNode.Props["tested"])
	assert.Equal(t, 1, procNode.Props["success_count"])

	runNode, ok, err := store.GetNode(context.Background(), edges[0].FromNode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, graph.KindProcedureRun, runNode.Kind)
	assert.Equal(t, "success", runNode.Props["status"])
}

func TestExecuteAdaptsAfterFailureThenSucceeds(t *testing.T) {
	// mocktools.Web never errors, so the unknown-tool path is used to force
	// executeSteps into an error state on the first attempt.
	llm := mockllm.New([]string{
		`{"intent":"web_io","steps":[{"tool":"web.nonexistent","params":{}}]}`,
		`{"intent":"web_io","steps":[{"tool":"web.get","params":{"url":"https://example.com"}}]}`,
	}, nil)
	engine, _, _, _, _, web := newEngine(t, llm)

	result := engine.Execute(context.Background(), "go check https://example.com")

	require.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.AdaptationTries)
	assert.Len(t, web.History, 1)
	assert.Equal(t, "GET", web.History[0]["method"])
}

func TestExecuteAskUserAfterExhaustingAdaptationAttempts(t *testing.T) {
	responses := []string{
		`{"intent":"web_io","steps":[{"tool":"web.nonexistent","params":{}}]}`,
		`{"intent":"web_io","steps":[{"tool":"web.nonexistent","params":{}}]}`,
		`{"intent":"web_io","steps":[{"tool":"web.nonexistent","params":{}}]}`,
		`{"intent":"web_io","steps":[{"tool":"web.nonexistent","params":{}}]}`,
	}
	llm := mockllm.New(responses, nil)
	engine, _, _, _, _, _ := newEngine(t, llm)

	result := engine.Execute(context.Background(), "visit https://example.com and click the thing")

	require.Equal(t, "ask_user", result.Status)
	assert.Equal(t, 3, result.AdaptationTries)
	assert.NotEmpty(t, result.AskUserPrompt)
}

func TestExecuteInformIntentDirectAnswerShortCircuit(t *testing.T) {
	llm := mockllm.New([]string{"unused"}, []float32{0.5, 0.5})
	store := graph.NewMemStore()
	queue := taskqueue.NewManager(store, "default")
	learningEngine := learning.New(store, llm)
	engine := peal.New(store, llm, queue, learningEngine)

	_, err := store.UpsertNode(context.Background(), &graph.Node{
		Kind:      graph.KindConcept,
		Props:     map[string]any{"note": "Your favorite color is blue."},
		Embedding: []float32{0.5, 0.5},
	}, graph.NewProvenance("user", 1.0, "seed"))
	require.NoError(t, err)

	result := engine.Execute(context.Background(), "what is my favorite color?")

	require.Equal(t, "success", result.Status)
	assert.Equal(t, "Your favorite color is blue.", result.Answer)
	assert.Nil(t, result.Plan)
}

func TestExecuteAskUserOnLowConfidencePlan(t *testing.T) {
	llm := mockllm.New([]string{
		`{"intent":"web_io","steps":[{"tool":"web.get","params":{"url":"https://example.com"}}],"confidence":0.3}`,
	}, nil)
	engine, _, _, _, _, _ := newEngine(t, llm)

	result := engine.Execute(context.Background(), "go to https://example.com and do something risky")

	require.Equal(t, "ask_user", result.Status)
	assert.Contains(t, result.AskUserPrompt, "confident")
}

func TestExecuteFallsBackToDeterministicTaskPlanOnLLMError(t *testing.T) {
	llm := mockllm.New([]string{"irrelevant"}, nil)
	llm.SetChatError(assert.AnError)
	engine, _, taskTool, _, _, _ := newEngine(t, llm)

	result := engine.Execute(context.Background(), "remind me to call the dentist")

	require.Equal(t, "success", result.Status)
	require.True(t, result.Plan.Fallback)

	created, err := taskTool.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
}

func TestParsePlanAcceptsLegacyShape(t *testing.T) {
	plan, err := peal.ParsePlan(`{"intent":"task","steps":[{"tool":"tasks.create","params":{"title":"x"}}]}`, "task")
	require.NoError(t, err)
	assert.Equal(t, "task", plan.Intent)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "tasks.create", plan.Steps[0].Tool)
}

func TestParsePlanAcceptsLegacyShapeWithMissingIntentUsesFallback(t *testing.T) {
	plan, err := peal.ParsePlan(`{"steps":[{"tool":"tasks.create","params":{}}],"intent":""}`, "task")
	require.NoError(t, err)
	assert.Equal(t, "task", plan.Intent)
}

func TestParsePlanAcceptsProcedureShape(t *testing.T) {
	plan, err := peal.ParsePlan(`{
		"commandtype": "procedure",
		"metadata": {
			"steps": [
				{"commandtype": "web.get", "metadata": {"url": "https://example.com"}, "comment": "fetch"}
			]
		}
	}`, "web_io")
	require.NoError(t, err)
	assert.Equal(t, "web_io", plan.Intent)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "web.get", plan.Steps[0].Tool)
	assert.Equal(t, "https://example.com", plan.Steps[0].Params["url"])
	assert.Equal(t, "fetch", plan.Steps[0].Comment)
}

func TestParsePlanRejectsUnrecognizedShape(t *testing.T) {
	_, err := peal.ParsePlan(`{"foo":"bar"}`, "task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized plan shape")
}

func TestParsePlanRejectsInvalidJSON(t *testing.T) {
	_, err := peal.ParsePlan(`not json`, "task")
	require.Error(t, err)
}
