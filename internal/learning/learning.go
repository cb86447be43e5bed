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

// Package learning implements the learning engine (spec §4.8): three
// LLM-driven operations — analyze_failure, learn_from_success,
// learn_from_user_feedback — all non-blocking with respect to the main
// request (errors are swallowed and logged), ported from
// original_source/learning_engine.py.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/llmclient"
	"github.com/kadirpekel/hectorassist/internal/logging"
)

// Engine reasons about failures and successes using an LLM and persists
// the lessons it extracts as Knowledge/Correction concepts.
type Engine struct {
	store graph.Store
	llm   llmclient.Client
}

// New builds a learning Engine.
func New(store graph.Store, llm llmclient.Client) *Engine {
	return &Engine{store: store, llm: llm}
}

// FailureAnalysis is analyze_failure's structured result.
type FailureAnalysis struct {
	RootCause              string         `json:"root_cause"`
	LessonsLearned         []string       `json:"lessons_learned"`
	SuggestedFixes         []SuggestedFix `json:"suggested_fixes"`
	TransferableKnowledge  string         `json:"transferable_knowledge"`
	Confidence             float64        `json:"confidence"`
}

// SuggestedFix names one plan-step correction.
type SuggestedFix struct {
	StepIndex int    `json:"step_index"`
	Fix       string `json:"fix"`
	Reason    string `json:"reason"`
}

// AnalyzeFailure asks the LLM to reason about why plan's execution
// failed and how to fix it. On any error it returns a deterministic
// fallback analysis rather than propagating, matching the original's
// swallow-and-fallback contract.
func (e *Engine) AnalyzeFailure(ctx context.Context, userRequest string, plan map[string]any, executionResults map[string]any, similarCases []map[string]any) FailureAnalysis {
	errorText := errorTextFrom(executionResults)

	var similarContext string
	if len(similarCases) > 0 {
		similarContext = "\n\nSimilar successful cases:\n"
		for i, c := range similarCases {
			if i >= 3 {
				break
			}
			similarContext += fmt.Sprintf("%d. %s\n", i+1, descriptionOf(c))
		}
	}

	steps, _ := json.MarshalIndent(plan["steps"], "", "  ")
	prompt := fmt.Sprintf(`Analyze why this execution failed and how to fix it.

User Request: %s

Plan Steps:
%s

Error: %s
%s

Provide analysis in JSON format:
{
  "root_cause": "Brief explanation of why it failed",
  "lessons_learned": ["lesson1", "lesson2", ...],
  "suggested_fixes": [
    {
      "step_index": 0,
      "fix": "What to change",
      "reason": "Why this fix should work"
    }
  ],
  "transferable_knowledge": "What patterns/strategies can be learned from this",
  "confidence": 0.0-1.0
}`, userRequest, string(steps), errorText, similarContext)

	reply, err := e.llm.Chat(ctx, []llmclient.Message{
		{Role: "system", Content: "You are a learning system that analyzes failures and extracts lessons. Return only valid JSON."},
		{Role: "user", Content: prompt},
	}, 0, &llmclient.ResponseFormat{Type: "json_object"})
	if err != nil {
		logging.Default().Warn("learning: analyze_failure LLM call failed", "error", err)
		return fallbackAnalysis(errorText)
	}

	var analysis FailureAnalysis
	if err := json.Unmarshal([]byte(reply), &analysis); err != nil {
		logging.Default().Warn("learning: analyze_failure response was not valid JSON", "error", err)
		return fallbackAnalysis(errorText)
	}
	return analysis
}

func fallbackAnalysis(errorText string) FailureAnalysis {
	truncated := errorText
	if len(truncated) > 200 {
		truncated = truncated[:200]
	}
	return FailureAnalysis{
		RootCause:      truncated,
		LessonsLearned: []string{"Check selectors and URLs"},
		SuggestedFixes: []SuggestedFix{{StepIndex: 0, Fix: "Verify selectors match DOM", Reason: "Common failure point"}},
	}
}

func errorTextFrom(executionResults map[string]any) string {
	if errStr, ok := executionResults["error"].(string); ok && errStr != "" {
		return errStr
	}
	if errs, ok := executionResults["errors"].([]any); ok && len(errs) > 0 {
		if s, ok := errs[0].(string); ok {
			return s
		}
	}
	return "Execution failed"
}

func descriptionOf(m map[string]any) string {
	if d, ok := m["description"].(string); ok && d != "" {
		return d
	}
	if n, ok := m["name"].(string); ok {
		return n
	}
	return ""
}

// successLessons is learn_from_success's extracted-lesson shape.
type successLessons struct {
	WhatWorked        []string `json:"what_worked"`
	KeySuccessFactors []string `json:"key_success_factors"`
	ReusablePatterns  []string `json:"reusable_patterns"`
	BestPractices     []string `json:"best_practices"`
}

// LearnFromSuccess extracts lessons from a successful execution and
// stores them as a Knowledge concept, returning its uuid. It returns ""
// if there were no successful steps or the LLM call/parse failed,
// matching the original's swallow-and-return-None contract.
func (e *Engine) LearnFromSuccess(ctx context.Context, userRequest string, executionResults map[string]any, prov graph.Provenance) string {
	successfulSteps := successfulStepsFrom(executionResults)
	if len(successfulSteps) == 0 {
		return ""
	}

	stepsJSON, _ := json.MarshalIndent(successfulSteps, "", "  ")
	prompt := fmt.Sprintf(`Extract lessons learned from this successful execution.

User Request: %s

Successful Steps:
%s

Provide analysis in JSON format:
{
  "what_worked": ["thing1", "thing2", ...],
  "key_success_factors": ["factor1", "factor2", ...],
  "reusable_patterns": ["pattern1", "pattern2", ...],
  "best_practices": ["practice1", "practice2", ...]
}`, userRequest, string(stepsJSON))

	reply, err := e.llm.Chat(ctx, []llmclient.Message{
		{Role: "system", Content: "You extract lessons and patterns from successful executions. Return only valid JSON."},
		{Role: "user", Content: prompt},
	}, 0, &llmclient.ResponseFormat{Type: "json_object"})
	if err != nil {
		logging.Default().Warn("learning: learn_from_success LLM call failed", "error", err)
		return ""
	}

	var lessons successLessons
	if err := json.Unmarshal([]byte(reply), &lessons); err != nil {
		logging.Default().Warn("learning: learn_from_success response was not valid JSON", "error", err)
		return ""
	}

	embedding, err := e.llm.Embed(ctx, userRequest)
	if err != nil {
		logging.Default().Warn("learning: learn_from_success embed failed", "error", err)
		return ""
	}

	node := &graph.Node{
		Kind:   "topic",
		Labels: []string{"Knowledge", "Lesson", "Success"},
		Props: map[string]any{
			"label":               "Lessons from: " + truncate(userRequest, 50),
			"summary":             "Lessons learned from successful execution",
			"isPrototype":         false,
			"what_worked":         lessons.WhatWorked,
			"key_success_factors": lessons.KeySuccessFactors,
			"reusable_patterns":   lessons.ReusablePatterns,
			"best_practices":      lessons.BestPractices,
			"user_request":        userRequest,
			"learned_at":          time.Now().UTC().Format(time.RFC3339),
		},
		Embedding: embedding,
	}

	uuid, err := e.store.UpsertNode(ctx, node, prov)
	if err != nil {
		logging.Default().Warn("learning: learn_from_success upsert failed", "error", err)
		return ""
	}
	return uuid
}

func successfulStepsFrom(executionResults map[string]any) []map[string]any {
	steps, _ := executionResults["steps"].([]any)
	var out []map[string]any
	for _, s := range steps {
		m, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if status, _ := m["status"].(string); status == "success" {
			out = append(out, m)
		}
	}
	return out
}

// feedbackLearning is learn_from_user_feedback's extracted shape.
type feedbackLearning struct {
	WhatWasWrong    []string `json:"what_was_wrong"`
	CorrectApproach string   `json:"correct_approach"`
	Lessons         []string `json:"lessons"`
	FutureGuidance  string   `json:"future_guidance"`
}

// LearnFromUserFeedback extracts learning from a user's correction and
// stores it as a Correction concept, returning its uuid (or "" on any
// failure, swallowed the same way LearnFromSuccess does).
func (e *Engine) LearnFromUserFeedback(ctx context.Context, userFeedback, originalRequest string, plan, executionResults map[string]any, prov graph.Provenance) string {
	planSteps, _ := json.MarshalIndent(plan["steps"], "", "  ")
	resultsJSON, _ := json.MarshalIndent(executionResults, "", "  ")

	prompt := fmt.Sprintf(`Extract learning from user feedback/correction.

Original Request: %s

Plan That Was Executed:
%s

Execution Results:
%s

User Feedback/Correction: %s

Provide analysis in JSON format:
{
  "what_was_wrong": ["issue1", "issue2", ...],
  "correct_approach": "What should have been done",
  "lessons": ["lesson1", "lesson2", ...],
  "future_guidance": "How to handle similar cases in future"
}`, originalRequest, string(planSteps), string(resultsJSON), userFeedback)

	reply, err := e.llm.Chat(ctx, []llmclient.Message{
		{Role: "system", Content: "You extract learning from user feedback and corrections. Return only valid JSON."},
		{Role: "user", Content: prompt},
	}, 0, &llmclient.ResponseFormat{Type: "json_object"})
	if err != nil {
		logging.Default().Warn("learning: learn_from_user_feedback LLM call failed", "error", err)
		return ""
	}

	var learned feedbackLearning
	if err := json.Unmarshal([]byte(reply), &learned); err != nil {
		logging.Default().Warn("learning: learn_from_user_feedback response was not valid JSON", "error", err)
		return ""
	}

	embedding, err := e.llm.Embed(ctx, originalRequest+" "+userFeedback)
	if err != nil {
		logging.Default().Warn("learning: learn_from_user_feedback embed failed", "error", err)
		return ""
	}

	node := &graph.Node{
		Kind:   "topic",
		Labels: []string{"Knowledge", "Correction", "UserFeedback"},
		Props: map[string]any{
			"label":            "Correction: " + truncate(originalRequest, 50),
			"summary":          "Learning from user feedback",
			"isPrototype":      false,
			"what_was_wrong":   learned.WhatWasWrong,
			"correct_approach": learned.CorrectApproach,
			"lessons":          learned.Lessons,
			"future_guidance":  learned.FutureGuidance,
			"user_feedback":    userFeedback,
			"original_request": originalRequest,
			"learned_at":       time.Now().UTC().Format(time.RFC3339),
		},
		Embedding: embedding,
	}

	uuid, err := e.store.UpsertNode(ctx, node, prov)
	if err != nil {
		logging.Default().Warn("learning: learn_from_user_feedback upsert failed", "error", err)
		return ""
	}
	return uuid
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
