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

// Package peal implements the Plan-Execute-Adapt Loop (spec §4.5): the
// agent's request lifecycle modeled as an explicit state machine,
// Classify -> Retrieve -> Plan -> Execute -> Adapt -> Learn -> Persist ->
// Done, replacing the original's single interleaved execute_request
// function (spec §9's "Retry-with-adaptation control flow" redesign).
package peal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kadirpekel/hectorassist/internal/eventbus"
	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/intent"
	"github.com/kadirpekel/hectorassist/internal/learning"
	"github.com/kadirpekel/hectorassist/internal/llmclient"
	"github.com/kadirpekel/hectorassist/internal/logging"
	"github.com/kadirpekel/hectorassist/internal/taskqueue"
	"github.com/kadirpekel/hectorassist/internal/tool"
	"github.com/kadirpekel/hectorassist/internal/workingmem"
)

// Step is one planned tool invocation.
type Step struct {
	Tool    string         `json:"tool" validate:"required"`
	Params  map[string]any `json:"params"`
	Comment string         `json:"comment,omitempty"`
}

// Plan is the structured output of the Plan state, either produced by the
// LLM, hydrated from a reused procedure, or built as a deterministic
// fallback.
type Plan struct {
	Intent        string  `json:"intent"`
	Steps         []Step  `json:"steps" validate:"dive"`
	Confidence    float64 `json:"confidence,omitempty" validate:"gte=0,lte=1"`
	RawLLM        string  `json:"raw_llm,omitempty"`
	Fallback      bool    `json:"fallback,omitempty"`
	ProcedureUUID string  `json:"-"`
}

// planValidate enforces the plan JSON's wire constraints (§6): every step
// must name a tool, and a reported confidence must be a fraction. Untrusted
// LLM output is validated here before PEAL acts on it.
var planValidate = validator.New()

// StepResult is the outcome of executing one Step.
type StepResult struct {
	Tool   string         `json:"tool"`
	Status string         `json:"status"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ExecutionResult is the outcome of the Execute state.
type ExecutionResult struct {
	Status string       `json:"status"` // "success" | "error"
	Steps  []StepResult `json:"steps"`
	Error  string       `json:"error,omitempty"`
}

// Result is PEAL's final answer for one request.
type Result struct {
	TraceID         string
	Status          string // "success" | "ask_user"
	Answer          string
	Plan            *Plan
	Execution       *ExecutionResult
	AskUserPrompt   string
	AdaptationTries int
}

// Config holds PEAL's tunable knobs (spec §4.5 steps 2, 9, 10).
type Config struct {
	// PlanMinConfidence gates low-confidence plans into ask_user (step 9).
	PlanMinConfidence float64
	// MaxAdaptationAttempts bounds the retry-with-adaptation loop (step 10).
	MaxAdaptationAttempts int
	// SkipLLMForObvious enables the deterministic-parser fast path (step 2).
	SkipLLMForObvious bool
	// AskUserFallbackEnabled gates the ask_user short-circuit on empty
	// plans (step 8); off by default to preserve legacy flows.
	AskUserFallbackEnabled bool
}

// DefaultConfig matches the original's documented env-var defaults.
func DefaultConfig() Config {
	return Config{
		PlanMinConfidence:     0.9,
		MaxAdaptationAttempts: 3,
	}
}

// Engine wires memory, tools, and the LLM into the PEAL state machine.
type Engine struct {
	store    graph.Store
	llm      llmclient.Client
	queue    *taskqueue.Manager
	learning *learning.Engine

	workingMem *workingmem.Graph
	bus        *eventbus.Bus

	calendar tool.Calendar
	task     tool.Task
	contacts tool.Contacts
	web      tool.Web

	config Config
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithWorkingMemory attaches the session-scoped activation graph (step 3).
func WithWorkingMemory(wm *workingmem.Graph) Option {
	return func(e *Engine) { e.workingMem = wm }
}

// WithEventBus attaches the lifecycle-event emitter (step 14).
func WithEventBus(bus *eventbus.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithCalendar injects the calendar tool.
func WithCalendar(c tool.Calendar) Option { return func(e *Engine) { e.calendar = c } }

// WithTask injects the task tool.
func WithTask(t tool.Task) Option { return func(e *Engine) { e.task = t } }

// WithContacts injects the contacts tool.
func WithContacts(c tool.Contacts) Option { return func(e *Engine) { e.contacts = c } }

// WithWeb injects the web tool.
func WithWeb(w tool.Web) Option { return func(e *Engine) { e.web = w } }

// WithConfig overrides the default tunables.
func WithConfig(cfg Config) Option { return func(e *Engine) { e.config = cfg } }

// New builds a PEAL Engine.
func New(store graph.Store, llm llmclient.Client, queue *taskqueue.Manager, learningEngine *learning.Engine, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		llm:      llm,
		queue:    queue,
		learning: learningEngine,
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) emit(eventType string, payload map[string]any) {
	if e.bus == nil {
		return
	}
	e.bus.Emit(eventType, payload)
}

// Execute runs one request through the full PEAL lifecycle (spec §4.5).
func (e *Engine) Execute(ctx context.Context, userRequest string) Result {
	traceID := "agent-" + uuid.New().String()
	prov := graph.NewProvenance("user", 1.0, traceID)

	// Step 1: Provenance + log user message.
	e.logMessage(ctx, "user", userRequest, prov)
	e.emit("request_received", map[string]any{"user_request": userRequest, "trace_id": traceID})

	// Step 2: Classify.
	requestIntent := e.classify(userRequest)

	// Step 3: Retrieve.
	queryEmbedding, _ := e.llm.Embed(ctx, userRequest)
	memResults, procMatches := e.retrieve(ctx, userRequest, requestIntent, queryEmbedding, prov)
	e.emit("rag_query", map[string]any{"trace_id": traceID, "intent": requestIntent, "results": len(memResults)})

	// Step 4/5: Direct-answer short-circuits for inform queries.
	if requestIntent == "inform" {
		if answer, ok := e.directAnswer(memResults); ok {
			e.logMessage(ctx, "assistant", answer, prov)
			return Result{TraceID: traceID, Status: "success", Answer: answer}
		}
	}

	// Step 6: Plan.
	plan, planErr := e.generatePlan(ctx, requestIntent, userRequest, memResults, procMatches)
	e.emit("plan_ready", map[string]any{"trace_id": traceID, "intent": plan.Intent, "steps": len(plan.Steps)})

	// Step 7: Fallback & reuse if the LLM errored or returned no steps.
	if planErr != nil || len(plan.Steps) == 0 {
		if reused, ok := e.reuseProcedure(procMatches); ok {
			plan = reused
		} else if fb := e.fallbackPlan(requestIntent, userRequest); fb != nil {
			plan = *fb
		}
	}

	// Step 8: Ask-user short-circuit on a still-empty plan.
	if len(plan.Steps) == 0 && !isExemptFromAskUser(requestIntent) {
		if e.config.AskUserFallbackEnabled {
			return Result{
				TraceID: traceID, Status: "ask_user",
				AskUserPrompt: "I'm not sure how to do that. Can you give me more detail or specific steps?",
				Plan:          &plan,
			}
		}
		if plan.RawLLM != "" {
			e.logMessage(ctx, "assistant", plan.RawLLM, prov)
			return Result{TraceID: traceID, Status: "success", Answer: plan.RawLLM, Plan: &plan}
		}
	}

	// Step 9: Confidence gate.
	if plan.Confidence > 0 && plan.Confidence < e.config.PlanMinConfidence {
		return Result{
			TraceID: traceID, Status: "ask_user",
			AskUserPrompt: fmt.Sprintf("I'm only %.0f%% confident in this plan. Should I proceed?", plan.Confidence*100),
			Plan:          &plan,
		}
	}

	// Step 10: Execute, with the adaptation loop on failure.
	execResult := e.executeSteps(ctx, plan.Steps, prov)
	attempts := 0
	for execResult.Status == "error" && attempts < e.config.MaxAdaptationAttempts {
		attempts++
		adapted, adaptErr := e.adapt(ctx, requestIntent, userRequest, execResult, memResults, procMatches)
		if adaptErr != nil {
			break
		}
		plan = adapted
		execResult = e.executeSteps(ctx, plan.Steps, prov)
		if execResult.Status == "success" {
			break
		}
	}

	e.emit("execution_completed", map[string]any{"trace_id": traceID, "status": execResult.Status, "attempts": attempts})

	if execResult.Status == "error" {
		return Result{
			TraceID: traceID, Status: "ask_user",
			AskUserPrompt:   fmt.Sprintf("I tried %d time(s) but kept hitting: %s. Can you correct me?", attempts+1, execResult.Error),
			Plan:            &plan,
			Execution:       &execResult,
			AdaptationTries: attempts,
		}
	}

	// Step 12: Persist run.
	e.persistRun(ctx, plan, execResult, prov)

	// Step 13: Learn.
	e.learnFromOutcome(ctx, userRequest, plan, execResult, prov)

	return Result{
		TraceID: traceID, Status: "success",
		Plan: &plan, Execution: &execResult,
		AdaptationTries: attempts,
	}
}

// classify implements the keyword-driven intent classification of spec
// §4.5 step 2. When SkipLLMForObvious is set and the deterministic parser
// is confident, its rule-based kind is translated into this taxonomy
// instead of running the keyword cascade below.
func (e *Engine) classify(userRequest string) string {
	if e.config.SkipLLMForObvious {
		kind, _ := intent.QuickParse(userRequest)
		if intent.IsObviousIntent(userRequest, kind) && intent.ConfidenceScore(userRequest, kind) >= 0.8 {
			switch kind {
			case intent.KindEvent:
				return "schedule"
			case intent.KindTask:
				return "task"
			case intent.KindQuery:
				return "inform"
			case intent.KindProcedure:
				return "web_io"
			}
		}
	}
	return classifyKeywords(userRequest)
}

var webIOKeywords = []string{
	"login", "log in", "log into", "sign in", "sign into", "procedure",
	"workflow", "automation", "web", "recall", "steps", "execute", "run",
	"screenshot", "capture",
}

func classifyKeywords(userRequest string) string {
	text := strings.ToLower(userRequest)
	switch {
	case strings.Contains(text, "remind me to") || strings.Contains(text, "add task") ||
		strings.Contains(text, "create a task") || strings.Contains(text, "task") ||
		strings.Contains(text, "todo") || strings.Contains(text, "to-do"):
		return "task"
	case strings.Contains(text, "schedule") || strings.Contains(text, "meeting"):
		return "schedule"
	case strings.Contains(text, "remember"):
		return "remember"
	case containsAny(text, webIOKeywords):
		return "web_io"
	case hasURL(text):
		return "web_io"
	default:
		return "inform"
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func hasURL(text string) bool {
	if strings.Contains(text, "http://") || strings.Contains(text, "https://") {
		return true
	}
	for _, tld := range []string{".com", ".net", ".org", ".io", ".ai"} {
		if strings.Contains(text, tld) {
			return true
		}
	}
	return false
}

// retrieve implements step 3: memory search (top_k=50 for inform, 5
// otherwise) with working-memory activation boost and re-sort, plus a
// separate procedure-concept search.
func (e *Engine) retrieve(ctx context.Context, userRequest, requestIntent string, queryEmbedding []float32, prov graph.Provenance) ([]graph.SearchResult, []graph.SearchResult) {
	topK := 5
	if requestIntent == "inform" {
		topK = 50
	}
	memResults, err := e.store.Search(ctx, graph.SearchQuery{Text: userRequest, TopK: topK, Embedding: queryEmbedding})
	if err != nil {
		logging.Default().Warn("peal: memory search failed", "error", err, "trace_id", prov.TraceID)
		memResults = nil
	}

	if e.workingMem != nil {
		memResults = e.boostByActivation(memResults)
	}

	procMatches, err := e.store.Search(ctx, graph.SearchQuery{
		Text: userRequest, TopK: 3, Embedding: queryEmbedding,
		Filters: map[string]any{"kind": graph.KindProcedure},
	})
	if err != nil {
		logging.Default().Warn("peal: procedure search failed", "error", err, "trace_id", prov.TraceID)
		procMatches = nil
	}
	if len(procMatches) > 0 {
		e.emit("procedure_recall", map[string]any{"query": userRequest, "matches": len(procMatches), "trace_id": prov.TraceID})
	}

	return memResults, procMatches
}

func (e *Engine) boostByActivation(results []graph.SearchResult) []graph.SearchResult {
	type scored struct {
		result graph.SearchResult
		boost  float64
	}
	boosted := make([]scored, len(results))
	for i, r := range results {
		boosted[i] = scored{result: r, boost: r.Score + e.workingMem.GetActivationBoost(r.Node.UUID)}
	}
	for i := 1; i < len(boosted); i++ {
		for j := i; j > 0 && boosted[j].boost > boosted[j-1].boost; j-- {
			boosted[j], boosted[j-1] = boosted[j-1], boosted[j]
		}
	}
	out := make([]graph.SearchResult, len(boosted))
	for i, b := range boosted {
		out[i] = b.result
	}
	return out
}

// directAnswer implements step 4: scan memory for a matching concept
// carrying a non-empty "note" prop and return it verbatim.
func (e *Engine) directAnswer(memResults []graph.SearchResult) (string, bool) {
	for _, r := range memResults {
		if note, ok := r.Node.Props["note"].(string); ok && note != "" {
			return note, true
		}
	}
	return "", false
}

// generatePlan implements step 6: build the message set, call the LLM
// with temperature 0 for a JSON-only plan, and parse either accepted
// shape.
func (e *Engine) generatePlan(ctx context.Context, requestIntent, userRequest string, memResults, procMatches []graph.SearchResult) (Plan, error) {
	messages := []llmclient.Message{
		{Role: "system", Content: "You are a personal assistant agent. Respond with a strict JSON plan object only."},
		{Role: "user", Content: "User request: " + userRequest},
		{Role: "user", Content: "Intent: " + requestIntent},
		{Role: "user", Content: "Memory results: " + summarizeResults(memResults, 5)},
		{Role: "user", Content: "Procedure matches: " + summarizeResults(procMatches, 5)},
		{Role: "user", Content: "Return a strict JSON plan object with intent and steps as described. No prose."},
	}

	reply, err := e.llm.Chat(ctx, messages, 0, &llmclient.ResponseFormat{Type: "json_object"})
	if err != nil {
		e.emit("llm_error", map[string]any{"error": err.Error()})
		return Plan{Intent: requestIntent, Steps: nil}, err
	}

	plan, err := ParsePlan(reply, requestIntent)
	if err != nil {
		e.emit("llm_error", map[string]any{"error": err.Error(), "raw_llm": reply})
		return Plan{Intent: requestIntent, Steps: nil}, err
	}
	plan.RawLLM = reply
	return plan, nil
}

func summarizeResults(results []graph.SearchResult, limit int) string {
	if len(results) > limit {
		results = results[:limit]
	}
	summaries := make([]map[string]any, len(results))
	for i, r := range results {
		summaries[i] = map[string]any{"kind": r.Node.Kind, "labels": r.Node.Labels, "score": r.Score}
	}
	data, _ := json.Marshal(summaries)
	return string(data)
}

// ParsePlan accepts either the legacy {intent, steps} shape or the newer
// {commandtype: "procedure", metadata: {steps: [...]}} shape (spec §4.5's
// "Plan JSON parser"). Any other shape is an error, matching the
// original's RuntimeError("Unrecognized plan shape").
func ParsePlan(llmText, fallbackIntent string) (Plan, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(llmText), &raw); err != nil {
		return Plan{}, fmt.Errorf("parse plan JSON: %w", err)
	}

	if _, hasSteps := raw["steps"]; hasSteps {
		if _, hasIntent := raw["intent"]; hasIntent {
			var p Plan
			if err := json.Unmarshal([]byte(llmText), &p); err != nil {
				return Plan{}, fmt.Errorf("parse legacy plan shape: %w", err)
			}
			if p.Intent == "" {
				p.Intent = fallbackIntent
			}
			if err := planValidate.Struct(p); err != nil {
				return Plan{}, fmt.Errorf("plan failed validation: %w", err)
			}
			return p, nil
		}
	}

	if ct, _ := raw["commandtype"].(string); ct == "procedure" {
		meta, _ := raw["metadata"].(map[string]any)
		rawSteps, _ := meta["steps"].([]any)
		steps := make([]Step, 0, len(rawSteps))
		for _, rs := range rawSteps {
			m, ok := rs.(map[string]any)
			if !ok {
				continue
			}
			toolName, _ := m["commandtype"].(string)
			if toolName == "" {
				continue
			}
			params, _ := m["metadata"].(map[string]any)
			comment, _ := m["comment"].(string)
			steps = append(steps, Step{Tool: toolName, Params: params, Comment: comment})
		}
		p := Plan{Intent: fallbackIntent, Steps: steps}
		if err := planValidate.Struct(p); err != nil {
			return Plan{}, fmt.Errorf("plan failed validation: %w", err)
		}
		return p, nil
	}

	return Plan{}, fmt.Errorf("unrecognized plan shape")
}

// reuseProcedure hydrates a Plan from the top procedure match's stored
// steps (spec §4.5 step 7's reuse path).
func (e *Engine) reuseProcedure(procMatches []graph.SearchResult) (Plan, bool) {
	if len(procMatches) == 0 {
		return Plan{}, false
	}
	top := procMatches[0].Node
	rawSteps, ok := top.Props["steps"].([]any)
	if !ok || len(rawSteps) == 0 {
		return Plan{}, false
	}
	steps := make([]Step, 0, len(rawSteps))
	for _, rs := range rawSteps {
		m, ok := rs.(map[string]any)
		if !ok {
			continue
		}
		toolName, _ := m["tool"].(string)
		params, _ := m["params"].(map[string]any)
		comment, _ := m["comment"].(string)
		if toolName == "" {
			continue
		}
		steps = append(steps, Step{Tool: toolName, Params: params, Comment: comment})
	}
	if len(steps) == 0 {
		return Plan{}, false
	}
	return Plan{Steps: steps, ProcedureUUID: top.UUID}, true
}

// fallbackPlan builds the deterministic plan for each intent when LLM
// planning and procedure reuse both fail (spec §4.5 step 7).
func (e *Engine) fallbackPlan(requestIntent, userRequest string) *Plan {
	switch requestIntent {
	case "task":
		return &Plan{
			Intent: requestIntent, Fallback: true,
			Steps: []Step{{
				Tool:    "tasks.create",
				Params:  map[string]any{"title": userRequest, "due": "", "priority": 3, "notes": "Created via fallback plan", "links": []string{}},
				Comment: "Fallback task creation when LLM plan failed",
			}},
		}
	case "remember":
		return &Plan{
			Intent: requestIntent, Fallback: true, RawLLM: "Got it, I'll remember that.",
			Steps: []Step{{
				Tool:    "memory.remember",
				Params:  map[string]any{"text": userRequest, "kind": "Concept", "props": map[string]any{"note": userRequest}},
				Comment: "Fallback remember to store the fact.",
			}},
		}
	case "web_io":
		return &Plan{
			Intent: requestIntent, Fallback: true, RawLLM: "Inspecting the page and capturing a screenshot.",
			Steps: []Step{
				{Tool: "web.get_dom", Params: map[string]any{"url": "about:blank"}, Comment: "Fetch DOM for inspection"},
				{Tool: "web.screenshot", Params: map[string]any{"url": "about:blank"}, Comment: "Capture page snapshot"},
			},
		}
	case "inform":
		return &Plan{Intent: requestIntent, Fallback: true, RawLLM: "Hello! I'm ready to help.", Steps: nil}
	default:
		return nil
	}
}

func isExemptFromAskUser(requestIntent string) bool {
	return requestIntent == "remember" || requestIntent == "task" || requestIntent == "schedule"
}

// executeSteps implements step 10: run steps sequentially, surfacing the
// first error so the caller can drive the adaptation loop.
func (e *Engine) executeSteps(ctx context.Context, steps []Step, prov graph.Provenance) ExecutionResult {
	result := ExecutionResult{Status: "success"}
	for _, step := range steps {
		e.emit("tool_start", map[string]any{"tool": step.Tool, "trace_id": prov.TraceID})
		output, err := e.runStep(ctx, step, prov)
		sr := StepResult{Tool: step.Tool, Output: output}
		if err != nil {
			sr.Status = "error"
			sr.Error = err.Error()
			result.Steps = append(result.Steps, sr)
			result.Status = "error"
			result.Error = err.Error()
			return result
		}
		sr.Status = "success"
		result.Steps = append(result.Steps, sr)
		e.emit("tool_invoked", map[string]any{"tool": step.Tool, "trace_id": prov.TraceID})
	}
	return result
}

// runStep dispatches one Step to the tool interface it names (spec §4.5
// step 10 / ported from agent.py's _execute_plan tool_name switch).
func (e *Engine) runStep(ctx context.Context, step Step, prov graph.Provenance) (map[string]any, error) {
	params := step.Params
	switch step.Tool {
	case "tasks.create":
		if e.task == nil {
			return nil, fmt.Errorf("tasks.create: no task tool configured")
		}
		title, _ := params["title"].(string)
		due, _ := params["due"].(string)
		priority := intParam(params, "priority")
		notes, _ := params["notes"].(string)
		links := toStringSlice(params["links"])
		res, err := e.task.Create(ctx, title, due, priority, notes, links)
		if err != nil {
			return nil, err
		}
		e.upsertTaskNode(ctx, res, prov)
		if e.queue != nil {
			if taskUUID, _ := res["uuid"].(string); taskUUID != "" {
				var priorityPtr *int
				if priority != 0 {
					priorityPtr = &priority
				}
				if _, err := e.queue.Enqueue(ctx, taskUUID, title, priorityPtr, due, "pending", 0, prov); err != nil {
					logging.Default().Warn("peal: queue enqueue failed", "error", err, "trace_id", prov.TraceID)
				} else {
					e.emit("queue_updated", map[string]any{"trace_id": prov.TraceID, "task_uuid": taskUUID})
				}
			}
		}
		return res, nil

	case "calendar.create_event":
		if e.calendar == nil {
			return nil, fmt.Errorf("calendar.create_event: no calendar tool configured")
		}
		title, _ := params["title"].(string)
		start, _ := params["start"].(string)
		end, _ := params["end"].(string)
		attendees := toStringSlice(params["attendees"])
		location, _ := params["location"].(string)
		notes, _ := params["notes"].(string)
		res, err := e.calendar.CreateEvent(ctx, title, start, end, attendees, location, notes)
		if err != nil {
			return nil, err
		}
		e.upsertEventNode(ctx, res, prov)
		return res, nil

	case "contacts.create":
		if e.contacts == nil {
			return nil, fmt.Errorf("contacts.create: no contacts tool configured")
		}
		name, _ := params["name"].(string)
		emails := toStringSlice(params["emails"])
		phones := toStringSlice(params["phones"])
		org, _ := params["org"].(string)
		notes, _ := params["notes"].(string)
		tags := toStringSlice(params["tags"])
		res, err := e.contacts.Create(ctx, name, emails, phones, org, notes, tags)
		if err != nil {
			return nil, err
		}
		e.upsertContactNode(ctx, res, prov)
		return res, nil

	case "memory.remember":
		text, _ := params["text"].(string)
		kind, _ := params["kind"].(string)
		if kind == "" {
			kind = graph.KindConcept
		}
		props, _ := params["props"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		}
		embedding, _ := e.llm.Embed(ctx, text)
		node := &graph.Node{Kind: kind, Props: props, Embedding: embedding}
		uuidStr, err := e.store.UpsertNode(ctx, node, prov)
		if err != nil {
			return nil, err
		}
		e.emit("memory_upsert", map[string]any{"trace_id": prov.TraceID, "uuid": uuidStr, "kind": kind})
		return map[string]any{"status": "success", "uuid": uuidStr}, nil

	case "queue.enqueue":
		if e.queue == nil {
			return nil, fmt.Errorf("queue.enqueue: no queue manager configured")
		}
		title, _ := params["title"].(string)
		if title == "" {
			title, _ = params["name"].(string)
		}
		if title == "" {
			title = "Task"
		}
		due, _ := params["due"].(string)
		status, _ := params["status"].(string)
		delaySeconds := floatParam(params, "delay_seconds")
		var priorityPtr *int
		if _, ok := params["priority"]; ok {
			p := intParam(params, "priority")
			priorityPtr = &p
		}
		taskUUID, _ := params["task_uuid"].(string)
		if taskUUID == "" {
			taskUUID = uuid.NewString()
		}
		if _, err := e.queue.Enqueue(ctx, taskUUID, title, priorityPtr, due, status, delaySeconds, prov); err != nil {
			return nil, err
		}
		items, err := e.queue.ListItems(ctx, prov)
		if err != nil {
			return nil, err
		}
		e.emit("queue_updated", map[string]any{"trace_id": prov.TraceID})
		return map[string]any{"status": "success", "queue": items}, nil

	case "web.get":
		return e.requireWeb().Get(ctx, stringParam(params, "url"))
	case "web.post":
		payload, _ := params["payload"].(map[string]any)
		return e.requireWeb().Post(ctx, stringParam(params, "url"), payload)
	case "web.screenshot":
		return e.requireWeb().Screenshot(ctx, stringParam(params, "url"))
	case "web.get_dom":
		return e.requireWeb().GetDOM(ctx, stringParam(params, "url"))
	case "web.locate_bounding_box":
		return e.requireWeb().LocateBoundingBox(ctx, stringParam(params, "url"), stringParam(params, "query"))
	case "web.click_xy":
		return e.requireWeb().ClickXY(ctx, stringParam(params, "url"), intParam(params, "x"), intParam(params, "y"))
	case "web.click_selector":
		return e.requireWeb().ClickSelector(ctx, stringParam(params, "url"), stringParam(params, "selector"))
	case "web.click_xpath":
		return e.requireWeb().ClickXPath(ctx, stringParam(params, "url"), stringParam(params, "xpath"))
	case "web.fill":
		return e.requireWeb().Fill(ctx, stringParam(params, "url"), stringParam(params, "selector"), stringParam(params, "text"))
	case "web.wait_for":
		return e.requireWeb().WaitFor(ctx, stringParam(params, "url"), stringParam(params, "selector"), intParam(params, "timeout_ms"))

	default:
		return nil, fmt.Errorf("unknown tool %q", step.Tool)
	}
}

func (e *Engine) requireWeb() tool.Web {
	if e.web == nil {
		panic("peal: no web tool configured")
	}
	return e.web
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// intParam reads an integer param that may have come from a locally
// built map[string]any (Go int) or from json.Unmarshal'd LLM output
// (float64), since encoding/json always decodes JSON numbers as float64.
func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// floatParam mirrors intParam for float-typed params.
func floatParam(params map[string]any, key string) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) upsertTaskNode(ctx context.Context, res map[string]any, prov graph.Provenance) {
	task, ok := res["task"].(map[string]any)
	if !ok {
		return
	}
	title, _ := task["title"].(string)
	embedding, _ := e.llm.Embed(ctx, title)
	node := &graph.Node{Kind: graph.KindTask, Props: task, Embedding: embedding}
	nodeUUID, err := e.store.UpsertNode(ctx, node, prov)
	if err != nil {
		logging.Default().Warn("peal: upsert task node failed", "error", err, "trace_id", prov.TraceID)
		return
	}
	res["uuid"] = nodeUUID
	e.emit("memory_upsert", map[string]any{"trace_id": prov.TraceID, "uuid": nodeUUID, "kind": graph.KindTask})
}

func (e *Engine) upsertEventNode(ctx context.Context, res map[string]any, prov graph.Provenance) {
	event, ok := res["event"].(map[string]any)
	if !ok {
		return
	}
	title, _ := event["title"].(string)
	embedding, _ := e.llm.Embed(ctx, title)
	node := &graph.Node{Kind: graph.KindEvent, Labels: []string{title}, Props: event, Embedding: embedding}
	nodeUUID, err := e.store.UpsertNode(ctx, node, prov)
	if err != nil {
		logging.Default().Warn("peal: upsert event node failed", "error", err, "trace_id", prov.TraceID)
		return
	}
	res["uuid"] = nodeUUID
	e.emit("calendar_event_created", map[string]any{"trace_id": prov.TraceID, "event": event})
}

func (e *Engine) upsertContactNode(ctx context.Context, res map[string]any, prov graph.Provenance) {
	contact, ok := res["contact"].(map[string]any)
	if !ok {
		return
	}
	name, _ := contact["name"].(string)
	embedding, _ := e.llm.Embed(ctx, name)
	node := &graph.Node{Kind: graph.KindPerson, Labels: []string{name}, Props: contact, Embedding: embedding}
	nodeUUID, err := e.store.UpsertNode(ctx, node, prov)
	if err != nil {
		logging.Default().Warn("peal: upsert contact node failed", "error", err, "trace_id", prov.TraceID)
		return
	}
	res["uuid"] = nodeUUID
	e.emit("memory_upsert", map[string]any{"trace_id": prov.TraceID, "uuid": nodeUUID, "kind": graph.KindPerson})
}

// adapt implements the adaptation-loop body of step 10: augment the
// request with the prior error and re-plan.
func (e *Engine) adapt(ctx context.Context, requestIntent, userRequest string, prevResult ExecutionResult, memResults, procMatches []graph.SearchResult) (Plan, error) {
	adaptedRequest := fmt.Sprintf("%s\n\n(Previous attempt failed with error: %s. Please adjust the plan to avoid this.)", userRequest, prevResult.Error)
	plan, err := e.generatePlan(ctx, requestIntent, adaptedRequest, memResults, procMatches)
	if err != nil || len(plan.Steps) == 0 {
		if fb := e.fallbackPlan(requestIntent, userRequest); fb != nil {
			return *fb, nil
		}
		return Plan{}, fmt.Errorf("adaptation failed to produce a plan: %w", err)
	}
	return plan, nil
}

// persistRun implements step 12: upsert a Procedure node with run
// counters and record a ProcedureRun linked by a run_of edge.
func (e *Engine) persistRun(ctx context.Context, plan Plan, execResult ExecutionResult, prov graph.Provenance) {
	procUUID := plan.ProcedureUUID
	var procNode *graph.Node
	if procUUID != "" {
		if n, ok, err := e.store.GetNode(ctx, procUUID); err == nil && ok {
			procNode = n
		}
	}
	if procNode == nil {
		procNode = &graph.Node{Kind: graph.KindProcedure, Props: map[string]any{"goal": plan.Intent}}
	}
	successCount := intParam(procNode.Props, "success_count")
	failureCount := intParam(procNode.Props, "failure_count")
	if execResult.Status == "success" {
		successCount++
	} else {
		failureCount++
	}
	procNode.Props["tested"] = true
	procNode.Props["success_count"] = successCount
	procNode.Props["failure_count"] = failureCount
	procNode.Props["last_status"] = execResult.Status
	procNode.Props["last_trace_id"] = prov.TraceID
	procNode.Props["goal"] = plan.Intent

	procUUID, err := e.store.UpsertNode(ctx, procNode, prov)
	if err != nil {
		logging.Default().Warn("peal: persist procedure failed", "error", err, "trace_id", prov.TraceID)
		return
	}

	runNode := &graph.Node{
		Kind: graph.KindProcedureRun,
		Props: map[string]any{
			"status":    execResult.Status,
			"trace_id":  prov.TraceID,
			"ran_at":    time.Now().UTC().Format(time.RFC3339),
			"intent":    plan.Intent,
			"num_steps": len(plan.Steps),
		},
	}
	runUUID, err := e.store.UpsertNode(ctx, runNode, prov)
	if err != nil {
		logging.Default().Warn("peal: persist procedure run failed", "error", err, "trace_id", prov.TraceID)
		return
	}
	edge := &graph.Edge{FromNode: runUUID, ToNode: procUUID, Rel: graph.RelRunOf}
	if _, err := e.store.UpsertEdge(ctx, edge, prov); err != nil {
		logging.Default().Warn("peal: link procedure run failed", "error", err, "trace_id", prov.TraceID)
	}
}

// learnFromOutcome implements step 13: invoke the learning engine on
// success, matching the non-blocking swallow-and-log contract.
func (e *Engine) learnFromOutcome(ctx context.Context, userRequest string, plan Plan, execResult ExecutionResult, prov graph.Provenance) {
	if e.learning == nil {
		return
	}
	results := map[string]any{"status": execResult.Status, "steps": stepResultsToMaps(execResult.Steps)}
	if execResult.Status == "success" {
		e.learning.LearnFromSuccess(ctx, userRequest, results, prov)
	}
}

func stepResultsToMaps(steps []StepResult) []any {
	out := make([]any, len(steps))
	for i, s := range steps {
		out[i] = map[string]any{"status": s.Status, "tool": s.Tool, "output": s.Output, "error": s.Error}
	}
	return out
}

// logMessage upserts a Message node, mirroring the original's
// _log_message (invoked for every incoming request, and for an answer
// returned without executing a plan).
func (e *Engine) logMessage(ctx context.Context, role, text string, prov graph.Provenance) {
	embedding, _ := e.llm.Embed(ctx, text)
	node := &graph.Node{
		Kind:      graph.KindMessage,
		Props:     map[string]any{"role": role, "text": text, "ts": prov.Timestamp},
		Embedding: embedding,
	}
	uuidStr, err := e.store.UpsertNode(ctx, node, prov)
	if err != nil {
		logging.Default().Warn("peal: log message failed", "error", err, "trace_id", prov.TraceID)
		return
	}
	e.emit("message_logged", map[string]any{"trace_id": prov.TraceID, "uuid": uuidStr, "role": role})
}
