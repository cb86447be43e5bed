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

package procedure

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/hectorassist/internal/graph"
)

// Guard gates a step against the previous step's result.
type Guard struct {
	Type  string // "equals", "not_equals", "exists"
	Path  string // dotted path into the previous result
	Value any
}

// ExecStep is one linearized, hydrated step ready to run.
type ExecStep struct {
	UUID   string
	Tool   string
	Params map[string]any
	Guard  *Guard
	Order  int
}

// ToolFunc invokes a named tool with its params and returns a result dict.
type ToolFunc func(ctx context.Context, tool string, params map[string]any) (map[string]any, error)

// ExecResult is the outcome of Execute.
type ExecResult struct {
	Status  string // "success", "error"
	Results []map[string]any
	Tool    string // set when Status == "error"
	Params  map[string]any
	Err     string
}

// Executor runs a linearized, guarded sequence of steps against tools.
type Executor struct {
	store  graph.Store
	invoke ToolFunc
}

// NewExecutor builds an Executor. invoke is called for every step whose
// guard passes; it reports a tool it does not recognize by returning a
// nil result and a nil error.
func NewExecutor(store graph.Store, invoke ToolFunc) *Executor {
	return &Executor{store: store, invoke: invoke}
}

// LoadSteps hydrates a procedure's steps, preferring has_step edges over
// the legacy props["steps"] fallback (spec §4.4).
func (e *Executor) LoadSteps(ctx context.Context, conceptUUID string) ([]ExecStep, error) {
	edges, err := e.store.GetEdges(ctx, graph.EdgeFilter{FromNode: conceptUUID, Rel: graph.RelHasStep})
	if err == nil && len(edges) > 0 {
		sort.Slice(edges, func(i, j int) bool {
			return orderOf(edges[i].Props) < orderOf(edges[j].Props)
		})
		steps := make([]ExecStep, 0, len(edges))
		for _, e2 := range edges {
			node, ok, err := e.store.GetNode(ctx, e2.ToNode)
			if err != nil {
				return nil, fmt.Errorf("load step %s: %w", e2.ToNode, err)
			}
			if !ok {
				continue
			}
			steps = append(steps, execStepFromNode(node))
		}
		return steps, nil
	}

	node, ok, err := e.store.GetNode(ctx, conceptUUID)
	if err != nil {
		return nil, fmt.Errorf("load procedure concept %s: %w", conceptUUID, err)
	}
	if !ok {
		return nil, nil
	}
	raw, _ := node.Props["steps"].([]any)
	steps := make([]ExecStep, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		steps = append(steps, execStepFromProps(m, i))
	}
	return steps, nil
}

// Execute loads and runs a procedure's steps sequentially. A failing
// guard skips the step (not an error). A step whose invoke returns a nil
// result and no error (an unrecognized tool) resolves to
// {"status": "no action taken"}. A step raising halts execution.
func (e *Executor) Execute(ctx context.Context, conceptUUID string) (ExecResult, error) {
	steps, err := e.LoadSteps(ctx, conceptUUID)
	if err != nil {
		return ExecResult{}, err
	}

	results := make([]map[string]any, 0, len(steps))
	var lastResult map[string]any
	for _, step := range steps {
		if !guardAllows(step.Guard, lastResult) {
			results = append(results, map[string]any{"status": "skipped", "tool": step.Tool})
			continue
		}

		res, err := e.invoke(ctx, step.Tool, step.Params)
		if err != nil {
			return ExecResult{
				Status: "error",
				Tool:   step.Tool,
				Params: step.Params,
				Err:    err.Error(),
			}, nil
		}
		if res == nil {
			res = map[string]any{"status": "no action taken"}
		}
		results = append(results, res)
		lastResult = res
	}

	return ExecResult{Status: "success", Results: results}, nil
}

func guardAllows(guard *Guard, lastResult map[string]any) bool {
	if guard == nil || guard.Path == "" || guard.Type == "" {
		return true
	}
	val := dottedLookup(lastResult, guard.Path)
	switch guard.Type {
	case "equals":
		return val == guard.Value
	case "not_equals":
		return val != guard.Value
	case "exists":
		return val != nil
	default:
		return true
	}
}

func dottedLookup(d map[string]any, path string) any {
	var cur any = d
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func orderOf(props map[string]any) int {
	switch v := props["order"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func execStepFromNode(node *graph.Node) ExecStep {
	step := ExecStep{
		UUID:  node.UUID,
		Order: orderOf(node.Props),
	}
	if tool, ok := node.Props["tool"].(string); ok {
		step.Tool = tool
	}
	if params, ok := node.Props["payload"].(map[string]any); ok {
		step.Params = params
	} else {
		step.Params = map[string]any{}
	}
	step.Guard = guardFromProps(node.Props)
	return step
}

func execStepFromProps(m map[string]any, idx int) ExecStep {
	step := ExecStep{Order: idx}
	if tool, ok := m["tool"].(string); ok {
		step.Tool = tool
	}
	if params, ok := m["params"].(map[string]any); ok {
		step.Params = params
	} else if payload, ok := m["payload"].(map[string]any); ok {
		step.Params = payload
	} else {
		step.Params = map[string]any{}
	}
	step.Guard = guardFromProps(m)
	return step
}

func guardFromProps(props map[string]any) *Guard {
	raw, ok := props["guard"].(map[string]any)
	if !ok {
		return nil
	}
	g := &Guard{}
	if t, ok := raw["type"].(string); ok {
		g.Type = t
	}
	if p, ok := raw["path"].(string); ok {
		g.Path = p
	}
	g.Value = raw["value"]
	if g.Type == "" || g.Path == "" {
		return nil
	}
	return g
}
