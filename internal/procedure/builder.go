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

// Package procedure implements the Procedure Engine (spec §4.4): building
// flat and graph-schema procedures, hydrating their steps, and executing
// them with guard evaluation and selector self-healing.
package procedure

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/errkind"
	"github.com/kadirpekel/hectorassist/internal/graph"
)

// Step is one unit of work supplied to Builder.CreateProcedure.
type Step struct {
	Title     string
	Tool      string
	Payload   map[string]any
	Order     int
	GuardText string
	Guard     map[string]any
	OnFail    string
}

// Dependency is a (prereq, step) pair of 0-based indices into the Steps
// slice passed to CreateProcedure: Step must run after Prereq.
type Dependency struct {
	Prereq int
	Step   int
}

// BuildResult is returned by CreateProcedure.
type BuildResult struct {
	ProcedureUUID string
	StepUUIDs     []string
}

// EmbedFunc embeds text for similarity search. Builder tolerates a nil
// embedding (the resulting node is simply unsearchable by vector).
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Builder persists flat (legacy) Procedure + Step graphs: a Procedure
// node, N Step nodes, has_step edges (with order), and depends_on edges
// between steps. Dependencies must form a DAG.
type Builder struct {
	store graph.Store
	embed EmbedFunc
}

// NewBuilder constructs a Builder. embed may be nil.
func NewBuilder(store graph.Store, embed EmbedFunc) *Builder {
	return &Builder{store: store, embed: embed}
}

// CreateProcedure persists title/description as a Procedure node, each
// step as a Step node linked by has_step (with order), and each
// Dependency as a depends_on edge from the dependent step to its
// prerequisite. Returns errkind.InvalidArgument if a dependency index is
// out of range or the dependency graph has a cycle.
func (b *Builder) CreateProcedure(ctx context.Context, title, description string, steps []Step, deps []Dependency, extraProps map[string]any, prov graph.Provenance) (BuildResult, error) {
	for _, d := range deps {
		if d.Prereq < 0 || d.Prereq >= len(steps) || d.Step < 0 || d.Step >= len(steps) {
			return BuildResult{}, errkind.New(errkind.InvalidArgument, errors.New("dependency index out of range"))
		}
	}
	if hasCycle(len(steps), deps) {
		return BuildResult{}, errkind.New(errkind.InvalidArgument, errors.New("procedure dependencies must be acyclic"))
	}

	procProps := map[string]any{"title": title, "description": description}
	for k, v := range extraProps {
		procProps[k] = v
	}
	procNode := &graph.Node{Kind: graph.KindProcedure, Labels: []string{"procedure"}, Props: procProps}
	if b.embed != nil {
		emb, err := b.embed(ctx, title)
		if err == nil {
			procNode.Embedding = emb
		}
	}
	procUUID, err := b.store.UpsertNode(ctx, procNode, prov)
	if err != nil {
		return BuildResult{}, fmt.Errorf("upsert procedure node: %w", err)
	}
	procNode.UUID = procUUID

	stepUUIDs := make([]string, len(steps))
	for idx, step := range steps {
		order := step.Order
		if order == 0 {
			order = idx
		}
		node := &graph.Node{
			Kind:   graph.KindStep,
			Labels: []string{"step"},
			Props: map[string]any{
				"title":          step.Title,
				"payload":        step.Payload,
				"tool":           step.Tool,
				"order":          order,
				"guard_text":     step.GuardText,
				"guard":          step.Guard,
				"on_fail":        step.OnFail,
				"procedure_uuid": procUUID,
			},
		}
		if b.embed != nil {
			emb, err := b.embed(ctx, step.Title)
			if err == nil {
				node.Embedding = emb
			}
		}
		stepUUID, err := b.store.UpsertNode(ctx, node, prov)
		if err != nil {
			return BuildResult{}, fmt.Errorf("upsert step %d: %w", idx, err)
		}
		stepUUIDs[idx] = stepUUID

		if _, err := b.store.UpsertEdge(ctx, &graph.Edge{
			FromNode: procUUID,
			ToNode:   stepUUID,
			Rel:      graph.RelHasStep,
			Props:    map[string]any{"order": idx},
		}, prov); err != nil {
			return BuildResult{}, fmt.Errorf("link has_step %d: %w", idx, err)
		}
	}

	for _, d := range deps {
		if _, err := b.store.UpsertEdge(ctx, &graph.Edge{
			FromNode: stepUUIDs[d.Step],
			ToNode:   stepUUIDs[d.Prereq],
			Rel:      graph.RelDependsOn,
			Props: map[string]any{
				"from_order": steps[d.Step].Order,
				"to_order":   steps[d.Prereq].Order,
			},
		}, prov); err != nil {
			return BuildResult{}, fmt.Errorf("link depends_on: %w", err)
		}
	}

	return BuildResult{ProcedureUUID: procUUID, StepUUIDs: stepUUIDs}, nil
}

// SearchProcedures retrieves Procedure nodes by embedding/text similarity.
func (b *Builder) SearchProcedures(ctx context.Context, query string, topK int) ([]graph.SearchResult, error) {
	var embedding []float32
	if b.embed != nil {
		if emb, err := b.embed(ctx, query); err == nil {
			embedding = emb
		}
	}
	return b.store.Search(ctx, graph.SearchQuery{
		Text:      query,
		TopK:      topK,
		Embedding: embedding,
		Filters:   map[string]any{"kind": graph.KindProcedure},
	})
}

// hasCycle runs Kahn's algorithm over the step dependency graph; a cycle
// exists if not every step can reach in-degree zero.
func hasCycle(nSteps int, deps []Dependency) bool {
	adj := make(map[int][]int, nSteps)
	indegree := make([]int, nSteps)
	for i := 0; i < nSteps; i++ {
		adj[i] = nil
	}
	for _, d := range deps {
		adj[d.Prereq] = append(adj[d.Prereq], d.Step)
		indegree[d.Step]++
	}

	queue := make([]int, 0, nSteps)
	for i := 0; i < nSteps; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for _, nei := range adj[cur] {
			indegree[nei]--
			if indegree[nei] == 0 {
				queue = append(queue, nei)
			}
		}
	}
	return visited != nSteps
}
