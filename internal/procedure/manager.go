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
	"errors"
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/errkind"
	"github.com/kadirpekel/hectorassist/internal/graph"
)

// SchemaVersion is the graph-schema procedure format this manager emits
// and expects, mirroring the original's "ksg-procedure-0.2" token.
const SchemaVersion = "ksg-procedure-0.2"

// GraphNode is one node of a graph-schema procedure definition.
type GraphNode struct {
	ID            string
	Type          string // "operation", "conditional", "loop", "procedure_call"
	Tool          string
	Params        map[string]any
	Condition     string
	Procedure     string
	Body          []string
	MaxIterations int
}

// GraphEdge connects two GraphNode ids by a control-flow relation.
type GraphEdge struct {
	From string
	To   string
	Rel  string // depends_on, branch_true, branch_false, loop_back, calls_procedure
}

// GraphProcedure is the JSON-native graph-schema procedure shape (spec
// §4.4): a Procedure with free-form node/edge control flow, plus
// optional nested subprocedures.
type GraphProcedure struct {
	Name          string
	Description   string
	Nodes         []GraphNode
	Edges         []GraphEdge
	Subprocedures []GraphProcedure
}

// GraphBuildResult is returned by Manager.CreateFromGraph.
type GraphBuildResult struct {
	ProcedureUUID string
	SchemaUUID    string
	NodeUUIDs     map[string]string // GraphNode.ID -> node uuid
}

// Manager persists graph-schema procedures: a Procedure node, a Schema
// node (conforms_to edge), and Node nodes of type {operation, conditional,
// loop, procedure_call} joined by control-flow edges. It also emits a
// parallel has_step edge set (ordered by node appearance) so legacy
// consumers relying on flat step iteration keep working.
type Manager struct {
	store graph.Store
	embed EmbedFunc
}

// NewManager builds a Manager. embed may be nil.
func NewManager(store graph.Store, embed EmbedFunc) *Manager {
	return &Manager{store: store, embed: embed}
}

// GraphSchema describes the JSON shape CreateFromGraph accepts, for
// callers (e.g. an LLM-facing tool description) that need to advertise it.
func (m *Manager) GraphSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"schema_version": map[string]any{"type": "string"},
			"name":           map[string]any{"type": "string"},
			"description":    map[string]any{"type": "string"},
			"nodes":          map[string]any{"type": "array"},
			"edges":          map[string]any{"type": "array"},
			"subprocedures":  map[string]any{"type": "array"},
		},
		"required": []string{"name", "nodes"},
	}
}

// CreateFromGraph persists proc and, recursively, its subprocedures,
// linking each child Procedure via calls_procedure (from the parent's
// matching procedure_call node) and has_subprocedure (parent -> child).
func (m *Manager) CreateFromGraph(ctx context.Context, proc GraphProcedure, prov graph.Provenance) (GraphBuildResult, error) {
	if proc.Name == "" {
		return GraphBuildResult{}, errkind.New(errkind.InvalidArgument, errors.New("procedure name is required"))
	}

	schemaNode := &graph.Node{
		Kind: graph.KindSchema,
		Props: map[string]any{
			"schema_version": SchemaVersion,
			"node_count":     len(proc.Nodes),
		},
	}
	schemaUUID, err := m.store.UpsertNode(ctx, schemaNode, prov)
	if err != nil {
		return GraphBuildResult{}, fmt.Errorf("upsert schema node: %w", err)
	}

	procNode := &graph.Node{
		Kind:   graph.KindProcedure,
		Labels: []string{"procedure", "graph_schema"},
		Props: map[string]any{
			"title":       proc.Name,
			"description": proc.Description,
			"schema_uuid": schemaUUID,
		},
	}
	if m.embed != nil {
		if emb, err := m.embed(ctx, proc.Name); err == nil {
			procNode.Embedding = emb
		}
	}
	procUUID, err := m.store.UpsertNode(ctx, procNode, prov)
	if err != nil {
		return GraphBuildResult{}, fmt.Errorf("upsert procedure node: %w", err)
	}

	if _, err := m.store.UpsertEdge(ctx, &graph.Edge{FromNode: procUUID, ToNode: schemaUUID, Rel: graph.RelConformsTo}, prov); err != nil {
		return GraphBuildResult{}, fmt.Errorf("link conforms_to: %w", err)
	}

	nodeUUIDs := make(map[string]string, len(proc.Nodes))
	for order, n := range proc.Nodes {
		node := &graph.Node{
			Kind:   n.Type,
			Labels: []string{"procedure_node", n.Type},
			Props: map[string]any{
				"node_id":        n.ID,
				"tool":           n.Tool,
				"params":         n.Params,
				"condition":      n.Condition,
				"procedure_name": n.Procedure,
				"body":           n.Body,
				"max_iterations": n.MaxIterations,
				"order":          order,
				"procedure_uuid": procUUID,
			},
		}
		nodeUUID, err := m.store.UpsertNode(ctx, node, prov)
		if err != nil {
			return GraphBuildResult{}, fmt.Errorf("upsert node %q: %w", n.ID, err)
		}
		nodeUUIDs[n.ID] = nodeUUID

		if _, err := m.store.UpsertEdge(ctx, &graph.Edge{
			FromNode: procUUID, ToNode: nodeUUID, Rel: graph.RelHasNode, Props: map[string]any{"order": order},
		}, prov); err != nil {
			return GraphBuildResult{}, fmt.Errorf("link has_node %q: %w", n.ID, err)
		}
		// Legacy compatibility: emit has_step alongside has_node so flat
		// consumers (Executor.LoadSteps) still see an ordered step list.
		if _, err := m.store.UpsertEdge(ctx, &graph.Edge{
			FromNode: procUUID, ToNode: nodeUUID, Rel: graph.RelHasStep, Props: map[string]any{"order": order},
		}, prov); err != nil {
			return GraphBuildResult{}, fmt.Errorf("link has_step %q: %w", n.ID, err)
		}
	}

	for _, e := range proc.Edges {
		fromUUID, ok := nodeUUIDs[e.From]
		if !ok {
			continue
		}
		toUUID, ok := nodeUUIDs[e.To]
		if !ok {
			continue
		}
		if _, err := m.store.UpsertEdge(ctx, &graph.Edge{FromNode: fromUUID, ToNode: toUUID, Rel: e.Rel}, prov); err != nil {
			return GraphBuildResult{}, fmt.Errorf("link %s %s->%s: %w", e.Rel, e.From, e.To, err)
		}
	}

	for _, sub := range proc.Subprocedures {
		subResult, err := m.CreateFromGraph(ctx, sub, prov)
		if err != nil {
			return GraphBuildResult{}, fmt.Errorf("subprocedure %q: %w", sub.Name, err)
		}
		if _, err := m.store.UpsertEdge(ctx, &graph.Edge{FromNode: procUUID, ToNode: subResult.ProcedureUUID, Rel: graph.RelHasSubprocedure}, prov); err != nil {
			return GraphBuildResult{}, fmt.Errorf("link has_subprocedure: %w", err)
		}
		// Any procedure_call node naming this subprocedure gets a
		// calls_procedure edge to its resolved Procedure node.
		for _, n := range proc.Nodes {
			if n.Type == "procedure_call" && n.Procedure == sub.Name {
				if callerUUID, ok := nodeUUIDs[n.ID]; ok {
					if _, err := m.store.UpsertEdge(ctx, &graph.Edge{FromNode: callerUUID, ToNode: subResult.ProcedureUUID, Rel: graph.RelCallsProcedure}, prov); err != nil {
						return GraphBuildResult{}, fmt.Errorf("link calls_procedure: %w", err)
					}
				}
			}
		}
	}

	return GraphBuildResult{ProcedureUUID: procUUID, SchemaUUID: schemaUUID, NodeUUIDs: nodeUUIDs}, nil
}
