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

package procedure_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/procedure"
)

func TestGraphSchemaExposesNodesAndEdges(t *testing.T) {
	m := procedure.NewManager(graph.NewMemStore(), nil)
	schema := m.GraphSchema()

	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "nodes")
	assert.Contains(t, props, "edges")
}

func TestCreateFromGraphWiresControlFlowAndSubprocedures(t *testing.T) {
	store := graph.NewMemStore()
	m := procedure.NewManager(store, nil)

	proc := procedure.GraphProcedure{
		Name:        "Main Flow",
		Description: "graph procedure with control flow",
		Nodes: []procedure.GraphNode{
			{ID: "get_dom", Type: "operation", Tool: "web.get_dom", Params: map[string]any{"url": "https://example.com/login"}},
			{ID: "check_login", Type: "conditional", Condition: "page_has_login_form"},
			{ID: "call_login", Type: "procedure_call", Procedure: "LoginSub"},
			{ID: "retry_loop", Type: "loop", Condition: "not_logged_in", Body: []string{"get_dom", "call_login"}, MaxIterations: 2},
		},
		Edges: []procedure.GraphEdge{
			{From: "get_dom", To: "check_login", Rel: graph.RelDependsOn},
			{From: "check_login", To: "call_login", Rel: graph.RelBranchTrue},
			{From: "retry_loop", To: "get_dom", Rel: graph.RelLoopBack},
		},
		Subprocedures: []procedure.GraphProcedure{
			{
				Name:        "LoginSub",
				Description: "subprocedure for login",
				Nodes: []procedure.GraphNode{
					{ID: "fill_login", Type: "operation", Tool: "form.autofill", Params: map[string]any{"url": "https://example.com/login", "form_type": "login"}},
				},
			},
		},
	}

	result, err := m.CreateFromGraph(context.Background(), proc, prov())
	require.NoError(t, err)
	require.NotEmpty(t, result.ProcedureUUID)
	require.NotEmpty(t, result.SchemaUUID)

	schemaNode, ok, err := store.GetNode(context.Background(), result.SchemaUUID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, procedure.SchemaVersion, schemaNode.Props["schema_version"])

	var rels []string
	allEdges := append(append(append(
		mustEdges(t, store, graph.EdgeFilter{Rel: graph.RelHasSubprocedure}),
		mustEdges(t, store, graph.EdgeFilter{Rel: graph.RelCallsProcedure})...),
		mustEdges(t, store, graph.EdgeFilter{Rel: graph.RelHasNode})...),
		mustEdges(t, store, graph.EdgeFilter{Rel: graph.RelConformsTo})...)
	for _, e := range allEdges {
		rels = append(rels, e.Rel)
	}
	assert.Contains(t, rels, graph.RelHasSubprocedure)
	assert.Contains(t, rels, graph.RelCallsProcedure)
	assert.Contains(t, rels, graph.RelHasNode)
	assert.Contains(t, rels, graph.RelConformsTo)

	stepEdges := mustEdges(t, store, graph.EdgeFilter{FromNode: result.ProcedureUUID, Rel: graph.RelHasStep})
	assert.Len(t, stepEdges, 4)
}

func mustEdges(t *testing.T, store graph.Store, filter graph.EdgeFilter) []*graph.Edge {
	t.Helper()
	edges, err := store.GetEdges(context.Background(), filter)
	require.NoError(t, err)
	return edges
}
