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

func prov() graph.Provenance {
	return graph.NewProvenance("user", 1.0, "test-trace")
}

func TestCreateProcedurePersistsStepsAndEdges(t *testing.T) {
	store := graph.NewMemStore()
	b := procedure.NewBuilder(store, nil)

	result, err := b.CreateProcedure(context.Background(), "Login flow", "log into example.com",
		[]procedure.Step{
			{Title: "Open page", Tool: "web.get_dom"},
			{Title: "Fill form", Tool: "web.fill"},
		},
		[]procedure.Dependency{{Prereq: 0, Step: 1}},
		nil, prov())

	require.NoError(t, err)
	require.Len(t, result.StepUUIDs, 2)

	edges, err := store.GetEdges(context.Background(), graph.EdgeFilter{FromNode: result.ProcedureUUID, Rel: graph.RelHasStep})
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	depEdges, err := store.GetEdges(context.Background(), graph.EdgeFilter{FromNode: result.StepUUIDs[1], Rel: graph.RelDependsOn})
	require.NoError(t, err)
	require.Len(t, depEdges, 1)
	assert.Equal(t, result.StepUUIDs[0], depEdges[0].ToNode)
}

func TestCreateProcedureRejectsOutOfRangeDependency(t *testing.T) {
	store := graph.NewMemStore()
	b := procedure.NewBuilder(store, nil)

	_, err := b.CreateProcedure(context.Background(), "Bad", "", []procedure.Step{{Title: "only step"}},
		[]procedure.Dependency{{Prereq: 0, Step: 5}}, nil, prov())

	assert.Error(t, err)
}

func TestCreateProcedureRejectsCyclicDependencies(t *testing.T) {
	store := graph.NewMemStore()
	b := procedure.NewBuilder(store, nil)

	steps := []procedure.Step{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	deps := []procedure.Dependency{
		{Prereq: 0, Step: 1},
		{Prereq: 1, Step: 2},
		{Prereq: 2, Step: 0},
	}

	_, err := b.CreateProcedure(context.Background(), "Cyclic", "", steps, deps, nil, prov())
	assert.Error(t, err)
}

func TestCreateProcedureAcceptsDiamondDependencies(t *testing.T) {
	store := graph.NewMemStore()
	b := procedure.NewBuilder(store, nil)

	steps := []procedure.Step{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}}
	deps := []procedure.Dependency{
		{Prereq: 0, Step: 1},
		{Prereq: 0, Step: 2},
		{Prereq: 1, Step: 3},
		{Prereq: 2, Step: 3},
	}

	_, err := b.CreateProcedure(context.Background(), "Diamond", "", steps, deps, nil, prov())
	assert.NoError(t, err)
}
