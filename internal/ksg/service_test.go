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

package ksg_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorassist/internal/errkind"
	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/ksg"
	"github.com/kadirpekel/hectorassist/internal/vector"
)

func newTestService(t *testing.T) (*ksg.Service, context.Context) {
	t.Helper()
	store := graph.NewMemStore()
	svc := ksg.New(store, vector.NilProvider{})
	ctx := context.Background()
	require.NoError(t, svc.SeedPrototypes(ctx))
	return svc, ctx
}

func prov() graph.Provenance {
	return graph.NewProvenance("user", 1.0, "test-trace")
}

func TestCreateConceptRequiresExistingPrototype(t *testing.T) {
	svc, ctx := newTestService(t)

	_, err := svc.CreateConcept(ctx, "does-not-exist", map[string]any{"name": "x"}, nil, "", prov())
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.NotFound))
}

func TestCreateConceptEmitsInstantiatesEdge(t *testing.T) {
	svc, ctx := newTestService(t)

	uuid, err := svc.CreateConcept(ctx, ksg.ProtoTask, map[string]any{"name": "buy milk"}, nil, "", prov())
	require.NoError(t, err)
	require.NotEmpty(t, uuid)

	edges, err := svc.Store().GetEdges(ctx, graph.EdgeFilter{FromNode: uuid, Rel: graph.RelInstantiates})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, ksg.ProtoTask, edges[0].ToNode)
}

func TestCreateConceptRecursiveMaterializesSteps(t *testing.T) {
	svc, ctx := newTestService(t)

	uuid, err := svc.CreateConceptRecursive(ctx, ksg.ProtoProcedure, map[string]any{
		"name": "morning routine",
		"steps": []any{
			map[string]any{"tool": "calendar.list"},
			map[string]any{"tool": "tasks.create"},
		},
	}, nil, "", prov())
	require.NoError(t, err)

	stepEdges, err := svc.Store().GetEdges(ctx, graph.EdgeFilter{FromNode: uuid, Rel: graph.RelHasStep})
	require.NoError(t, err)
	assert.Len(t, stepEdges, 2)
}

func TestGeneralizeConceptsRejectsMissingEmbeddings(t *testing.T) {
	svc, ctx := newTestService(t)

	noEmbedUUID, err := svc.CreateConcept(ctx, ksg.ProtoTask, map[string]any{"name": "a"}, nil, "", prov())
	require.NoError(t, err)

	_, err = svc.GeneralizeConcepts(ctx, []string{noEmbedUUID}, "gen", "desc", "", prov())
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvalidArgument))
}

func TestGeneralizeConceptsAveragesEmbeddings(t *testing.T) {
	svc, ctx := newTestService(t)

	a, err := svc.CreateConcept(ctx, ksg.ProtoTask, map[string]any{"name": "a"}, []float32{1, 0}, "", prov())
	require.NoError(t, err)
	b, err := svc.CreateConcept(ctx, ksg.ProtoTask, map[string]any{"name": "b"}, []float32{0, 1}, "", prov())
	require.NoError(t, err)

	uuid, err := svc.GeneralizeConcepts(ctx, []string{a, b}, "gen", "desc", ksg.ProtoTask, prov())
	require.NoError(t, err)

	node, ok, err := svc.Store().GetNode(ctx, uuid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.5, node.Embedding[0], 1e-6)
	assert.InDelta(t, 0.5, node.Embedding[1], 1e-6)

	edges, err := svc.Store().GetEdges(ctx, graph.EdgeFilter{FromNode: uuid, Rel: graph.RelAssocGeneralized})
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestFindBestPatternScoresHostMatch(t *testing.T) {
	svc, ctx := newTestService(t)

	patternData := map[string]any{
		"selectors": map[string]any{"email": "#email"},
		"fingerprint": map[string]any{
			"host":                 "example.com",
			"field_type_histogram": map[string]any{"email": 1},
		},
	}
	_, err := svc.StorePattern(ctx, "login-form", patternData, []float32{1, 0}, "", prov())
	require.NoError(t, err)

	matches, err := svc.FindBestPattern(ctx, "https://example.com/login", "<input type='email'>", "login", 5, []float32{1, 0})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.GreaterOrEqual(t, matches[0].Score, 3.0)
}

func TestRecordPatternSuccessIncrementsCounter(t *testing.T) {
	svc, ctx := newTestService(t)

	uuid, err := svc.StorePattern(ctx, "login-form", map[string]any{}, nil, "", prov())
	require.NoError(t, err)

	require.NoError(t, svc.RecordPatternSuccess(ctx, uuid, nil, prov()))
	require.NoError(t, svc.RecordPatternSuccess(ctx, uuid, nil, prov()))

	node, ok, err := svc.Store().GetNode(ctx, uuid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, node.Props["success_count"])
}

func TestTransferPatternDeterministicFuzzyMatch(t *testing.T) {
	svc, ctx := newTestService(t)

	patternData := map[string]any{
		"selectors": map[string]any{"email_address": "#email"},
	}
	uuid, err := svc.StorePattern(ctx, "signup-form", patternData, nil, "", prov())
	require.NoError(t, err)

	result, err := svc.TransferPattern(ctx, uuid, []string{"email"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "email_address", result.Mapping["email"])
}
