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

package ksg

import (
	"context"
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/errkind"
	"github.com/kadirpekel/hectorassist/internal/graph"
)

// CreatePrototype creates a Prototype node. If basePrototypeUUID is set, an
// inherits_from edge links it into the prototype tree.
func (s *Service) CreatePrototype(ctx context.Context, name, description, ctxNote string, labels []string, embedding []float32, baseProtoUUID string, prov graph.Provenance) (string, error) {
	if name == "" {
		return "", errkind.New(errkind.InvalidArgument, fmt.Errorf("prototype name is required"))
	}

	node := &graph.Node{
		Kind:      graph.KindPrototype,
		Labels:    append([]string{"Prototype"}, labels...),
		Embedding: embedding,
		Props: map[string]any{
			"name":        name,
			"description": description,
			"context":     ctxNote,
			"isPrototype": true,
		},
	}
	uuid, err := s.store.UpsertNode(ctx, node, prov)
	if err != nil {
		return "", errkind.New(errkind.Internal, fmt.Errorf("upsert prototype: %w", err))
	}

	if baseProtoUUID != "" {
		edge := &graph.Edge{FromNode: uuid, ToNode: baseProtoUUID, Rel: graph.RelInheritsFrom}
		if _, err := s.store.UpsertEdge(ctx, edge, prov); err != nil {
			return "", errkind.New(errkind.Internal, fmt.Errorf("link prototype inheritance: %w", err))
		}
	}
	return uuid, nil
}

// CreateConcept instantiates a Concept from a Prototype.
func (s *Service) CreateConcept(ctx context.Context, prototypeUUID string, props map[string]any, embedding []float32, previousVersionUUID string, prov graph.Provenance) (string, error) {
	if _, ok, err := s.store.GetNode(ctx, prototypeUUID); err != nil {
		return "", errkind.New(errkind.Internal, err)
	} else if !ok {
		return "", errkind.New(errkind.NotFound, fmt.Errorf("prototype %q not found", prototypeUUID))
	}

	if props == nil {
		props = map[string]any{}
	}
	props["prototype_uuid"] = prototypeUUID
	props["isPrototype"] = false
	if previousVersionUUID != "" {
		props["previous_version_uuid"] = previousVersionUUID
	}

	node := &graph.Node{
		Kind:      graph.KindConcept,
		Labels:    []string{stringPropOr(props, "name", "concept")},
		Props:     props,
		Embedding: embedding,
	}
	uuid, err := s.store.UpsertNode(ctx, node, prov)
	if err != nil {
		return "", errkind.New(errkind.Internal, fmt.Errorf("upsert concept: %w", err))
	}

	edge := &graph.Edge{FromNode: uuid, ToNode: prototypeUUID, Rel: graph.RelInstantiates}
	if _, err := s.store.UpsertEdge(ctx, edge, prov); err != nil {
		return "", errkind.New(errkind.Internal, fmt.Errorf("link instantiates edge: %w", err))
	}

	if err := s.indexEmbedding(ctx, uuid, embedding, graph.KindConcept); err != nil {
		return uuid, errkind.New(errkind.Internal, err)
	}
	return uuid, nil
}

// CreateConceptRecursive behaves like CreateConcept, but if props["steps"]
// is a list, each entry is materialized as its own child Concept linked by
// has_step edges carrying an "order" prop — the canonical procedure
// storage shape used by the procedure builder.
func (s *Service) CreateConceptRecursive(ctx context.Context, prototypeUUID string, props map[string]any, embedding []float32, previousVersionUUID string, prov graph.Provenance) (string, error) {
	steps, _ := props["steps"].([]any)
	// Steps are stored as child concepts, not inline on the parent.
	delete(props, "steps")

	parentUUID, err := s.CreateConcept(ctx, prototypeUUID, props, embedding, previousVersionUUID, prov)
	if err != nil {
		return "", err
	}

	for i, raw := range steps {
		stepProps, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		stepProps["order"] = i
		stepNode := &graph.Node{
			Kind:   graph.KindStep,
			Labels: []string{"Step"},
			Props:  stepProps,
		}
		stepUUID, err := s.store.UpsertNode(ctx, stepNode, prov)
		if err != nil {
			return parentUUID, errkind.New(errkind.Internal, fmt.Errorf("upsert step %d: %w", i, err))
		}
		edge := &graph.Edge{
			FromNode: parentUUID,
			ToNode:   stepUUID,
			Rel:      graph.RelHasStep,
			Props:    map[string]any{"order": i},
		}
		if _, err := s.store.UpsertEdge(ctx, edge, prov); err != nil {
			return parentUUID, errkind.New(errkind.Internal, fmt.Errorf("link step %d: %w", i, err))
		}
	}
	return parentUUID, nil
}

// SearchConcepts searches the memory store restricted to kind=Concept.
func (s *Service) SearchConcepts(ctx context.Context, queryText string, topK int, queryEmbedding []float32, filters map[string]any) ([]graph.SearchResult, error) {
	merged := map[string]any{"kind": graph.KindConcept}
	for k, v := range filters {
		merged[k] = v
	}
	results, err := s.store.Search(ctx, graph.SearchQuery{
		Text:      queryText,
		TopK:      topK,
		Filters:   merged,
		Embedding: queryEmbedding,
	})
	if err != nil {
		return nil, errkind.New(errkind.Internal, err)
	}
	return results, nil
}

// GeneralizeConcepts creates a new Concept whose embedding is the
// element-wise centroid of its exemplars, linked to each by an
// association:generalized_from edge.
func (s *Service) GeneralizeConcepts(ctx context.Context, exemplarUUIDs []string, name, description string, prototypeUUID string, prov graph.Provenance) (string, error) {
	if len(exemplarUUIDs) == 0 {
		return "", errkind.New(errkind.InvalidArgument, fmt.Errorf("generalize requires at least one exemplar"))
	}

	embeddings := make([][]float32, 0, len(exemplarUUIDs))
	for _, uuid := range exemplarUUIDs {
		node, ok, err := s.store.GetNode(ctx, uuid)
		if err != nil {
			return "", errkind.New(errkind.Internal, err)
		}
		if !ok {
			return "", errkind.New(errkind.NotFound, fmt.Errorf("exemplar %q not found", uuid))
		}
		if len(node.Embedding) == 0 {
			return "", errkind.New(errkind.InvalidArgument, fmt.Errorf("exemplar %q has no embedding", uuid))
		}
		embeddings = append(embeddings, node.Embedding)
	}

	centroid := embeddings[0]
	if allSameDimension(embeddings) {
		centroid = averageEmbeddings(embeddings)
	}

	if prototypeUUID == "" {
		prototypeUUID = ProtoProcedure
	}
	uuid, err := s.CreateConcept(ctx, prototypeUUID, map[string]any{
		"name":        name,
		"description": description,
		"generalized": true,
	}, centroid, "", prov)
	if err != nil {
		return "", err
	}

	for _, exemplarUUID := range exemplarUUIDs {
		edge := &graph.Edge{FromNode: uuid, ToNode: exemplarUUID, Rel: graph.RelAssocGeneralized}
		if _, err := s.store.UpsertEdge(ctx, edge, prov); err != nil {
			return uuid, errkind.New(errkind.Internal, fmt.Errorf("link generalization exemplar: %w", err))
		}
	}
	return uuid, nil
}

func allSameDimension(embeddings [][]float32) bool {
	if len(embeddings) == 0 {
		return true
	}
	dim := len(embeddings[0])
	for _, e := range embeddings[1:] {
		if len(e) != dim {
			return false
		}
	}
	return true
}

func averageEmbeddings(embeddings [][]float32) []float32 {
	dim := len(embeddings[0])
	sum := make([]float64, dim)
	for _, e := range embeddings {
		for i, v := range e {
			sum[i] += float64(v)
		}
	}
	out := make([]float32, dim)
	for i, v := range sum {
		out[i] = float32(v / float64(len(embeddings)))
	}
	return out
}

// indexEmbedding mirrors a concept's embedding into the vector provider
// (a no-op when vec is vector.NilProvider).
func (s *Service) indexEmbedding(ctx context.Context, uuid string, embedding []float32, kind string) error {
	if len(embedding) == 0 {
		return nil
	}
	return s.vec.Upsert(ctx, s.collection, uuid, embedding, map[string]any{"kind": kind})
}

func stringPropOr(props map[string]any, key, fallback string) string {
	if v, ok := props[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
