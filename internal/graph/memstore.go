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

package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-process, mutex-protected Store. It is the default
// backend (used by tests and single-node deployments); its search
// scoring is ported from the original's InMemoryStore.search.
//
// Thread-safety: all operations acquire mu, satisfying the linearizable
// single-key read/write requirement of spec §5.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string]*Edge
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

func (s *MemStore) UpsertNode(ctx context.Context, node *Node, prov Provenance) (string, error) {
	if node == nil {
		return "", fmt.Errorf("node is required")
	}
	if node.UUID == "" {
		node.UUID = uuid.NewString()
	}
	if node.Props == nil {
		node.Props = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Upsert by uuid replaces props wholesale (spec §3 invariant).
	s.nodes[node.UUID] = node
	return node.UUID, nil
}

func (s *MemStore) UpsertEdge(ctx context.Context, edge *Edge, prov Provenance) (string, error) {
	if edge == nil {
		return "", fmt.Errorf("edge is required")
	}
	if edge.FromNode == "" || edge.ToNode == "" {
		return "", fmt.Errorf("edge requires from_node and to_node")
	}
	if edge.UUID == "" {
		edge.UUID = uuid.NewString()
	}
	if edge.Props == nil {
		edge.Props = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Dangling edges are a bug (spec §3): reject edges to unknown nodes.
	if _, ok := s.nodes[edge.FromNode]; !ok {
		return "", fmt.Errorf("edge from_node %q does not exist", edge.FromNode)
	}
	if _, ok := s.nodes[edge.ToNode]; !ok {
		return "", fmt.Errorf("edge to_node %q does not exist", edge.ToNode)
	}
	s.edges[edge.UUID] = edge
	return edge.UUID, nil
}

func (s *MemStore) GetNode(ctx context.Context, id string) (*Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok, nil
}

func (s *MemStore) GetEdges(ctx context.Context, filter EdgeFilter) ([]*Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Edge
	for _, e := range s.edges {
		if filter.FromNode != "" && e.FromNode != filter.FromNode {
			continue
		}
		if filter.ToNode != "" && e.ToNode != filter.ToNode {
			continue
		}
		if filter.Rel != "" && e.Rel != filter.Rel {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type scoredNode struct {
	node      *Node
	textScore float64
	score     float64
}

// Search implements the scoring algorithm from the original InMemoryStore:
// substring text match (0.8), any-word match (0.5), maxed against cosine
// embedding similarity when both sides carry an embedding, filtered
// conjunctively over props, prototypes excluded unless explicitly asked
// for, sorted by score descending with text score as tiebreak.
func (s *MemStore) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	queryLower := strings.ToLower(q.Text)
	queryWords := strings.Fields(queryLower)

	wantsPrototypes := false
	if kind, ok := q.Filters["kind"]; ok {
		if ks, ok := kind.(string); ok && ks == KindPrototype {
			wantsPrototypes = true
		}
	}

	var scored []scoredNode
	for _, n := range s.nodes {
		if !q.IncludePrototypes && !wantsPrototypes {
			if isProto, _ := n.Props["isPrototype"].(bool); isProto {
				continue
			}
		}
		if !matchesFilters(n, q.Filters) {
			continue
		}

		nodeText := strings.ToLower(strings.Join([]string{
			n.Kind,
			strings.Join(n.Labels, " "),
			stringProp(n.Props, "name"),
			stringProp(n.Props, "title"),
			stringProp(n.Props, "label"),
		}, " "))

		textScore := 0.0
		if queryLower != "" && strings.Contains(nodeText, queryLower) {
			textScore = 0.8
		} else {
			for _, w := range queryWords {
				if w != "" && strings.Contains(nodeText, w) {
					textScore = 0.5
					break
				}
			}
		}

		score := textScore
		if len(q.Embedding) > 0 && len(n.Embedding) > 0 {
			if sim := Cosine(q.Embedding, n.Embedding); sim > score {
				score = sim
			}
		}

		if score <= 0 {
			continue
		}
		scored = append(scored, scoredNode{node: n, textScore: textScore, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].textScore != scored[j].textScore {
			return scored[i].textScore > scored[j].textScore
		}
		return scored[i].node.UUID < scored[j].node.UUID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	out := make([]SearchResult, len(scored))
	for i, sn := range scored {
		out[i] = SearchResult{Node: sn.node, Score: sn.score}
	}
	return out, nil
}

func matchesFilters(n *Node, filters map[string]any) bool {
	for k, v := range filters {
		if k == "kind" {
			if ks, ok := v.(string); ok && n.Kind != ks {
				return false
			}
			continue
		}
		if pv, ok := n.Props[k]; !ok || pv != v {
			return false
		}
	}
	return true
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
