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
	"math"
)

// SearchQuery is the single search contract both memstore and sqlstore
// implement (spec §6 memory-store interface).
type SearchQuery struct {
	Text      string
	TopK      int
	Filters   map[string]any
	Embedding []float32
	// IncludePrototypes, if false (the default), excludes nodes whose
	// props["isPrototype"] is true unless Filters explicitly asks for
	// kind=Prototype.
	IncludePrototypes bool
}

// SearchResult pairs a node with its relevance score.
type SearchResult struct {
	Node  *Node
	Score float64
}

// EdgeFilter selects edges by any combination of endpoints and relation.
// Zero-value fields are wildcards.
type EdgeFilter struct {
	FromNode string
	ToNode   string
	Rel      string
}

// Store is the memory-store interface PEAL and SMLG consume (spec §6).
// Implementations must provide linearizable single-key reads/writes per
// spec §5 (memstore does this with a mutex; sqlstore via SQLite's own
// transaction serialization).
type Store interface {
	UpsertNode(ctx context.Context, node *Node, prov Provenance) (string, error)
	UpsertEdge(ctx context.Context, edge *Edge, prov Provenance) (string, error)
	GetNode(ctx context.Context, uuid string) (*Node, bool, error)
	GetEdges(ctx context.Context, filter EdgeFilter) ([]*Edge, error)
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

// Cosine computes cosine similarity between two equal-length vectors.
// A zero-norm vector (or length mismatch) returns 0, per spec §4.1.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
