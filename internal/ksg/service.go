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
	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/vector"
)

// Service is the Semantic Memory & Learning Graph, built on top of a
// graph.Store for typed nodes/edges and an optional vector.Provider for
// large-scale embedding search. When vec is vector.NilProvider, all
// embedding similarity is computed in-process via graph.Cosine.
type Service struct {
	store graph.Store
	vec   vector.Provider

	// collection names the vector.Provider collection concept embeddings
	// are indexed under.
	collection string
}

// New builds a Service over the given store and vector provider.
func New(store graph.Store, vec vector.Provider) *Service {
	if vec == nil {
		vec = vector.NilProvider{}
	}
	return &Service{store: store, vec: vec, collection: "ksg_concepts"}
}

// Store exposes the underlying graph.Store for callers that need direct
// node/edge access (e.g. the procedure engine hydrating steps).
func (s *Service) Store() graph.Store { return s.store }
