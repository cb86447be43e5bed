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
	"strings"
	"time"

	"github.com/kadirpekel/hectorassist/internal/errkind"
	"github.com/kadirpekel/hectorassist/internal/graph"
)

// PatternMatch is one ranked candidate from FindBestPattern.
type PatternMatch struct {
	Concept     *graph.Node
	PatternData map[string]any
	Score       float64
}

// StorePattern stores a FormPattern concept carrying a fingerprint, so it
// can be reused (find-best-pattern-first) the next time a similar form is
// encountered.
func (s *Service) StorePattern(ctx context.Context, name string, patternData map[string]any, embedding []float32, conceptUUID string, prov graph.Provenance) (string, error) {
	if patternData == nil {
		patternData = map[string]any{}
	}
	props := map[string]any{
		"isPrototype":    false,
		"name":           name,
		"pattern_data":   patternData,
		"stored_at":      time.Now().UTC().Format(time.RFC3339),
		"prototype_uuid": ProtoFormPattern,
	}

	node := &graph.Node{
		UUID:      conceptUUID,
		Kind:      graph.KindFormPattern,
		Labels:    []string{"FormPattern", name},
		Embedding: embedding,
		Props:     props,
	}
	uuid, err := s.store.UpsertNode(ctx, node, prov)
	if err != nil {
		return "", errkind.New(errkind.Internal, fmt.Errorf("upsert pattern: %w", err))
	}

	edge := &graph.Edge{FromNode: uuid, ToNode: ProtoFormPattern, Rel: graph.RelInstantiates}
	if _, err := s.store.UpsertEdge(ctx, edge, prov); err != nil {
		return "", errkind.New(errkind.Internal, fmt.Errorf("link pattern prototype: %w", err))
	}
	if err := s.indexEmbedding(ctx, uuid, embedding, graph.KindFormPattern); err != nil {
		return uuid, errkind.New(errkind.Internal, err)
	}
	return uuid, nil
}

// FindBestPattern ranks stored FormPattern concepts against a live page.
// Score = host-match(+3.0) + form-type-match(+1.0) + fingerprint
// field-type overlap(0-2.0) + embedding similarity(0-1.0).
func (s *Service) FindBestPattern(ctx context.Context, pageURL, html, formType string, topK int, queryEmbedding []float32) ([]PatternMatch, error) {
	fp := ComputeFingerprint(pageURL, html)

	results, err := s.store.Search(ctx, graph.SearchQuery{
		Text:              "form pattern " + pageURL + " " + formType,
		TopK:              topK * 4, // overfetch, we re-rank below
		Filters:           map[string]any{"kind": graph.KindFormPattern},
		Embedding:         queryEmbedding,
		IncludePrototypes: false,
	})
	if err != nil {
		return nil, errkind.New(errkind.Internal, err)
	}

	matches := make([]PatternMatch, 0, len(results))
	for _, r := range results {
		patternData, _ := r.Node.Props["pattern_data"].(map[string]any)
		score := 0.0

		storedFP, _ := patternData["fingerprint"].(map[string]any)
		if storedHost, ok := storedFP["host"].(string); ok && storedHost != "" && strings.EqualFold(storedHost, fp.Host) {
			score += 3.0
		}
		if storedType, ok := patternData["form_type"].(string); ok && formType != "" && strings.EqualFold(storedType, formType) {
			score += 1.0
		}
		if storedFP != nil {
			score += fp.overlapScore(histogramFromAny(storedFP["field_type_histogram"]))
		}
		if len(queryEmbedding) > 0 && len(r.Node.Embedding) > 0 {
			score += graph.Cosine(queryEmbedding, r.Node.Embedding)
		}

		matches = append(matches, PatternMatch{Concept: r.Node, PatternData: patternData, Score: score})
	}

	sortMatchesDesc(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func histogramFromAny(v any) Fingerprint {
	fp := Fingerprint{FieldTypeHistogram: map[string]int{}}
	m, ok := v.(map[string]any)
	if !ok {
		return fp
	}
	for k, raw := range m {
		switch n := raw.(type) {
		case int:
			fp.FieldTypeHistogram[k] = n
		case float64:
			fp.FieldTypeHistogram[k] = int(n)
		}
	}
	return fp
}

func sortMatchesDesc(matches []PatternMatch) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

// RecordPatternSuccess increments the pattern's success counter.
func (s *Service) RecordPatternSuccess(ctx context.Context, patternUUID string, usageContext map[string]any, prov graph.Provenance) error {
	node, ok, err := s.store.GetNode(ctx, patternUUID)
	if err != nil {
		return errkind.New(errkind.Internal, err)
	}
	if !ok {
		return errkind.New(errkind.NotFound, fmt.Errorf("pattern %q not found", patternUUID))
	}

	count, _ := node.Props["success_count"].(int)
	node.Props["success_count"] = count + 1
	node.Props["last_used_at"] = time.Now().UTC().Format(time.RFC3339)
	if usageContext != nil {
		node.Props["last_usage_context"] = usageContext
	}

	if _, err := s.store.UpsertNode(ctx, node, prov); err != nil {
		return errkind.New(errkind.Internal, fmt.Errorf("record pattern success: %w", err))
	}
	return nil
}

// RemapFunc asks an LLM to remap a source pattern's field selectors onto a
// new target form's field names. Nil falls back to deterministic fuzzy
// matching on field-name similarity.
type RemapFunc func(ctx context.Context, sourceSelectors map[string]string, targetFields []string) (map[string]string, error)

// TransferResult is the outcome of TransferPattern.
type TransferResult struct {
	TransferredPattern map[string]any
	Mapping            map[string]string
}

// TransferPattern remaps a source pattern's selectors onto a new target
// context (a different form with different field names), via the
// supplied LLM remap function or, if none is given, deterministic
// fuzzy field-name matching.
func (s *Service) TransferPattern(ctx context.Context, sourcePatternUUID string, targetFields []string, remap RemapFunc) (TransferResult, error) {
	node, ok, err := s.store.GetNode(ctx, sourcePatternUUID)
	if err != nil {
		return TransferResult{}, errkind.New(errkind.Internal, err)
	}
	if !ok {
		return TransferResult{}, errkind.New(errkind.NotFound, fmt.Errorf("pattern %q not found", sourcePatternUUID))
	}

	patternData, _ := node.Props["pattern_data"].(map[string]any)
	selectors, _ := patternData["selectors"].(map[string]any)
	sourceSelectors := make(map[string]string, len(selectors))
	for field, sel := range selectors {
		if s, ok := sel.(string); ok {
			sourceSelectors[field] = s
		}
	}

	var mapping map[string]string
	if remap != nil {
		mapping, err = remap(ctx, sourceSelectors, targetFields)
		if err != nil {
			return TransferResult{}, errkind.New(errkind.LLMFailure, fmt.Errorf("remap via llm: %w", err))
		}
	} else {
		mapping = fuzzyFieldMatch(sourceSelectors, targetFields)
	}

	transferred := map[string]any{}
	for k, v := range patternData {
		transferred[k] = v
	}
	remappedSelectors := make(map[string]any, len(mapping))
	for targetField, sourceField := range mapping {
		if sel, ok := sourceSelectors[sourceField]; ok {
			remappedSelectors[targetField] = sel
		}
	}
	transferred["selectors"] = remappedSelectors

	return TransferResult{TransferredPattern: transferred, Mapping: mapping}, nil
}

// fuzzyFieldMatch maps each target field to the source field whose name
// it shares the longest common substring with, breaking ties by exact
// equality first.
func fuzzyFieldMatch(sourceSelectors map[string]string, targetFields []string) map[string]string {
	mapping := make(map[string]string, len(targetFields))
	for _, target := range targetFields {
		best := ""
		bestScore := 0
		for source := range sourceSelectors {
			if strings.EqualFold(source, target) {
				best = source
				bestScore = len(target) + 1
				break
			}
			score := longestCommonSubstring(strings.ToLower(source), strings.ToLower(target))
			if score > bestScore {
				best = source
				bestScore = score
			}
		}
		if best != "" {
			mapping[target] = best
		}
	}
	return mapping
}

func longestCommonSubstring(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
				if dp[i][j] > best {
					best = dp[i][j]
				}
			}
		}
	}
	return best
}

// AutoGeneralize invokes GeneralizeConcepts when a pattern has at least
// minSimilar neighbors scoring at or above minSimilarity.
func (s *Service) AutoGeneralize(ctx context.Context, patternUUID string, minSimilar int, minSimilarity float64, prov graph.Provenance) (string, error) {
	node, ok, err := s.store.GetNode(ctx, patternUUID)
	if err != nil {
		return "", errkind.New(errkind.Internal, err)
	}
	if !ok {
		return "", errkind.New(errkind.NotFound, fmt.Errorf("pattern %q not found", patternUUID))
	}
	if len(node.Embedding) == 0 {
		return "", nil
	}

	results, err := s.store.Search(ctx, graph.SearchQuery{
		Embedding: node.Embedding,
		TopK:      minSimilar + 1,
		Filters:   map[string]any{"kind": node.Kind},
	})
	if err != nil {
		return "", errkind.New(errkind.Internal, err)
	}

	similar := make([]string, 0, len(results))
	for _, r := range results {
		if r.Node.UUID == patternUUID {
			continue
		}
		if r.Score >= minSimilarity {
			similar = append(similar, r.Node.UUID)
		}
	}
	if len(similar) < minSimilar {
		return "", nil
	}

	similar = append(similar, patternUUID)
	name := stringPropOr(node.Props, "name", "generalized-pattern")
	return s.GeneralizeConcepts(ctx, similar, name+"-generalized", "auto-generalized from repeated pattern usage", ProtoFormPattern, prov)
}
