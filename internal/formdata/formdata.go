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

// Package formdata implements the form-data retriever: domain-keyed
// credential/identity lookup and field-name normalization used by
// form.autofill (spec §4, restored from original_source/agent.py's
// form-filling call sites).
package formdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/hectorassist/internal/graph"
)

// EmbedFunc embeds a query for similarity search; errors are tolerated
// (the caller falls back to text-only search).
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// synonymKeys groups field-name spellings under a canonical field, used
// both to normalize a caller-supplied field name and to pick a stored
// value when the exact key isn't present.
var synonymKeys = map[string][]string{
	"email":       {"email", "username", "user"},
	"username":    {"username", "email", "user"},
	"password":    {"password", "pass", "pwd"},
	"card_number": {"card_number", "cardNumber", "cc_number", "cc", "card"},
	"expiry":      {"expiry", "exp", "exp_date", "expiration"},
	"cvv":         {"cvv", "cvc", "security_code", "securitycode"},
}

// Retriever looks up stored Credential/Identity concepts to fill forms.
type Retriever struct {
	store graph.Store
	embed EmbedFunc
}

// NewRetriever builds a Retriever. embed may be nil.
func NewRetriever(store graph.Store, embed EmbedFunc) *Retriever {
	return &Retriever{store: store, embed: embed}
}

// NormalizeFieldName folds case/separator variants down to a canonical,
// lowercase, underscore-separated form (e.g. "Card Number" -> "card_number"),
// then maps known aliases onto their synonym group's canonical key.
func NormalizeFieldName(field string) string {
	fold := func(s string) string {
		var b strings.Builder
		lastUnderscore := false
		for _, r := range strings.ToLower(strings.TrimSpace(s)) {
			switch {
			case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
				b.WriteRune(r)
				lastUnderscore = false
			default:
				if !lastUnderscore && b.Len() > 0 {
					b.WriteByte('_')
					lastUnderscore = true
				}
			}
		}
		return strings.TrimSuffix(b.String(), "_")
	}
	normalized := fold(field)
	if _, ok := synonymKeys[normalized]; ok {
		return normalized
	}

	for _, canonical := range []string{"email", "username", "password", "card_number", "expiry", "cvv"} {
		for _, alias := range synonymKeys[canonical] {
			if normalized == fold(alias) {
				return canonical
			}
		}
	}
	return normalized
}

// LookupCredentials searches the Credential vault (and optionally
// Identity concepts) for entries matching query, mirroring
// original_source/agent.py's vault-lookup tool handler.
func (r *Retriever) LookupCredentials(ctx context.Context, query string, includeIdentity bool) ([]graph.SearchResult, error) {
	var embedding []float32
	if r.embed != nil && query != "" {
		if emb, err := r.embed(ctx, query); err == nil {
			embedding = emb
		}
	}

	results, err := r.store.Search(ctx, graph.SearchQuery{
		Text: query, TopK: 5, Embedding: embedding,
		Filters: map[string]any{"kind": graph.KindCredential},
	})
	if err != nil {
		return nil, fmt.Errorf("search credentials: %w", err)
	}

	if includeIdentity {
		identity, err := r.store.Search(ctx, graph.SearchQuery{
			Text: query, TopK: 3, Embedding: embedding,
			Filters: map[string]any{"kind": "Identity"},
		})
		if err != nil {
			return nil, fmt.Errorf("search identity: %w", err)
		}
		results = append(results, identity...)
	}
	return results, nil
}

// FormSelection is the value/source pair for each requested field,
// mirroring the original's {"values": ..., "sources": ...} shape.
type FormSelection struct {
	Values  map[string]string
	Sources map[string]string // field -> the concept uuid the value came from
}

// CollectValuesForForm searches stored Credential/Identity/FormData
// concepts and extracts a value for each requiredField, trying the
// field's synonym group before giving up on it (left absent from the
// result, not an error — form.autofill treats absence as "missing").
func (r *Retriever) CollectValuesForForm(ctx context.Context, requiredFields []string, formType, query string) (FormSelection, error) {
	selection := FormSelection{Values: map[string]string{}, Sources: map[string]string{}}

	candidates, err := r.LookupCredentials(ctx, query, true)
	if err != nil {
		return selection, err
	}
	formDataResults, err := r.store.Search(ctx, graph.SearchQuery{
		Text: query, TopK: 5,
		Filters: map[string]any{"kind": graph.KindFormData},
	})
	if err != nil {
		return selection, fmt.Errorf("search form data: %w", err)
	}
	candidates = append(candidates, formDataResults...)

	for _, field := range requiredFields {
		norm := NormalizeFieldName(field)
		for _, alias := range aliasesFor(norm) {
			if val, uuid, ok := findValue(candidates, alias); ok {
				selection.Values[field] = val
				selection.Sources[field] = uuid
				break
			}
		}
	}
	return selection, nil
}

// BuildMissingFieldsPrompt builds the ask-user prompt for fields
// collect_values_for_form (or a direct-selector fill) couldn't resolve.
func BuildMissingFieldsPrompt(missingFields []string, formType, url string) string {
	var b strings.Builder
	b.WriteString("I need a bit more information to fill out this form")
	if url != "" {
		fmt.Fprintf(&b, " at %s", url)
	}
	if formType != "" {
		fmt.Fprintf(&b, " (%s)", formType)
	}
	b.WriteString(": ")
	b.WriteString(strings.Join(missingFields, ", "))
	return b.String()
}

func aliasesFor(canonical string) []string {
	if aliases, ok := synonymKeys[canonical]; ok {
		return aliases
	}
	return []string{canonical}
}

func findValue(results []graph.SearchResult, field string) (value, uuid string, ok bool) {
	for _, r := range results {
		if r.Node == nil {
			continue
		}
		if v, has := r.Node.Props[field].(string); has && v != "" {
			return v, r.Node.UUID, true
		}
	}
	return "", "", false
}
