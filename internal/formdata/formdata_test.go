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

package formdata_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorassist/internal/formdata"
	"github.com/kadirpekel/hectorassist/internal/graph"
)

func TestNormalizeFieldNameFoldsSeparatorsAndCase(t *testing.T) {
	assert.Equal(t, "card_number", formdata.NormalizeFieldName("Card Number"))
	assert.Equal(t, "card_number", formdata.NormalizeFieldName("cardNumber"))
}

func TestNormalizeFieldNameMapsAliasesToCanonical(t *testing.T) {
	assert.Equal(t, "email", formdata.NormalizeFieldName("user"))
	assert.Equal(t, "card_number", formdata.NormalizeFieldName("cc_number"))
}

func TestLookupCredentialsSearchesCredentialKind(t *testing.T) {
	store := graph.NewMemStore()
	ctx := context.Background()
	prov := graph.NewProvenance("user", 1.0, "test")

	_, err := store.UpsertNode(ctx, &graph.Node{Kind: graph.KindCredential, Props: map[string]any{"email": "a@b.com"}}, prov)
	require.NoError(t, err)
	_, err = store.UpsertNode(ctx, &graph.Node{Kind: graph.KindTask, Props: map[string]any{"title": "unrelated"}}, prov)
	require.NoError(t, err)

	r := formdata.NewRetriever(store, nil)
	results, err := r.LookupCredentials(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, graph.KindCredential, results[0].Node.Kind)
}

func TestCollectValuesForFormResolvesViaSynonyms(t *testing.T) {
	store := graph.NewMemStore()
	ctx := context.Background()
	prov := graph.NewProvenance("user", 1.0, "test")

	_, err := store.UpsertNode(ctx, &graph.Node{Kind: graph.KindCredential, Props: map[string]any{"username": "jdoe"}}, prov)
	require.NoError(t, err)

	r := formdata.NewRetriever(store, nil)
	selection, err := r.CollectValuesForForm(ctx, []string{"email"}, "login", "")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", selection.Values["email"])
}

func TestBuildMissingFieldsPromptListsFields(t *testing.T) {
	prompt := formdata.BuildMissingFieldsPrompt([]string{"password"}, "login", "https://example.com")
	assert.Contains(t, prompt, "password")
	assert.Contains(t, prompt, "https://example.com")
}
