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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/hectorassist/internal/procedure"
)

func TestFillMultiWithFallbackRecordsWinningSelector(t *testing.T) {
	fill := func(ctx context.Context, url, selector, text string) (map[string]any, error) {
		if selector == "#email" {
			return nil, errors.New("not found")
		}
		if selector == "input[type='email']" {
			return map[string]any{"status": "success", "selector": selector}, nil
		}
		return map[string]any{"status": "success", "selector": selector}, nil
	}

	results := procedure.FillMultiWithFallback(context.Background(), fill, "https://example.com",
		map[string]string{"email": "#email"}, map[string]string{"email": "a@b.com"})

	assert.Len(t, results, 1)
	assert.Equal(t, "input[type='email']", results[0]["fallback_selector"])
	assert.Equal(t, []string{"#email"}, results[0]["attempted_selectors"])

	field, sel, ok := procedure.WinningSelector(results)
	assert.True(t, ok)
	assert.Equal(t, "email", field)
	assert.Equal(t, "input[type='email']", sel)
}

func TestFillMultiWithFallbackNoFallbackNeeded(t *testing.T) {
	fill := func(ctx context.Context, url, selector, text string) (map[string]any, error) {
		return map[string]any{"status": "success", "selector": selector}, nil
	}

	results := procedure.FillMultiWithFallback(context.Background(), fill, "https://example.com",
		map[string]string{"password": "#password"}, map[string]string{"password": "secret"})

	assert.Len(t, results, 1)
	_, ok := results[0]["fallback_selector"]
	assert.False(t, ok)

	_, _, ok = procedure.WinningSelector(results)
	assert.False(t, ok)
}
