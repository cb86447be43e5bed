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

package mocktools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorassist/internal/tool/mocktools"
)

func TestCalendarCreateAndList(t *testing.T) {
	cal := mocktools.NewCalendar()
	ctx := context.Background()

	_, err := cal.CreateEvent(ctx, "Test Event", "2026-12-29T10:00:00Z", "2026-12-29T11:00:00Z",
		[]string{"test@example.com"}, "Test Location", "Test notes.")
	require.NoError(t, err)

	events, err := cal.List(ctx, map[string]string{"start": "2026-12-29", "end": "2026-12-30"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Test Event", events[0]["title"])
}

func TestTaskCreateAndList(t *testing.T) {
	tasks := mocktools.NewTask()
	ctx := context.Background()

	_, err := tasks.Create(ctx, "Test Task", "2026-12-31", 1, "Finish testing.", nil)
	require.NoError(t, err)

	items, err := tasks.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Test Task", items[0]["title"])
	assert.Equal(t, "pending", items[0]["status"])
}

func TestContactsCreateAndListWithFilter(t *testing.T) {
	contacts := mocktools.NewContacts()
	ctx := context.Background()

	_, err := contacts.Create(ctx, "Jane", []string{"jane@example.com"}, nil, "Acme", "", nil)
	require.NoError(t, err)
	_, err = contacts.Create(ctx, "Bob", []string{"bob@example.com"}, nil, "Other", "", nil)
	require.NoError(t, err)

	all, err := contacts.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := contacts.List(ctx, map[string]any{"org": "Acme"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Jane", filtered[0]["name"])
}

func TestWebToolsBasicFlows(t *testing.T) {
	web := mocktools.NewWeb()
	ctx := context.Background()

	resGet, err := web.Get(ctx, "https://example.com")
	require.NoError(t, err)
	resPost, err := web.Post(ctx, "https://example.com/api", map[string]any{"foo": "bar"})
	require.NoError(t, err)
	resShot, err := web.Screenshot(ctx, "https://example.com")
	require.NoError(t, err)
	resClick, err := web.ClickSelector(ctx, "https://example.com", "#login")
	require.NoError(t, err)
	resDOM, err := web.GetDOM(ctx, "https://example.com")
	require.NoError(t, err)
	resXPath, err := web.ClickXPath(ctx, "https://example.com", "//button[@id='ok']")
	require.NoError(t, err)

	assert.Equal(t, 200, resGet["status"])
	assert.Equal(t, 200, resPost["status"])
	assert.Equal(t, 200, resShot["status"])
	assert.Equal(t, "click_selector", resClick["action"])
	assert.Equal(t, 200, resDOM["status"])
	assert.Contains(t, resDOM, "html")
	assert.Contains(t, resDOM, "screenshot_base64")
	assert.Equal(t, "click_xpath", resXPath["action"])
	assert.Len(t, web.History, 6)
}

func TestWebWaitForDefaultsTimeout(t *testing.T) {
	web := mocktools.NewWeb()
	resp, err := web.WaitFor(context.Background(), "https://example.com", "#ready", 0)
	require.NoError(t, err)
	assert.Equal(t, 5000, resp["timeout_ms"])
}
