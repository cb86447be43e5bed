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

// Package tool defines the small, capability-scoped interfaces PEAL
// calls out to for calendar, task, contacts, and web actions.
// Each interface is injected at startup; internal/tool/mocktools
// provides in-memory implementations for tests.
package tool

import "context"

// Calendar lists and creates calendar events.
type Calendar interface {
	List(ctx context.Context, dateRange map[string]string) ([]map[string]any, error)
	CreateEvent(ctx context.Context, title, start, end string, attendees []string, location, notes string) (map[string]any, error)
}

// Task lists and creates tasks.
type Task interface {
	List(ctx context.Context, filters map[string]any) ([]map[string]any, error)
	Create(ctx context.Context, title, due string, priority int, notes string, links []string) (map[string]any, error)
}

// Contacts lists and creates contact records.
type Contacts interface {
	List(ctx context.Context, filters map[string]any) ([]map[string]any, error)
	Create(ctx context.Context, name string, emails, phones []string, org, notes string, tags []string) (map[string]any, error)
}

// Web is the set of primitive browser commandlets PEAL composes into
// higher-level procedures (web.fill, form.autofill, ...).
type Web interface {
	Get(ctx context.Context, url string) (map[string]any, error)
	Post(ctx context.Context, url string, payload map[string]any) (map[string]any, error)
	Screenshot(ctx context.Context, url string) (map[string]any, error)
	GetDOM(ctx context.Context, url string) (map[string]any, error)
	LocateBoundingBox(ctx context.Context, url, query string) (map[string]any, error)
	ClickXY(ctx context.Context, url string, x, y int) (map[string]any, error)
	ClickSelector(ctx context.Context, url, selector string) (map[string]any, error)
	ClickXPath(ctx context.Context, url, xpath string) (map[string]any, error)
	Fill(ctx context.Context, url, selector, text string) (map[string]any, error)
	WaitFor(ctx context.Context, url, selector string, timeoutMs int) (map[string]any, error)
}
