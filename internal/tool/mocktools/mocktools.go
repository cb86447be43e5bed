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

// Package mocktools provides in-memory implementations of the
// internal/tool interfaces, ported from original_source/mock_tools.py,
// used to exercise PEAL end-to-end without real external services.
package mocktools

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/kadirpekel/hectorassist/internal/tool"
)

// Calendar is an in-memory tool.Calendar.
type Calendar struct {
	mu     sync.Mutex
	events []map[string]any
}

var _ tool.Calendar = (*Calendar)(nil)

func NewCalendar() *Calendar { return &Calendar{} }

func (c *Calendar) List(ctx context.Context, dateRange map[string]string) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.events))
	copy(out, c.events)
	return out, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, title, start, end string, attendees []string, location, notes string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	event := map[string]any{
		"title": title, "start": start, "end": end,
		"attendees": attendees, "location": location, "notes": notes,
	}
	c.events = append(c.events, event)
	return map[string]any{"status": "success", "event": event}, nil
}

// Task is an in-memory tool.Task.
type Task struct {
	mu    sync.Mutex
	tasks []map[string]any
}

var _ tool.Task = (*Task)(nil)

func NewTask() *Task { return &Task{} }

func (t *Task) List(ctx context.Context, filters map[string]any) ([]map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]map[string]any, len(t.tasks))
	copy(out, t.tasks)
	return out, nil
}

func (t *Task) Create(ctx context.Context, title, due string, priority int, notes string, links []string) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task := map[string]any{
		"title": title, "due": due, "priority": priority,
		"notes": notes, "links": links, "status": "pending",
	}
	t.tasks = append(t.tasks, task)
	return map[string]any{"status": "success", "task": task}, nil
}

// Contacts is an in-memory tool.Contacts.
type Contacts struct {
	mu       sync.Mutex
	contacts []map[string]any
}

var _ tool.Contacts = (*Contacts)(nil)

func NewContacts() *Contacts { return &Contacts{} }

func (c *Contacts) List(ctx context.Context, filters map[string]any) ([]map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(filters) == 0 {
		out := make([]map[string]any, len(c.contacts))
		copy(out, c.contacts)
		return out, nil
	}
	var results []map[string]any
	for _, contact := range c.contacts {
		match := true
		for k, v := range filters {
			if contact[k] != v {
				match = false
				break
			}
		}
		if match {
			results = append(results, contact)
		}
	}
	return results, nil
}

func (c *Contacts) Create(ctx context.Context, name string, emails, phones []string, org, notes string, tags []string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	contact := map[string]any{
		"name": name, "emails": emails, "phones": phones,
		"org": org, "notes": notes, "tags": tags, "status": "active",
	}
	c.contacts = append(c.contacts, contact)
	return map[string]any{"status": "success", "contact": contact}, nil
}

// Web is an in-memory tool.Web that records every call it receives.
type Web struct {
	mu      sync.Mutex
	History []map[string]any
}

var _ tool.Web = (*Web)(nil)

func NewWeb() *Web { return &Web{} }

func (w *Web) record(entry map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.History = append(w.History, entry)
}

func (w *Web) Get(ctx context.Context, url string) (map[string]any, error) {
	response := map[string]any{"status": 200, "url": url, "body": fmt.Sprintf("<html><body>Mock GET %s</body></html>", url)}
	w.record(map[string]any{"method": "GET", "url": url, "response": response})
	return response, nil
}

func (w *Web) Post(ctx context.Context, url string, payload map[string]any) (map[string]any, error) {
	response := map[string]any{"status": 200, "url": url, "body": map[string]any{"received": payload}}
	w.record(map[string]any{"method": "POST", "url": url, "payload": payload, "response": response})
	return response, nil
}

func (w *Web) Screenshot(ctx context.Context, url string) (map[string]any, error) {
	response := map[string]any{"status": 200, "url": url, "image": fmt.Sprintf("screenshot-of-%s", url)}
	w.record(map[string]any{"method": "SCREENSHOT", "url": url, "response": response})
	return response, nil
}

func (w *Web) GetDOM(ctx context.Context, url string) (map[string]any, error) {
	html := fmt.Sprintf("<html><body>Mock DOM for %s</body></html>", url)
	screenshot := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("screenshot-%s", url)))
	response := map[string]any{
		"status": 200, "url": url, "html": html, "screenshot_base64": screenshot,
	}
	w.record(map[string]any{"method": "GET_DOM", "url": url, "response": response})
	return response, nil
}

func (w *Web) LocateBoundingBox(ctx context.Context, url, query string) (map[string]any, error) {
	response := map[string]any{
		"status": 200, "url": url, "query": query,
		"bbox": map[string]any{"x": 10, "y": 20, "width": 100, "height": 20},
	}
	w.record(map[string]any{"method": "LOCATE_BBOX", "url": url, "query": query, "response": response})
	return response, nil
}

func (w *Web) ClickXY(ctx context.Context, url string, x, y int) (map[string]any, error) {
	response := map[string]any{"status": 200, "url": url, "action": "click_xy", "x": x, "y": y}
	w.record(map[string]any{"method": "CLICK_XY", "url": url, "x": x, "y": y, "response": response})
	return response, nil
}

func (w *Web) ClickSelector(ctx context.Context, url, selector string) (map[string]any, error) {
	response := map[string]any{"status": 200, "url": url, "action": "click_selector", "selector": selector}
	w.record(map[string]any{"method": "CLICK_SELECTOR", "url": url, "selector": selector, "response": response})
	return response, nil
}

func (w *Web) ClickXPath(ctx context.Context, url, xpath string) (map[string]any, error) {
	response := map[string]any{"status": 200, "url": url, "action": "click_xpath", "xpath": xpath}
	w.record(map[string]any{"method": "CLICK_XPATH", "url": url, "xpath": xpath, "response": response})
	return response, nil
}

func (w *Web) Fill(ctx context.Context, url, selector, text string) (map[string]any, error) {
	response := map[string]any{"status": 200, "url": url, "action": "fill", "selector": selector, "text": text}
	w.record(map[string]any{"method": "FILL", "url": url, "selector": selector, "text": text, "response": response})
	return response, nil
}

func (w *Web) WaitFor(ctx context.Context, url, selector string, timeoutMs int) (map[string]any, error) {
	if timeoutMs == 0 {
		timeoutMs = 5000
	}
	response := map[string]any{"status": 200, "url": url, "action": "wait_for", "selector": selector, "timeout_ms": timeoutMs}
	w.record(map[string]any{"method": "WAIT_FOR", "url": url, "selector": selector, "timeout_ms": timeoutMs, "response": response})
	return response, nil
}
