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

// Package taskqueue implements the Task Queue Manager (spec §4.6): a
// single Queue node whose props.items list is kept sorted by
// (priority, due, created_at).
package taskqueue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kadirpekel/hectorassist/internal/graph"
)

// Item is one entry in the queue's props["items"] list.
type Item struct {
	TaskUUID  string `json:"task_uuid"`
	Title     string `json:"title"`
	Priority  *int   `json:"priority,omitempty"`
	Due       string `json:"due,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	NotBefore string `json:"not_before,omitempty"`
}

// Manager owns a single named Queue node.
type Manager struct {
	store     graph.Store
	name      string
	queueUUID string
}

// NewManager builds a Manager for the named queue (spec default: "default").
func NewManager(store graph.Store, name string) *Manager {
	if name == "" {
		name = "default"
	}
	return &Manager{store: store, name: name}
}

// EnsureQueue creates the Queue node on first use and returns it on every
// subsequent call.
func (m *Manager) EnsureQueue(ctx context.Context, prov graph.Provenance) (*graph.Node, error) {
	if m.queueUUID != "" {
		node, ok, err := m.store.GetNode(ctx, m.queueUUID)
		if err != nil {
			return nil, err
		}
		if ok {
			return node, nil
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	node := &graph.Node{
		Kind:   graph.KindQueue,
		Labels: []string{"task_queue", m.name},
		Props: map[string]any{
			"name":       m.name,
			"items":      []any{},
			"created_at": now,
			"updated_at": now,
		},
	}
	uuid, err := m.store.UpsertNode(ctx, node, prov)
	if err != nil {
		return nil, fmt.Errorf("ensure queue: %w", err)
	}
	node.UUID = uuid
	m.queueUUID = uuid
	return node, nil
}

// Enqueue appends a task reference to the queue's items and re-sorts. If
// delaySeconds > 0, not_before is computed as now + delaySeconds.
func (m *Manager) Enqueue(ctx context.Context, taskUUID, title string, priority *int, due, status string, delaySeconds float64, prov graph.Provenance) (*graph.Node, error) {
	queue, err := m.EnsureQueue(ctx, prov)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = "pending"
	}

	notBefore := ""
	if delaySeconds > 0 {
		notBefore = time.Now().UTC().Add(time.Duration(delaySeconds * float64(time.Second))).Format(time.RFC3339)
	}

	items := decodeItems(queue.Props["items"])
	items = append(items, Item{
		TaskUUID:  taskUUID,
		Title:     title,
		Priority:  priority,
		Due:       due,
		Status:    status,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		NotBefore: notBefore,
	})
	sortItems(items)

	queue.Props["items"] = encodeItems(items)
	queue.Props["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	if _, err := m.store.UpsertNode(ctx, queue, prov); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return queue, nil
}

// UpdateStatus transitions a single item's status; the caller decides
// what transitions are valid (spec §4.6: "status transitions are
// caller-driven").
func (m *Manager) UpdateStatus(ctx context.Context, taskUUID, status string, prov graph.Provenance) (*graph.Node, error) {
	queue, err := m.EnsureQueue(ctx, prov)
	if err != nil {
		return nil, err
	}

	items := decodeItems(queue.Props["items"])
	for i := range items {
		if items[i].TaskUUID == taskUUID {
			items[i].Status = status
			break
		}
	}
	queue.Props["items"] = encodeItems(items)
	queue.Props["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	if _, err := m.store.UpsertNode(ctx, queue, prov); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return queue, nil
}

// ListItems returns the queue's current items in sorted order.
func (m *Manager) ListItems(ctx context.Context, prov graph.Provenance) ([]Item, error) {
	queue, err := m.EnsureQueue(ctx, prov)
	if err != nil {
		return nil, err
	}
	items := decodeItems(queue.Props["items"])
	sortItems(items)
	return items, nil
}

// sortItems orders by (priority or 999, due or "", created_at) ascending,
// matching spec §4.6's sort key exactly.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := priorityOr999(items[i].Priority), priorityOr999(items[j].Priority)
		if pi != pj {
			return pi < pj
		}
		if items[i].Due != items[j].Due {
			return items[i].Due < items[j].Due
		}
		return items[i].CreatedAt < items[j].CreatedAt
	})
}

func priorityOr999(p *int) int {
	if p == nil {
		return 999
	}
	return *p
}

func decodeItems(raw any) []Item {
	list, ok := raw.([]any)
	if !ok {
		if items, ok := raw.([]Item); ok {
			return items
		}
		return nil
	}
	items := make([]Item, 0, len(list))
	for _, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			if item, ok := v.(Item); ok {
				items = append(items, item)
			}
			continue
		}
		items = append(items, itemFromMap(m))
	}
	return items
}

func itemFromMap(m map[string]any) Item {
	item := Item{}
	if s, ok := m["task_uuid"].(string); ok {
		item.TaskUUID = s
	}
	if s, ok := m["title"].(string); ok {
		item.Title = s
	}
	switch v := m["priority"].(type) {
	case int:
		item.Priority = &v
	case float64:
		p := int(v)
		item.Priority = &p
	}
	if s, ok := m["due"].(string); ok {
		item.Due = s
	}
	if s, ok := m["status"].(string); ok {
		item.Status = s
	}
	if s, ok := m["created_at"].(string); ok {
		item.CreatedAt = s
	}
	if s, ok := m["not_before"].(string); ok {
		item.NotBefore = s
	}
	return item
}

func encodeItems(items []Item) []any {
	out := make([]any, len(items))
	for i, item := range items {
		m := map[string]any{
			"task_uuid":  item.TaskUUID,
			"title":      item.Title,
			"due":        item.Due,
			"status":     item.Status,
			"created_at": item.CreatedAt,
		}
		if item.Priority != nil {
			m["priority"] = *item.Priority
		}
		if item.NotBefore != "" {
			m["not_before"] = item.NotBefore
		}
		out[i] = m
	}
	return out
}
