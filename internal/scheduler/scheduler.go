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

// Package scheduler implements the Scheduler (spec §4.7): time rules
// evaluated on each tick, firing at most once per minute-key over the
// process lifetime.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kadirpekel/hectorassist/internal/errkind"
	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/taskqueue"
)

// TimeRule fires a task once per day at hour:minute.
type TimeRule struct {
	Title    string
	Notes    string
	Hour     int
	Minute   int
	Priority int
	Labels   []string
	DAG      map[string]any // optional DAG payload persisted on the task
}

// Schedule renders the rule as a standard 5-field cron expression
// ("minute hour * * *"), for display and for Validate to catch an
// out-of-range hour/minute before it's ever added.
func (r TimeRule) Schedule() string {
	return fmt.Sprintf("%d %d * * *", r.Minute, r.Hour)
}

// TaskCreator is the task-creation seam (spec's TaskTools.create); it
// returns the created task's props.
type TaskCreator interface {
	CreateTask(ctx context.Context, title, due string, priority int, notes string) (map[string]any, error)
}

// EmbedFunc embeds text for a task node; errors are tolerated (the task
// is still persisted, just unsearchable by vector).
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Scheduler evaluates TimeRules against the current time and enqueues a
// Task for every rule whose hour:minute matches, once per minute-key.
type Scheduler struct {
	store  graph.Store
	tasks  TaskCreator
	queue  *taskqueue.Manager
	embed  EmbedFunc
	rules  []TimeRule
	fired  map[string]struct{}
	parser cron.Parser
}

// New builds a Scheduler. embed may be nil.
func New(store graph.Store, tasks TaskCreator, queue *taskqueue.Manager, embed EmbedFunc) *Scheduler {
	return &Scheduler{
		store:  store,
		tasks:  tasks,
		queue:  queue,
		embed:  embed,
		fired:  make(map[string]struct{}),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// AddTimeRule validates rule.Schedule() against a standard cron grammar
// (catches an out-of-range hour/minute) before registering it.
func (s *Scheduler) AddTimeRule(rule TimeRule) error {
	if _, err := s.parser.Parse(rule.Schedule()); err != nil {
		return errkind.New(errkind.InvalidArgument, fmt.Errorf("invalid time rule %q: %w", rule.Title, err))
	}
	if rule.Priority == 0 {
		rule.Priority = 1
	}
	if len(rule.Labels) == 0 {
		rule.Labels = []string{"Task", "DAG"}
	}
	s.rules = append(s.rules, rule)
	return nil
}

// Tick evaluates every rule against now, firing each whose hour:minute
// matches and whose minute-key hasn't already fired this process lifetime.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	for _, rule := range s.rules {
		if now.Hour() != rule.Hour || now.Minute() != rule.Minute {
			continue
		}
		key := fmt.Sprintf("%s:%s", rule.Title, now.UTC().Format("2006-01-02T15:04"))
		if _, already := s.fired[key]; already {
			continue
		}
		if err := s.fireRule(ctx, rule, now); err != nil {
			return fmt.Errorf("fire rule %q: %w", rule.Title, err)
		}
		s.fired[key] = struct{}{}
	}
	return nil
}

func (s *Scheduler) fireRule(ctx context.Context, rule TimeRule, now time.Time) error {
	prov := graph.Provenance{
		Source:     "user",
		Timestamp:  now.UTC().Format(time.RFC3339),
		Confidence: 1.0,
		TraceID:    "scheduler",
	}

	taskProps, err := s.tasks.CreateTask(ctx, rule.Title, "", rule.Priority, rule.Notes)
	if err != nil {
		taskProps = map[string]any{"title": rule.Title, "priority": rule.Priority, "notes": rule.Notes, "status": "pending"}
	}
	if rule.DAG != nil {
		taskProps["dag"] = rule.DAG
	}

	taskNode := &graph.Node{Kind: graph.KindTask, Labels: rule.Labels, Props: taskProps}
	if s.embed != nil {
		if emb, err := s.embed(ctx, rule.Title); err == nil {
			taskNode.Embedding = emb
		}
	}
	taskUUID, err := s.store.UpsertNode(ctx, taskNode, prov)
	if err != nil {
		return fmt.Errorf("upsert task node: %w", err)
	}

	priority := rule.Priority
	due, _ := taskProps["due"].(string)
	if _, err := s.queue.Enqueue(ctx, taskUUID, rule.Title, &priority, due, "pending", 0, prov); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}
