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

package main

import (
	"context"
	"fmt"

	"github.com/kadirpekel/hectorassist/internal/config"
	"github.com/kadirpekel/hectorassist/internal/eventbus"
	"github.com/kadirpekel/hectorassist/internal/graph"
	"github.com/kadirpekel/hectorassist/internal/learning"
	"github.com/kadirpekel/hectorassist/internal/llmclient/mockllm"
	"github.com/kadirpekel/hectorassist/internal/peal"
	"github.com/kadirpekel/hectorassist/internal/scheduler"
	"github.com/kadirpekel/hectorassist/internal/taskqueue"
	"github.com/kadirpekel/hectorassist/internal/tool"
	"github.com/kadirpekel/hectorassist/internal/tool/mocktools"
	"github.com/kadirpekel/hectorassist/internal/vector"
	"github.com/kadirpekel/hectorassist/internal/workingmem"
)

// taskCreatorAdapter satisfies scheduler.TaskCreator on top of the richer
// tool.Task interface PEAL's steps use, so the scheduler and the task tool
// share one underlying implementation instead of two task stores.
type taskCreatorAdapter struct{ task tool.Task }

func (a taskCreatorAdapter) CreateTask(ctx context.Context, title, due string, priority int, notes string) (map[string]any, error) {
	return a.task.Create(ctx, title, due, priority, notes, nil)
}

// app is everything loadApp wires together from a validated Config: the
// durable store, the vector registry backing SMLG's similarity search, and
// the PEAL engine/scheduler that sit on top of them. Every field lives for
// the lifetime of one CLI invocation.
type app struct {
	cfg       *config.Config
	store     graph.Store
	vectors   *vector.Registry
	bus       *eventbus.Bus
	queue     *taskqueue.Manager
	engine    *peal.Engine
	scheduler *scheduler.Scheduler
	closers   []func() error
}

// loadApp loads and validates the config file at path, then constructs the
// full dependency graph: a SQLite-backed graph.Store, the configured vector
// registry, an embedded-NATS event bus, the task queue, and a PEAL engine
// wired to the mock tool/LLM implementations (internal/llmclient has no
// live provider wiring per SPEC_FULL §3.14; mocktools stands in for the
// real calendar/task/contacts/web integrations per §3.13).
func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := graph.OpenSQLStore(cfg.Databases.Default().Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, store: store}
	a.closers = append(a.closers, store.Close)

	registry, err := cfg.VectorStores.ToRegistry()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build vector registry: %w", err)
	}
	a.vectors = registry

	bus, err := eventbus.New()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("start event bus: %w", err)
	}
	a.bus = bus
	a.closers = append(a.closers, func() error { bus.Close(); return nil })

	llm := mockllm.New(nil, nil)
	learningEngine := learning.New(store, llm)
	queue := taskqueue.NewManager(store, "default")
	a.queue = queue

	wm := workingmem.New(cfg.Memory.ReinforceDelta, cfg.Memory.MaxWeight)
	taskTool := mocktools.NewTask()

	a.engine = peal.New(store, llm, queue, learningEngine,
		peal.WithWorkingMemory(wm),
		peal.WithEventBus(bus),
		peal.WithCalendar(mocktools.NewCalendar()),
		peal.WithTask(taskTool),
		peal.WithContacts(mocktools.NewContacts()),
		peal.WithWeb(mocktools.NewWeb()),
		peal.WithConfig(cfg.Peal.ToEngineConfig()),
	)

	embedFn := func(ctx context.Context, text string) ([]float32, error) { return llm.Embed(ctx, text) }
	a.scheduler = scheduler.New(store, taskCreatorAdapter{task: taskTool}, queue, embedFn)
	for _, rule := range cfg.Scheduler.ToTimeRules() {
		if err := a.scheduler.AddTimeRule(rule); err != nil {
			a.Close()
			return nil, fmt.Errorf("add time rule %q: %w", rule.Title, err)
		}
	}

	return a, nil
}

// Close releases every resource loadApp opened, in reverse order.
func (a *app) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
