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

// Package replicator decouples working-memory edge-weight writes from the
// request hot path (spec §4.3): a bounded queue drained by a single
// background worker, so a slow or failing persistence backend never
// blocks an agent request.
package replicator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EdgeUpdate is a weight update queued for background persistence.
type EdgeUpdate struct {
	Source    string
	Target    string
	Delta     float64
	MaxWeight float64
}

// Persister is the backend that durably applies weight updates.
type Persister interface {
	IncrementEdgeWeight(ctx context.Context, source, target string, delta, maxWeight float64) error
}

// Replicator runs a single background worker draining a bounded FIFO
// queue of EdgeUpdate values, in enqueue order per (source, target).
type Replicator struct {
	client Persister
	queue  chan EdgeUpdate

	wg      sync.WaitGroup // tracks updates queued but not yet persisted
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a Replicator with the given backend and bounded queue size.
func New(client Persister, maxQueueSize int) *Replicator {
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}
	return &Replicator{
		client: client,
		queue:  make(chan EdgeUpdate, maxQueueSize),
	}
}

// Start launches the background worker. Safe to call more than once;
// only the first call (while not already running) takes effect.
func (r *Replicator) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.worker(workerCtx)
	slog.Info("async_replicator_started")
}

// Stop cancels the worker and waits for it to exit. Safe to call without
// a prior Start; idempotent.
func (r *Replicator) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
	slog.Info("async_replicator_stopped")
}

// Enqueue blocks until the update is accepted or ctx is cancelled.
func (r *Replicator) Enqueue(ctx context.Context, update EdgeUpdate) error {
	r.wg.Add(1)
	select {
	case r.queue <- update:
		return nil
	case <-ctx.Done():
		r.wg.Done()
		return ctx.Err()
	}
}

// EnqueueNowait is a non-blocking enqueue; returns false (backpressure
// signal) if the queue is full.
func (r *Replicator) EnqueueNowait(update EdgeUpdate) bool {
	r.wg.Add(1)
	select {
	case r.queue <- update:
		return true
	default:
		r.wg.Done()
		slog.Warn("async_replicator_queue_full", "source", update.Source, "target", update.Target)
		return false
	}
}

// Flush waits for all queued updates to be processed, up to timeout.
// Returns true if the queue drained, false on timeout.
func (r *Replicator) Flush(timeout time.Duration) bool {
	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return true
	case <-time.After(timeout):
		slog.Warn("async_replicator_flush_timeout", "pending", r.PendingCount())
		return false
	}
}

// PendingCount returns the number of updates currently sitting in the
// queue (not counting one possibly in flight in the worker).
func (r *Replicator) PendingCount() int {
	return len(r.queue)
}

func (r *Replicator) worker(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case update := <-r.queue:
			r.persist(ctx, update)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Replicator) persist(ctx context.Context, update EdgeUpdate) {
	defer r.wg.Done()
	if err := r.client.IncrementEdgeWeight(ctx, update.Source, update.Target, update.Delta, update.MaxWeight); err != nil {
		slog.Error("async_replicator_persist_error", "error", err, "source", update.Source, "target", update.Target)
	}
}
