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
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kadirpekel/hectorassist/internal/graph"
)

// ServeCmd runs the scheduler's per-minute tick loop against the task
// queue for as long as the process is alive. There is no HTTP listener:
// SPEC_FULL's Non-goals explicitly exclude an HTTP front-end, so `serve`
// is the long-running half of the same engine `run` drives once.
type ServeCmd struct {
	TickInterval time.Duration `help:"How often to check the scheduler's time rules." default:"1m"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	a, err := loadApp(cli.Config)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	if _, err := a.queue.EnsureQueue(ctx, graph.NewProvenance("hectorassist-serve", 1, "")); err != nil {
		return err
	}

	slog.Info("serving", "tick_interval", c.TickInterval, "time_rules", len(a.cfg.Scheduler.TimeRules))

	ticker := time.NewTicker(c.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := a.scheduler.Tick(ctx, now); err != nil {
				slog.Error("scheduler tick failed", "error", err)
			}
		}
	}
}
