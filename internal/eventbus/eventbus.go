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

// Package eventbus implements the process-wide event bus (spec §4 / §6):
// a single emit(event_type, payload) method that never blocks and never
// raises, backed by an embedded NATS core server for in-process pub/sub.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/kadirpekel/hectorassist/internal/logging"
)

// Bus wraps an embedded, in-process NATS core server. Emit never
// returns an error and never blocks the caller; failures are logged.
type Bus struct {
	server *server.Server
	conn   *nats.Conn
}

// New starts an embedded, connectionless (no TCP listener) NATS server
// and an in-process client connection to it.
func New() (*Bus, error) {
	opts := &server.Options{
		DontListen: true,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("start embedded event bus server: %w", err)
	}

	ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded event bus server did not become ready")
	}

	conn, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connect to embedded event bus server: %w", err)
	}

	return &Bus{server: ns, conn: conn}, nil
}

// Emit publishes payload under eventType. It never blocks and never
// raises: a marshal or publish failure is logged and swallowed.
func (b *Bus) Emit(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Default().Warn("event bus: failed to marshal payload", "event_type", eventType, "error", err)
		return
	}
	if err := b.conn.Publish(eventType, data); err != nil {
		logging.Default().Warn("event bus: failed to publish", "event_type", eventType, "error", err)
	}
}

// Handler receives a decoded event payload as raw JSON; callers decode
// into their own type.
type Handler func(payload json.RawMessage)

// Subscribe registers handler to run for every event published under
// eventType. The subscription is asynchronous: handler runs on NATS's
// own dispatch goroutine, never the emitter's.
func (b *Bus) Subscribe(eventType string, handler Handler) (*nats.Subscription, error) {
	sub, err := b.conn.Subscribe(eventType, func(msg *nats.Msg) {
		handler(json.RawMessage(msg.Data))
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", eventType, err)
	}
	return sub, nil
}

// Close drains the client connection and shuts down the embedded server.
func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
	if b.server != nil {
		b.server.Shutdown()
		b.server.WaitForShutdown()
	}
}
