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

// Package logging wraps log/slog with the level parsing and third-party
// noise filtering the assistant's ambient stack needs: our own packages log
// at the configured level, everything else (vector client libraries, the
// NATS client, etc.) is only shown at debug.
package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const modulePrefix = "github.com/kadirpekel/hectorassist"

// ParseLevel converts a string log level to slog.Level. Unknown values
// fall back to warn, matching the teacher's permissive default.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// filteringHandler hides logs emitted from outside our module unless the
// level is debug or the record itself is at warn/error.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || record.Level >= slog.LevelWarn || h.isOurPackage(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) isOurPackage(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(fn.Name(), modulePrefix) || strings.Contains(file, "hectorassist/")
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

// simpleHandler renders a record as "LEVEL message key=value ...", the
// teacher's "simple" log format with the color layer dropped.
type simpleHandler struct {
	handler slog.Handler
	writer  *os.File
}

func (h *simpleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *simpleHandler) Handle(ctx context.Context, record slog.Record) error {
	var buf strings.Builder
	buf.WriteString(strings.ToUpper(record.Level.String()))
	buf.WriteString(" ")
	buf.WriteString(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")
	_, err := h.writer.WriteString(buf.String())
	return err
}

func (h *simpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &simpleHandler{handler: h.handler.WithAttrs(attrs), writer: h.writer}
}

func (h *simpleHandler) WithGroup(name string) slog.Handler {
	return &simpleHandler{handler: h.handler.WithGroup(name), writer: h.writer}
}

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Init installs a process-wide slog default logger at the given level and
// format ("simple": level + message + attrs; "verbose" or anything else:
// slog's standard text format), writing to output and filtering
// third-party noise below debug.
func Init(level slog.Level, output *os.File, format string) {
	base := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})

	var handler slog.Handler = base
	if format == "simple" {
		handler = &simpleHandler{handler: base, writer: output}
	}

	defaultLogger = slog.New(&filteringHandler{handler: handler, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// Default returns the process-wide logger.
func Default() *slog.Logger { return defaultLogger }
