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

package logging_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hectorassist/internal/logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for input, want := range cases {
		assert.Equal(t, want, logging.ParseLevel(input), "input %q", input)
	}
}

func TestInitSimpleFormatWritesLevelAndMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	logging.Init(slog.LevelInfo, f, "simple")
	logging.Default().Info("hello world", "key", "value")
	require.NoError(t, f.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO hello world")
	assert.Contains(t, string(data), "key=value")
}

func TestInitVerboseFormatUsesStandardSlogShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	logging.Init(slog.LevelInfo, f, "verbose")
	logging.Default().Info("hello again")
	require.NoError(t, f.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"hello again\"")
	assert.Contains(t, string(data), "level=INFO")
}

func TestInitFiltersBelowConfiguredLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	logging.Init(slog.LevelWarn, f, "simple")
	logging.Default().Info("should be dropped")
	logging.Default().Warn("should appear")
	require.NoError(t, f.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should be dropped")
	assert.Contains(t, string(data), "should appear")
}
