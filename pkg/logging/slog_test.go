// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/findskills/findskills-server/pkg/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedAdapter(t *testing.T) (*SlogAdapter, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogAdapter(&SlogConfig{Logger: slog.New(handler)}), &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestSlogAdapter_Info(t *testing.T) {
	log, buf := newBufferedAdapter(t)
	log.Info("hello", String("k", "v"), Int("n", 3))
	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "n=3")
}

func TestSlogAdapter_With(t *testing.T) {
	log, buf := newBufferedAdapter(t)
	child := log.With(String("component", "rest"))
	child.Warn("slow request")
	assert.Contains(t, buf.String(), "component=rest")
}

func TestSlogAdapter_WithError(t *testing.T) {
	log, buf := newBufferedAdapter(t)
	log.WithError(assert.AnError).Error("boom")
	assert.Contains(t, buf.String(), assert.AnError.Error())
}

func TestSlogAdapter_InfoContext_CorrelationID(t *testing.T) {
	log, buf := newBufferedAdapter(t)
	ctx := correlation.WithCorrelationID(context.Background(), "corr-1")
	log.InfoContext(ctx, "traced")
	require.Contains(t, buf.String(), "correlation_id=corr-1")
}

func TestSlogAdapter_InfoContext_NoCorrelationID(t *testing.T) {
	log, buf := newBufferedAdapter(t)
	log.InfoContext(context.Background(), "untraced")
	assert.NotContains(t, buf.String(), "correlation_id")
}
