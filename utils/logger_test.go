package utils

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultArgs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, slog.LevelDebug)

	ctx := WithDefaultArgs(context.Background(), "session", "s1")
	inner := WithDefaultArgs(ctx, "type", 42)
	log.InfoCtx(inner, "published", "revision", 3)

	out := buf.String()
	assert.Contains(t, out, "[binmeta] published")
	assert.Contains(t, out, "revision=3")
	assert.Contains(t, out, "session=s1")
	assert.Contains(t, out, "type=42")

	buf.Reset()
	log.InfoCtx(ctx, "outer")
	assert.NotContains(t, buf.String(), "type=42")
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, slog.LevelWarn)
	log.Debug("hidden")
	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
