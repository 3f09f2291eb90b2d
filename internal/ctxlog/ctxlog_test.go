package ctxlog_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/testutil"
)

func TestRoundTrip(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))

	ctx := ctxlog.WithLogger(context.Background(), logger)
	got := ctxlog.FromContext(ctx)
	assert.Same(t, logger, got)

	got.Info("hello from context")
	assert.Contains(t, buf.String(), "hello from context")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	got := ctxlog.FromContext(context.Background())
	assert.Same(t, slog.Default(), got)
}
