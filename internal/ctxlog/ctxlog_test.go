package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Panics(t, func() { FromContext(context.Background()) })
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	scoped := With(ctx, "module", "InducedTransfer:dut", "event", 3)
	FromContext(scoped).Info("hello")

	assert.Contains(t, buf.String(), "module=InducedTransfer:dut")
	assert.Contains(t, buf.String(), "event=3")
}
