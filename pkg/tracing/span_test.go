package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := Start(context.Background(), "search", "req-1")
	_, child := StartChild(ctx, "execute")
	child.SetAttr("collections", 2)
	child.End()
	root.End()

	assert.Same(t, root, FromContext(ctx))
	children := root.Children()
	require.Len(t, children, 1)
	assert.Equal(t, "req-1", children[0].TraceID)
	v, ok := children[0].Attr("collections")
	require.True(t, ok)
	assert.EqualValues(t, 2, v)
	assert.Positive(t, root.Duration())
}

func TestStartGeneratesTraceID(t *testing.T) {
	_, span := Start(context.Background(), "search", "")
	assert.Len(t, span.TraceID, 36)
}

func TestNilSpanIsNoop(t *testing.T) {
	ctx, span := StartChild(context.Background(), "execute")
	assert.Nil(t, span)
	assert.Nil(t, FromContext(ctx))

	span.SetAttr("k", 1)
	span.End()
	span.Log(nil)
	_, ok := span.Attr("k")
	assert.False(t, ok)
	assert.Zero(t, span.Duration())
}

func TestEndIsIdempotent(t *testing.T) {
	_, span := Start(context.Background(), "search", "req")
	span.End()
	first := span.Duration()
	span.End()
	assert.Equal(t, first, span.Duration())
}

func TestLogWritesEverySpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, root := Start(context.Background(), "search", "req-2")
	root.SetAttr("query", "python")
	_, child := StartChild(ctx, "execute")
	child.End()
	root.End()
	root.Log(logger)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "trace_id=req-2"))
	assert.Contains(t, out, "span=execute")
	assert.Contains(t, out, "parent=search")
	assert.Contains(t, out, "attrs.query=python")
}
