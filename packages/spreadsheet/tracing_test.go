package spreadsheet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	s := NewSpreadsheet(WithTracerProvider(tp))
	ctx := context.Background()

	_, err := s.CommitEdit(ctx, "A1", "2")
	require.NoError(t, err)
	_, err = s.CommitEdit(ctx, "B1", "=A1*A1")
	require.NoError(t, err)
	_, err = s.CommitEdit(ctx, "B1", "=B1")
	require.Error(t, err)
	require.NoError(t, s.SetDeclaredType(ctx, "A1", DataTypeText))

	spans := recorder.Ended()
	require.Len(t, spans, 4)

	committed := spans[1]
	assert.Equal(t, "spreadsheet.Recalculate", committed.Name())
	assert.Equal(t, codes.Ok, committed.Status().Code)
	cell, ok := spanAttr(committed, "cell")
	require.True(t, ok)
	assert.Equal(t, "B1", cell.AsString())
	recomputed, ok := spanAttr(committed, "recomputed")
	require.True(t, ok)
	assert.Equal(t, int64(1), recomputed.AsInt64())
	_, ok = spanAttr(committed, "pass_id")
	assert.True(t, ok)

	rejected := spans[2]
	assert.Equal(t, codes.Error, rejected.Status().Code)
	require.NotEmpty(t, rejected.Events(), "the rejection is recorded on the span")
	assert.Equal(t, "exception", rejected.Events()[0].Name)

	typed := spans[3]
	assert.Equal(t, "spreadsheet.SetDeclaredType", typed.Name())
	typeName, ok := spanAttr(typed, "type")
	require.True(t, ok)
	assert.Equal(t, "text", typeName.AsString())
}
