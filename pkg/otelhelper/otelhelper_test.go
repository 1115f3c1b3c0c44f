package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/ruleforge/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, span := otelhelper.StartSpan(context.Background(), tracer, "rule.execute",
		attribute.String(otelhelper.RuleIDKey, "r1"))
	otelhelper.SetError(span, errors.New("boom"), attribute.String(otelhelper.ActionTypeKey, "save_memory"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Contains(t, ended[0].Attributes(), attribute.String(otelhelper.RuleIDKey, "r1"))
}

func TestNoopTracer(t *testing.T) {
	_, span := otelhelper.StartSpan(context.Background(), otelhelper.NoopTracer(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
}
