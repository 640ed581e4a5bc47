// internal/common/observability/metrics_test.go
package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_NilReceiver(t *testing.T) {
	var o *Observability

	ctx, span := o.StartSpan(context.Background(), "intake.store", attribute.String("step", "store"))
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	EndSpan(span, errors.New("boom"))

	o.RecordRun(context.Background(), "intake", "success", time.Millisecond)
	o.Shutdown()
}

func TestNew_WithoutCollectorInstallsNoTracerProvider(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	o := New("applysync-test")
	defer o.Shutdown()

	assert.Nil(t, o.tracerProvider)
	assert.Nil(t, o.tracer)

	ctx, span := o.StartSpan(context.Background(), "followup.send")
	EndSpan(span, nil)
	o.RecordRun(ctx, "followup", "sent", 25*time.Millisecond)
}

func TestNewObservability_ExportsStepSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	o := newObservability("applysync-test", sdktrace.NewSimpleSpanProcessor(exporter))
	defer o.Shutdown()

	_, span := o.StartSpan(context.Background(), "intake.parse", attribute.String("step", "parse"))
	EndSpan(span, errors.New("parser timeout"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "intake.parse", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "parser timeout", spans[0].Status.Description)
	assert.Contains(t, spans[0].Attributes, attribute.String("step", "parse"))

	service, ok := spans[0].Resource.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "applysync-test", service.AsString())
}

func TestNew_ExportsToConfiguredCollector(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/traces" {
			atomic.AddInt32(&hits, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", srv.URL)

	o := New("applysync-test")
	require.NotNil(t, o.tracerProvider)

	_, span := o.StartSpan(context.Background(), "followup.send")
	assert.True(t, span.SpanContext().IsValid())
	EndSpan(span, nil)

	// Shutdown flushes the batch processor.
	o.Shutdown()
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
