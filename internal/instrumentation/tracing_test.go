package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// withRecorder installs a recording tracer provider for the duration of the test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithLeg("callback").
		WithIdentity("T1", "user:abcd").
		WithPhase("callback").
		Build()

	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrLeg] != "callback" {
		t.Errorf("expected leg 'callback', got %v", attrMap[SpanAttrLeg])
	}
	if attrMap[SpanAttrTeam] != "T1" {
		t.Errorf("expected team 'T1', got %v", attrMap[SpanAttrTeam])
	}
	if attrMap[SpanAttrUserHash] != "user:abcd" {
		t.Errorf("expected user hash 'user:abcd', got %v", attrMap[SpanAttrUserHash])
	}
	if attrMap[SpanAttrPhase] != "callback" {
		t.Errorf("expected phase 'callback', got %v", attrMap[SpanAttrPhase])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithIdentity("", "").
		WithPhase("").
		Build()

	if len(attrs) != 0 {
		t.Errorf("expected no attributes, got %d", len(attrs))
	}
}

func TestStartSpans(t *testing.T) {
	recorder := withRecorder(t)
	ctx := context.Background()

	_, legSpan := StartLegSpan(ctx, "command")
	legSpan.End()

	_, transitionSpan := StartTransitionSpan(ctx, TransitionFinalize)
	SetSpanError(transitionSpan, errors.New("exchange failed"))
	transitionSpan.End()

	_, googleSpan := StartGoogleAPISpan(ctx, ServiceCalendar, OperationInsertEvent)
	SetSpanSuccess(googleSpan)
	googleSpan.End()

	_, plain := StartSpan(ctx, "plain")
	plain.End()

	spans := recorder.Ended()
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d", len(spans))
	}

	tests := []struct {
		name string
		kind trace.SpanKind
	}{
		{"leg.command", trace.SpanKindServer},
		{"auth.finalize", trace.SpanKindInternal},
		{"google.calendar.events.insert", trace.SpanKindClient},
		{"plain", trace.SpanKindInternal},
	}
	for i, tt := range tests {
		if spans[i].Name() != tt.name {
			t.Errorf("span %d name = %q, want %q", i, spans[i].Name(), tt.name)
		}
		if spans[i].SpanKind() != tt.kind {
			t.Errorf("span %d kind = %v, want %v", i, spans[i].SpanKind(), tt.kind)
		}
	}

	if spans[1].Status().Code != codes.Error {
		t.Errorf("expected error status on transition span, got %v", spans[1].Status().Code)
	}
	if spans[2].Status().Code != codes.Ok {
		t.Errorf("expected ok status on google span, got %v", spans[2].Status().Code)
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "noerr")
	SetSpanError(span, nil)
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("expected unset status, got %v", got)
	}
}

func TestGetTraceID(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace ID, got %q", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("expected empty span ID, got %q", id)
	}

	withRecorder(t)
	ctx, span := StartSpan(context.Background(), "traced")
	defer span.End()

	if GetTraceID(ctx) == "" {
		t.Error("expected trace ID from active span")
	}
	if GetSpanID(ctx) == "" {
		t.Error("expected span ID from active span")
	}
}
