package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func attr(kvs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range kvs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMeta_SpanName(t *testing.T) {
	meta := Meta{Component: "classifier", Operation: "classify"}

	if got, want := meta.SpanName(), "itemops.classifier.classify"; got != want {
		t.Errorf("SpanName() = %q, want %q", got, want)
	}
}

func TestMeta_Validate(t *testing.T) {
	if err := (Meta{Component: "query"}).Validate(); !errors.Is(err, ErrMissingOperation) {
		t.Errorf("Validate() error = %v, want ErrMissingOperation", err)
	}
	if err := (Meta{Component: "query", Operation: "run"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestTracer_SpanAttributes(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), Meta{Component: "query", Operation: "run", Label: "crafting"})
	tracer.EndSpan(span, Outcome{Units: 4, Kept: 3, Faults: 1}, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]

	if s.Name() != "itemops.query.run" {
		t.Errorf("span name = %q", s.Name())
	}
	if v, ok := attr(s.Attributes(), "itemops.label"); !ok || v.AsString() != "crafting" {
		t.Errorf("itemops.label = %v", v)
	}
	if v, ok := attr(s.Attributes(), "itemops.faults"); !ok || v.AsInt64() != 1 {
		t.Errorf("itemops.faults = %v", v)
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error when faults were recorded", s.Status().Code)
	}
}

func TestTracer_SuccessAndError(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	_, ok := tracer.StartSpan(context.Background(), Meta{Component: "search", Operation: "populate"})
	tracer.EndSpan(ok, Outcome{Units: 2, Kept: 2}, nil)

	_, failed := tracer.StartSpan(context.Background(), Meta{Component: "search", Operation: "populate"})
	tracer.EndSpan(failed, Outcome{}, context.Canceled)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("first status = %v, want Ok", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("second status = %v, want Error", spans[1].Status().Code)
	}
	if len(spans[1].Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestNoopTracer_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), Meta{Component: "c", Operation: "o"})
	tracer.EndSpan(span, Outcome{}, nil)
}
