package natsutil

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier_SetGet(t *testing.T) {
	msg := nats.NewMsg("test.subject")
	c := (*natsHeaderCarrier)(msg)

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get returned %q", got)
	}
	if got := c.Get("missing"); got != "" {
		t.Errorf("missing key should be empty, got %q", got)
	}
}

func TestHeaderCarrier_NilHeader(t *testing.T) {
	c := (*natsHeaderCarrier)(&nats.Msg{})
	if got := c.Get("any"); got != "" {
		t.Errorf("nil header Get should be empty, got %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Errorf("nil header Keys should be nil, got %v", keys)
	}

	c.Set("k", "v")
	if got := c.Get("k"); got != "v" {
		t.Errorf("Set on nil header failed, got %q", got)
	}
}

func TestExtract_TraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	msg := nats.NewMsg("test.subject")
	msg.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	ctx := Extract(context.Background(), msg)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		t.Fatal("trace context not extracted")
	}
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("wrong trace ID: %s", sc.TraceID())
	}
}

func TestExtract_NoHeaders(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	ctx := Extract(context.Background(), &nats.Msg{})
	if trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("headerless message should not yield a span context")
	}
}

func TestHeaderCarrier_Keys(t *testing.T) {
	msg := nats.NewMsg("test.subject")
	c := (*natsHeaderCarrier)(msg)
	c.Set("a", "1")
	c.Set("b", "2")

	keys := c.Keys()
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}
}
