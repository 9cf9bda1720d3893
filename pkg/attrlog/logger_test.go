package attrlog

import (
	"context"
	"testing"
)

func TestNewDefaultsToInfoOnInvalidLevel(t *testing.T) {
	l := New("resolver", "not-a-level", "json")
	if l.Level.String() != "info" {
		t.Errorf("got %q", l.Level.String())
	}
}

func TestWithContextAttachesTraceID(t *testing.T) {
	l := New("resolver", "debug", "json")
	ctx := WithTraceID(context.Background(), "trace-1")
	entry := l.WithContext(ctx)
	if entry.Data["trace_id"] != "trace-1" {
		t.Errorf("got %v", entry.Data)
	}
	if entry.Data["component"] != "resolver" {
		t.Errorf("got %v", entry.Data)
	}
}

func TestGetTraceIDRoundTrips(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc")
	if got := GetTraceID(ctx); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("expected empty trace id, got %q", got)
	}
}

func TestNewTraceIDIsUnique(t *testing.T) {
	a := NewTraceID()
	b := NewTraceID()
	if a == b {
		t.Error("expected distinct trace ids")
	}
}

func TestDefaultLazilyInitializes(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
}
