package logger

import (
	"testing"

	"github.com/spigell/gigboard/internal/marketplace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	enriched := WithFields(zap.New(core), PresenceFields("u1", "s1")...)
	enriched.Info("presence tracking started")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldUserID] != "u1" || ctx[FieldSessionID] != "s1" {
		t.Fatalf("unexpected context: %v", ctx)
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}

func TestAIFields(t *testing.T) {
	fields := AIFields("  gemini  ", "gemini-2.5-pro")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldProvider || fields[0].String != "gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if fields[1].Key != FieldModel || fields[1].String != "gemini-2.5-pro" {
		t.Fatalf("unexpected model field: %+v", fields[1])
	}

	if empty := AIFields("", ""); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestPresenceFieldsSkipsEmptySession(t *testing.T) {
	fields := PresenceFields("u1", "")
	if len(fields) != 1 || fields[0].Key != FieldUserID {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestJobFields(t *testing.T) {
	if fields := JobFields(nil); fields != nil {
		t.Fatalf("expected no fields for nil job, got %+v", fields)
	}

	fields := JobFields(&marketplace.Job{ID: "j1"})
	if len(fields) != 1 || fields[0].Key != FieldJobID || fields[0].String != "j1" {
		t.Fatalf("unexpected fields: %+v", fields)
	}

	fields = JobFields(&marketplace.Job{ID: "j1", Category: "plumbing"})
	if len(fields) != 2 || fields[1].String != "plumbing" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}
