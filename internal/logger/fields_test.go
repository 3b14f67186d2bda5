package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestStringFieldsSkipsEmptyEntries(t *testing.T) {
	t.Parallel()

	fields := StringFields(
		StringField{Key: FieldProvider, Value: "google"},
		StringField{Key: "  ", Value: "ignored"},
		StringField{Key: FieldAddress, Value: "   "},
		StringField{Key: " padded ", Value: " value "},
	)

	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(fields), fields)
	}
	if fields[0].Key != FieldProvider || fields[0].String != "google" {
		t.Fatalf("unexpected first field: %+v", fields[0])
	}
	if fields[1].Key != "padded" || fields[1].String != "value" {
		t.Fatalf("expected trimmed key and value, got %+v", fields[1])
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	t.Parallel()

	if WithFields(nil) == nil {
		t.Fatal("expected a usable logger for nil input")
	}
	if WithFields(nil, zap.String("k", "v")) == nil {
		t.Fatal("expected a usable logger for nil input with fields")
	}
}

func TestWithFieldsReturnsSameLoggerWithoutFields(t *testing.T) {
	t.Parallel()

	base := zap.NewNop()
	if WithFields(base) != base {
		t.Fatal("expected the input logger back when no fields are supplied")
	}
}
