package ws

import (
	"testing"
	"time"
)

func TestEnvelope(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got := envelope("order-created", map[string]any{"orderId": int64(12), "pendingCount": 3}, now)

	if got["event"] != "order-created" {
		t.Fatalf("expected event name, got %v", got["event"])
	}
	if got["timestamp"] != "2025-06-01T12:00:00Z" {
		t.Fatalf("expected ISO timestamp, got %v", got["timestamp"])
	}
	if got["orderId"] != int64(12) {
		t.Fatalf("payload field lost: %v", got["orderId"])
	}
	if got["pendingCount"] != 3 {
		t.Fatalf("payload field lost: %v", got["pendingCount"])
	}
}

func TestEnvelopeReservedKeys(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got := envelope("pong", map[string]any{"event": "spoofed", "timestamp": "bogus"}, now)

	if got["event"] != "pong" {
		t.Fatalf("payload must not override the event name, got %v", got["event"])
	}
	if got["timestamp"] != "2025-06-01T12:00:00Z" {
		t.Fatalf("payload must not override the timestamp, got %v", got["timestamp"])
	}
}

func TestEnvelopeNilData(t *testing.T) {
	got := envelope("pong", nil, time.Now())
	if len(got) != 2 {
		t.Fatalf("expected only reserved fields, got %v", got)
	}
}
