package ingest

import (
	"encoding/json"
	"testing"
)

func TestBuildDLQPayloadAugmentsValidJSON(t *testing.T) {
	raw := []byte(`{"sqlId":"abc"}`)
	payload := buildDLQPayload(raw, FailureDownstream, "write timeout", 3)

	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v", err)
	}
	if m["sqlId"] != "abc" {
		t.Errorf("expected the original field to survive, got %v", m["sqlId"])
	}
	if m["_error"] != "downstream_error: write timeout" {
		t.Errorf("_error = %v, want %q", m["_error"], "downstream_error: write timeout")
	}
	if m["_attempts"].(float64) != 3 {
		t.Errorf("_attempts = %v, want 3", m["_attempts"])
	}
}

func TestBuildDLQPayloadWrapsUnparseableRaw(t *testing.T) {
	raw := []byte("not json at all")
	payload := buildDLQPayload(raw, FailureDeserialization, "invalid payload", 1)

	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v", err)
	}
	if m["_raw"] != "not json at all" {
		t.Errorf("_raw = %v, want the original raw text", m["_raw"])
	}
}
