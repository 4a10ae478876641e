package status

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestFuncProviderReturnsWhateverTheFunctionBuilds(t *testing.T) {
	p := FuncProvider(func(ctx context.Context) *Snapshot {
		return &Snapshot{Ready: true, QueueDepth: 3, ConsumerLag: 10}
	})
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.QueueDepth != 3 || snap.ConsumerLag != 10 {
		t.Errorf("snap = %+v", snap)
	}
}

func TestMockProviderDefaultsToReady(t *testing.T) {
	m := NewMockProvider()
	snap, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.Ready {
		t.Error("expected a fresh MockProvider to report ready")
	}
}

func TestMockProviderSetOverridesSnapshot(t *testing.T) {
	m := NewMockProvider()
	m.Set(Snapshot{Ready: false, Reason: "paused: queue full", Paused: true})

	snap, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Ready || !snap.Paused || snap.Reason == "" {
		t.Errorf("snap = %+v", snap)
	}
}

func TestHandlerServesSnapshotAsJSON(t *testing.T) {
	p := FuncProvider(func(ctx context.Context) *Snapshot {
		return &Snapshot{Ready: true, QueueDepth: 5, QueueCapacity: 256, ConsumerLag: 42, DlqMessagesTotal: 1}
	})
	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	Handler(p).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var decoded Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.QueueDepth != 5 || decoded.ConsumerLag != 42 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestHandlerReturns503WhenNotReady(t *testing.T) {
	p := FuncProvider(func(ctx context.Context) *Snapshot {
		return &Snapshot{Ready: false, Reason: "dlq producer unavailable"}
	})
	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	Handler(p).ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
