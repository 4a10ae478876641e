package ingest

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

type noopProcessor struct{}

func (noopProcessor) Process(ctx context.Context, event *auditmodel.Event) error { return nil }

func TestConsumerSnapshotReportsInitialState(t *testing.T) {
	cfg := Config{
		Brokers:       []string{"127.0.0.1:9092"},
		Topic:         "sql-audit-events",
		GroupID:       "test-group",
		Concurrency:   2,
		QueueCapacity: 64,
	}
	c := NewConsumer(cfg, noopProcessor{}, zerolog.Nop(), nil)

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.Ready {
		t.Error("expected a freshly constructed consumer to report ready")
	}
	if snap.Paused {
		t.Error("expected a freshly constructed consumer to report not paused")
	}
	if snap.QueueDepth != 0 {
		t.Errorf("QueueDepth = %d, want 0", snap.QueueDepth)
	}
	if snap.QueueCapacity != 64 {
		t.Errorf("QueueCapacity = %d, want 64", snap.QueueCapacity)
	}
	if snap.DlqMessagesTotal != 0 {
		t.Errorf("DlqMessagesTotal = %d, want 0", snap.DlqMessagesTotal)
	}
}
