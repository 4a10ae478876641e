package ingest

import "testing"

func TestConfigDLQTopicAppendsSuffix(t *testing.T) {
	cfg := Config{Topic: "sql-events"}
	if got := cfg.DLQTopic(); got != "sql-events-dlq" {
		t.Errorf("DLQTopic() = %q, want %q", got, "sql-events-dlq")
	}
}
