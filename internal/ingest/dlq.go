package ingest

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// buildDLQPayload augments the original message bytes with the _error and
// _attempts fields spec §6 requires. Payloads that never deserialized as a
// JSON object (a malformed message) are wrapped under _raw instead of
// silently dropped.
func buildDLQPayload(raw []byte, class FailureClass, errMsg string, attempts int) []byte {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		m = map[string]any{"_raw": string(raw)}
	}
	m["_error"] = class.String() + ": " + errMsg
	m["_attempts"] = attempts
	payload, err := json.Marshal(m)
	if err != nil {
		// Marshaling a map[string]any built from valid JSON plus two scalar
		// fields cannot fail; this is unreachable in practice.
		return raw
	}
	return payload
}

// dlqProducer writes to the dead-letter topic synchronously: a DLQ write
// must durably land before the original offset is acknowledged, per the
// at-least-once invariant.
type dlqProducer struct {
	writer *kafka.Writer
}

func newDLQProducer(brokers []string, topic string) *dlqProducer {
	return &dlqProducer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (d *dlqProducer) send(ctx context.Context, key []byte, payload []byte) error {
	return d.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: payload})
}

func (d *dlqProducer) Close() error {
	return d.writer.Close()
}
