package audit

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/canonica-labs/canonica/internal/metrics"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

// Writer is the audit sink interface. Both implementations are thread-safe
// and lock-free on the hot path: Write only ever enqueues.
type Writer interface {
	Write(event *auditmodel.Event)
	Close() error
}

// LocalWriter appends JSON lines to an io.Writer from a single background
// goroutine draining a bounded channel. Overflow policy is non-blocking
// drop-oldest: when the channel is full, Write discards the oldest queued
// event to make room for the new one and increments the dropped metric,
// rather than blocking the caller.
type LocalWriter struct {
	queue   chan *auditmodel.Event
	out     io.Writer
	log     zerolog.Logger
	metrics *metrics.Registry
	done    chan struct{}
}

// NewLocalWriter starts the background drain goroutine writing JSON lines to
// out.
func NewLocalWriter(out io.Writer, capacity int, log zerolog.Logger, m *metrics.Registry) *LocalWriter {
	w := &LocalWriter{
		queue:   make(chan *auditmodel.Event, capacity),
		out:     out,
		log:     log,
		metrics: m,
		done:    make(chan struct{}),
	}
	go w.drain()
	return w
}

func (w *LocalWriter) drain() {
	defer close(w.done)
	enc := json.NewEncoder(w.out)
	for event := range w.queue {
		if err := enc.Encode(event); err != nil {
			w.log.Error().Err(err).Str("sqlId", event.SqlID).Msg("local audit sink write failed")
			if w.metrics != nil {
				w.metrics.AuditWriteErrorsTotal.Inc()
			}
		}
	}
}

func (w *LocalWriter) Write(event *auditmodel.Event) {
	select {
	case w.queue <- event:
		if w.metrics != nil {
			w.metrics.AuditEventsEmittedTotal.Inc()
		}
	default:
		select {
		case oldest := <-w.queue:
			if w.metrics != nil {
				w.metrics.AuditEventsDroppedTotal.Inc()
			}
			w.log.Warn().Str("sqlId", oldest.SqlID).Msg("local audit sink full, dropping oldest event")
		default:
		}
		select {
		case w.queue <- event:
			if w.metrics != nil {
				w.metrics.AuditEventsEmittedTotal.Inc()
			}
		default:
			if w.metrics != nil {
				w.metrics.AuditEventsDroppedTotal.Inc()
			}
			w.log.Warn().Str("sqlId", event.SqlID).Msg("local audit sink full, dropping event")
		}
	}
}

func (w *LocalWriter) Close() error {
	close(w.queue)
	<-w.done
	return nil
}

// KafkaWriter fire-and-forget produces events to a Kafka topic, keyed by
// sqlId for downstream per-SQL partition locality. Synchronous send is
// never used; a completion callback logs and increments a metric on
// failure but never propagates into the caller.
type KafkaWriter struct {
	writer  *kafka.Writer
	log     zerolog.Logger
	metrics *metrics.Registry
}

// NewKafkaWriter builds a KafkaWriter over the given brokers/topic.
func NewKafkaWriter(brokers []string, topic string, log zerolog.Logger, m *metrics.Registry) *KafkaWriter {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		RequiredAcks: kafka.RequireOne,
	}
	kw := &KafkaWriter{writer: w, log: log, metrics: m}
	w.Completion = kw.onCompletion
	return kw
}

func (w *KafkaWriter) onCompletion(messages []kafka.Message, err error) {
	if err == nil {
		if w.metrics != nil {
			w.metrics.AuditEventsEmittedTotal.Add(float64(len(messages)))
		}
		return
	}
	if w.metrics != nil {
		w.metrics.AuditWriteErrorsTotal.Inc()
	}
	w.log.Error().Err(err).Int("messages", len(messages)).Msg("kafka audit produce failed")
}

func (w *KafkaWriter) Write(event *auditmodel.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		w.log.Error().Err(err).Str("sqlId", event.SqlID).Msg("failed to marshal audit event")
		if w.metrics != nil {
			w.metrics.AuditWriteErrorsTotal.Inc()
		}
		return
	}
	msg := kafka.Message{Key: []byte(event.SqlID), Value: payload}
	// WriteMessages with Async:true never blocks the caller on I/O; errors
	// surface only through the Completion callback.
	if err := w.writer.WriteMessages(context.Background(), msg); err != nil {
		w.log.Error().Err(err).Str("sqlId", event.SqlID).Msg("kafka enqueue failed")
		if w.metrics != nil {
			w.metrics.AuditWriteErrorsTotal.Inc()
		}
	}
}

func (w *KafkaWriter) Close() error {
	return w.writer.Close()
}
