// Package ingest implements the Kafka consumer pipeline (C7): a bounded
// worker pool with backpressure pause/resume, retry with exponential
// backoff, and dead-letter routing, feeding the scoring engine and storage
// adapters.
package ingest

import "time"

// Config mirrors spec §6's consumer configuration surface.
type Config struct {
	Brokers       []string
	Topic         string
	GroupID       string
	Concurrency   int
	QueueCapacity int
	HighWatermark int
	LowWatermark  int
	PollTimeout   time.Duration

	RetryMaxAttempts int
	RetryBaseMs      int
	RetryFactor      float64
	RetryJitter      float64
}

// DLQTopic derives the dead-letter topic name from the primary topic.
func (c Config) DLQTopic() string {
	return c.Topic + "-dlq"
}
