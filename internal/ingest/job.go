package ingest

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// FailureClass distinguishes the three failure classes spec §5/§6 require
// distinct handling for.
type FailureClass int

const (
	FailureNone FailureClass = iota
	// FailureDeserialization is never retried: the payload is malformed and
	// retrying cannot help.
	FailureDeserialization
	// FailureDownstream covers storage/transient errors: retried with
	// backoff, then DLQ'd after maxAttempts.
	FailureDownstream
	// FailureScoring covers scoring-engine bugs: retried then DLQ'd, and
	// increments scoring_errors_total distinctly from storage failures.
	FailureScoring
)

func (c FailureClass) String() string {
	switch c {
	case FailureDeserialization:
		return "deserialization_error"
	case FailureDownstream:
		return "downstream_error"
	case FailureScoring:
		return "scoring_error"
	default:
		return "none"
	}
}

// ProcessError classifies a Processor failure so the pool can decide
// between immediate DLQ and retry-then-DLQ.
type ProcessError struct {
	Class FailureClass
	Err   error
}

func (e *ProcessError) Error() string { return e.Err.Error() }
func (e *ProcessError) Unwrap() error { return e.Err }

// job tracks one in-flight Kafka message across retry attempts. It is
// re-enqueued onto the worker pool's job channel by the retry scheduler,
// never processed directly from a timer callback.
type job struct {
	msg       kafka.Message
	attempt   int
	firstSeen time.Time
	backoff   *backoff.ExponentialBackOff
	lastClass FailureClass
	lastErr   string
}

func newJob(msg kafka.Message, cfg Config) *job {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(cfg.RetryBaseMs) * time.Millisecond
	b.Multiplier = cfg.RetryFactor
	b.RandomizationFactor = cfg.RetryJitter
	b.MaxElapsedTime = 0 // attempt count is enforced by the pool, not backoff's own clock
	return &job{msg: msg, firstSeen: time.Now(), backoff: b}
}
