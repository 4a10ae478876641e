package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	cerrors "github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/internal/metrics"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

// Processor is the scoring + storage pipeline each successfully
// deserialized event is handed to. Implementations classify their own
// failures via *ProcessError so the pool can pick the right disposition.
type Processor interface {
	Process(ctx context.Context, event *auditmodel.Event) error
}

// pool is the bounded worker pool described in spec §4.7: Concurrency
// workers draining a channel of capacity QueueCapacity, each committing the
// original Kafka offset only after the job reaches a terminal state
// (success or DLQ'd).
type pool struct {
	cfg       Config
	jobs      chan *job
	processor Processor
	committer interface {
		commit(context.Context, *job) error
	}
	dlq     *dlqProducer
	log     zerolog.Logger
	metrics *metrics.Registry

	depth   int64 // not updated; depthNow reads queue depth from len(p.jobs)
	dlqSent int64 // atomic, mirrors metrics.DlqMessagesTotal for the status snapshot

	wg sync.WaitGroup
}

func newPool(cfg Config, processor Processor, dlq *dlqProducer, committer interface {
	commit(context.Context, *job) error
}, log zerolog.Logger, m *metrics.Registry) *pool {
	return &pool{
		cfg:       cfg,
		jobs:      make(chan *job, cfg.QueueCapacity),
		processor: processor,
		committer: committer,
		dlq:       dlq,
		log:       log,
		metrics:   m,
	}
}

func (p *pool) start(ctx context.Context) {
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *pool) stop() {
	close(p.jobs)
	p.wg.Wait()
}

// depthNow reports the current queue depth for the backpressure poller.
// Reading len() on a channel is safe for concurrent use and race-free.
func (p *pool) depthNow() int {
	return len(p.jobs)
}

// dlqSentCount reports how many jobs this pool has routed to the DLQ, for
// the status snapshot.
func (p *pool) dlqSentCount() int64 {
	return atomic.LoadInt64(&p.dlqSent)
}

func (p *pool) submit(j *job) {
	p.jobs <- j
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(p.depthNow()))
	}
}

func (p *pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.process(ctx, j)
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(p.depthNow()))
		}
	}
}

func (p *pool) process(ctx context.Context, j *job) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.ProcessingTimeSeconds.Observe(time.Since(start).Seconds())
		}
	}()

	var event auditmodel.Event
	if err := unmarshalEvent(j.msg.Value, &event); err != nil {
		p.toDLQ(ctx, j, FailureDeserialization, err.Error())
		return
	}

	err := p.processor.Process(ctx, &event)
	if err == nil {
		if commitErr := p.committer.commit(ctx, j); commitErr != nil {
			p.log.Error().Err(commitErr).Msg("failed to commit kafka offset after successful processing")
		}
		return
	}

	class := FailureDownstream
	if pe, ok := err.(*ProcessError); ok {
		class = pe.Class
	}
	if class == FailureScoring && p.metrics != nil {
		p.metrics.ScoringErrorsTotal.Inc()
	}

	j.attempt++
	j.lastClass = class
	j.lastErr = err.Error()

	if j.attempt >= p.cfg.RetryMaxAttempts {
		p.toDLQ(ctx, j, class, err.Error())
		return
	}

	if p.metrics != nil {
		p.metrics.RetriesTotal.Inc()
	}
	delay := j.backoff.NextBackOff()
	p.log.Warn().
		Err(err).
		Int("attempt", j.attempt).
		Dur("delay", delay).
		Msg("scheduling retry for ingestion job")
	// Hand the retry to a timer callback rather than sleeping the worker,
	// so the pool keeps draining other messages while this one waits.
	time.AfterFunc(delay, func() {
		p.submit(j)
	})
}

func (p *pool) toDLQ(ctx context.Context, j *job, class FailureClass, errMsg string) {
	payload := buildDLQPayload(j.msg.Value, class, errMsg, j.attempt)
	if err := p.dlq.send(ctx, j.msg.Key, payload); err != nil {
		ingestionErr := cerrors.NewIngestionFailed(p.cfg.Topic, j.msg.Partition, j.msg.Offset, err)
		p.log.Error().Err(ingestionErr).Msg("failed to produce to dead-letter topic, offset will not be committed")
		return
	}
	atomic.AddInt64(&p.dlqSent, 1)
	if p.metrics != nil {
		p.metrics.DlqMessagesTotal.Inc()
	}
	if commitErr := p.committer.commit(ctx, j); commitErr != nil {
		p.log.Error().Err(commitErr).Msg("failed to commit kafka offset after DLQ routing")
	}
}
