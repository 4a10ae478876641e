// Package metrics exposes the Prometheus collectors shared across the
// validator, interceptor chain, ingestion pipeline, and storage adapters
// (C10). All increments are synchronous and lock-free, backed by
// prometheus/client_golang's atomic counters.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every collector this module registers, so call sites
// depend on one struct instead of package-level globals scattered across
// files.
type Registry struct {
	// Validator / checker catalogue
	ParseCallsTotal          prometheus.Counter
	ValidateCallsTotal       prometheus.Counter
	PreparsedContextsTotal   prometheus.Counter
	CheckerInvocationsTotal  *prometheus.CounterVec // labels: checker
	CheckerViolationsTotal   *prometheus.CounterVec // labels: checker, risk_level
	DedupHitsTotal           prometheus.Counter

	// Interceptor / audit writer
	AuditEventsEmittedTotal prometheus.Counter
	AuditEventsDroppedTotal prometheus.Counter
	AuditWriteErrorsTotal   prometheus.Counter

	// Consumer pipeline
	MessagesConsumedTotal  prometheus.Counter
	ProcessingTimeSeconds  prometheus.Histogram
	LagRecords             prometheus.Gauge
	RetriesTotal           prometheus.Counter
	DlqMessagesTotal       prometheus.Counter
	ScoringErrorsTotal     prometheus.Counter
	QueueDepth             prometheus.Gauge
	PauseEventsTotal       prometheus.Counter
	ResumeEventsTotal      prometheus.Counter

	// Storage
	WritesTotal         *prometheus.CounterVec // labels: store
	WriteLatencySeconds *prometheus.HistogramVec
	WriteErrorsTotal    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers and returns a fresh Registry on the given Prometheus
// registry (pass prometheus.NewRegistry() in tests to avoid collisions with
// the global default registry).
func New(reg *prometheus.Registry) *Registry {
	r := &Registry{
		ParseCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_parse_calls_total",
			Help: "Number of AST parse invocations performed by the validator.",
		}),
		ValidateCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_validate_calls_total",
			Help: "Number of Validate invocations.",
		}),
		PreparsedContextsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_preparsed_contexts_total",
			Help: "Number of Validate invocations that received an already-parsed statement.",
		}),
		CheckerInvocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlsentry_checker_invocations_total",
			Help: "Number of times a checker ran.",
		}, []string{"checker"}),
		CheckerViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlsentry_checker_violations_total",
			Help: "Number of violations a checker raised, by risk level.",
		}, []string{"checker", "risk_level"}),
		DedupHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_dedup_hits_total",
			Help: "Number of Validate calls served from the dedup cache.",
		}),

		AuditEventsEmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_audit_events_emitted_total",
			Help: "Number of audit events handed to a writer.",
		}),
		AuditEventsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_audit_events_dropped_total",
			Help: "Number of audit events dropped due to a full local-sink buffer.",
		}),
		AuditWriteErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_audit_write_errors_total",
			Help: "Number of audit writer failures (Kafka produce callback or local sink).",
		}),

		MessagesConsumedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_messages_consumed_total",
			Help: "Number of audit messages consumed from Kafka.",
		}),
		ProcessingTimeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sqlsentry_processing_time_seconds",
			Help:    "Per-message processing latency.",
			Buckets: prometheus.DefBuckets,
		}),
		LagRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sqlsentry_consumer_lag_records",
			Help: "Consumer lag in records, as reported by the Kafka client.",
		}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_retries_total",
			Help: "Number of retry attempts scheduled for downstream failures.",
		}),
		DlqMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_dlq_messages_total",
			Help: "Number of messages routed to the dead-letter topic.",
		}),
		ScoringErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_scoring_errors_total",
			Help: "Number of scoring-engine errors encountered while processing a message.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sqlsentry_consumer_queue_depth",
			Help: "Current depth of the bounded worker queue.",
		}),
		PauseEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_consumer_pause_events_total",
			Help: "Number of times the poller paused partition fetches.",
		}),
		ResumeEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlsentry_consumer_resume_events_total",
			Help: "Number of times the poller resumed partition fetches.",
		}),

		WritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlsentry_storage_writes_total",
			Help: "Number of storage writes, by store.",
		}, []string{"store"}),
		WriteLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sqlsentry_storage_write_latency_seconds",
			Help:    "Storage write latency, by store.",
			Buckets: prometheus.DefBuckets,
		}, []string{"store"}),
		WriteErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sqlsentry_storage_write_errors_total",
			Help: "Number of storage write failures, by store.",
		}, []string{"store"}),
	}

	reg.MustRegister(
		r.ParseCallsTotal, r.ValidateCallsTotal, r.PreparsedContextsTotal,
		r.CheckerInvocationsTotal, r.CheckerViolationsTotal, r.DedupHitsTotal,
		r.AuditEventsEmittedTotal, r.AuditEventsDroppedTotal, r.AuditWriteErrorsTotal,
		r.MessagesConsumedTotal, r.ProcessingTimeSeconds, r.LagRecords, r.RetriesTotal,
		r.DlqMessagesTotal, r.ScoringErrorsTotal, r.QueueDepth, r.PauseEventsTotal, r.ResumeEventsTotal,
		r.WritesTotal, r.WriteLatencySeconds, r.WriteErrorsTotal,
	)
	r.gatherer = reg
	return r
}

// Handler returns an HTTP handler exposing this Registry's collectors,
// grounded on the pack's common promhttp.HandlerFor(registry, ...) pattern
// for a dedicated /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Serve starts a dedicated metrics HTTP server on addr (e.g. ":9090"),
// exposing /metrics, and blocks until ctx is cancelled or the server
// fails. It is intended to run in its own goroutine alongside the
// ingestion service's main work.
func (r *Registry) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
