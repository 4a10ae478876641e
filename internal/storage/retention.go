package storage

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// retentionTarget is anything that can delete records older than a cutoff —
// both AuditReportRepository's metadata store and ExecutionLogRepository's
// log store satisfy it.
type retentionTarget interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionScheduler runs deleteOlderThan sweeps both on-demand and on a
// daily cron schedule, grounded on the plugin scheduler's cron.Cron
// wrapper pattern.
type RetentionScheduler struct {
	cron      *cron.Cron
	targets   map[string]retentionTarget
	retention time.Duration
	log       zerolog.Logger
}

// NewRetentionScheduler builds a scheduler that deletes records older than
// retention from every registered target.
func NewRetentionScheduler(retention time.Duration, log zerolog.Logger) *RetentionScheduler {
	return &RetentionScheduler{
		cron:      cron.New(),
		targets:   make(map[string]retentionTarget),
		retention: retention,
		log:       log,
	}
}

// Register adds a named target to be swept.
func (s *RetentionScheduler) Register(name string, target retentionTarget) {
	s.targets[name] = target
}

// RunOnce sweeps every registered target immediately.
func (s *RetentionScheduler) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	for name, target := range s.targets {
		deleted, err := target.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			s.log.Error().Err(err).Str("target", name).Msg("retention sweep failed")
			continue
		}
		s.log.Info().Str("target", name).Int64("deleted", deleted).Msg("retention sweep completed")
	}
}

// Start schedules RunOnce daily at the given cron expression (e.g. "0 3 * * *")
// and begins the cron scheduler's own goroutine.
func (s *RetentionScheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() { s.RunOnce(ctx) })
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron scheduler, waiting for any in-flight sweep to finish.
func (s *RetentionScheduler) Stop() {
	<-s.cron.Stop().Done()
}
