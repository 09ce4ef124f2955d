// Package jobs schedules the recurring maintenance tasks. The scheduler only
// enqueues; the worker executes.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TaskQueue matches queue.Producer.
type TaskQueue interface {
	Enqueue(ctx context.Context, values map[string]any) error
}

type Scheduler struct {
	cron  *cron.Cron
	queue TaskQueue
	log   zerolog.Logger
}

func NewScheduler(queue TaskQueue, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		queue: queue,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 0 * * *", s.enqueueCleanup); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.enqueueCompact); err != nil { // hourly partition dedupe
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for any in-flight enqueue before returning.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) enqueueCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.queue.Enqueue(ctx, map[string]any{"type": "cleanup"}); err != nil {
		s.log.Error().Err(err).Msg("enqueue cleanup task")
		return
	}
	s.log.Info().Msg("cleanup task enqueued")
}

func (s *Scheduler) enqueueCompact() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.queue.Enqueue(ctx, map[string]any{
		"type": "compact",
		"day":  time.Now().UTC().Format("2006-01-02"),
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue compact task")
		return
	}
	s.log.Info().Msg("compact task enqueued")
}
