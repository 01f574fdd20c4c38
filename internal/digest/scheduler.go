package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"fieldsales-workers/internal/common/logger"
)

const DefaultSchedule = "0 7 * * MON"

// Scheduler runs the digest on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	digest  *Digest
	logger  logger.Logger
	timeout time.Duration
}

func NewScheduler(d *Digest, schedule string, loc *time.Location, log logger.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		digest:  d,
		logger:  log,
		timeout: 10 * time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.digest.Run(ctx); err != nil {
		s.logger.Error("neglected-client digest failed", map[string]interface{}{"error": err})
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("digest scheduler started", map[string]interface{}{"entries": len(s.cron.Entries())})
}

// Stop halts the schedule and waits for a running digest to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Next is the next planned run time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return s.cron.Entry(entries[0].ID).Schedule.Next(time.Now())
}
