package mailing

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/seatplan/core"
)

const defaultSchedulerInterval = time.Minute

// Scheduler sends the due reports and retries the pending emails on every tick.
type Scheduler struct {
	svc      Service
	interval time.Duration
	logger   core.Logger
	nowFunc  func() time.Time
}

func NewScheduler(svc Service, conf core.SchedulerConfig, logger core.Logger) *Scheduler {
	interval := conf.Interval
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	return &Scheduler{svc: svc, interval: interval, logger: logger, nowFunc: time.Now}
}

// Tick runs one scheduler pass.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.nowFunc()
	if n, err := s.svc.SendDue(ctx, now); err != nil {
		s.logger.Error(fmt.Sprintf("sending due reports: %v", err), err)
	} else if n > 0 {
		s.logger.Info(fmt.Sprintf("scheduler: %d report(s) handled", n))
	}

	res, err := s.svc.ProcessPending(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("processing pending emails: %v", err), err)
		return
	}
	if res.Sent > 0 || res.Failed > 0 {
		s.logger.Info(fmt.Sprintf("scheduler: pending emails sent=%d failed=%d", res.Sent, res.Failed))
	}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
