package invite

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/quietcuration/internal/dates"
)

// Scheduler runs the invite batch once a day at a fixed local hour.
type Scheduler struct {
	mu       sync.RWMutex
	runner   *Runner
	calendar *dates.Calendar
	hour     int
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}

	// after is replaced in tests.
	after func(d time.Duration) <-chan time.Time
}

func NewScheduler(runner *Runner, calendar *dates.Calendar, hour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		calendar: calendar,
		hour:     hour,
		logger:   logger.With("component", "invite_scheduler"),
		after:    time.After,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		for {
			next := s.calendar.NextAt(s.hour)
			wait := next.Sub(s.calendar.Now())
			s.logger.Debug("next invite run scheduled", "at", next, "in", wait.Round(time.Second))

			select {
			case <-ctx.Done():
				return
			case <-s.after(wait):
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler and waits for a run in progress.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled invite run failed", "delivery_date", summary.DeliveryDate, "error", err)
	}
}
