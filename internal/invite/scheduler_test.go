package invite

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsAtHour(t *testing.T) {
	f := newFixture(t, "pair-fallback")
	f.recipient(t, "b@example.com", true)

	fire := make(chan time.Time)
	waits := make(chan time.Duration, 4)

	s := NewScheduler(f.runner, f.cal, 7, slog.Default())
	s.after = func(d time.Duration) <-chan time.Time {
		waits <- d
		return fire
	}

	s.Start(context.Background())
	// 06:00 local to 07:00 local.
	assert.Equal(t, time.Hour, <-waits)

	fire <- time.Now()
	// The loop schedules the next run only after the current one returns.
	<-waits
	s.Stop()

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "b@example.com", f.sender.sent[0].To)
}
