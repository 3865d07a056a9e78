package auction

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
)

func newTestScheduler(e *testEngine) *Scheduler {
	s := NewScheduler(
		e.manager,
		e.repo,
		e.manager.notifier,
		e.manager.publisher,
		time.Minute,
		time.Minute,
		[]time.Duration{6 * time.Hour, time.Hour},
	)
	s.now = e.manager.now
	return s
}

func threadPosts(e *testEngine, threadID string) []string {
	return e.surface.posts[snowflake.MustParse(threadID)]
}

func countReminders(posts []string) int {
	n := 0
	for _, p := range posts {
		if strings.Contains(p, "closes in") {
			n++
		}
	}
	return n
}

func TestSchedulerFiresEachReminderOnce(t *testing.T) {
	e := newTestEngine(map[string]int64{"100": 500})
	ctx := context.Background()

	a, err := e.manager.Start(ctx, "Marta", 100, snowflake.ID(100), "alice")
	require.NoError(t, err)
	s := newTestScheduler(e)

	// inside the 6h-before-expiry window
	e.advance(18*time.Hour + time.Minute)
	s.Sweep(ctx)
	s.Sweep(ctx)
	s.Sweep(ctx)

	require.Equal(t, 1, countReminders(threadPosts(e, a.ThreadID)),
		"6h reminder fires once no matter how many sweeps run")

	// into the 1h window
	e.advance(5 * time.Hour)
	s.Sweep(ctx)
	s.Sweep(ctx)

	require.Equal(t, 2, countReminders(threadPosts(e, a.ThreadID)))

	stored, err := e.repo.GetByThread(ctx, a.ThreadID)
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusActive, stored.Status,
		"reminders must not resolve the auction")
}

func TestSchedulerBidResetsReminderCycle(t *testing.T) {
	e := newTestEngine(map[string]int64{"100": 500, "200": 500})
	ctx := context.Background()

	a, err := e.manager.Start(ctx, "Marta", 100, snowflake.ID(100), "alice")
	require.NoError(t, err)
	s := newTestScheduler(e)
	threadID := snowflake.MustParse(a.ThreadID)

	e.advance(18*time.Hour + time.Minute)
	s.Sweep(ctx)
	require.Equal(t, 1, countReminders(threadPosts(e, a.ThreadID)))

	// a fresh bid starts a new cycle, so the 6h reminder fires again later
	_, err = e.manager.PlaceBid(ctx, threadID, snowflake.ID(200), "bob", 150)
	require.NoError(t, err)

	s.Sweep(ctx)
	require.Equal(t, 1, countReminders(threadPosts(e, a.ThreadID)),
		"no reminder right after a bid")

	e.advance(18*time.Hour + time.Minute)
	s.Sweep(ctx)
	require.Equal(t, 2, countReminders(threadPosts(e, a.ThreadID)))
}

func TestSchedulerResolvesExpiredAuction(t *testing.T) {
	e := newTestEngine(map[string]int64{"100": 500})
	ctx := context.Background()

	a, err := e.manager.Start(ctx, "Marta", 200, snowflake.ID(100), "alice")
	require.NoError(t, err)
	s := newTestScheduler(e)

	e.advance(25 * time.Hour)
	s.Sweep(ctx)

	stored, err := e.repo.GetByThread(ctx, a.ThreadID)
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusCompleted, stored.Status)
	require.Equal(t, 1, e.ledger.debitCount("100"))
	require.Equal(t, int64(300), e.ledger.balances["100"])
}

func TestSchedulerSkipsRemindersPastExpiry(t *testing.T) {
	e := newTestEngine(map[string]int64{"100": 500})
	ctx := context.Background()

	a, err := e.manager.Start(ctx, "Marta", 200, snowflake.ID(100), "alice")
	require.NoError(t, err)
	s := newTestScheduler(e)

	// first sweep only sees the auction once it is already past expiry
	e.advance(25 * time.Hour)
	s.Sweep(ctx)

	require.Equal(t, 0, countReminders(threadPosts(e, a.ThreadID)),
		"an expired auction resolves without firing stale reminders")

	stored, err := e.repo.GetByThread(ctx, a.ThreadID)
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusCompleted, stored.Status)
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	e := newTestEngine(map[string]int64{"100": 500, "200": 500})
	ctx := context.Background()

	broken, err := e.manager.Start(ctx, "Marta", 100, snowflake.ID(100), "alice")
	require.NoError(t, err)
	healthy, err := e.manager.Start(ctx, "Jonas", 100, snowflake.ID(200), "bob")
	require.NoError(t, err)

	e.repo.failGetByThread[broken.ThreadID] = context.DeadlineExceeded

	s := newTestScheduler(e)
	e.advance(25 * time.Hour)
	s.Sweep(ctx)

	stored, err := e.repo.GetByThread(ctx, healthy.ThreadID)
	require.NoError(t, err)
	require.Equal(t, models.AuctionStatusCompleted, stored.Status,
		"one failing auction must not stop the sweep")
}

func TestSchedulerShutdownWaitsForSweep(t *testing.T) {
	e := newTestEngine(map[string]int64{"100": 500})
	ctx := context.Background()

	_, err := e.manager.Start(ctx, "Marta", 100, snowflake.ID(100), "alice")
	require.NoError(t, err)

	s := newTestScheduler(e)
	s.sweepInterval = 5 * time.Millisecond
	s.refreshInterval = time.Hour
	s.Start(ctx)

	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return")
	}

	// a second Shutdown is a harmless no-op
	s.Shutdown()
}
