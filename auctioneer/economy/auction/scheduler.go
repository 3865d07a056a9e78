package auction

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
	"github.com/pomleague/auctioneer/auctioneer/database/repositories"
)

const maxConcurrentEvaluations = 8

// Scheduler drives all active auctions toward expiry: a sweep tick fires
// due reminders and resolves expired auctions, a refresh tick re-renders the
// time-left embeds and pinned summaries. Auctions are evaluated in parallel
// under a bounded semaphore and every failure is isolated to its auction.
type Scheduler struct {
	manager   *Manager
	repo      repositories.AuctionRepository
	notifier  *Notifier
	publisher *Publisher

	sweepInterval   time.Duration
	refreshInterval time.Duration
	reminders       []time.Duration

	sem      *semaphore.Weighted
	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once
	now      func() time.Time
}

func NewScheduler(
	manager *Manager,
	repo repositories.AuctionRepository,
	notifier *Notifier,
	publisher *Publisher,
	sweepInterval time.Duration,
	refreshInterval time.Duration,
	reminders []time.Duration,
) *Scheduler {
	// fire the earliest reminder first when several are overdue at once
	sorted := append([]time.Duration{}, reminders...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	return &Scheduler{
		manager:         manager,
		repo:            repo,
		notifier:        notifier,
		publisher:       publisher,
		sweepInterval:   sweepInterval,
		refreshInterval: refreshInterval,
		reminders:       sorted,
		sem:             semaphore.NewWeighted(maxConcurrentEvaluations),
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
		now:             time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
	slog.Info("Auction scheduler started",
		slog.Duration("sweep_interval", s.sweepInterval),
		slog.Duration("refresh_interval", s.refreshInterval))
}

// Shutdown stops the loop and waits for the in-flight sweep to finish.
func (s *Scheduler) Shutdown() {
	s.once.Do(func() { close(s.shutdown) })
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()
	refresh := time.NewTicker(s.refreshInterval)
	defer refresh.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-s.shutdown:
			return
		case <-ctx.Done():
			return
		case <-sweep.C:
			s.Sweep(ctx)
		case <-refresh.C:
			s.refreshEmbeds(ctx)
		}
	}
}

// Sweep evaluates every active auction once. Errors are logged per auction
// and retried on the next tick; one broken auction never stops the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	auctions, err := s.repo.GetActive(ctx)
	if err != nil {
		slog.Error("Sweep failed to list active auctions",
			slog.String("error", err.Error()))
		return
	}

	var wg sync.WaitGroup
	for _, a := range auctions {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(a *models.Auction) {
			defer wg.Done()
			defer s.sem.Release(1)
			if err := s.evaluate(ctx, a); err != nil {
				slog.Error("Failed to evaluate auction",
					slog.String("thread_id", a.ThreadID),
					slog.String("player", a.PlayerName),
					slog.String("error", err.Error()))
			}
		}(a)
	}
	wg.Wait()
}

func (s *Scheduler) evaluate(ctx context.Context, a *models.Auction) error {
	expiry := s.manager.Expiry()
	elapsed := s.now().Sub(a.LastBidAt)

	if elapsed >= expiry {
		if err := s.manager.Resolve(ctx, a.ThreadID); err != nil && !errors.Is(err, ErrNotExpired) {
			return err
		}
		return nil
	}

	for _, milestone := range s.reminders {
		if elapsed < expiry-milestone || a.ReminderSent(milestone) {
			continue
		}
		recorded, err := s.repo.MarkReminderSent(ctx, a.ThreadID, int64(milestone.Seconds()), a.LastBidAt)
		if err != nil {
			return err
		}
		// a concurrent bid moved LastBidAt, this cycle's reminders are void
		if !recorded {
			return nil
		}
		a.RemindersSent = append(a.RemindersSent, int64(milestone.Seconds()))
		s.notifier.NotifyReminder(ctx, a, a.TimeLeft(s.now(), expiry))
	}
	return nil
}

func (s *Scheduler) refreshEmbeds(ctx context.Context) {
	if err := s.manager.RefreshStatusEmbeds(ctx); err != nil {
		slog.Error("Failed to refresh status embeds",
			slog.String("error", err.Error()))
	}
	s.publisher.RefreshAll(ctx)
}
