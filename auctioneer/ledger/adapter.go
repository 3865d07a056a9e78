package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const cacheSize = 512

// cachedBalance is one cached per-person entry with its fetch time.
type cachedBalance struct {
	balance   int64
	fetchedAt time.Time
}

// Adapter wraps a Client with a read-through cache so bid checks don't
// hammer the spreadsheet. Writes always go against a fresh read and
// invalidate the cache afterwards.
type Adapter struct {
	client Client
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cache     *lru.Cache
	roster    []BudgetRecord
	fetchedAt time.Time
}

func NewAdapter(client Client, ttl time.Duration) *Adapter {
	cache, _ := lru.New(cacheSize)
	return &Adapter{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		cache:  cache,
	}
}

// Balance returns a person's balance. The second return reports whether
// the person exists in the ledger at all.
func (a *Adapter) Balance(ctx context.Context, personID string) (int64, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if entry, ok := a.cache.Get(personID); ok {
		cached := entry.(cachedBalance)
		if a.now().Sub(cached.fetchedAt) < a.ttl {
			return cached.balance, true, nil
		}
	}

	if err := a.refreshLocked(ctx); err != nil {
		return 0, false, err
	}
	if entry, ok := a.cache.Get(personID); ok {
		return entry.(cachedBalance).balance, true, nil
	}
	return 0, false, nil
}

// AllBalances returns the full roster, refreshing when the snapshot is
// older than the freshness window.
func (a *Adapter) AllBalances(ctx context.Context) ([]BudgetRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.roster == nil || a.now().Sub(a.fetchedAt) >= a.ttl {
		if err := a.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]BudgetRecord, len(a.roster))
	copy(out, a.roster)
	return out, nil
}

// Refresh drops the cached snapshot; the next read goes to the store.
func (a *Adapter) Refresh() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.invalidateLocked()
}

// Debit subtracts amount from a person's balance, working from a fresh
// read of the store rather than the cache.
func (a *Adapter) Debit(ctx context.Context, personID string, amount int64) error {
	records, err := a.client.ListBalances(ctx)
	if err != nil {
		return fmt.Errorf("failed to read ledger for debit: %w", err)
	}

	for _, record := range records {
		if record.PersonID != personID {
			continue
		}
		if record.Balance < amount {
			return fmt.Errorf("%w: has %d, needs %d", ErrInsufficientBalance, record.Balance, amount)
		}
		if err := a.client.SetBalance(ctx, personID, record.Balance-amount); err != nil {
			return fmt.Errorf("failed to write debited balance: %w", err)
		}

		a.mu.Lock()
		a.invalidateLocked()
		a.mu.Unlock()

		slog.Info("Ledger debit applied",
			slog.String("person_id", personID),
			slog.Int64("amount", amount),
			slog.Int64("new_balance", record.Balance-amount))
		return nil
	}
	return ErrPersonNotFound
}

func (a *Adapter) AppendCompletedAuction(ctx context.Context, record CompletedAuction) error {
	return a.client.AppendCompletedAuction(ctx, record)
}

func (a *Adapter) refreshLocked(ctx context.Context) error {
	records, err := a.client.ListBalances(ctx)
	if err != nil {
		return fmt.Errorf("failed to list balances: %w", err)
	}

	now := a.now()
	a.cache.Purge()
	for _, record := range records {
		a.cache.Add(record.PersonID, cachedBalance{balance: record.Balance, fetchedAt: now})
	}
	a.roster = records
	a.fetchedAt = now
	return nil
}

func (a *Adapter) invalidateLocked() {
	a.cache.Purge()
	a.roster = nil
	a.fetchedAt = time.Time{}
}
