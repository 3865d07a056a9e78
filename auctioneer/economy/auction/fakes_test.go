package auction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
	"github.com/pomleague/auctioneer/auctioneer/database/repositories"
	"github.com/pomleague/auctioneer/auctioneer/ledger"
)

// memoryRepo imitates the Postgres repository, including the conditional
// update semantics the engine's idempotency relies on. All reads return
// copies, like rows scanned from a database.
type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	auctions map[string]*models.Auction

	failGetByThread map[string]error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		auctions:        make(map[string]*models.Auction),
		failGetByThread: make(map[string]error),
	}
}

func (r *memoryRepo) Create(_ context.Context, auction *models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.auctions[auction.ThreadID]; exists {
		return fmt.Errorf("duplicate thread_id %s", auction.ThreadID)
	}
	r.nextID++
	auction.ID = r.nextID
	auction.Status = models.AuctionStatusActive
	cp := *auction
	r.auctions[auction.ThreadID] = &cp
	return nil
}

func (r *memoryRepo) GetByThread(_ context.Context, threadID string) (*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failGetByThread[threadID]; err != nil {
		return nil, err
	}
	a, ok := r.auctions[threadID]
	if !ok {
		return nil, repositories.ErrAuctionNotFound
	}
	cp := *a
	cp.RemindersSent = append([]int64{}, a.RemindersSent...)
	return &cp, nil
}

func (r *memoryRepo) GetActive(_ context.Context) ([]*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Auction
	for _, a := range r.auctions {
		if a.Status == models.AuctionStatusActive {
			cp := *a
			cp.RemindersSent = append([]int64{}, a.RemindersSent...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetActiveByChannel(ctx context.Context, channelID string) ([]*models.Auction, error) {
	all, err := r.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Auction
	for _, a := range all {
		if a.ChannelID == channelID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) CommittedTotal(_ context.Context, bidderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, a := range r.auctions {
		if a.Status == models.AuctionStatusActive && a.CurrentBidderID == bidderID {
			total += a.CurrentBid
		}
	}
	return total, nil
}

func (r *memoryRepo) UpdateBid(_ context.Context, threadID, bidderID, bidderName string, amount int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[threadID]
	if !ok || a.Status != models.AuctionStatusActive {
		return repositories.ErrAuctionNotFound
	}
	a.CurrentBid = amount
	a.CurrentBidderID = bidderID
	a.CurrentBidderName = bidderName
	a.LastBidAt = at
	a.RemindersSent = []int64{}
	return nil
}

func (r *memoryRepo) MarkResolved(_ context.Context, threadID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[threadID]
	if !ok || a.Status != models.AuctionStatusActive {
		return false, nil
	}
	a.Status = models.AuctionStatusCompleted
	return true, nil
}

func (r *memoryRepo) MarkReminderSent(_ context.Context, threadID string, milestoneSeconds int64, lastBidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[threadID]
	if !ok || a.Status != models.AuctionStatusActive || !a.LastBidAt.Equal(lastBidAt) {
		return false, nil
	}
	a.RemindersSent = append(a.RemindersSent, milestoneSeconds)
	return true, nil
}

func (r *memoryRepo) SetMessageID(_ context.Context, threadID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[threadID]; ok {
		a.MessageID = messageID
	}
	return nil
}

// memoryLedger is an in-memory BudgetLedger that counts debits per person.
type memoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	debits   map[string][]int64
	records  []ledger.CompletedAuction
	debitErr error
}

func newMemoryLedger(balances map[string]int64) *memoryLedger {
	return &memoryLedger{
		balances: balances,
		debits:   make(map[string][]int64),
	}
}

func (l *memoryLedger) Balance(_ context.Context, personID string) (int64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[personID]
	return balance, ok, nil
}

func (l *memoryLedger) AllBalances(_ context.Context) ([]ledger.BudgetRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ledger.BudgetRecord
	for id, balance := range l.balances {
		out = append(out, ledger.BudgetRecord{PersonID: id, DisplayName: id, Balance: balance})
	}
	return out, nil
}

func (l *memoryLedger) Debit(_ context.Context, personID string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.debitErr != nil {
		return l.debitErr
	}
	l.balances[personID] -= amount
	l.debits[personID] = append(l.debits[personID], amount)
	return nil
}

func (l *memoryLedger) AppendCompletedAuction(_ context.Context, record ledger.CompletedAuction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

func (l *memoryLedger) Refresh() {}

func (l *memoryLedger) debitCount(personID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.debits[personID])
}

// memorySurface records every Discord call instead of making it.
type memorySurface struct {
	mu           sync.Mutex
	nextID       uint64
	posts        map[snowflake.ID][]string
	locked       map[snowflake.ID]bool
	members      map[snowflake.ID][]snowflake.ID
	removed      map[snowflake.ID][]snowflake.ID
	pinned       []snowflake.ID
	editFailures map[snowflake.ID]error
}

func newMemorySurface() *memorySurface {
	return &memorySurface{
		nextID:       1000,
		posts:        make(map[snowflake.ID][]string),
		locked:       make(map[snowflake.ID]bool),
		members:      make(map[snowflake.ID][]snowflake.ID),
		removed:      make(map[snowflake.ID][]snowflake.ID),
		editFailures: make(map[snowflake.ID]error),
	}
}

func (s *memorySurface) newID() snowflake.ID {
	s.nextID++
	return snowflake.ID(s.nextID)
}

func (s *memorySurface) CreateAuctionThread(_ context.Context, _ snowflake.ID, _ string) (snowflake.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newID(), nil
}

func (s *memorySurface) PostMessage(_ context.Context, channelID snowflake.ID, msg discord.MessageCreate) (snowflake.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content := msg.Content
	if content == "" && len(msg.Embeds) > 0 {
		content = msg.Embeds[0].Title
	}
	s.posts[channelID] = append(s.posts[channelID], content)
	return s.newID(), nil
}

func (s *memorySurface) EditMessage(_ context.Context, _, messageID snowflake.ID, _ discord.MessageUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editFailures[messageID]
}

func (s *memorySurface) PinMessage(_ context.Context, _, messageID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = append(s.pinned, messageID)
	return nil
}

func (s *memorySurface) LockThread(_ context.Context, threadID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked[threadID] = true
	return nil
}

func (s *memorySurface) ThreadMembers(_ context.Context, threadID snowflake.ID) ([]snowflake.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]snowflake.ID{}, s.members[threadID]...), nil
}

func (s *memorySurface) AddThreadMember(_ context.Context, threadID, userID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[threadID] = append(s.members[threadID], userID)
	return nil
}

func (s *memorySurface) RemoveThreadMember(_ context.Context, threadID, userID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[threadID] = append(s.removed[threadID], userID)
	return nil
}

func (s *memorySurface) postCount(channelID snowflake.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts[channelID])
}

// memoryPinnedRepo backs the publisher in tests.
type memoryPinnedRepo struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryPinnedRepo() *memoryPinnedRepo {
	return &memoryPinnedRepo{entries: make(map[string]string)}
}

func (r *memoryPinnedRepo) key(kind models.PinnedKind, channelID string) string {
	return string(kind) + "/" + channelID
}

func (r *memoryPinnedRepo) Get(_ context.Context, kind models.PinnedKind, channelID string) (*models.PinnedMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messageID, ok := r.entries[r.key(kind, channelID)]
	if !ok {
		return nil, repositories.ErrPinnedMessageNotFound
	}
	return &models.PinnedMessage{Kind: kind, ChannelID: channelID, MessageID: messageID}, nil
}

func (r *memoryPinnedRepo) Set(_ context.Context, kind models.PinnedKind, channelID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.key(kind, channelID)] = messageID
	return nil
}
