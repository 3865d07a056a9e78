package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
	"github.com/pomleague/auctioneer/auctioneer/database/repositories"
	"github.com/pomleague/auctioneer/auctioneer/ledger"
)

// Manager owns every auction state transition. Both the slash commands and
// the expiry scheduler go through it, so the per-auction serialization and
// idempotency guarantees hold regardless of who triggered the transition.
type Manager struct {
	repo      repositories.AuctionRepository
	budgets   BudgetLedger
	surface   ThreadSurface
	notifier  *Notifier
	publisher *Publisher

	guildID   snowflake.ID
	channelID snowflake.ID
	expiry    time.Duration

	now func() time.Time

	// one mutex per auction thread ID, lazily created
	locks sync.Map
}

func NewManager(
	repo repositories.AuctionRepository,
	budgets BudgetLedger,
	guildID snowflake.ID,
	channelID snowflake.ID,
	expiry time.Duration,
) *Manager {
	return &Manager{
		repo:      repo,
		budgets:   budgets,
		guildID:   guildID,
		channelID: channelID,
		expiry:    expiry,
		now:       time.Now,
	}
}

// SetSurface wires the Discord-facing collaborators once the gateway client
// exists. Until then the Manager only serves state reads.
func (m *Manager) SetSurface(surface ThreadSurface, notifier *Notifier, publisher *Publisher) {
	m.surface = surface
	m.notifier = notifier
	m.publisher = publisher
}

func (m *Manager) Expiry() time.Duration { return m.expiry }

func (m *Manager) lockFor(threadID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(threadID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Start opens a fresh auction: the starter's initial amount is treated as a
// bid against an empty auction, so it is validated against their available
// budget before the thread is created.
func (m *Manager) Start(ctx context.Context, playerName string, initialBid int64, starterID snowflake.ID, starterName string) (*models.Auction, error) {
	snap, err := m.budgetSnapshot(ctx, starterID.String())
	if err != nil {
		return nil, err
	}
	probe := &models.Auction{Status: models.AuctionStatusActive}
	if err := Validate(probe, starterID.String(), initialBid, snap); err != nil {
		return nil, err
	}

	threadID, err := m.surface.CreateAuctionThread(ctx, m.channelID, fmt.Sprintf("Auction: %s", playerName))
	if err != nil {
		return nil, err
	}

	now := m.now()
	auction := &models.Auction{
		ThreadID:          threadID.String(),
		ChannelID:         m.channelID.String(),
		GuildID:           m.guildID.String(),
		PlayerName:        playerName,
		CurrentBid:        initialBid,
		CurrentBidderID:   starterID.String(),
		CurrentBidderName: starterName,
		Status:            models.AuctionStatusActive,
		LastBidAt:         now,
	}
	if err := m.repo.Create(ctx, auction); err != nil {
		return nil, err
	}

	m.postStatusEmbed(ctx, auction)
	m.publisher.RefreshAll(ctx)

	slog.Info("Auction started",
		slog.String("player", playerName),
		slog.String("thread_id", auction.ThreadID),
		slog.Int64("initial_bid", initialBid))
	return auction, nil
}

// Register adopts an already-running auction thread. LastBidAt is
// back-computed so the auction expires hoursRemaining from now.
func (m *Manager) Register(ctx context.Context, threadID snowflake.ID, playerName string, currentBid int64, bidderID, bidderName string, remaining time.Duration) (*models.Auction, error) {
	if _, err := m.repo.GetByThread(ctx, threadID.String()); err == nil {
		return nil, ErrDuplicateThread
	} else if !errors.Is(err, repositories.ErrAuctionNotFound) {
		return nil, err
	}

	now := m.now()
	auction := &models.Auction{
		ThreadID:          threadID.String(),
		ChannelID:         m.channelID.String(),
		GuildID:           m.guildID.String(),
		PlayerName:        playerName,
		CurrentBid:        currentBid,
		CurrentBidderID:   bidderID,
		CurrentBidderName: bidderName,
		Status:            models.AuctionStatusActive,
		LastBidAt:         now.Add(remaining).Add(-m.expiry),
	}
	if err := m.repo.Create(ctx, auction); err != nil {
		return nil, err
	}

	m.postStatusEmbed(ctx, auction)
	m.publisher.RefreshAll(ctx)

	slog.Info("Auction registered",
		slog.String("player", playerName),
		slog.String("thread_id", auction.ThreadID),
		slog.Duration("remaining", remaining))
	return auction, nil
}

// PlaceBid validates and applies a bid. The ledger round-trip happens before
// the per-auction lock is taken; the auction state and the bidder's committed
// total are re-read under the lock so the accept decision and the mutation
// come from one consistent snapshot.
func (m *Manager) PlaceBid(ctx context.Context, threadID snowflake.ID, bidderID snowflake.ID, bidderName string, amount int64) (*models.Auction, error) {
	balance, known, err := m.budgets.Balance(ctx, bidderID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read budget ledger: %w", err)
	}

	var (
		auction        *models.Auction
		previousBidder string
	)
	err = func() error {
		mu := m.lockFor(threadID.String())
		mu.Lock()
		defer mu.Unlock()

		auction, err = m.repo.GetByThread(ctx, threadID.String())
		if err != nil {
			return err
		}

		committed, err := m.repo.CommittedTotal(ctx, bidderID.String())
		if err != nil {
			return err
		}
		snap := BudgetSnapshot{Known: known, Balance: balance, Committed: committed}

		if err := Validate(auction, bidderID.String(), amount, snap); err != nil {
			return err
		}

		previousBidder = auction.CurrentBidderID
		now := m.now()
		if err := m.repo.UpdateBid(ctx, threadID.String(), bidderID.String(), bidderName, amount, now); err != nil {
			return err
		}

		auction.CurrentBid = amount
		auction.CurrentBidderID = bidderID.String()
		auction.CurrentBidderName = bidderName
		auction.LastBidAt = now
		auction.RemindersSent = nil
		return nil
	}()
	if err != nil {
		return nil, err
	}

	m.notifier.NotifyBid(ctx, auction, previousBidder)
	m.refreshStatusEmbed(ctx, auction)
	m.publisher.RefreshAll(ctx)

	slog.Info("Bid accepted",
		slog.String("player", auction.PlayerName),
		slog.String("bidder", bidderName),
		slog.Int64("amount", amount))
	return auction, nil
}

// Resolve completes an expired auction. The conditional status flip in the
// store decides a single winner among racing callers; ledger debit, result
// record, announcements, and thread lockdown run only for that winner. A
// debit failure is announced with a manual-fix warning and never retried, so
// the winner is charged at most once.
func (m *Manager) Resolve(ctx context.Context, threadID string) error {
	var auction *models.Auction
	won, err := func() (bool, error) {
		mu := m.lockFor(threadID)
		mu.Lock()
		defer mu.Unlock()

		var err error
		auction, err = m.repo.GetByThread(ctx, threadID)
		if err != nil {
			if errors.Is(err, repositories.ErrAuctionNotFound) {
				return false, nil
			}
			return false, err
		}
		if auction.Status != models.AuctionStatusActive {
			return false, nil
		}
		if m.now().Before(auction.ExpiresAt(m.expiry)) {
			return false, ErrNotExpired
		}
		return m.repo.MarkResolved(ctx, threadID)
	}()
	if err != nil || !won {
		return err
	}
	auction.Status = models.AuctionStatusCompleted

	if auction.CurrentBidderID != "" {
		if err := m.budgets.AppendCompletedAuction(ctx, ledger.CompletedAuction{
			PlayerName:  auction.PlayerName,
			WinnerID:    auction.CurrentBidderID,
			WinnerName:  auction.CurrentBidderName,
			WinningBid:  auction.CurrentBid,
			CompletedAt: m.now(),
		}); err != nil {
			slog.Error("Failed to append completion record",
				slog.String("player", auction.PlayerName),
				slog.String("error", err.Error()))
		}

		if err := m.budgets.Debit(ctx, auction.CurrentBidderID, auction.CurrentBid); err != nil {
			m.notifier.NotifyDebitFailure(ctx, auction, err)
		}
	}

	m.notifier.NotifyCompletion(ctx, auction)
	m.refreshStatusEmbed(ctx, auction)
	m.lockDownThread(ctx, auction)
	m.publisher.RefreshAll(ctx)

	slog.Info("Auction resolved",
		slog.String("player", auction.PlayerName),
		slog.String("winner", auction.CurrentBidderName),
		slog.Int64("amount", auction.CurrentBid))
	return nil
}

// ActiveAuctions lists open auctions for the command surface.
func (m *Manager) ActiveAuctions(ctx context.Context) ([]*models.Auction, error) {
	return m.repo.GetActive(ctx)
}

// RefreshStatusEmbeds re-renders every active auction's status embed so the
// time-left field and its color stay current between bids.
func (m *Manager) RefreshStatusEmbeds(ctx context.Context) error {
	auctions, err := m.repo.GetActive(ctx)
	if err != nil {
		return err
	}
	for _, a := range auctions {
		m.refreshStatusEmbed(ctx, a)
	}
	return nil
}

// BudgetFor exposes a bidder's budget snapshot for display.
func (m *Manager) BudgetFor(ctx context.Context, personID string) (BudgetSnapshot, error) {
	return m.budgetSnapshot(ctx, personID)
}

func (m *Manager) budgetSnapshot(ctx context.Context, personID string) (BudgetSnapshot, error) {
	balance, known, err := m.budgets.Balance(ctx, personID)
	if err != nil {
		return BudgetSnapshot{}, fmt.Errorf("failed to read budget ledger: %w", err)
	}
	committed, err := m.repo.CommittedTotal(ctx, personID)
	if err != nil {
		return BudgetSnapshot{}, err
	}
	return BudgetSnapshot{Known: known, Balance: balance, Committed: committed}, nil
}

func (m *Manager) postStatusEmbed(ctx context.Context, auction *models.Auction) {
	threadID, err := snowflake.Parse(auction.ThreadID)
	if err != nil {
		return
	}
	messageID, err := m.surface.PostMessage(ctx, threadID, discord.NewMessageCreateBuilder().
		SetEmbeds(StatusEmbed(auction, m.now(), m.expiry)).
		Build())
	if err != nil {
		slog.Error("Failed to post auction status embed",
			slog.String("thread_id", auction.ThreadID),
			slog.String("error", err.Error()))
		return
	}
	auction.MessageID = messageID.String()
	if err := m.repo.SetMessageID(ctx, auction.ThreadID, auction.MessageID); err != nil {
		slog.Error("Failed to store status message id",
			slog.String("thread_id", auction.ThreadID),
			slog.String("error", err.Error()))
	}
}

// refreshStatusEmbed edits the thread's status embed in place, falling back
// to posting a new one if none was recorded.
func (m *Manager) refreshStatusEmbed(ctx context.Context, auction *models.Auction) {
	if auction.MessageID == "" {
		m.postStatusEmbed(ctx, auction)
		return
	}
	threadID, err := snowflake.Parse(auction.ThreadID)
	if err != nil {
		return
	}
	messageID, err := snowflake.Parse(auction.MessageID)
	if err != nil {
		return
	}
	err = m.surface.EditMessage(ctx, threadID, messageID, discord.NewMessageUpdateBuilder().
		SetEmbeds(StatusEmbed(auction, m.now(), m.expiry)).
		Build())
	if err != nil {
		slog.Error("Failed to update auction status embed",
			slog.String("thread_id", auction.ThreadID),
			slog.String("error", err.Error()))
	}
}

// lockDownThread archives the thread and removes everyone but the winner so
// the result cannot be disturbed.
func (m *Manager) lockDownThread(ctx context.Context, auction *models.Auction) {
	threadID, err := snowflake.Parse(auction.ThreadID)
	if err != nil {
		return
	}

	members, err := m.surface.ThreadMembers(ctx, threadID)
	if err != nil {
		slog.Error("Failed to list thread members",
			slog.String("thread_id", auction.ThreadID),
			slog.String("error", err.Error()))
	} else {
		for _, userID := range members {
			if userID.String() == auction.CurrentBidderID {
				continue
			}
			if err := m.surface.RemoveThreadMember(ctx, threadID, userID); err != nil {
				slog.Warn("Failed to remove thread member",
					slog.String("thread_id", auction.ThreadID),
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()))
			}
		}
	}

	if err := m.surface.LockThread(ctx, threadID); err != nil {
		slog.Error("Failed to lock auction thread",
			slog.String("thread_id", auction.ThreadID),
			slog.String("error", err.Error()))
	}
}
