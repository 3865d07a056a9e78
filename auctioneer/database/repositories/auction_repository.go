package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
)

// ErrAuctionNotFound is returned when a thread has no auction row.
var ErrAuctionNotFound = errors.New("auction not found")

type AuctionRepository interface {
	Create(ctx context.Context, auction *models.Auction) error
	GetByThread(ctx context.Context, threadID string) (*models.Auction, error)
	GetActive(ctx context.Context) ([]*models.Auction, error)
	GetActiveByChannel(ctx context.Context, channelID string) ([]*models.Auction, error)
	// CommittedTotal sums the bids a person currently holds as high bidder
	// across all active auctions.
	CommittedTotal(ctx context.Context, bidderID string) (int64, error)
	// UpdateBid installs a new high bid and clears the reminder history for
	// the fresh bid cycle. Only active auctions are touched.
	UpdateBid(ctx context.Context, threadID, bidderID, bidderName string, amount int64, at time.Time) error
	// MarkResolved flips an active auction to completed. It reports whether
	// this call made the transition, so exactly one caller wins the race.
	MarkResolved(ctx context.Context, threadID string) (bool, error)
	// MarkReminderSent records a fired milestone, guarded by the LastBidAt
	// the caller observed; a bid placed in between voids the record.
	MarkReminderSent(ctx context.Context, threadID string, milestoneSeconds int64, lastBidAt time.Time) (bool, error)
	SetMessageID(ctx context.Context, threadID, messageID string) error
}

type auctionRepository struct {
	db *bun.DB
}

func NewAuctionRepository(db *bun.DB) AuctionRepository {
	return &auctionRepository{db: db}
}

func (r *auctionRepository) Create(ctx context.Context, auction *models.Auction) error {
	now := time.Now()
	auction.Status = models.AuctionStatusActive
	auction.CreatedAt = now
	auction.UpdatedAt = now
	if auction.RemindersSent == nil {
		auction.RemindersSent = []int64{}
	}

	if _, err := r.db.NewInsert().Model(auction).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

func (r *auctionRepository) GetByThread(ctx context.Context, threadID string) (*models.Auction, error) {
	auction := new(models.Auction)
	err := r.db.NewSelect().
		Model(auction).
		Where("thread_id = ?", threadID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

func (r *auctionRepository) GetActive(ctx context.Context) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.NewSelect().
		Model(&auctions).
		Where("status = ?", models.AuctionStatusActive).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get active auctions: %w", err)
	}
	return auctions, nil
}

func (r *auctionRepository) GetActiveByChannel(ctx context.Context, channelID string) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.NewSelect().
		Model(&auctions).
		Where("channel_id = ? AND status = ?", channelID, models.AuctionStatusActive).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get active auctions for channel: %w", err)
	}
	return auctions, nil
}

func (r *auctionRepository) CommittedTotal(ctx context.Context, bidderID string) (int64, error) {
	var total sql.NullInt64
	err := r.db.NewSelect().
		Model((*models.Auction)(nil)).
		ColumnExpr("SUM(current_bid)").
		Where("status = ? AND current_bidder_id = ?", models.AuctionStatusActive, bidderID).
		Scan(ctx, &total)

	if err != nil {
		return 0, fmt.Errorf("failed to sum committed bids: %w", err)
	}
	return total.Int64, nil
}

func (r *auctionRepository) UpdateBid(ctx context.Context, threadID, bidderID, bidderName string, amount int64, at time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*models.Auction)(nil)).
		Set("current_bid = ?", amount).
		Set("current_bidder_id = ?", bidderID).
		Set("current_bidder_name = ?", bidderName).
		Set("last_bid_at = ?", at).
		Set("reminders_sent = ?", []int64{}).
		Set("updated_at = ?", time.Now()).
		Where("thread_id = ? AND status = ?", threadID, models.AuctionStatusActive).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update bid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAuctionNotFound
	}
	return nil
}

func (r *auctionRepository) MarkResolved(ctx context.Context, threadID string) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.Auction)(nil)).
		Set("status = ?", models.AuctionStatusCompleted).
		Set("updated_at = ?", time.Now()).
		Where("thread_id = ? AND status = ?", threadID, models.AuctionStatusActive).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to mark auction resolved: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *auctionRepository) MarkReminderSent(ctx context.Context, threadID string, milestoneSeconds int64, lastBidAt time.Time) (bool, error) {
	auction, err := r.GetByThread(ctx, threadID)
	if err != nil {
		return false, err
	}

	sent := append(append([]int64{}, auction.RemindersSent...), milestoneSeconds)
	res, err := r.db.NewUpdate().
		Model((*models.Auction)(nil)).
		Set("reminders_sent = ?", sent).
		Set("updated_at = ?", time.Now()).
		Where("thread_id = ? AND status = ? AND last_bid_at = ?", threadID, models.AuctionStatusActive, lastBidAt).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *auctionRepository) SetMessageID(ctx context.Context, threadID, messageID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Auction)(nil)).
		Set("message_id = ?", messageID).
		Set("updated_at = ?", time.Now()).
		Where("thread_id = ?", threadID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set auction message: %w", err)
	}
	return nil
}
