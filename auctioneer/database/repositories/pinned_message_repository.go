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

var ErrPinnedMessageNotFound = errors.New("pinned message not found")

type PinnedMessageRepository interface {
	Get(ctx context.Context, kind models.PinnedKind, channelID string) (*models.PinnedMessage, error)
	Set(ctx context.Context, kind models.PinnedKind, channelID, messageID string) error
}

type pinnedMessageRepository struct {
	db *bun.DB
}

func NewPinnedMessageRepository(db *bun.DB) PinnedMessageRepository {
	return &pinnedMessageRepository{db: db}
}

func (r *pinnedMessageRepository) Get(ctx context.Context, kind models.PinnedKind, channelID string) (*models.PinnedMessage, error) {
	pinned := new(models.PinnedMessage)
	err := r.db.NewSelect().
		Model(pinned).
		Where("kind = ? AND channel_id = ?", kind, channelID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPinnedMessageNotFound
		}
		return nil, fmt.Errorf("failed to get pinned message: %w", err)
	}
	return pinned, nil
}

func (r *pinnedMessageRepository) Set(ctx context.Context, kind models.PinnedKind, channelID, messageID string) error {
	pinned := &models.PinnedMessage{
		Kind:      kind,
		ChannelID: channelID,
		MessageID: messageID,
		UpdatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(pinned).
		On("CONFLICT (kind, channel_id) DO UPDATE").
		Set("message_id = EXCLUDED.message_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to store pinned message: %w", err)
	}
	return nil
}
