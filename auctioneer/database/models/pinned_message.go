package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PinnedKind string

const (
	PinnedKindAuctions PinnedKind = "auctions"
	PinnedKindBalances PinnedKind = "balances"
)

// PinnedMessage records which message currently holds a pinned summary in a
// channel, so the lists survive restarts instead of being re-posted.
type PinnedMessage struct {
	bun.BaseModel `bun:"table:pinned_messages,alias:pm"`

	Kind      PinnedKind `bun:"kind,pk"`
	ChannelID string     `bun:"channel_id,pk"`
	MessageID string     `bun:"message_id,notnull"`

	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
