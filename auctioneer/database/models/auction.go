package models

import (
	"slices"
	"time"

	"github.com/uptrace/bun"
)

type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusCompleted AuctionStatus = "completed"
)

// Auction is one player up for bid, bound to a single Discord thread.
// RemindersSent holds the seconds-before-expiry milestones already fired
// for the current LastBidAt; it is cleared on every accepted bid.
type Auction struct {
	bun.BaseModel `bun:"table:auctions,alias:a"`

	ID                int64         `bun:"id,pk,autoincrement"`
	ThreadID          string        `bun:"thread_id,notnull,unique"`
	ChannelID         string        `bun:"channel_id,notnull"`
	GuildID           string        `bun:"guild_id,notnull"`
	PlayerName        string        `bun:"player_name,notnull"`
	CurrentBid        int64         `bun:"current_bid,notnull"`
	CurrentBidderID   string        `bun:"current_bidder_id"`
	CurrentBidderName string        `bun:"current_bidder_name"`
	MessageID         string        `bun:"message_id"`
	Status            AuctionStatus `bun:"status,notnull"`
	LastBidAt         time.Time     `bun:"last_bid_at,notnull"`
	RemindersSent     []int64       `bun:"reminders_sent,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ExpiresAt is the moment the auction resolves if no further bid lands.
func (a *Auction) ExpiresAt(expiry time.Duration) time.Time {
	return a.LastBidAt.Add(expiry)
}

// TimeLeft is the remaining bidding window, floored at zero.
func (a *Auction) TimeLeft(now time.Time, expiry time.Duration) time.Duration {
	left := a.ExpiresAt(expiry).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (a *Auction) ReminderSent(milestone time.Duration) bool {
	return slices.Contains(a.RemindersSent, int64(milestone.Seconds()))
}
