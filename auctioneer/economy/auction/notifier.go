package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
)

// Notifier posts auction events into the auction thread and, for
// completions, into the main auction channel as well.
type Notifier struct {
	surface   ThreadSurface
	channelID snowflake.ID
	expiry    time.Duration
}

func NewNotifier(surface ThreadSurface, channelID snowflake.ID, expiry time.Duration) *Notifier {
	return &Notifier{surface: surface, channelID: channelID, expiry: expiry}
}

func (n *Notifier) NotifyBid(ctx context.Context, a *models.Auction, previousBidderID string) {
	msg := fmt.Sprintf("💰 <@%s> bid **%d POM** on **%s**. Timer reset to %s.",
		a.CurrentBidderID, a.CurrentBid, a.PlayerName, FormatWindow(n.expiry))
	if previousBidderID != "" {
		msg += fmt.Sprintf(" <@%s>, you have been outbid!", previousBidderID)
	}
	n.postThread(ctx, a.ThreadID, msg)
}

func (n *Notifier) NotifyReminder(ctx context.Context, a *models.Auction, left time.Duration) {
	msg := fmt.Sprintf("⏰ **%s** closes in %s. Current bid: %s.",
		a.PlayerName, FormatTimeLeft(left), formatBidLine(a))
	n.postThread(ctx, a.ThreadID, msg)
}

// NotifyCompletion announces the result in the thread and the channel.
func (n *Notifier) NotifyCompletion(ctx context.Context, a *models.Auction) {
	var msg string
	if a.CurrentBidderID == "" {
		msg = fmt.Sprintf("🏛️ Auction for **%s** ended with no bids.", a.PlayerName)
	} else {
		msg = fmt.Sprintf("🏛️ <@%s> won **%s** for **%d POM**!",
			a.CurrentBidderID, a.PlayerName, a.CurrentBid)
	}
	n.postThread(ctx, a.ThreadID, msg)
	n.post(ctx, n.channelID, msg)
}

// NotifyDebitFailure warns that the ledger could not be debited so the
// balance must be corrected by hand.
func (n *Notifier) NotifyDebitFailure(ctx context.Context, a *models.Auction, err error) {
	msg := fmt.Sprintf("⚠️ Could not deduct %d POM from <@%s> for **%s**: %v. Please fix the sheet manually.",
		a.CurrentBid, a.CurrentBidderID, a.PlayerName, err)
	n.postThread(ctx, a.ThreadID, msg)
	n.post(ctx, n.channelID, msg)
}

// postThread posts into an auction thread identified by its stored string ID.
func (n *Notifier) postThread(ctx context.Context, threadID string, content string) {
	id, err := snowflake.Parse(threadID)
	if err != nil {
		slog.Error("Invalid auction thread id",
			slog.String("thread_id", threadID),
			slog.String("error", err.Error()))
		return
	}
	n.post(ctx, id, content)
}

func (n *Notifier) post(ctx context.Context, channelID snowflake.ID, content string) {
	_, err := n.surface.PostMessage(ctx, channelID, discord.NewMessageCreateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		slog.Error("Failed to post auction notification",
			slog.String("channel_id", channelID.String()),
			slog.String("error", err.Error()))
	}
}
