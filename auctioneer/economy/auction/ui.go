package auction

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
)

const (
	colorGreen = 0x2ecc71
	colorGold  = 0xf1c40f
	colorRed   = 0xe74c3c
	colorGray  = 0x2b2d31
)

// FormatTimeLeft renders a remaining duration as "Xh Ym", "Xm" under an
// hour, or "Expired" at zero.
func FormatTimeLeft(d time.Duration) string {
	if d <= 0 {
		return "Expired"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// FormatWindow renders a configured window compactly, "24h" for whole
// hours, otherwise like FormatTimeLeft.
func FormatWindow(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours > 0 && minutes == 0:
		return fmt.Sprintf("%dh", hours)
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

// ColorForTimeLeft picks the status color: green with half a day or more
// remaining, gold down to three hours, red below that.
func ColorForTimeLeft(d time.Duration) int {
	switch {
	case d >= 12*time.Hour:
		return colorGreen
	case d >= 3*time.Hour:
		return colorGold
	default:
		return colorRed
	}
}

// StatusEmbed builds the per-thread auction status embed.
func StatusEmbed(a *models.Auction, now time.Time, expiry time.Duration) discord.Embed {
	if a.Status == models.AuctionStatusCompleted {
		return completedEmbed(a)
	}

	left := a.TimeLeft(now, expiry)
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🏛️ Auction: %s", a.PlayerName)).
		SetColor(ColorForTimeLeft(left)).
		AddField("Current Bid", formatBidLine(a), true).
		AddField("Time Left", FormatTimeLeft(left), true).
		SetFooter(fmt.Sprintf("Bids reset the %s timer", FormatWindow(expiry)), "").
		SetTimestamp(a.ExpiresAt(expiry))

	return builder.Build()
}

func completedEmbed(a *models.Auction) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🏛️ Auction Completed: %s", a.PlayerName)).
		SetColor(colorGray)
	if a.CurrentBidderID == "" {
		builder.SetDescription("Ended with no bids.")
	} else {
		builder.SetDescription(fmt.Sprintf("Won by <@%s> for **%d POM**.", a.CurrentBidderID, a.CurrentBid))
	}
	return builder.Build()
}

func formatBidLine(a *models.Auction) string {
	if a.CurrentBidderID == "" {
		return fmt.Sprintf("%d POM (no bids)", a.CurrentBid)
	}
	return fmt.Sprintf("%d POM by <@%s>", a.CurrentBid, a.CurrentBidderID)
}
