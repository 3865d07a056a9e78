package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/pomleague/auctioneer/auctioneer"
	"github.com/pomleague/auctioneer/auctioneer/database/repositories"
	"github.com/pomleague/auctioneer/auctioneer/economy/auction"
)

var BidCommand = discord.SlashCommandCreate{
	Name:        "bid",
	Description: "Place a bid in this auction thread",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "Your bid in POM",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

func BidHandler(b *auctioneer.Bot) handler.CommandHandler {
	return func(event *handler.CommandEvent) error {
		data := event.SlashCommandInteractionData()
		amount := int64(data.Int("amount"))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		threadID := event.Channel().ID()
		a, err := b.AuctionManager.PlaceBid(ctx, threadID, event.User().ID, event.User().Username, amount)
		if err != nil {
			if errors.Is(err, repositories.ErrAuctionNotFound) {
				return rejectEphemeral(event, "There is no auction running in this thread. Use /bid inside an auction thread.")
			}
			return rejectEphemeral(event, bidRejectionMessage(ctx, b, event.User().ID.String(), amount, err))
		}

		return event.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("✅ Your bid of **%d POM** on **%s** is in. The %s timer has been reset.",
				amount, a.PlayerName, auction.FormatWindow(b.AuctionManager.Expiry())),
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

// bidRejectionMessage turns a validation error into the wording shown to the
// bidder. Budget rejections include the balance breakdown so the bidder can
// see what is committed elsewhere.
func bidRejectionMessage(ctx context.Context, b *auctioneer.Bot, userID string, amount int64, err error) string {
	switch {
	case errors.Is(err, auction.ErrAuctionClosed):
		return "This auction has already ended."
	case errors.Is(err, auction.ErrBidTooLow):
		return "Your bid was too low. It must be higher than the current bid."
	case errors.Is(err, auction.ErrSelfRaise):
		return "You are already the highest bidder. You cannot raise your own bid."
	case errors.Is(err, auction.ErrUnknownBidder):
		return "You are not registered in the POM balance sheet. Ask an admin to add you."
	case errors.Is(err, auction.ErrInsufficientBudget):
		snap, snapErr := b.AuctionManager.BudgetFor(ctx, userID)
		if snapErr != nil {
			return fmt.Sprintf("You cannot afford a bid of %d POM.", amount)
		}
		return fmt.Sprintf("You cannot afford a bid of %d POM. Balance: %d, committed to other auctions: %d, available: %d.",
			amount, snap.Balance, snap.Committed, snap.Available())
	default:
		return fmt.Sprintf("Failed to place bid: %v", err)
	}
}
