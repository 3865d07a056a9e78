package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/pomleague/auctioneer/auctioneer"
	"github.com/pomleague/auctioneer/auctioneer/economy/auction"
	"github.com/pomleague/auctioneer/auctioneer/handlers"
)

var AuctionCommand = discord.SlashCommandCreate{
	Name:        "auction",
	Description: "Run player auctions",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "start",
			Description: "Start a new auction for a player",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "player",
					Description: "Name of the player up for auction",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "bid",
					Description: "Your opening bid in POM",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "register",
			Description: "Adopt an auction already running in this thread",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "player",
					Description: "Name of the player up for auction",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "current_bid",
					Description: "The standing high bid in POM",
					Required:    true,
					MinValue:    intPtr(0),
				},
				discord.ApplicationCommandOptionUser{
					Name:        "current_bidder",
					Description: "Holder of the standing high bid",
					Required:    false,
				},
				discord.ApplicationCommandOptionFloat{
					Name:        "hours_remaining",
					Description: "Hours until this auction expires",
					Required:    true,
					MinValue:    floatPtr(0.1),
					MaxValue:    floatPtr(24),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List all active auctions",
		},
	},
}

type AuctionHandler struct {
	bot *auctioneer.Bot
}

func NewAuctionHandler(b *auctioneer.Bot) *AuctionHandler {
	return &AuctionHandler{bot: b}
}

func (h *AuctionHandler) Register(r handler.Router) {
	r.Route("/auction", func(r handler.Router) {
		r.Command("/start", handlers.WrapWithLogging("auction start", h.HandleStart))
		r.Command("/register", handlers.WrapWithLogging("auction register", h.HandleRegister))
		r.Command("/list", handlers.WrapWithLogging("auction list", h.HandleList))
	})
}

func (h *AuctionHandler) HandleStart(event *handler.CommandEvent) error {
	if msg, ok := h.guardChannel(event); !ok {
		return rejectEphemeral(event, msg)
	}

	data := event.SlashCommandInteractionData()
	player := strings.TrimSpace(data.String("player"))
	bid := int64(data.Int("bid"))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a, err := h.bot.AuctionManager.Start(ctx, player, bid, event.User().ID, event.User().Username)
	if err != nil {
		return rejectEphemeral(event, h.rejectionMessage(ctx, event.User().ID.String(), bid, err))
	}

	return event.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("🏛️ Auction for **%s** started in <#%s> with your opening bid of %d POM.",
			player, a.ThreadID, bid),
	})
}

func (h *AuctionHandler) HandleRegister(event *handler.CommandEvent) error {
	if msg, ok := h.guardChannel(event); !ok {
		return rejectEphemeral(event, msg)
	}

	data := event.SlashCommandInteractionData()
	player := strings.TrimSpace(data.String("player"))
	currentBid := int64(data.Int("current_bid"))
	remaining := time.Duration(data.Float("hours_remaining") * float64(time.Hour))

	var bidderID, bidderName string
	if user, ok := data.OptUser("current_bidder"); ok {
		bidderID = user.ID.String()
		bidderName = user.Username
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	threadID := event.Channel().ID()
	a, err := h.bot.AuctionManager.Register(ctx, threadID, player, currentBid, bidderID, bidderName, remaining)
	if err != nil {
		if errors.Is(err, auction.ErrDuplicateThread) {
			return rejectEphemeral(event, "This thread already hosts an auction.")
		}
		return rejectEphemeral(event, fmt.Sprintf("Failed to register auction: %v", err))
	}

	return event.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("🏛️ Registered **%s** with a standing bid of %d POM, expiring in %s.",
			player, currentBid, auction.FormatTimeLeft(a.TimeLeft(time.Now(), h.bot.AuctionManager.Expiry()))),
	})
}

func (h *AuctionHandler) HandleList(event *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	auctions, err := h.bot.AuctionManager.ActiveAuctions(ctx)
	if err != nil {
		return rejectEphemeral(event, "Failed to list auctions. Please try again later.")
	}

	now := time.Now()
	expiry := h.bot.AuctionManager.Expiry()
	var sb strings.Builder
	for _, a := range auctions {
		fmt.Fprintf(&sb, "<#%s> **%s** — %d POM — %s left\n",
			a.ThreadID, a.PlayerName, a.CurrentBid,
			auction.FormatTimeLeft(a.TimeLeft(now, expiry)))
	}
	if sb.Len() == 0 {
		sb.WriteString("No active auctions.")
	}

	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{discord.NewEmbedBuilder().
			SetTitle("🏛️ Active Auctions").
			SetDescription(sb.String()).
			SetColor(0x2b2d31).
			Build()},
	})
}

// guardChannel restricts auction commands to the configured auction channel
// and its threads.
func (h *AuctionHandler) guardChannel(event *handler.CommandEvent) (string, bool) {
	if channelAllowed(event.Channel(), h.bot.Cfg.Bot.AuctionChannelID) {
		return "", true
	}
	return fmt.Sprintf("Auction commands only work in <#%s> and its threads.", h.bot.Cfg.Bot.AuctionChannelID), false
}

func channelAllowed(channel discord.InteractionChannel, auctionChannelID snowflake.ID) bool {
	if channel.ID() == auctionChannelID {
		return true
	}
	if thread, ok := channel.MessageChannel.(discord.GuildThread); ok {
		if parent := thread.ParentID(); parent != nil && *parent == auctionChannelID {
			return true
		}
	}
	return false
}

func (h *AuctionHandler) rejectionMessage(ctx context.Context, userID string, amount int64, err error) string {
	return bidRejectionMessage(ctx, h.bot, userID, amount, err)
}

func rejectEphemeral(event *handler.CommandEvent, content string) error {
	return event.CreateMessage(discord.MessageCreate{
		Content: content,
		Flags:   discord.MessageFlagEphemeral,
	})
}
