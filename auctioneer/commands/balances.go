package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/pomleague/auctioneer/auctioneer"
)

var BalancesCommand = discord.SlashCommandCreate{
	Name:        "balances",
	Description: "💰 Show everyone's POM balances",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionBool{
			Name:        "refresh",
			Description: "Re-read the balance sheet instead of using the cache",
			Required:    false,
		},
	},
}

func BalancesHandler(b *auctioneer.Bot) handler.CommandHandler {
	return func(event *handler.CommandEvent) error {
		data := event.SlashCommandInteractionData()
		if refresh, ok := data.OptBool("refresh"); ok && refresh {
			b.Ledger.Refresh()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		records, err := b.Ledger.AllBalances(ctx)
		if err != nil {
			return rejectEphemeral(event, "Failed to read the balance sheet. Please try again later.")
		}

		sort.Slice(records, func(i, j int) bool {
			return records[i].DisplayName < records[j].DisplayName
		})

		var sb strings.Builder
		for _, r := range records {
			committed, err := b.AuctionRepository.CommittedTotal(ctx, r.PersonID)
			if err != nil {
				return rejectEphemeral(event, "Failed to compute committed bids. Please try again later.")
			}
			fmt.Fprintf(&sb, "**%s** — %d POM (%d committed, %d available)\n",
				r.DisplayName, r.Balance, committed, r.Balance-committed)
		}
		if sb.Len() == 0 {
			sb.WriteString("No balances recorded.")
		}

		go b.Publisher.RefreshAll(context.Background())

		return event.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{discord.NewEmbedBuilder().
				SetTitle("💰 POM Balances").
				SetDescription(sb.String()).
				SetColor(0x2b2d31).
				SetTimestamp(time.Now()).
				Build()},
		})
	}
}
