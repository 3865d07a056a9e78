package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"

	"github.com/pomleague/auctioneer/auctioneer"
)

const membersPerPage = 20

var DiscordIDsCommand = discord.SlashCommandCreate{
	Name:        "discord-ids",
	Description: "List server members with their Discord IDs for the balance sheet",
}

// DiscordIDsHandler pages through every guild member so admins can copy IDs
// into the balance sheet's ID column.
func DiscordIDsHandler(b *auctioneer.Bot) handler.CommandHandler {
	return func(event *handler.CommandEvent) error {
		guildID := b.Cfg.Bot.GuildID
		if id := event.GuildID(); id != nil {
			guildID = *id
		}

		var members []discord.Member
		after := snowflake.ID(0)
		for {
			page, err := b.Client.Rest().GetMembers(guildID, 1000, after)
			if err != nil {
				return rejectEphemeral(event, "Failed to list server members.")
			}
			members = append(members, page...)
			if len(page) < 1000 {
				break
			}
			after = page[len(page)-1].User.ID
		}

		if len(members) == 0 {
			return rejectEphemeral(event, "No members found.")
		}

		totalPages := int(math.Ceil(float64(len(members)) / float64(membersPerPage)))

		return b.Paginator.Create(event.Respond, paginator.Pages{
			ID:      event.ID().String(),
			Creator: event.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * membersPerPage
				end := min(start+membersPerPage, len(members))

				var sb strings.Builder
				for _, m := range members[start:end] {
					sb.WriteString(fmt.Sprintf("**%s** — `%s`\n", m.User.Username, m.User.ID))
				}

				embed.
					SetTitle("🪪 Discord IDs").
					SetDescription(sb.String()).
					SetColor(0x2b2d31).
					SetFooter(fmt.Sprintf("Page %d/%d • %d members", page+1, totalPages, len(members)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
