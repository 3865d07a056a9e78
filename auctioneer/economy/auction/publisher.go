package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
	"github.com/pomleague/auctioneer/auctioneer/database/repositories"
	"github.com/pomleague/auctioneer/auctioneer/ledger"
)

// BudgetLedger is the slice of the ledger adapter the engine needs.
type BudgetLedger interface {
	Balance(ctx context.Context, personID string) (int64, bool, error)
	AllBalances(ctx context.Context) ([]ledger.BudgetRecord, error)
	Debit(ctx context.Context, personID string, amount int64) error
	AppendCompletedAuction(ctx context.Context, record ledger.CompletedAuction) error
	Refresh()
}

// Publisher keeps the pinned "Active Auctions" and "POM Balances" embeds in
// the auction channel up to date. Each pinned message is tracked in the
// database and edited in place; a missing message is re-posted and re-pinned.
type Publisher struct {
	repo    repositories.AuctionRepository
	pinned  repositories.PinnedMessageRepository
	budgets BudgetLedger
	surface ThreadSurface

	channelID snowflake.ID
	expiry    time.Duration
	now       func() time.Time
}

func NewPublisher(
	repo repositories.AuctionRepository,
	pinned repositories.PinnedMessageRepository,
	budgets BudgetLedger,
	surface ThreadSurface,
	channelID snowflake.ID,
	expiry time.Duration,
) *Publisher {
	return &Publisher{
		repo:      repo,
		pinned:    pinned,
		budgets:   budgets,
		surface:   surface,
		channelID: channelID,
		expiry:    expiry,
		now:       time.Now,
	}
}

// RefreshAll re-renders both pinned summaries. Failures are logged per
// summary so one broken embed does not block the other.
func (p *Publisher) RefreshAll(ctx context.Context) {
	if err := p.RefreshAuctions(ctx); err != nil {
		slog.Error("Failed to refresh pinned auction list",
			slog.String("error", err.Error()))
	}
	if err := p.RefreshBalances(ctx); err != nil {
		slog.Error("Failed to refresh pinned balance list",
			slog.String("error", err.Error()))
	}
}

func (p *Publisher) RefreshAuctions(ctx context.Context) error {
	auctions, err := p.repo.GetActiveByChannel(ctx, p.channelID.String())
	if err != nil {
		return err
	}
	embed := p.auctionsEmbed(auctions)
	return p.upsertPinned(ctx, models.PinnedKindAuctions, embed)
}

func (p *Publisher) RefreshBalances(ctx context.Context) error {
	records, err := p.budgets.AllBalances(ctx)
	if err != nil {
		return err
	}
	committed := make(map[string]int64, len(records))
	for _, r := range records {
		total, err := p.repo.CommittedTotal(ctx, r.PersonID)
		if err != nil {
			return err
		}
		committed[r.PersonID] = total
	}
	embed := p.balancesEmbed(records, committed)
	return p.upsertPinned(ctx, models.PinnedKindBalances, embed)
}

func (p *Publisher) auctionsEmbed(auctions []*models.Auction) discord.Embed {
	now := p.now()
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].ExpiresAt(p.expiry).Before(auctions[j].ExpiresAt(p.expiry))
	})

	var sb strings.Builder
	for _, a := range auctions {
		fmt.Fprintf(&sb, "<#%s> **%s** — %s — %s left\n",
			a.ThreadID, a.PlayerName, formatBidLine(a),
			FormatTimeLeft(a.TimeLeft(now, p.expiry)))
	}
	if sb.Len() == 0 {
		sb.WriteString("No active auctions.")
	}

	return discord.NewEmbedBuilder().
		SetTitle("🏛️ Active Auctions").
		SetDescription(sb.String()).
		SetColor(colorGray).
		SetTimestamp(now).
		Build()
}

func (p *Publisher) balancesEmbed(records []ledger.BudgetRecord, committed map[string]int64) discord.Embed {
	sort.Slice(records, func(i, j int) bool {
		return records[i].DisplayName < records[j].DisplayName
	})

	var sb strings.Builder
	for _, r := range records {
		c := committed[r.PersonID]
		fmt.Fprintf(&sb, "**%s** — %d POM (%d committed, %d available)\n",
			r.DisplayName, r.Balance, c, r.Balance-c)
	}
	if sb.Len() == 0 {
		sb.WriteString("No balances recorded.")
	}

	return discord.NewEmbedBuilder().
		SetTitle("💰 POM Balances").
		SetDescription(sb.String()).
		SetColor(colorGray).
		SetTimestamp(p.now()).
		Build()
}

func (p *Publisher) upsertPinned(ctx context.Context, kind models.PinnedKind, embed discord.Embed) error {
	channelStr := p.channelID.String()

	existing, err := p.pinned.Get(ctx, kind, channelStr)
	if err == nil {
		messageID, parseErr := snowflake.Parse(existing.MessageID)
		if parseErr == nil {
			editErr := p.surface.EditMessage(ctx, p.channelID, messageID, discord.NewMessageUpdateBuilder().
				SetEmbeds(embed).
				Build())
			if editErr == nil {
				return nil
			}
			slog.Warn("Pinned summary missing, re-posting",
				slog.String("kind", string(kind)),
				slog.String("error", editErr.Error()))
		}
	} else if !errors.Is(err, repositories.ErrPinnedMessageNotFound) {
		return err
	}

	messageID, err := p.surface.PostMessage(ctx, p.channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build())
	if err != nil {
		return fmt.Errorf("failed to post pinned summary: %w", err)
	}
	if err := p.surface.PinMessage(ctx, p.channelID, messageID); err != nil {
		slog.Error("Failed to pin summary message",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}
	return p.pinned.Set(ctx, kind, channelStr, messageID.String())
}
