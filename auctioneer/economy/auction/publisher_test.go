package auction

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"

	"github.com/pomleague/auctioneer/auctioneer/database/models"
)

func TestPublisherCreatesAndPinsSummaries(t *testing.T) {
	repo := newMemoryRepo()
	led := newMemoryLedger(map[string]int64{"100": 500})
	surface := newMemorySurface()
	pinned := newMemoryPinnedRepo()
	p := NewPublisher(repo, pinned, led, surface, testChannelID, testExpiry)

	ctx := context.Background()
	p.RefreshAll(ctx)

	require.Len(t, surface.pinned, 2, "both summaries pinned on first refresh")

	_, err := pinned.Get(ctx, models.PinnedKindAuctions, testChannelID.String())
	require.NoError(t, err)
	_, err = pinned.Get(ctx, models.PinnedKindBalances, testChannelID.String())
	require.NoError(t, err)
}

func TestPublisherEditsExistingSummary(t *testing.T) {
	repo := newMemoryRepo()
	led := newMemoryLedger(map[string]int64{"100": 500})
	surface := newMemorySurface()
	pinned := newMemoryPinnedRepo()
	p := NewPublisher(repo, pinned, led, surface, testChannelID, testExpiry)

	ctx := context.Background()
	p.RefreshAll(ctx)
	posts := surface.postCount(testChannelID)

	p.RefreshAll(ctx)
	require.Equal(t, posts, surface.postCount(testChannelID),
		"later refreshes edit in place instead of re-posting")
}

func TestPublisherRepostsDeletedSummary(t *testing.T) {
	repo := newMemoryRepo()
	led := newMemoryLedger(nil)
	surface := newMemorySurface()
	pinned := newMemoryPinnedRepo()
	p := NewPublisher(repo, pinned, led, surface, testChannelID, testExpiry)

	ctx := context.Background()
	require.NoError(t, p.RefreshAuctions(ctx))

	entry, err := pinned.Get(ctx, models.PinnedKindAuctions, testChannelID.String())
	require.NoError(t, err)
	oldID := snowflake.MustParse(entry.MessageID)
	surface.editFailures[oldID] = fmt.Errorf("unknown message")

	require.NoError(t, p.RefreshAuctions(ctx))

	entry, err = pinned.Get(ctx, models.PinnedKindAuctions, testChannelID.String())
	require.NoError(t, err)
	require.NotEqual(t, oldID.String(), entry.MessageID,
		"a deleted summary is re-posted under a new message id")
}

func TestPublisherAuctionsEmbedOrdersByExpiry(t *testing.T) {
	repo := newMemoryRepo()
	led := newMemoryLedger(nil)
	surface := newMemorySurface()
	p := NewPublisher(repo, newMemoryPinnedRepo(), led, surface, testChannelID, testExpiry)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	soon := &models.Auction{ThreadID: "1", PlayerName: "Late", Status: models.AuctionStatusActive, LastBidAt: now.Add(-23 * time.Hour)}
	later := &models.Auction{ThreadID: "2", PlayerName: "Early", Status: models.AuctionStatusActive, LastBidAt: now.Add(-time.Hour)}

	embed := p.auctionsEmbed([]*models.Auction{later, soon})
	require.Less(t,
		strings.Index(embed.Description, "Late"),
		strings.Index(embed.Description, "Early"),
		"the auction closest to expiry is listed first")
}
