package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuctionTimeLeft(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Auction{LastBidAt: now.Add(-20 * time.Hour)}

	require.Equal(t, now.Add(4*time.Hour), a.ExpiresAt(24*time.Hour))
	require.Equal(t, 4*time.Hour, a.TimeLeft(now, 24*time.Hour))

	expired := &Auction{LastBidAt: now.Add(-30 * time.Hour)}
	require.Equal(t, time.Duration(0), expired.TimeLeft(now, 24*time.Hour),
		"time left floors at zero")
}

func TestAuctionReminderSent(t *testing.T) {
	a := &Auction{RemindersSent: []int64{21600}}
	require.True(t, a.ReminderSent(6*time.Hour))
	require.False(t, a.ReminderSent(time.Hour))
}
