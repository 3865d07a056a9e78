// Package ledger provides access to the external budget store. The
// spreadsheet is the source of truth for balances; everything local is a
// cache with a bounded freshness window.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPersonNotFound      = errors.New("person not found in budget ledger")
	ErrInsufficientBalance = errors.New("insufficient ledger balance")
)

// BudgetRecord is one row of the balance sheet.
type BudgetRecord struct {
	PersonID    string
	DisplayName string
	Balance     int64
}

// CompletedAuction is the row appended to the results sheet on resolution.
type CompletedAuction struct {
	PlayerName  string
	WinnerID    string
	WinnerName  string
	WinningBid  int64
	CompletedAt time.Time
}

// Client is the raw interface to the authoritative store.
type Client interface {
	ListBalances(ctx context.Context) ([]BudgetRecord, error)
	SetBalance(ctx context.Context, personID string, newBalance int64) error
	AppendCompletedAuction(ctx context.Context, record CompletedAuction) error
}
