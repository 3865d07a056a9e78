package auction

import (
	"github.com/pomleague/auctioneer/auctioneer/database/models"
)

// BudgetSnapshot is the bidder's ledger state at validation time. Available
// budget is Balance minus Committed, where Committed sums the bidder's
// current high bids on other active auctions.
type BudgetSnapshot struct {
	Known     bool
	Balance   int64
	Committed int64
}

func (s BudgetSnapshot) Available() int64 {
	return s.Balance - s.Committed
}

// Validate checks a prospective bid against the auction state and the
// bidder's budget snapshot. Checks run in a fixed order so the caller can
// surface the first failure: closed auction, amount not above current bid,
// self-raise, unknown bidder, insufficient available budget.
func Validate(a *models.Auction, bidderID string, amount int64, snap BudgetSnapshot) error {
	if a.Status != models.AuctionStatusActive {
		return ErrAuctionClosed
	}
	if amount <= a.CurrentBid {
		return ErrBidTooLow
	}
	if a.CurrentBidderID != "" && a.CurrentBidderID == bidderID {
		return ErrSelfRaise
	}
	if !snap.Known {
		return ErrUnknownBidder
	}
	if amount > snap.Available() {
		return ErrInsufficientBudget
	}
	return nil
}
