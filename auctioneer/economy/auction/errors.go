package auction

import "errors"

var (
	// ErrAuctionClosed is returned when a bid targets an auction that has
	// already completed.
	ErrAuctionClosed = errors.New("auction is closed")

	// ErrBidTooLow is returned when a bid does not exceed the current high
	// bid.
	ErrBidTooLow = errors.New("bid must be higher than the current bid")

	// ErrSelfRaise is returned when the current high bidder tries to raise
	// their own bid.
	ErrSelfRaise = errors.New("you are already the highest bidder")

	// ErrUnknownBidder is returned when the bidder has no row in the budget
	// ledger.
	ErrUnknownBidder = errors.New("bidder is not registered in the budget ledger")

	// ErrInsufficientBudget is returned when the bid exceeds the bidder's
	// available budget.
	ErrInsufficientBudget = errors.New("insufficient available budget")

	// ErrDuplicateThread is returned when registering a thread that already
	// hosts an auction.
	ErrDuplicateThread = errors.New("thread already hosts an auction")

	// ErrNotExpired is returned when resolving an auction whose inactivity
	// window has not elapsed.
	ErrNotExpired = errors.New("auction has not expired yet")
)
