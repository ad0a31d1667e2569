package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account identifies a participant or the owner. The empty Account means "none".
type Account string

// State is the lifecycle position of an auction.
type State string

const (
	StateOpen      State = "open"
	StateExpired   State = "expired"
	StateFinalized State = "finalized"
)

// Transferer moves value out of the auction's custody to an account.
// A non-nil error means the recipient rejected the transfer.
// Implementations may call back into the same Auction before returning.
type Transferer interface {
	Transfer(ctx context.Context, to Account, amount uint64) error
}

// TransfererFunc adapts a function to the Transferer interface.
type TransfererFunc func(ctx context.Context, to Account, amount uint64) error

// Transfer implements Transferer.
func (f TransfererFunc) Transfer(ctx context.Context, to Account, amount uint64) error {
	return f(ctx, to, amount)
}

// Record is a point-in-time copy of the auction record.
type Record struct {
	ID              uuid.UUID          `json:"id"`
	Owner           Account            `json:"owner"`
	ItemDescription string             `json:"item_description"`
	EndTime         time.Time          `json:"end_time"`
	HighestBid      uint64             `json:"highest_bid"`
	HighestBidder   Account            `json:"highest_bidder,omitempty"`
	Ended           bool               `json:"ended"`
	Deposits        map[Account]uint64 `json:"deposits"`
	Bids            map[Account]uint64 `json:"bids"`
	Participants    []Account          `json:"participants"`
	Balance         uint64             `json:"balance"`
}

// Totals tracks value flowing through custody.
// Received always equals PaidOut + Balance.
type Totals struct {
	Received uint64 `json:"received"`
	PaidOut  uint64 `json:"paid_out"`
	Balance  uint64 `json:"balance"`
}

// Refund describes one settled losing deposit.
type Refund struct {
	Bidder     Account `json:"bidder"`
	Deposit    uint64  `json:"deposit"`
	Commission uint64  `json:"commission"`
	Net        uint64  `json:"net"`
}
