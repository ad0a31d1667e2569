package core

import (
	"context"
	"fmt"
)

// State reports where the auction is in its lifecycle at the current time.
func (a *Auction) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *Auction) stateLocked() State {
	switch {
	case a.ended:
		return StateFinalized
	case a.now().Before(a.endTime):
		return StateOpen
	default:
		return StateExpired
	}
}

// requireOpen guards bid placement and excess withdrawal.
func (a *Auction) requireOpen() error {
	if a.stateLocked() != StateOpen {
		return ErrAuctionClosed
	}
	return nil
}

// requireExpired guards finalization: past the end time, not yet finalized.
func (a *Auction) requireExpired() error {
	if a.stateLocked() != StateExpired {
		return ErrNotExpiredOrAlreadyFinalized
	}
	return nil
}

// requireFinalized guards result queries and refunds.
func (a *Auction) requireFinalized() error {
	if !a.ended {
		return ErrNotYetFinalized
	}
	return nil
}

func (a *Auction) requireOwner(caller Account) error {
	if caller != a.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

// Finalize locks in the winner. Only the owner may call it, only once, only
// after the end time and only if at least one bid was made.
func (a *Auction) Finalize(ctx context.Context, caller Account) (winner Account, amount uint64, err error) {
	a.mu.Lock()
	if err := a.requireOwner(caller); err != nil {
		a.mu.Unlock()
		return "", 0, err
	}
	if err := a.requireExpired(); err != nil {
		a.mu.Unlock()
		return "", 0, err
	}
	if a.highestBidder == "" {
		a.mu.Unlock()
		return "", 0, ErrNoBidsMade
	}
	a.ended = true
	winner, amount = a.highestBidder, a.highestBid
	a.queueLocked(EventAuctionFinalized, winner, amount)
	a.mu.Unlock()

	a.logger.Info("auction finalized",
		"auction_id", a.id.String(),
		"winner", string(winner),
		"amount", amount)
	a.flush(ctx)
	return winner, amount, nil
}

// Winner returns the winning bidder and amount. Valid only after finalization.
func (a *Auction) Winner() (Account, uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.requireFinalized(); err != nil {
		return "", 0, err
	}
	return a.highestBidder, a.highestBid, nil
}
