package core

import (
	"context"
	"time"
)

// ExtensionWindow is both the anti-sniping trigger window before the end time
// and the amount the end time is pushed forward.
const ExtensionWindow = 10 * time.Minute

// MinimumNextBid returns the smallest amount PlaceBid would accept right now.
// ok is false when the threshold exceeds the representable range.
func (a *Auction) MinimumNextBid() (min uint64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return minimumNextBid(a.highestBid)
}

// PlaceBid records a bid of amount from caller. The amount is added to the
// caller's deposit and replaces their active bid. A bid arriving within
// ExtensionWindow of the end time extends it, unless it is the first bid.
// The empty account means no bidder and is rejected.
func (a *Auction) PlaceBid(ctx context.Context, caller Account, amount uint64) error {
	a.mu.Lock()
	if err := a.requireOpen(); err != nil {
		a.mu.Unlock()
		return err
	}
	if caller == "" {
		a.mu.Unlock()
		return ErrNoBidder
	}
	if amount == 0 {
		a.mu.Unlock()
		return ErrZeroBid
	}
	if !BidMeetsMinimum(amount, a.highestBid) {
		a.mu.Unlock()
		return ErrBidTooLow
	}
	deposit, ok := addChecked(a.deposits[caller], amount)
	if !ok {
		a.mu.Unlock()
		return ErrAmountOverflow
	}
	if err := a.credit(amount); err != nil {
		a.mu.Unlock()
		return err
	}

	if _, seen := a.registered[caller]; !seen {
		a.registered[caller] = struct{}{}
		a.participants = append(a.participants, caller)
	}

	now := a.now()
	if a.highestBid > 0 && !now.Add(ExtensionWindow).Before(a.endTime) {
		a.endTime = a.endTime.Add(ExtensionWindow)
		a.logger.Debug("end time extended",
			"auction_id", a.id.String(),
			"bidder", string(caller),
			"end_time", a.endTime)
	}

	a.deposits[caller] = deposit
	a.bids[caller] = amount
	if amount > a.highestBid {
		a.highestBid = amount
		a.highestBidder = caller
	}
	a.queueLocked(EventBidAccepted, caller, amount)
	a.mu.Unlock()

	a.logger.Debug("bid accepted",
		"auction_id", a.id.String(),
		"bidder", string(caller),
		"amount", amount)
	a.flush(ctx)
	return nil
}
