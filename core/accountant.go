package core

import (
	"context"
)

// WithdrawExcess returns the part of caller's deposit not backing their active
// bid. Valid only while the auction is open. The deposit is reduced before the
// transfer; a rejected transfer restores it. The rollback only adds back what
// this call took: changes made by reentrant calls during the transfer stay.
func (a *Auction) WithdrawExcess(ctx context.Context, caller Account) (uint64, error) {
	a.mu.Lock()
	if err := a.requireOpen(); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	excess := a.deposits[caller] - a.bids[caller]
	if excess == 0 {
		a.mu.Unlock()
		return 0, ErrNoExcessDeposit
	}
	if err := a.debit(excess); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	a.deposits[caller] = a.bids[caller]
	a.mu.Unlock()

	if err := a.send(ctx, caller, excess); err != nil {
		a.mu.Lock()
		a.deposits[caller] += excess
		a.undebit(excess)
		a.mu.Unlock()
		return 0, err
	}

	a.emit(ctx, EventExcessWithdrawn, caller, excess)
	return excess, nil
}

// RefundDeposit returns a losing bidder's whole deposit minus commission.
// Valid only after finalization. The commission stays in custody. A rejected
// transfer restores the deposit and balance this call took, but changes made
// by reentrant calls during the transfer stay.
func (a *Auction) RefundDeposit(ctx context.Context, caller Account) (Refund, error) {
	a.mu.Lock()
	if err := a.requireFinalized(); err != nil {
		a.mu.Unlock()
		return Refund{}, err
	}
	if caller == a.highestBidder {
		a.mu.Unlock()
		return Refund{}, ErrWinnerCannotRefund
	}
	deposit := a.deposits[caller]
	if deposit == 0 {
		a.mu.Unlock()
		return Refund{}, ErrNoDepositToRefund
	}
	commission, net := ComputeCommission(deposit)
	if err := a.debit(net); err != nil {
		a.mu.Unlock()
		return Refund{}, err
	}
	a.deposits[caller] = 0
	a.mu.Unlock()

	if err := a.send(ctx, caller, net); err != nil {
		a.mu.Lock()
		a.deposits[caller] += deposit
		a.undebit(net)
		a.mu.Unlock()
		return Refund{}, err
	}

	a.emit(ctx, EventRefundIssued, caller, net)
	return Refund{Bidder: caller, Deposit: deposit, Commission: commission, Net: net}, nil
}

// DistributeNonWinnerRefunds refunds every losing participant that still holds
// a deposit. Anyone may call it, any number of times, after finalization.
//
// Each deposit is zeroed before its transfer is attempted. A rejected transfer
// does not stop the batch and is not reported: the deposit stays zeroed, the
// value stays in custody and no refund event is emitted for that participant.
// Only successful refunds are returned.
func (a *Auction) DistributeNonWinnerRefunds(ctx context.Context) ([]Refund, error) {
	a.mu.Lock()
	if err := a.requireFinalized(); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	roster := make([]Account, len(a.participants))
	copy(roster, a.participants)
	a.mu.Unlock()

	refunds := make([]Refund, 0, len(roster))
	for _, bidder := range roster {
		a.mu.Lock()
		deposit := a.deposits[bidder]
		if bidder == a.highestBidder || deposit == 0 {
			a.mu.Unlock()
			continue
		}
		commission, net := ComputeCommission(deposit)
		a.deposits[bidder] = 0
		if err := a.debit(net); err != nil {
			a.mu.Unlock()
			continue
		}
		a.mu.Unlock()

		if err := a.send(ctx, bidder, net); err != nil {
			a.mu.Lock()
			a.undebit(net)
			a.mu.Unlock()
			continue
		}

		a.emit(ctx, EventRefundIssued, bidder, net)
		refunds = append(refunds, Refund{Bidder: bidder, Deposit: deposit, Commission: commission, Net: net})
	}
	return refunds, nil
}
