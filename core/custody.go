package core

import (
	"context"
)

// WithdrawFunds sweeps the entire custody balance to the owner after
// finalization. The balance is the raw amount held, so it includes the winning
// bid, retained commissions and any deposits never refunded. The balance is
// reserved while the transfer is in flight, so concurrent refunds fail with
// ErrTransferFailed until it settles or is rolled back.
func (a *Auction) WithdrawFunds(ctx context.Context, caller Account) (uint64, error) {
	a.mu.Lock()
	if err := a.requireOwner(caller); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	if err := a.requireFinalized(); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	if a.highestBidder == "" {
		a.mu.Unlock()
		return 0, ErrNoWinnerToWithdraw
	}
	amount, err := a.sweepLocked(ErrNoFundsToWithdraw)
	a.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if err := a.sendSweep(ctx, amount); err != nil {
		return 0, err
	}
	a.logger.Info("funds withdrawn", "auction_id", a.id.String(), "amount", amount)
	a.emit(ctx, EventFundsWithdrawn, a.owner, amount)
	return amount, nil
}

// EmergencyRecovery sweeps the entire custody balance to the owner in any
// lifecycle state. It is not limited to stray value: deposits still owed to
// bidders are swept too, and later refunds then fail for lack of funds.
func (a *Auction) EmergencyRecovery(ctx context.Context, caller Account) (uint64, error) {
	a.mu.Lock()
	if err := a.requireOwner(caller); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	amount, err := a.sweepLocked(ErrNothingToRecover)
	a.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if err := a.sendSweep(ctx, amount); err != nil {
		return 0, err
	}
	a.logger.Warn("emergency recovery swept custody", "auction_id", a.id.String(), "amount", amount)
	a.emit(ctx, EventEmergencyRecovered, "", amount)
	return amount, nil
}

// sweepLocked reserves the whole balance. Caller holds a.mu.
func (a *Auction) sweepLocked(empty error) (uint64, error) {
	amount := a.balance
	if amount == 0 {
		return 0, empty
	}
	if err := a.debit(amount); err != nil {
		return 0, err
	}
	return amount, nil
}

func (a *Auction) sendSweep(ctx context.Context, amount uint64) error {
	if err := a.send(ctx, a.owner, amount); err != nil {
		a.mu.Lock()
		a.undebit(amount)
		a.mu.Unlock()
		return err
	}
	return nil
}
