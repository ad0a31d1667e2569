package core

import "errors"

var (
	ErrUnauthorized                 = errors.New("caller is not the auction owner")
	ErrAuctionClosed                = errors.New("auction is closed for bidding")
	ErrNotExpiredOrAlreadyFinalized = errors.New("auction not yet expired or already finalized")
	ErrNotYetFinalized              = errors.New("auction not yet finalized")

	ErrZeroBid   = errors.New("bid amount must be greater than zero")
	ErrBidTooLow = errors.New("bid below minimum acceptance threshold")
	ErrNoBidder  = errors.New("bidder account is required")

	ErrNoExcessDeposit   = errors.New("no excess deposit to withdraw")
	ErrNoDepositToRefund = errors.New("no deposit to refund")
	ErrNoFundsToWithdraw = errors.New("no funds to withdraw")
	ErrNothingToRecover  = errors.New("nothing to recover")

	ErrWinnerCannotRefund = errors.New("winner cannot refund deposit")
	ErrNoBidsMade         = errors.New("no bids made")
	ErrNoWinnerToWithdraw = errors.New("no winner to withdraw for")

	// ErrTransferFailed wraps any outbound transfer rejection, including
	// insufficient custody balance.
	ErrTransferFailed = errors.New("transfer failed")

	ErrAmountOverflow = errors.New("amount overflows ledger capacity")
	ErrInvalidConfig  = errors.New("invalid auction configuration")
)
