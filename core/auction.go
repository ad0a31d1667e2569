package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Auction is a single-item, time-boxed ascending auction holding bidder deposits
// in escrow. All methods are safe for concurrent use. The internal lock is never
// held across an outbound transfer, so a recipient may call back into the auction
// while its transfer is in flight.
type Auction struct {
	mu sync.Mutex
	// emitMu serializes sink delivery so events arrive in sequence order.
	emitMu sync.Mutex

	id      uuid.UUID
	owner   Account
	item    string
	endTime time.Time

	highestBid    uint64
	highestBidder Account
	ended         bool

	deposits     map[Account]uint64
	bids         map[Account]uint64
	participants []Account
	registered   map[Account]struct{}

	balance  uint64
	received uint64
	paidOut  uint64
	sequence uint64
	pending  []Event

	now      func() time.Time
	transfer Transferer
	sink     EventSink
	logger   *slog.Logger
}

// Option customizes auction construction.
type Option func(*Auction)

// WithClock injects the call-timestamp source (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(a *Auction) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithTransferer sets how value leaves custody.
func WithTransferer(t Transferer) Option {
	return func(a *Auction) {
		if t != nil {
			a.transfer = t
		}
	}
}

// WithEventSink sets the sink receiving notifications.
func WithEventSink(sink EventSink) Option {
	return func(a *Auction) {
		if sink != nil {
			a.sink = sink
		}
	}
}

// WithLogger overrides the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Auction) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuctionID fixes the auction identifier instead of generating one.
func WithAuctionID(id uuid.UUID) Option {
	return func(a *Auction) {
		if id != uuid.Nil {
			a.id = id
		}
	}
}

// New creates an auction owned by owner that accepts bids for duration from now.
func New(owner Account, duration time.Duration, itemDescription string, opts ...Option) (*Auction, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidConfig)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidConfig, duration)
	}

	a := &Auction{
		id:         uuid.New(),
		owner:      owner,
		item:       itemDescription,
		deposits:   make(map[Account]uint64),
		bids:       make(map[Account]uint64),
		registered: make(map[Account]struct{}),
		now:        time.Now,
		transfer: TransfererFunc(func(_ context.Context, to Account, _ uint64) error {
			return fmt.Errorf("no transferer configured for %s", to)
		}),
		sink:   noopEventSink{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.endTime = a.now().Add(duration)

	a.logger.Info("auction created",
		"auction_id", a.id.String(),
		"owner", string(owner),
		"item", itemDescription,
		"end_time", a.endTime)
	return a, nil
}

// NewWithMinutes mirrors the deployment entry point: duration given in whole minutes.
func NewWithMinutes(owner Account, durationMinutes uint, itemDescription string, opts ...Option) (*Auction, error) {
	return New(owner, time.Duration(durationMinutes)*time.Minute, itemDescription, opts...)
}

// ID returns the auction identifier.
func (a *Auction) ID() uuid.UUID {
	return a.id
}

// Owner returns the account with finalization and withdrawal rights.
func (a *Auction) Owner() Account {
	return a.owner
}

// ItemDescription returns the immutable item label.
func (a *Auction) ItemDescription() string {
	return a.item
}

// EndTime returns the current closing time.
func (a *Auction) EndTime() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.endTime
}

// HighestBid returns the leading amount and its bidder.
func (a *Auction) HighestBid() (Account, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.highestBidder, a.highestBid
}

// BidOf returns the active bid of account. Always valid.
func (a *Auction) BidOf(account Account) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bids[account]
}

// DepositOf returns the value held in escrow for account.
func (a *Auction) DepositOf(account Account) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deposits[account]
}

// Participants returns every account that has ever bid, in first-bid order.
func (a *Auction) Participants() []Account {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.participants)
}

// Balance returns the value currently in custody.
func (a *Auction) Balance() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Totals returns cumulative custody flows.
func (a *Auction) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Totals{Received: a.received, PaidOut: a.paidOut, Balance: a.balance}
}

// Snapshot returns a copy of the full record.
func (a *Auction) Snapshot() Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	deposits := make(map[Account]uint64, len(a.deposits))
	for k, v := range a.deposits {
		deposits[k] = v
	}
	bids := make(map[Account]uint64, len(a.bids))
	for k, v := range a.bids {
		bids[k] = v
	}
	return Record{
		ID:              a.id,
		Owner:           a.owner,
		ItemDescription: a.item,
		EndTime:         a.endTime,
		HighestBid:      a.highestBid,
		HighestBidder:   a.highestBidder,
		Ended:           a.ended,
		Deposits:        deposits,
		Bids:            bids,
		Participants:    slices.Clone(a.participants),
		Balance:         a.balance,
	}
}

// Receive accepts value that arrives outside the bid path. It lands in custody
// without being attributed to any deposit.
func (a *Auction) Receive(from Account, amount uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.credit(amount); err != nil {
		return err
	}
	a.logger.Debug("unattributed value received",
		"auction_id", a.id.String(), "from", string(from), "amount", amount)
	return nil
}

// credit adds incoming value to custody. Caller holds a.mu.
func (a *Auction) credit(amount uint64) error {
	balance, ok := addChecked(a.balance, amount)
	if !ok {
		return ErrAmountOverflow
	}
	received, ok := addChecked(a.received, amount)
	if !ok {
		return ErrAmountOverflow
	}
	a.balance, a.received = balance, received
	return nil
}

// debit reserves outgoing value before a transfer. Caller holds a.mu.
func (a *Auction) debit(amount uint64) error {
	if amount > a.balance {
		return fmt.Errorf("%w: custody holds %d, need %d", ErrTransferFailed, a.balance, amount)
	}
	a.balance -= amount
	a.paidOut += amount
	return nil
}

// undebit returns a reserved amount to custody after a rejected transfer. Caller holds a.mu.
func (a *Auction) undebit(amount uint64) {
	a.balance += amount
	a.paidOut -= amount
}

// send performs the outbound transfer without holding a.mu.
func (a *Auction) send(ctx context.Context, to Account, amount uint64) error {
	if err := a.transfer.Transfer(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: to %s amount %d: %w", ErrTransferFailed, to, amount, err)
	}
	return nil
}
