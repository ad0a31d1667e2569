package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the notifications an auction emits.
type EventType string

const (
	EventBidAccepted        EventType = "bid.accepted"
	EventAuctionFinalized   EventType = "auction.finalized"
	EventRefundIssued       EventType = "refund.issued"
	EventExcessWithdrawn    EventType = "excess.withdrawn"
	EventEmergencyRecovered EventType = "emergency.recovered"
	EventFundsWithdrawn     EventType = "funds.withdrawn"
)

// Event is a single notification. Account is the bidder (or winner, or owner for
// custody sweeps); it is empty for emergency recovery.
type Event struct {
	ID         uuid.UUID `json:"id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	Sequence   uint64    `json:"sequence"`
	Type       EventType `json:"type"`
	Account    Account   `json:"account,omitempty"`
	Amount     uint64    `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventSink consumes auction notifications.
type EventSink interface {
	Record(ctx context.Context, event Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, event Event) error

// Record implements EventSink.
func (f EventSinkFunc) Record(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopEventSink struct{}

func (noopEventSink) Record(context.Context, Event) error {
	return nil
}

// MultiSink fans an event out to every sink, returning the first error after
// all sinks have been called.
func MultiSink(sinks ...EventSink) EventSink {
	return EventSinkFunc(func(ctx context.Context, event Event) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// queueLocked stamps an event with identity and the next sequence number and
// appends it to the delivery queue. a.mu must be held, so queue order is the
// order in which the record changed.
func (a *Auction) queueLocked(typ EventType, account Account, amount uint64) {
	a.sequence++
	a.pending = append(a.pending, Event{
		ID:         uuid.New(),
		AuctionID:  a.id,
		Sequence:   a.sequence,
		Type:       typ,
		Account:    account,
		Amount:     amount,
		OccurredAt: a.now(),
	})
}

// flush delivers every queued event to the sink in sequence order. It must be
// called without a.mu held. A caller may deliver events queued by others; once
// flush returns, the caller's own event has been delivered.
// Sinks must not call back into the auction.
func (a *Auction) flush(ctx context.Context) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	events := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, event := range events {
		if err := a.sink.Record(ctx, event); err != nil {
			a.logger.Warn("event sink failed",
				"auction_id", a.id.String(),
				"event", string(event.Type),
				"sequence", event.Sequence,
				"error", err)
		}
	}
}

// emit queues and delivers an event for a change that completed outside the
// lock, such as a settled transfer.
func (a *Auction) emit(ctx context.Context, typ EventType, account Account, amount uint64) {
	a.mu.Lock()
	a.queueLocked(typ, account, amount)
	a.mu.Unlock()
	a.flush(ctx)
}
