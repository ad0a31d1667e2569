package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/substrate"
)

const owner core.Account = "owner"

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// eventLog is an EventSink that keeps every event in memory.
type eventLog struct {
	mu     sync.Mutex
	events []core.Event
}

func (l *eventLog) Record(_ context.Context, event core.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) all() []core.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Event(nil), l.events...)
}

func (l *eventLog) ofType(typ core.EventType) []core.Event {
	var out []core.Event
	for _, e := range l.all() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	auction *core.Auction
	clock   *substrate.Clock
	wallets *substrate.Wallets
	events  *eventLog
}

// newFixture creates a 60 minute auction for item "X" starting at testStart.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   substrate.NewClock(testStart),
		wallets: substrate.NewWallets(),
		events:  &eventLog{},
	}
	auction, err := core.NewWithMinutes(owner, 60, "X",
		core.WithClock(f.clock.Now),
		core.WithTransferer(f.wallets),
		core.WithEventSink(f.events))
	assert.NoError(t, err)
	f.auction = auction
	return f
}

func (f *fixture) bid(t *testing.T, bidder core.Account, amount uint64) {
	t.Helper()
	assert.NoError(t, f.auction.PlaceBid(context.Background(), bidder, amount))
}

// expire moves the clock past the current end time.
func (f *fixture) expire() {
	f.clock.Set(f.auction.EndTime())
}

// finalize expires and finalizes the auction.
func (f *fixture) finalize(t *testing.T) {
	t.Helper()
	f.expire()
	_, _, err := f.auction.Finalize(context.Background(), owner)
	assert.NoError(t, err)
}

// checkConservation asserts that value received equals value paid out plus
// value still held.
func (f *fixture) checkConservation(t *testing.T) {
	t.Helper()
	totals := f.auction.Totals()
	assert.Equal(t, totals.Received, f.wallets.TotalPaid()+totals.Balance)
	assert.Equal(t, totals.PaidOut, f.wallets.TotalPaid())
}
