package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/core"
)

func TestNew_InvalidConfig(t *testing.T) {
	_, err := core.New("", time.Hour, "X")
	check.True(t, errors.Is(err, core.ErrInvalidConfig))

	_, err = core.New(owner, 0, "X")
	check.True(t, errors.Is(err, core.ErrInvalidConfig))

	_, err = core.NewWithMinutes(owner, 0, "X")
	check.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestNew_InitialRecord(t *testing.T) {
	f := newFixture(t)

	check.Equal(t, owner, f.auction.Owner())
	check.Equal(t, "X", f.auction.ItemDescription())
	check.Equal(t, testStart.Add(60*time.Minute), f.auction.EndTime())
	check.Equal(t, core.StateOpen, f.auction.State())

	bidder, amount := f.auction.HighestBid()
	check.Equal(t, core.Account(""), bidder)
	check.Equal(t, uint64(0), amount)
	check.Equal(t, 0, len(f.auction.Participants()))
}

func TestState_Transitions(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 10)

	f.clock.Advance(59 * time.Minute)
	check.Equal(t, core.StateOpen, f.auction.State())

	f.clock.Set(f.auction.EndTime())
	check.Equal(t, core.StateExpired, f.auction.State())

	_, _, err := f.auction.Finalize(context.Background(), owner)
	check.NoError(t, err)
	check.Equal(t, core.StateFinalized, f.auction.State())
}

func TestFinalize_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.bid(t, "alice", 10)

	// Still open
	_, _, err := f.auction.Finalize(ctx, owner)
	check.True(t, errors.Is(err, core.ErrNotExpiredOrAlreadyFinalized))

	f.expire()

	// Not the owner
	_, _, err = f.auction.Finalize(ctx, "alice")
	check.True(t, errors.Is(err, core.ErrUnauthorized))

	winner, amount, err := f.auction.Finalize(ctx, owner)
	check.NoError(t, err)
	check.Equal(t, core.Account("alice"), winner)
	check.Equal(t, uint64(10), amount)

	// Second finalization is rejected
	_, _, err = f.auction.Finalize(ctx, owner)
	check.True(t, errors.Is(err, core.ErrNotExpiredOrAlreadyFinalized))

	finalized := f.events.ofType(core.EventAuctionFinalized)
	check.Equal(t, 1, len(finalized))
	check.Equal(t, core.Account("alice"), finalized[0].Account)
	check.Equal(t, uint64(10), finalized[0].Amount)
}

func TestFinalize_NoBidsMade(t *testing.T) {
	f := newFixture(t)
	f.expire()

	_, _, err := f.auction.Finalize(context.Background(), owner)
	check.True(t, errors.Is(err, core.ErrNoBidsMade))
	check.Equal(t, core.StateExpired, f.auction.State())
}

func TestWinner_RequiresFinalization(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 10)

	_, _, err := f.auction.Winner()
	check.True(t, errors.Is(err, core.ErrNotYetFinalized))

	f.finalize(t)

	winner, amount, err := f.auction.Winner()
	check.NoError(t, err)
	check.Equal(t, core.Account("alice"), winner)
	check.Equal(t, uint64(10), amount)
}

func TestFinalize_FreezesEndTimeAndWinner(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 10)
	f.finalize(t)
	endTime := f.auction.EndTime()

	err := f.auction.PlaceBid(context.Background(), "bob", 1000)
	check.True(t, errors.Is(err, core.ErrAuctionClosed))

	check.Equal(t, endTime, f.auction.EndTime())
	winner, _ := f.auction.HighestBid()
	check.Equal(t, core.Account("alice"), winner)
}
