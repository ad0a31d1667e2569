package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/core"
)

func TestPlaceBid_FirstBidOfOneAccepted(t *testing.T) {
	f := newFixture(t)

	min, ok := f.auction.MinimumNextBid()
	check.True(t, ok)
	check.Equal(t, uint64(1), min)

	f.bid(t, "alice", 1)

	bidder, amount := f.auction.HighestBid()
	check.Equal(t, core.Account("alice"), bidder)
	check.Equal(t, uint64(1), amount)
}

func TestPlaceBid_ZeroRejected(t *testing.T) {
	f := newFixture(t)

	err := f.auction.PlaceBid(context.Background(), "alice", 0)
	check.True(t, errors.Is(err, core.ErrZeroBid))

	f.bid(t, "alice", 5)
	err = f.auction.PlaceBid(context.Background(), "bob", 0)
	check.True(t, errors.Is(err, core.ErrZeroBid))
}

func TestPlaceBid_EmptyBidderRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.auction.PlaceBid(ctx, "", 5)
	check.True(t, errors.Is(err, core.ErrNoBidder))
	check.Equal(t, uint64(0), f.auction.DepositOf(""))
	check.Equal(t, uint64(0), f.auction.Balance())
	check.Equal(t, 0, len(f.auction.Participants()))
	check.Equal(t, 0, len(f.events.all()))

	f.expire()
	_, _, err = f.auction.Finalize(ctx, owner)
	check.True(t, errors.Is(err, core.ErrNoBidsMade))
	f.checkConservation(t)
}

func TestPlaceBid_EqualBidAcceptedWhenIncrementFloorsToZero(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 1)

	// floor(1/20) == 0 so the threshold stays at 1 and equality is accepted.
	f.bid(t, "bob", 1)

	bidder, amount := f.auction.HighestBid()
	check.Equal(t, core.Account("alice"), bidder)
	check.Equal(t, uint64(1), amount)
	check.Equal(t, uint64(1), f.auction.BidOf("bob"))
	check.Equal(t, []core.Account{"alice", "bob"}, f.auction.Participants())
}

func TestPlaceBid_ThresholdBoundary(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 100)

	err := f.auction.PlaceBid(context.Background(), "bob", 104)
	check.True(t, errors.Is(err, core.ErrBidTooLow))
	check.Equal(t, uint64(0), f.auction.DepositOf("bob"))

	f.bid(t, "bob", 105)
	bidder, amount := f.auction.HighestBid()
	check.Equal(t, core.Account("bob"), bidder)
	check.Equal(t, uint64(105), amount)
}

func TestPlaceBid_ClosedAfterEndTime(t *testing.T) {
	f := newFixture(t)
	f.expire()

	err := f.auction.PlaceBid(context.Background(), "alice", 10)
	check.True(t, errors.Is(err, core.ErrAuctionClosed))
	check.Equal(t, 0, len(f.auction.Participants()))
}

func TestPlaceBid_DepositAccumulatesBidOverwrites(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 10)
	f.bid(t, "bob", 20)
	f.bid(t, "alice", 30)

	check.Equal(t, uint64(40), f.auction.DepositOf("alice"))
	check.Equal(t, uint64(30), f.auction.BidOf("alice"))
	check.Equal(t, uint64(60), f.auction.Balance())

	// Participant roster has no duplicates
	check.Equal(t, []core.Account{"alice", "bob"}, f.auction.Participants())
}

func TestPlaceBid_AntiSnipingExtension(t *testing.T) {
	tests := []struct {
		name            string
		elapsed         time.Duration
		priorBid        bool
		expectExtension bool
	}{
		{name: "First bid inside window does not extend", elapsed: 55 * time.Minute, priorBid: false, expectExtension: false},
		{name: "Bid inside window extends", elapsed: 55 * time.Minute, priorBid: true, expectExtension: true},
		{name: "Bid exactly at window start extends", elapsed: 50 * time.Minute, priorBid: true, expectExtension: true},
		{name: "Bid before window does not extend", elapsed: 49*time.Minute + 59*time.Second, priorBid: true, expectExtension: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.priorBid {
				f.bid(t, "alice", 10)
			}
			endBefore := f.auction.EndTime()

			f.clock.Advance(tt.elapsed)
			f.bid(t, "bob", 20)

			if tt.expectExtension {
				check.Equal(t, endBefore.Add(core.ExtensionWindow), f.auction.EndTime())
			} else {
				check.Equal(t, endBefore, f.auction.EndTime())
			}
		})
	}
}

func TestPlaceBid_RepeatedExtensionsKeepAuctionOpen(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 10)

	amount := uint64(10)
	for i := 0; i < 5; i++ {
		f.clock.Set(f.auction.EndTime().Add(-time.Minute))
		amount *= 2
		f.bid(t, "bob", amount)
		check.Equal(t, core.StateOpen, f.auction.State())
	}
	check.Equal(t, testStart.Add(60*time.Minute+5*core.ExtensionWindow), f.auction.EndTime())
}

func TestPlaceBid_OverflowRejected(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", ^uint64(0)-10)

	// Threshold exceeds the representable range
	err := f.auction.PlaceBid(context.Background(), "bob", ^uint64(0))
	check.True(t, errors.Is(err, core.ErrBidTooLow))
}

func TestPlaceBid_EmitsBidAccepted(t *testing.T) {
	f := newFixture(t)
	f.bid(t, "alice", 10)
	f.bid(t, "bob", 11)

	events := f.events.ofType(core.EventBidAccepted)
	check.Equal(t, 2, len(events))
	check.Equal(t, core.Account("alice"), events[0].Account)
	check.Equal(t, uint64(10), events[0].Amount)
	check.Equal(t, core.Account("bob"), events[1].Account)
	check.Equal(t, uint64(11), events[1].Amount)
	check.Equal(t, uint64(1), events[0].Sequence)
	check.Equal(t, uint64(2), events[1].Sequence)
	check.Equal(t, f.auction.ID(), events[0].AuctionID)

	// Rejected bids emit nothing
	_ = f.auction.PlaceBid(context.Background(), "carol", 1)
	check.Equal(t, 2, len(f.events.all()))
}

func TestPlaceBid_HighestInvariants(t *testing.T) {
	f := newFixture(t)
	amounts := []struct {
		bidder core.Account
		amount uint64
	}{
		{"alice", 1}, {"bob", 1}, {"carol", 5}, {"alice", 5}, {"bob", 19}, {"carol", 19}, {"alice", 40}, {"bob", 42},
	}

	var last uint64
	for _, a := range amounts {
		f.bid(t, a.bidder, a.amount)
		bidder, highest := f.auction.HighestBid()
		check.True(t, highest >= last)
		check.Equal(t, highest, f.auction.BidOf(bidder))
		last = highest
	}
	bidder, highest := f.auction.HighestBid()
	check.Equal(t, core.Account("bob"), bidder)
	check.Equal(t, uint64(42), highest)
}
