package core

import "sort"

// Standing is one participant's position by active bid.
type Standing struct {
	Rank    int     `json:"rank"`
	Bidder  Account `json:"bidder"`
	Bid     uint64  `json:"bid"`
	Deposit uint64  `json:"deposit"`
}

// Standings ranks every participant by active bid, highest first. Equal bids
// keep roster (first-bid) order, except that the current leader ranks ahead of
// anyone tied with it.
func (a *Auction) Standings() []Standing {
	a.mu.Lock()
	entries := make([]Standing, 0, len(a.participants))
	for _, p := range a.participants {
		entries = append(entries, Standing{Bidder: p, Bid: a.bids[p], Deposit: a.deposits[p]})
	}
	leader := a.highestBidder
	a.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Bid != entries[j].Bid {
			return entries[i].Bid > entries[j].Bid
		}
		return entries[i].Bidder == leader && entries[j].Bidder != leader
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
