package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeEventHash computes the chained digest of a notification.
// Producers of receipts and verifiers of journals both use it.
//
// Formula: SHA256(auction_id + "|" + sequence + "|" + type + "|" + account + "|" + amount + "|" + unix_nanos + "|" + prev_hash)
//
// prevHash is the hash of the preceding event in the same auction, or "" for the first.
func ComputeEventHash(event Event, prevHash string) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d|%d|%s",
		event.AuctionID.String(),
		event.Sequence,
		event.Type,
		event.Account,
		event.Amount,
		event.OccurredAt.UnixNano(),
		prevHash)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
