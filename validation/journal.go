package validation

import (
	"fmt"
	"strings"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

// JournalValidationOptions tunes ValidateJournal.
type JournalValidationOptions struct {
	// KnownPCRs are the enclave measurements a finalization attestation may carry.
	KnownPCRs []PCRSet
	// RequireAttestation fails journals of finalized auctions that lack one.
	RequireAttestation bool
	// TrustedPublicKeyPEM, when set, replaces the key embedded in the journal.
	TrustedPublicKeyPEM string
}

// ValidateJournal verifies a receipt journal end to end:
// - every receipt is signed by the journal's key
// - sequence numbers run 1..n without gaps
// - each receipt hash chains to the previous one
// - bids respect the minimum increment and exactly one finalization names the last leader
// - replayed deposits justify every excess withdrawal and refund
// - the finalization attestation, if present, matches the finalization receipt
//
// Returns an error only when the journal cannot be examined (e.g. unreadable key).
func ValidateJournal(journal *auctionapi.Journal, opts JournalValidationOptions) (*JournalValidationResult, error) {
	if journal == nil {
		return nil, fmt.Errorf("journal is nil")
	}
	keyPEM := journal.PublicKeyPEM
	if opts.TrustedPublicKeyPEM != "" {
		keyPEM = opts.TrustedPublicKeyPEM
	}
	publicKey, err := LoadPublicKeyPEM(keyPEM)
	if err != nil {
		return nil, err
	}

	result := &JournalValidationResult{
		SignaturesValid:   true,
		SequenceValid:     true,
		ChainValid:        true,
		ValidationDetails: []string{},
	}
	if opts.TrustedPublicKeyPEM != "" && strings.TrimSpace(opts.TrustedPublicKeyPEM) != strings.TrimSpace(journal.PublicKeyPEM) {
		result.addDetail("Journal public key differs from trusted key")
	}

	payloads := make([]*auctionapi.EventPayload, 0, len(journal.Receipts))
	prevHash := ""
	for i, receipt := range journal.Receipts {
		payload, err := VerifyReceipt(receipt, publicKey)
		if err != nil {
			result.SignaturesValid = false
			result.addDetail("Receipt %d: %v", i+1, err)
			_, payload, err = DecodeReceipt(receipt)
			if err != nil {
				result.ChainValid = false
				prevHash = receipt.Hash
				continue
			}
		}

		if payload.Sequence != uint64(i+1) || receipt.Sequence != payload.Sequence {
			result.SequenceValid = false
			result.addDetail("Receipt %d: sequence %d (envelope %d)", i+1, payload.Sequence, receipt.Sequence)
		}
		if payload.AuctionID != journal.AuctionID {
			result.ChainValid = false
			result.addDetail("Receipt %d: auction id %s does not match journal", i+1, payload.AuctionID)
		}

		event, err := payload.Event()
		if err != nil {
			result.ChainValid = false
			result.addDetail("Receipt %d: %v", i+1, err)
		} else if computed := core.ComputeEventHash(event, payload.PrevHash); computed != payload.Hash {
			result.ChainValid = false
			result.addDetail("Receipt %d: hash mismatch (computed %s, signed %s)", i+1, computed, payload.Hash)
		}
		if payload.PrevHash != prevHash {
			result.ChainValid = false
			result.addDetail("Receipt %d: previous hash %s does not link to %s", i+1, payload.PrevHash, prevHash)
		}
		if receipt.Hash != payload.Hash || receipt.Type != payload.Type {
			result.ChainValid = false
			result.addDetail("Receipt %d: envelope does not match signed payload", i+1)
		}

		prevHash = payload.Hash
		payloads = append(payloads, payload)
	}

	if result.SignaturesValid {
		result.addDetail("All %d receipt signatures verified", len(journal.Receipts))
	}
	if result.SequenceValid && result.ChainValid {
		result.addDetail("Hash chain intact through sequence %d", len(journal.Receipts))
	}

	finalization := replayLedger(payloads, result)

	result.AttestationPresent = journal.FinalizationAttestation != ""
	result.AttestationNeeded = opts.RequireAttestation && finalization != nil
	if result.AttestationPresent {
		if finalization == nil {
			result.FinalizationValid = false
			result.addDetail("Attestation present but journal has no finalization receipt")
		} else {
			attestation, err := ValidateFinalizationAttestation(journal.FinalizationAttestation, ExpectedFinalization{
				AuctionID:   journal.AuctionID,
				Winner:      finalization.Account,
				Amount:      finalization.Amount,
				ReceiptHash: finalization.Hash,
			}, opts.KnownPCRs)
			if err != nil {
				attestation = &FinalizationValidationResult{}
				result.addDetail("Finalization attestation unreadable: %v", err)
			}
			result.Attestation = attestation
			result.ValidationDetails = append(result.ValidationDetails, attestation.ValidationDetails...)
		}
	} else if result.AttestationNeeded {
		result.addDetail("Finalization attestation required but missing")
	}

	return result, nil
}

type bidderLedger struct {
	deposit  uint64
	bid      uint64
	refunded bool
}

// replayLedger rebuilds deposits from the signed events and checks every
// outflow against them. It returns the finalization payload, if any.
func replayLedger(payloads []*auctionapi.EventPayload, result *JournalValidationResult) *auctionapi.EventPayload {
	result.LedgerValid = true
	fail := func(p *auctionapi.EventPayload, format string, args ...any) {
		result.LedgerValid = false
		result.addDetail("Receipt %d (%s): %s", p.Sequence, p.Type, fmt.Sprintf(format, args...))
	}

	ledgers := map[string]*bidderLedger{}
	ledgerOf := func(account string) *bidderLedger {
		l, ok := ledgers[account]
		if !ok {
			l = &bidderLedger{}
			ledgers[account] = l
		}
		return l
	}

	var (
		leader       string
		highest      uint64
		finalization *auctionapi.EventPayload
		finalCount   int
		finalMatches bool
	)

	for _, p := range payloads {
		switch core.EventType(p.Type) {
		case core.EventBidAccepted:
			if finalCount > 0 {
				fail(p, "bid after finalization")
			}
			if !core.BidMeetsMinimum(p.Amount, highest) {
				fail(p, "bid %d below minimum over %d", p.Amount, highest)
			}
			l := ledgerOf(p.Account)
			l.deposit += p.Amount
			l.bid = p.Amount
			// Under 20 the increment floors to zero, so an equal bid is
			// accepted without taking the lead.
			if p.Amount > highest {
				leader, highest = p.Account, p.Amount
			}

		case core.EventExcessWithdrawn:
			l := ledgerOf(p.Account)
			if l.deposit < l.bid || p.Amount > l.deposit-l.bid {
				fail(p, "withdrew %d but excess was %d", p.Amount, l.deposit-l.bid)
				continue
			}
			l.deposit -= p.Amount

		case core.EventAuctionFinalized:
			finalCount++
			finalization = p
			finalMatches = p.Account == leader && p.Amount == highest
			if !finalMatches {
				fail(p, "finalized %s at %d but leader was %s at %d", p.Account, p.Amount, leader, highest)
			}

		case core.EventRefundIssued:
			if finalCount == 0 {
				fail(p, "refund before finalization")
			}
			if p.Account == leader {
				fail(p, "winner %s was refunded", p.Account)
			}
			l := ledgerOf(p.Account)
			if l.refunded {
				fail(p, "%s refunded twice", p.Account)
			}
			if _, net := core.ComputeCommission(l.deposit); p.Amount != net {
				fail(p, "refund %d does not match deposit %d less commission (%d)", p.Amount, l.deposit, net)
			}
			l.deposit = 0
			l.refunded = true

		case core.EventFundsWithdrawn:
			if finalCount == 0 {
				fail(p, "owner withdrawal before finalization")
			}

		case core.EventEmergencyRecovered:
			// Sweeps custody without touching recorded deposits.

		default:
			fail(p, "unknown event type")
		}
	}

	switch finalCount {
	case 0:
		result.FinalizationValid = true
		result.addDetail("Auction not finalized in this journal")
	case 1:
		result.FinalizationValid = finalMatches
		result.addDetail("Finalization: %s won at %d", finalization.Account, finalization.Amount)
	default:
		result.FinalizationValid = false
		result.addDetail("Journal records %d finalizations", finalCount)
	}

	if result.LedgerValid {
		result.addDetail("Deposit replay consistent for %d bidders", len(ledgers))
	}
	return finalization
}
