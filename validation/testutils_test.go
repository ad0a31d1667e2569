package validation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/notary"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var testPCRs = map[uint64][]byte{
	0: {0x3b, 0x4c, 0xef, 0x27},
	1: {0x4b, 0x4d, 0x5b, 0x36},
	2: {0x2b, 0xdd, 0x28, 0xc1},
}

// mockEnclave returns unsigned Nitro-shaped attestation documents.
type mockEnclave struct{}

func (mockEnclave) Attest(options enclave.AttestationOptions) ([]byte, error) {
	nestedBytes, err := cbor.Marshal(map[string]any{
		"module_id":   "test-enclave-12345",
		"digest":      "SHA384",
		"timestamp":   uint64(testStart.UnixMilli()),
		"pcrs":        testPCRs,
		"certificate": []byte("test-certificate-data"),
		"cabundle":    [][]byte{[]byte("test-ca-cert")},
		"user_data":   options.UserData,
		"nonce":       options.Nonce,
	})
	if err != nil {
		return nil, err
	}
	return cbor.Marshal([]any{[]byte{0x01}, map[string]any{}, nestedBytes, []byte{0x02}})
}

// journalBuilder signs hand-written events so tests can produce journals the
// auction itself would never emit.
type journalBuilder struct {
	t         *testing.T
	notary    *notary.Notary
	auctionID uuid.UUID
	sequence  uint64
	at        time.Time
}

func newJournalBuilder(t *testing.T, opts ...notary.Option) *journalBuilder {
	t.Helper()
	keys, err := notary.NewKeyManager()
	assert.NoError(t, err)
	n, err := notary.New(keys, opts...)
	assert.NoError(t, err)
	return &journalBuilder{t: t, notary: n, auctionID: uuid.New(), at: testStart}
}

func (b *journalBuilder) add(typ core.EventType, account core.Account, amount uint64) *journalBuilder {
	b.t.Helper()
	b.sequence++
	b.at = b.at.Add(time.Minute)
	err := b.notary.Record(context.Background(), core.Event{
		ID:         uuid.New(),
		AuctionID:  b.auctionID,
		Sequence:   b.sequence,
		Type:       typ,
		Account:    account,
		Amount:     amount,
		OccurredAt: b.at,
	})
	assert.NoError(b.t, err)
	return b
}

func (b *journalBuilder) journal() *auctionapi.Journal {
	b.t.Helper()
	auction, err := core.NewWithMinutes("owner", 60, "painting", core.WithAuctionID(b.auctionID))
	assert.NoError(b.t, err)
	journal, err := b.notary.Journal(auction)
	assert.NoError(b.t, err)
	return journal
}

// honestJournal is a consistent history: alice outbid and raised, withdrew her
// excess, won at 200; bob was refunded 150 less the 2% commission.
func honestJournal(t *testing.T, opts ...notary.Option) *auctionapi.Journal {
	t.Helper()
	b := newJournalBuilder(t, opts...)
	return b.add(core.EventBidAccepted, "alice", 100).
		add(core.EventBidAccepted, "bob", 150).
		add(core.EventBidAccepted, "alice", 200).
		add(core.EventExcessWithdrawn, "alice", 100).
		add(core.EventAuctionFinalized, "alice", 200).
		add(core.EventRefundIssued, "bob", 147).
		add(core.EventFundsWithdrawn, "owner", 200).
		journal()
}

func detailsContain(details []string, needle string) bool {
	for _, d := range details {
		if strings.Contains(d, needle) {
			return true
		}
	}
	return false
}
