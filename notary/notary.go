// Package notary turns auction notifications into a signed, hash-chained
// receipt journal and attests finalization inside a Nitro enclave.
package notary

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/google/uuid"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
)

var (
	ErrForeignAuction = errors.New("event belongs to a different auction")
	ErrOutOfOrder     = errors.New("event sequence is not contiguous")
	ErrNotFinalized   = errors.New("no finalization attestation recorded")
	ErrJournalHalted  = errors.New("journal halted after a signing failure")
)

// EnclaveAttester interface for dependency injection and testing
type EnclaveAttester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// Notary signs every event it records. It implements core.EventSink.
type Notary struct {
	mu sync.Mutex

	keys     *KeyManager
	signer   cose.Signer
	attester EnclaveAttester
	logger   *slog.Logger
	now      func() time.Time

	auctionID   uuid.UUID
	prevHash    string
	receipts    []auctionapi.Receipt
	attestation auctionapi.AttestationCOSE
	halted      error
}

// Option configures a Notary.
type Option func(*Notary)

// WithAttester attests finalization with the given enclave handle.
func WithAttester(attester EnclaveAttester) Option {
	return func(n *Notary) {
		n.attester = attester
	}
}

// WithLogger sets the logger; the default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notary) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithClock sets the clock used to timestamp attestations.
func WithClock(clock func() time.Time) Option {
	return func(n *Notary) {
		if clock != nil {
			n.now = clock
		}
	}
}

// New creates a Notary signing with keys.
func New(keys *KeyManager, opts ...Option) (*Notary, error) {
	if keys == nil {
		return nil, fmt.Errorf("key manager is nil")
	}
	signer, err := keys.signer()
	if err != nil {
		return nil, err
	}

	n := &Notary{
		keys:   keys,
		signer: signer,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Record implements core.EventSink.
//
// A receipt that cannot be signed halts the journal: the chain cannot skip a
// sequence, so that event and every later one are refused with
// ErrJournalHalted and the journal ends at the last signed receipt.
func (n *Notary) Record(_ context.Context, event core.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.halted != nil {
		return fmt.Errorf("%w: event %d dropped: %w", ErrJournalHalted, event.Sequence, n.halted)
	}
	if n.auctionID == uuid.Nil {
		n.auctionID = event.AuctionID
	} else if event.AuctionID != n.auctionID {
		return fmt.Errorf("%w: %s", ErrForeignAuction, event.AuctionID)
	}
	if want := uint64(len(n.receipts)) + 1; event.Sequence != want {
		return fmt.Errorf("%w: got %d, want %d", ErrOutOfOrder, event.Sequence, want)
	}

	payload := auctionapi.NewEventPayload(event, n.prevHash)
	receipt, err := n.sign(payload)
	if err != nil {
		n.halted = err
		n.logger.Error("journal halted",
			"auction_id", payload.AuctionID,
			"sequence", payload.Sequence,
			"type", payload.Type,
			"error", err)
		return fmt.Errorf("%w: %w", ErrJournalHalted, err)
	}
	n.receipts = append(n.receipts, receipt)
	n.prevHash = payload.Hash

	n.logger.Debug("receipt signed",
		"auction_id", payload.AuctionID,
		"sequence", payload.Sequence,
		"type", payload.Type,
		"hash", payload.Hash)

	if event.Type == core.EventAuctionFinalized && n.attester != nil {
		attestation, err := n.attestFinalization(event, payload.Hash)
		if err != nil {
			return err
		}
		n.attestation = attestation
	}
	return nil
}

func (n *Notary) sign(payload auctionapi.EventPayload) (auctionapi.Receipt, error) {
	payloadBytes, err := payload.MarshalCanonical()
	if err != nil {
		return auctionapi.Receipt{}, err
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES384)
	msg.Payload = payloadBytes
	if err := msg.Sign(rand.Reader, nil, n.signer); err != nil {
		return auctionapi.Receipt{}, fmt.Errorf("sign receipt %d: %w", payload.Sequence, err)
	}

	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return auctionapi.Receipt{}, fmt.Errorf("marshal receipt %d: %w", payload.Sequence, err)
	}

	return auctionapi.Receipt{
		Sequence: payload.Sequence,
		Type:     payload.Type,
		Hash:     payload.Hash,
		COSE:     auctionapi.ReceiptCOSE(coseBytes).EncodeBase64(),
	}, nil
}

func (n *Notary) attestFinalization(event core.Event, receiptHash string) (auctionapi.AttestationCOSE, error) {
	userData := &auctionapi.FinalizationUserData{
		AuctionID:   event.AuctionID.String(),
		Winner:      string(event.Account),
		Amount:      event.Amount,
		ReceiptHash: receiptHash,
		Timestamp:   n.now().UTC(),
	}

	userDataBytes, err := json.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user data: %w", err)
	}

	randomNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := n.attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(randomNonce),
	})
	if err != nil {
		n.logger.Error("NSM attestation failed", "auction_id", userData.AuctionID, "error", err)
		return nil, fmt.Errorf("NSM attestation failed: %w", err)
	}

	n.logger.Info("finalization attestation generated",
		"auction_id", userData.AuctionID,
		"bytes", len(attestationCBOR))

	return auctionapi.AttestationCOSE(attestationCBOR), nil
}

// Receipts returns a copy of the receipts signed so far.
func (n *Notary) Receipts() []auctionapi.Receipt {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]auctionapi.Receipt, len(n.receipts))
	copy(out, n.receipts)
	return out
}

// HeadHash returns the hash of the latest receipt, or "" before the first.
func (n *Notary) HeadHash() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prevHash
}

// FinalizationAttestation returns the attestation document produced at finalization.
func (n *Notary) FinalizationAttestation() (auctionapi.AttestationCOSE, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attestation == nil {
		return nil, ErrNotFinalized
	}
	return n.attestation, nil
}

// Journal exports the receipts together with the auction's identity.
func (n *Notary) Journal(auction *core.Auction) (*auctionapi.Journal, error) {
	publicKeyPEM, err := n.keys.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.auctionID != uuid.Nil && n.auctionID != auction.ID() {
		return nil, fmt.Errorf("%w: %s", ErrForeignAuction, auction.ID())
	}

	journal := &auctionapi.Journal{
		AuctionID:       auction.ID().String(),
		Owner:           string(auction.Owner()),
		ItemDescription: auction.ItemDescription(),
		PublicKeyPEM:    publicKeyPEM,
		Receipts:        make([]auctionapi.Receipt, len(n.receipts)),
	}
	copy(journal.Receipts, n.receipts)
	if n.attestation != nil {
		journal.FinalizationAttestation = n.attestation.EncodeBase64()
	}
	return journal, nil
}

// generateSecureRandomBytes generates cryptographically secure random bytes.
// Inside an enclave crypto/rand uses the NSM-enhanced kernel entropy pool.
func generateSecureRandomBytes(length int) ([]byte, error) {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}
	return randomBytes, nil
}

func generateNonce() (string, error) {
	randomBytes, err := generateSecureRandomBytes(32) // 256 bits of entropy
	if err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
