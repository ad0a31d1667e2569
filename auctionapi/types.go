package auctionapi

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/cloudx-io/escrowauction/core"
)

var canonicalEncMode = mustCanonicalEncMode()

func mustCanonicalEncMode() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("auctionapi: canonical CBOR encoder: %v", err))
	}
	return em
}

// EventPayload is the signed content of a receipt: one auction notification
// plus its position in the hash chain.
type EventPayload struct {
	AuctionID  string `cbor:"auction_id" json:"auction_id"`
	EventID    string `cbor:"event_id" json:"event_id"`
	Sequence   uint64 `cbor:"sequence" json:"sequence"`
	Type       string `cbor:"type" json:"type"`
	Account    string `cbor:"account" json:"account,omitempty"`
	Amount     uint64 `cbor:"amount" json:"amount"`
	OccurredAt int64  `cbor:"occurred_at" json:"occurred_at"` // Unix nanoseconds
	PrevHash   string `cbor:"prev_hash" json:"prev_hash"`
	Hash       string `cbor:"hash" json:"hash"`
}

// NewEventPayload builds the payload for event chained after prevHash.
func NewEventPayload(event core.Event, prevHash string) EventPayload {
	return EventPayload{
		AuctionID:  event.AuctionID.String(),
		EventID:    event.ID.String(),
		Sequence:   event.Sequence,
		Type:       string(event.Type),
		Account:    string(event.Account),
		Amount:     event.Amount,
		OccurredAt: event.OccurredAt.UnixNano(),
		PrevHash:   prevHash,
		Hash:       core.ComputeEventHash(event, prevHash),
	}
}

// Event converts the payload back into a core.Event.
func (p EventPayload) Event() (core.Event, error) {
	auctionID, err := uuid.Parse(p.AuctionID)
	if err != nil {
		return core.Event{}, fmt.Errorf("parse auction id: %w", err)
	}
	eventID, err := uuid.Parse(p.EventID)
	if err != nil {
		return core.Event{}, fmt.Errorf("parse event id: %w", err)
	}
	return core.Event{
		ID:         eventID,
		AuctionID:  auctionID,
		Sequence:   p.Sequence,
		Type:       core.EventType(p.Type),
		Account:    core.Account(p.Account),
		Amount:     p.Amount,
		OccurredAt: time.Unix(0, p.OccurredAt).UTC(),
	}, nil
}

// MarshalCanonical encodes the payload as canonical CBOR.
func (p EventPayload) MarshalCanonical() ([]byte, error) {
	data, err := canonicalEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return data, nil
}

// UnmarshalEventPayload decodes a CBOR EventPayload.
func UnmarshalEventPayload(data []byte) (*EventPayload, error) {
	var p EventPayload
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal event payload: %w", err)
	}
	return &p, nil
}

// Receipt is one journal entry.
type Receipt struct {
	Sequence uint64            `json:"sequence"`
	Type     string            `json:"type"`
	Hash     string            `json:"hash"`
	COSE     ReceiptCOSEBase64 `json:"cose_base64"`
}

// FinalizationUserData is embedded in the enclave attestation of a finalized auction.
type FinalizationUserData struct {
	AuctionID   string    `json:"auction_id"`
	Winner      string    `json:"winner"`
	Amount      uint64    `json:"amount"`
	ReceiptHash string    `json:"receipt_hash"`
	Timestamp   time.Time `json:"timestamp"`
}

// Journal is the exported, verifiable history of one auction.
type Journal struct {
	AuctionID               string                `json:"auction_id"`
	Owner                   string                `json:"owner"`
	ItemDescription         string                `json:"item_description"`
	PublicKeyPEM            string                `json:"public_key_pem"`
	Receipts                []Receipt             `json:"receipts"`
	FinalizationAttestation AttestationCOSEBase64 `json:"finalization_attestation,omitempty"`
}
