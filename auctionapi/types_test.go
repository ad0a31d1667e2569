package auctionapi

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/escrowauction/core"
)

func testEvent() core.Event {
	return core.Event{
		ID:         uuid.MustParse("5f0c4d2e-8a1b-4c3d-9e2f-0123456789ab"),
		AuctionID:  uuid.MustParse("0b7e3f4a-1c2d-4e5f-8a9b-abcdef012345"),
		Sequence:   3,
		Type:       core.EventRefundIssued,
		Account:    "alice",
		Amount:     98,
		OccurredAt: time.Date(2026, 3, 1, 13, 0, 0, 123, time.UTC),
	}
}

func TestNewEventPayload(t *testing.T) {
	event := testEvent()
	payload := NewEventPayload(event, "prev")

	check.Equal(t, event.AuctionID.String(), payload.AuctionID)
	check.Equal(t, uint64(3), payload.Sequence)
	check.Equal(t, "refund.issued", payload.Type)
	check.Equal(t, "prev", payload.PrevHash)
	check.Equal(t, core.ComputeEventHash(event, "prev"), payload.Hash)

	back, err := payload.Event()
	assert.NoError(t, err)
	check.Equal(t, event.ID, back.ID)
	check.Equal(t, event.Account, back.Account)
	check.True(t, event.OccurredAt.Equal(back.OccurredAt))
	check.Equal(t, payload.Hash, core.ComputeEventHash(back, "prev"))
}

func TestEventPayload_MarshalCanonicalIsDeterministic(t *testing.T) {
	payload := NewEventPayload(testEvent(), "")

	first, err := payload.MarshalCanonical()
	assert.NoError(t, err)
	second, err := payload.MarshalCanonical()
	assert.NoError(t, err)
	check.Equal(t, first, second)

	decoded, err := UnmarshalEventPayload(first)
	assert.NoError(t, err)
	check.Equal(t, payload, *decoded)
}

func TestEventPayload_EventRejectsBadIDs(t *testing.T) {
	payload := NewEventPayload(testEvent(), "")

	badAuction := payload
	badAuction.AuctionID = "nope"
	_, err := badAuction.Event()
	check.NotNil(t, err)

	badEvent := payload
	badEvent.EventID = "nope"
	_, err = badEvent.Event()
	check.NotNil(t, err)
}

func TestUnmarshalEventPayload_Invalid(t *testing.T) {
	_, err := UnmarshalEventPayload([]byte{0xff, 0x00})
	check.NotNil(t, err)
}
