package parsing

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// NitroAttestationDocument represents the raw CBOR structure from AWS Nitro Enclaves
type NitroAttestationDocument struct {
	ModuleID    string            `cbor:"module_id"`
	Digest      string            `cbor:"digest"`
	Timestamp   uint64            `cbor:"timestamp"`
	PCRs        map[uint64][]byte `cbor:"pcrs"`
	Certificate []byte            `cbor:"certificate"`
	CABundle    [][]byte          `cbor:"cabundle"`
	PublicKey   []byte            `cbor:"public_key"`
	UserData    []byte            `cbor:"user_data"`
	Nonce       []byte            `cbor:"nonce"`
}

// FormatPCR formats PCR bytes as hex string
func FormatPCR(pcrData []byte) string {
	if len(pcrData) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", pcrData)
}

// ParseNitroDocument extracts the attestation document from COSE_Sign1 bytes.
func ParseNitroDocument(attestation auctionapi.AttestationCOSE) (*NitroAttestationDocument, error) {
	payload, err := ExtractCOSEPayload(attestation)
	if err != nil {
		return nil, err
	}
	var doc NitroAttestationDocument
	if err := cbor.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("parse attestation document: %w", err)
	}
	return &doc, nil
}

// ParseFinalizationAttestation returns the finalization record embedded as user data.
func ParseFinalizationAttestation(attestation auctionapi.AttestationCOSE) (*auctionapi.FinalizationUserData, error) {
	doc, err := ParseNitroDocument(attestation)
	if err != nil {
		return nil, err
	}
	if len(doc.UserData) == 0 {
		return nil, fmt.Errorf("attestation has no user data")
	}
	var userData auctionapi.FinalizationUserData
	if err := json.Unmarshal(doc.UserData, &userData); err != nil {
		return nil, fmt.Errorf("parse user data: %w", err)
	}
	return &userData, nil
}
