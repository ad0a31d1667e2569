package validation

import (
	"fmt"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/auctionapi/parsing"
)

// ExpectedFinalization is what the journal says the attestation must contain.
type ExpectedFinalization struct {
	AuctionID   string
	Winner      string
	Amount      uint64
	ReceiptHash string
}

// ValidateFinalizationAttestation validates a Nitro attestation of a finalized
// auction: PCRs against knownPCRs, certificate chain, COSE signature, and the
// embedded finalization record against expected.
//
// Returns an error only when the document cannot be parsed at all.
func ValidateFinalizationAttestation(attestationB64 auctionapi.AttestationCOSEBase64, expected ExpectedFinalization, knownPCRs []PCRSet) (*FinalizationValidationResult, error) {
	coseBytes, err := attestationB64.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode COSE bytes: %w", err)
	}

	doc, err := parsing.ParseNitroDocument(coseBytes)
	if err != nil {
		return nil, fmt.Errorf("parse attestation document: %w", err)
	}

	result := &FinalizationValidationResult{
		BaseValidationResult: validateCommonAttestation(coseBytes, doc, knownPCRs),
	}

	userData, err := parsing.ParseFinalizationAttestation(coseBytes)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Finalization user data unreadable: %v", err))
		return result, nil
	}

	result.UserDataValid = true
	mismatch := func(field string, want, got any) {
		result.UserDataValid = false
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Attested %s mismatch: expected %v, attestation has %v", field, want, got))
	}
	if userData.AuctionID != expected.AuctionID {
		mismatch("auction id", expected.AuctionID, userData.AuctionID)
	}
	if userData.Winner != expected.Winner {
		mismatch("winner", expected.Winner, userData.Winner)
	}
	if userData.Amount != expected.Amount {
		mismatch("amount", expected.Amount, userData.Amount)
	}
	if userData.ReceiptHash != expected.ReceiptHash {
		mismatch("receipt hash", expected.ReceiptHash, userData.ReceiptHash)
	}
	if result.UserDataValid {
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Attested finalization matches journal: %s won at %d", userData.Winner, userData.Amount))
	}

	return result, nil
}

// validateCommonAttestation checks PCRs, certificate chain, and signature of a
// parsed Nitro attestation document.
func validateCommonAttestation(coseBytes auctionapi.AttestationCOSE, doc *parsing.NitroAttestationDocument, knownPCRs []PCRSet) BaseValidationResult {
	result := BaseValidationResult{
		ValidationDetails: []string{},
	}

	if len(knownPCRs) == 0 {
		result.ValidationDetails = append(result.ValidationDetails, "No known PCR sets configured")
	} else {
		pcrMatch, matchedSet := ValidatePCRs(doc.PCRs, knownPCRs)
		result.PCRsValid = pcrMatch
		if !pcrMatch {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR0: %s (no match)", parsing.FormatPCR(doc.PCRs[0])))
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR1: %s (no match)", parsing.FormatPCR(doc.PCRs[1])))
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR2: %s (no match)", parsing.FormatPCR(doc.PCRs[2])))
		} else {
			result.ValidationDetails = append(result.ValidationDetails, "PCR measurements valid")
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Matched PCR set: #%d (commit: %s)",
				matchedSet, knownPCRs[matchedSet].CommitHash))
		}
	}

	switch {
	case len(doc.Certificate) == 0:
		result.ValidationDetails = append(result.ValidationDetails, "Missing certificate")
	case len(doc.CABundle) == 0:
		result.ValidationDetails = append(result.ValidationDetails, "Missing CA bundle")
	default:
		if err := ValidateCertificateChain(doc.Certificate, doc.CABundle, doc.Timestamp); err != nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Certificate chain validation failed: %v", err))
		} else {
			result.CertificateValid = true
			result.ValidationDetails = append(result.ValidationDetails, "Certificate chain verified")
		}
	}

	if err := VerifyAttestationSignature(coseBytes, doc.Certificate); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("COSE signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "COSE signature verified")
	}

	return result
}
