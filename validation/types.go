package validation

import "fmt"

// BaseValidationResult contains the attestation checks shared by every enclave document
type BaseValidationResult struct {
	PCRsValid         bool
	CertificateValid  bool
	SignatureValid    bool
	ValidationDetails []string
}

// FinalizationValidationResult contains validation results for a finalization attestation
type FinalizationValidationResult struct {
	BaseValidationResult
	UserDataValid bool
}

// IsValid returns true if all finalization attestation checks passed
func (r *FinalizationValidationResult) IsValid() bool {
	return r.PCRsValid && r.CertificateValid && r.SignatureValid && r.UserDataValid
}

// JournalValidationResult contains validation results for a receipt journal
type JournalValidationResult struct {
	SignaturesValid   bool
	SequenceValid     bool
	ChainValid        bool
	FinalizationValid bool
	LedgerValid       bool

	// Attestation is nil when the journal carries no finalization attestation.
	Attestation        *FinalizationValidationResult
	AttestationPresent bool
	AttestationNeeded  bool

	ValidationDetails []string
}

// IsValid returns true if all journal checks passed
func (r *JournalValidationResult) IsValid() bool {
	if !(r.SignaturesValid && r.SequenceValid && r.ChainValid && r.FinalizationValid && r.LedgerValid) {
		return false
	}
	if r.Attestation != nil {
		return r.Attestation.IsValid()
	}
	return !r.AttestationNeeded
}

func (r *JournalValidationResult) addDetail(format string, args ...any) {
	r.ValidationDetails = append(r.ValidationDetails, fmt.Sprintf(format, args...))
}

// PCRSet represents a known-good set of PCR measurements
type PCRSet struct {
	PCR0       string `json:"pcr0"`
	PCR1       string `json:"pcr1"`
	PCR2       string `json:"pcr2"`
	CommitHash string `json:"commit_hash"` // repo commit used to build the enclave image
}

// PCRConfig represents the PCR configuration file structure
type PCRConfig struct {
	PCRSets []PCRSet `json:"pcr_sets"`
}
