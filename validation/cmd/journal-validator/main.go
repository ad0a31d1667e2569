package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/validation"
)

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

func main() {
	var (
		journalInput       = flag.String("journal", "", "Journal JSON (file path or inline JSON)")
		publicKeyPath      = flag.String("public-key", "", "Trusted public key PEM file (default: key embedded in journal)")
		pcrConfigPath      = flag.String("pcrs", "", "Known PCR sets JSON file for attestation checks")
		requireAttestation = flag.Bool("require-attestation", false, "Fail finalized journals without an enclave attestation")
		outputFormat       = flag.String("format", "text", "Output format: text or json")
		help               = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help || *journalInput == "" {
		showUsage()
		if *journalInput == "" && !*help {
			os.Exit(1)
		}
		os.Exit(0)
	}

	journal, err := readJournal(*journalInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading journal: %v\n", err)
		os.Exit(2)
	}

	opts := validation.JournalValidationOptions{RequireAttestation: *requireAttestation}

	if *publicKeyPath != "" {
		data, err := os.ReadFile(*publicKeyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
			os.Exit(2)
		}
		opts.TrustedPublicKeyPEM = string(data)
	}

	if *pcrConfigPath != "" {
		opts.KnownPCRs, err = validation.LoadPCRsFromFile(*pcrConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading PCR configuration: %v\n", err)
			os.Exit(2)
		}
	}

	result, err := validation.ValidateJournal(journal, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		if err := outputJSON(journal, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(journal, result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Auction Journal Validator")
	logger.Info("")
	logger.Info("Verifies a signed receipt journal exported by auction-sim.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  journal-validator --journal <json> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --journal <json>                  Journal file path or inline JSON")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --public-key <path>               Trusted receipt signing key (PEM)")
	logger.Info("  --pcrs <path>                     Known enclave PCR sets (JSON)")
	logger.Info("  --require-attestation             Require a finalization attestation")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  journal-validator --journal journal.json")
	logger.Info("  journal-validator --journal journal.json --public-key notary.pem --pcrs pcrs.json --require-attestation")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Invalid input or runtime error")
}

func readJournal(input string) (*auctionapi.Journal, error) {
	// Try reading as file first
	data, err := os.ReadFile(input)
	if err != nil {
		data = []byte(input)
	}

	var journal auctionapi.Journal
	if err := json.Unmarshal(data, &journal); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if journal.PublicKeyPEM == "" {
		return nil, fmt.Errorf("missing public_key_pem field in journal")
	}
	return &journal, nil
}

func outputText(journal *auctionapi.Journal, result *validation.JournalValidationResult) {
	logger.Info("Auction Journal Validator")
	logger.Info("=========================")
	logger.Info("")
	logger.Info(fmt.Sprintf("Auction:  %s", journal.AuctionID))
	logger.Info(fmt.Sprintf("Item:     %s", journal.ItemDescription))
	logger.Info(fmt.Sprintf("Owner:    %s", journal.Owner))
	logger.Info(fmt.Sprintf("Receipts: %d", len(journal.Receipts)))

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Signatures Valid:     %v", result.SignaturesValid))
	logger.Info(fmt.Sprintf("  Sequence Valid:       %v", result.SequenceValid))
	logger.Info(fmt.Sprintf("  Chain Valid:          %v", result.ChainValid))
	logger.Info(fmt.Sprintf("  Finalization Valid:   %v", result.FinalizationValid))
	logger.Info(fmt.Sprintf("  Ledger Valid:         %v", result.LedgerValid))
	if result.Attestation != nil {
		logger.Info(fmt.Sprintf("  PCRs Valid:           %v", result.Attestation.PCRsValid))
		logger.Info(fmt.Sprintf("  Certificate Valid:    %v", result.Attestation.CertificateValid))
		logger.Info(fmt.Sprintf("  Attestation Sig Valid: %v", result.Attestation.SignatureValid))
		logger.Info(fmt.Sprintf("  Attested Data Valid:  %v", result.Attestation.UserDataValid))
	} else {
		logger.Info(fmt.Sprintf("  Attestation:          none (required: %v)", result.AttestationNeeded))
	}

	logger.Info("")
	logger.Info("Details:")
	for _, detail := range result.ValidationDetails {
		logger.Info(fmt.Sprintf("  - %s", detail))
	}

	logger.Info("")
	logger.Info("=========================")
	if result.IsValid() {
		logger.Info("VALIDATION: ✓ PASSED")
		logger.Info("Exit Code: 0")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
		logger.Info("Exit Code: 1")
	}
}

func outputJSON(journal *auctionapi.Journal, result *validation.JournalValidationResult) error {
	output := map[string]any{
		"valid":               result.IsValid(),
		"auction_id":          journal.AuctionID,
		"receipts":            len(journal.Receipts),
		"signatures_valid":    result.SignaturesValid,
		"sequence_valid":      result.SequenceValid,
		"chain_valid":         result.ChainValid,
		"finalization_valid":  result.FinalizationValid,
		"ledger_valid":        result.LedgerValid,
		"attestation_present": result.AttestationPresent,
		"details":             result.ValidationDetails,
	}
	if result.Attestation != nil {
		output["attestation"] = map[string]any{
			"valid":             result.Attestation.IsValid(),
			"pcrs_valid":        result.Attestation.PCRsValid,
			"certificate_valid": result.Attestation.CertificateValid,
			"signature_valid":   result.Attestation.SignatureValid,
			"user_data_valid":   result.Attestation.UserDataValid,
		}
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
