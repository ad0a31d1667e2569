package validation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloudx-io/escrowauction/auctionapi/parsing"
)

// LoadPCRsFromFile loads known PCR sets from a JSON file
func LoadPCRsFromFile(path string) ([]PCRSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCR config file: %w", err)
	}

	var config PCRConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse PCR config: %w", err)
	}

	if len(config.PCRSets) == 0 {
		return nil, fmt.Errorf("no PCR sets found in config file")
	}

	return config.PCRSets, nil
}

// ValidatePCRs checks if PCRs 0-2 match any known valid set
// Returns: (match bool, matched set index)
// If no match, returns (false, -1)
func ValidatePCRs(pcrs map[uint64][]byte, knownSets []PCRSet) (bool, int) {
	pcr0 := parsing.FormatPCR(pcrs[0])
	pcr1 := parsing.FormatPCR(pcrs[1])
	pcr2 := parsing.FormatPCR(pcrs[2])
	if pcr0 == "" {
		return false, -1
	}

	for i, knownSet := range knownSets {
		if pcr0 == knownSet.PCR0 && pcr1 == knownSet.PCR1 && pcr2 == knownSet.PCR2 {
			return true, i
		}
	}
	return false, -1
}
