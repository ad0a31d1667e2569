package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

func outputText(r *report) {
	output.Info("Escrow Auction Simulator")
	output.Info("========================")
	output.Info("")
	output.Info(fmt.Sprintf("Auction: %s", r.Record.ID))
	output.Info(fmt.Sprintf("Item:    %s", r.Record.ItemDescription))
	output.Info(fmt.Sprintf("Owner:   %s", r.Record.Owner))
	output.Info(fmt.Sprintf("Ends:    %s", r.Record.EndTime.Format("2006-01-02 15:04:05 MST")))

	output.Info("")
	output.Info("Steps:")
	for _, res := range r.Results {
		line := fmt.Sprintf("  [%3d min] %-18s %-8s", res.AtMinute, res.Op, res.Caller)
		if res.Error != "" {
			output.Info(fmt.Sprintf("%s ✗ %s", line, res.Error))
			continue
		}
		output.Info(fmt.Sprintf("%s ✓ %d", line, res.Amount))
		for _, refund := range res.Refunds {
			output.Info(fmt.Sprintf("      refund %-8s deposit %d, commission %d, net %d",
				refund.Bidder, refund.Deposit, refund.Commission, refund.Net))
		}
	}

	output.Info("")
	output.Info("Standings:")
	for _, s := range r.Standings {
		output.Info(fmt.Sprintf("  %d. %-10s bid %-10d deposit %d", s.Rank, s.Bidder, s.Bid, s.Deposit))
	}

	output.Info("")
	output.Info("Custody:")
	output.Info(fmt.Sprintf("  State:    %s", r.State))
	output.Info(fmt.Sprintf("  Received: %d", r.Totals.Received))
	output.Info(fmt.Sprintf("  Paid out: %d", r.Totals.PaidOut))
	output.Info(fmt.Sprintf("  Balance:  %d", r.Totals.Balance))

	output.Info("")
	output.Info("Wallets:")
	for _, account := range slices.Sorted(maps.Keys(r.Wallets)) {
		output.Info(fmt.Sprintf("  %-10s %d", account, r.Wallets[account]))
	}

	output.Info("")
	output.Info(fmt.Sprintf("Journal: %d receipts, head %s", len(r.Journal.Receipts), r.HeadHash))
	if r.Journal.FinalizationAttestation != "" {
		output.Info("Finalization attested by enclave")
	}

	output.Info("")
	output.Info("========================")
	if r.Conserved {
		output.Info("CONSERVATION: ✓ HELD")
	} else {
		output.Info("CONSERVATION: ✗ VIOLATED")
	}
}

func outputJSON(r *report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	output.Info(string(data))
	return nil
}
