package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/substrate"
)

// Operations a scenario step may perform.
const (
	OpBid               = "bid"
	OpReceive           = "receive"
	OpWithdrawExcess    = "withdraw_excess"
	OpFinalize          = "finalize"
	OpRefund            = "refund"
	OpDistributeRefunds = "distribute_refunds"
	OpWithdrawFunds     = "withdraw_funds"
	OpEmergencyRecovery = "emergency_recovery"
)

// Scenario is a timed script of calls against one auction.
type Scenario struct {
	Owner           core.Account   `json:"owner"`
	Item            string         `json:"item"`
	DurationMinutes uint           `json:"duration_minutes"`
	Start           time.Time      `json:"start"`
	Rejecting       []core.Account `json:"rejecting"`
	Steps           []Step         `json:"steps"`
}

// Step is one call made AtMinute minutes after the auction starts.
type Step struct {
	AtMinute uint         `json:"at_minute"`
	Op       string       `json:"op"`
	Caller   core.Account `json:"caller"`
	Amount   uint64       `json:"amount,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int           `json:"index"`
	AtMinute uint          `json:"at_minute"`
	Op       string        `json:"op"`
	Caller   core.Account  `json:"caller,omitempty"`
	Amount   uint64        `json:"amount,omitempty"`
	Error    string        `json:"error,omitempty"`
	Refunds  []core.Refund `json:"refunds,omitempty"`
}

func loadScenario(input string) (*Scenario, error) {
	// Try reading as file first
	data, err := os.ReadFile(input)
	if err != nil {
		data = []byte(input)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Owner == "" {
		return errors.New("scenario owner is required")
	}
	if s.DurationMinutes == 0 {
		return errors.New("scenario duration_minutes must be positive")
	}
	for i, step := range s.Steps {
		switch step.Op {
		case OpBid, OpReceive, OpWithdrawExcess, OpFinalize, OpRefund,
			OpDistributeRefunds, OpWithdrawFunds, OpEmergencyRecovery:
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
	}
	return nil
}

// batches groups steps by minute, keeping file order within a minute.
func (s *Scenario) batches() [][]int {
	order := make([]int, len(s.Steps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Steps[order[a]].AtMinute < s.Steps[order[b]].AtMinute
	})

	var out [][]int
	for _, idx := range order {
		if n := len(out); n > 0 && s.Steps[out[n-1][0]].AtMinute == s.Steps[idx].AtMinute {
			out[n-1] = append(out[n-1], idx)
			continue
		}
		out = append(out, []int{idx})
	}
	return out
}

// runner executes a scenario against an auction on a simulated substrate.
type runner struct {
	auction  *core.Auction
	clock    *substrate.Clock
	wallets  *substrate.Wallets
	start    time.Time
	parallel int
}

// run executes every step and returns results in step order. Steps sharing a
// minute run concurrently when parallel > 1; their relative order is then
// decided by the auction's lock. The lock is released during transfers, so
// concurrent steps can observe outcomes no sequential order produces, such as
// a refund failing while a sweep that is later rolled back holds the balance.
// Keep parallel at 1 when results must match a one-call-at-a-time replay.
func (r *runner) run(ctx context.Context, s *Scenario) ([]StepResult, error) {
	results := make([]StepResult, len(s.Steps))

	for _, batch := range s.batches() {
		r.clock.Set(r.start.Add(time.Duration(s.Steps[batch[0]].AtMinute) * time.Minute))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(r.parallel, 1))
		for _, idx := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[idx] = r.apply(gctx, idx, s.Steps[idx])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *runner) apply(ctx context.Context, idx int, step Step) StepResult {
	res := StepResult{Index: idx, AtMinute: step.AtMinute, Op: step.Op, Caller: step.Caller}

	var (
		amount uint64
		err    error
	)
	switch step.Op {
	case OpBid:
		amount = step.Amount
		err = r.auction.PlaceBid(ctx, step.Caller, step.Amount)
	case OpReceive:
		amount = step.Amount
		err = r.auction.Receive(step.Caller, step.Amount)
	case OpWithdrawExcess:
		amount, err = r.auction.WithdrawExcess(ctx, step.Caller)
	case OpFinalize:
		_, amount, err = r.auction.Finalize(ctx, step.Caller)
	case OpRefund:
		var refund core.Refund
		refund, err = r.auction.RefundDeposit(ctx, step.Caller)
		amount = refund.Net
	case OpDistributeRefunds:
		res.Refunds, err = r.auction.DistributeNonWinnerRefunds(ctx)
		for _, refund := range res.Refunds {
			amount += refund.Net
		}
	case OpWithdrawFunds:
		amount, err = r.auction.WithdrawFunds(ctx, step.Caller)
	case OpEmergencyRecovery:
		amount, err = r.auction.EmergencyRecovery(ctx, step.Caller)
	}

	res.Amount = amount
	if err != nil {
		res.Amount = 0
		res.Error = err.Error()
	}
	return res
}
