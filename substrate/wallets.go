// Package substrate is an in-memory stand-in for the ledger an auction runs on:
// account wallets that receive outbound transfers and a manually advanced clock.
package substrate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudx-io/escrowauction/core"
)

// ErrRejected is returned for transfers to an account configured to reject value.
var ErrRejected = errors.New("recipient rejected transfer")

// ReceiveHook runs when an account receives value, before Transfer returns.
// Hooks model recipient code executing during the transfer and may call back
// into the auction.
type ReceiveHook func(ctx context.Context, amount uint64) error

// Wallets holds account balances and implements core.Transferer.
type Wallets struct {
	mu       sync.Mutex
	balances map[core.Account]uint64
	rejects  map[core.Account]bool
	hooks    map[core.Account]ReceiveHook
	history  []Transfer
}

// Transfer records one completed outbound transfer.
type Transfer struct {
	To     core.Account `json:"to"`
	Amount uint64       `json:"amount"`
}

// NewWallets creates empty wallets.
func NewWallets() *Wallets {
	return &Wallets{
		balances: make(map[core.Account]uint64),
		rejects:  make(map[core.Account]bool),
		hooks:    make(map[core.Account]ReceiveHook),
	}
}

// Reject makes every future transfer to account fail.
func (w *Wallets) Reject(account core.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejects[account] = true
}

// Accept undoes Reject.
func (w *Wallets) Accept(account core.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.rejects, account)
}

// OnReceive installs a hook for account. A hook error rejects the transfer.
func (w *Wallets) OnReceive(account core.Account, hook ReceiveHook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if hook == nil {
		delete(w.hooks, account)
		return
	}
	w.hooks[account] = hook
}

// Transfer implements core.Transferer. The hook, if any, runs without the
// wallet lock held so it can re-enter the auction, which in turn may transfer.
func (w *Wallets) Transfer(ctx context.Context, to core.Account, amount uint64) error {
	w.mu.Lock()
	rejected := w.rejects[to]
	hook := w.hooks[to]
	w.mu.Unlock()

	if rejected {
		return fmt.Errorf("%w: %s", ErrRejected, to)
	}
	if hook != nil {
		if err := hook(ctx, amount); err != nil {
			return fmt.Errorf("receive hook for %s: %w", to, err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[to] += amount
	w.history = append(w.history, Transfer{To: to, Amount: amount})
	return nil
}

// BalanceOf returns the value account has received.
func (w *Wallets) BalanceOf(account core.Account) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[account]
}

// TotalPaid returns the sum of all completed transfers.
func (w *Wallets) TotalPaid() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total uint64
	for _, t := range w.history {
		total += t.Amount
	}
	return total
}

// History returns completed transfers in order.
func (w *Wallets) History() []Transfer {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Transfer, len(w.history))
	copy(out, w.history)
	return out
}
