package core

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// MinIncrementDivisor sets the minimum raise over the leading bid: highest/20 (5%).
	MinIncrementDivisor = 20

	// CommissionPercent is retained on every refunded losing deposit.
	CommissionPercent = 2
)

var maxUint64Decimal = toDecimal(^uint64(0))

func toDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// fromDecimal converts an integral, non-negative decimal back to uint64.
// ok is false when the value does not fit.
func fromDecimal(d decimal.Decimal) (v uint64, ok bool) {
	if d.IsNegative() || d.GreaterThan(maxUint64Decimal) {
		return 0, false
	}
	bi := d.Floor().BigInt()
	if !bi.IsUint64() {
		return 0, false
	}
	return bi.Uint64(), true
}

// minimumNextBid returns the lowest acceptable bid given the current leader.
// The threshold is computed exactly with truncating division; a threshold that
// does not fit in uint64 is reported with ok=false, meaning no bid can meet it.
func minimumNextBid(highestBid uint64) (min uint64, ok bool) {
	if highestBid == 0 {
		return 1, true
	}
	highest := toDecimal(highestBid)
	increment := highest.Div(decimal.NewFromInt(MinIncrementDivisor)).Floor()
	return fromDecimal(highest.Add(increment))
}

// BidMeetsMinimum reports whether amount meets the threshold implied by highestBid.
// Equality is accepted.
func BidMeetsMinimum(amount, highestBid uint64) bool {
	min, ok := minimumNextBid(highestBid)
	return ok && amount >= min
}

// ComputeCommission splits a deposit into the retained commission and the net refund.
// commission = floor(deposit * CommissionPercent / 100).
func ComputeCommission(deposit uint64) (commission, net uint64) {
	d := toDecimal(deposit)
	c := d.Mul(decimal.NewFromInt(CommissionPercent)).Div(decimal.NewFromInt(100)).Floor()
	// c <= deposit, so it always fits.
	commission, _ = fromDecimal(c)
	return commission, deposit - commission
}

func addChecked(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}
