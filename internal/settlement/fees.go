package settlement

// Platform fee: 2% of the organizer's base amount, capped at FeeCap, in the
// same currency units as the amount.
const (
	feeRatePercent = 2
	FeeCap         = 200
)

// ComputeFee returns the platform fee for a base amount. Negative amounts
// clamp to zero.
func ComputeFee(baseAmount int64) int64 {
	if baseAmount <= 0 {
		return 0
	}
	fee := baseAmount * feeRatePercent / 100
	if fee > FeeCap {
		return FeeCap
	}
	return fee
}

type Totals struct {
	Fee   int64
	Total int64
}

// ComputeTotal returns the fee and the grand total the customer is charged.
func ComputeTotal(baseAmount int64) Totals {
	if baseAmount <= 0 {
		return Totals{}
	}
	fee := ComputeFee(baseAmount)
	return Totals{Fee: fee, Total: baseAmount + fee}
}
