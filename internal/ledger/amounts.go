package ledger

import "math"

// FixedFeeUSD is charged once per issuance batch request and once per refill
// request, regardless of quantity.
const FixedFeeUSD = 0.0001

// MasterCreditRateUSD pins master tokens at 1 USD = 1 credit, for both
// issuance and refill.
const MasterCreditRateUSD = 1.0

// FloorCredits converts a USD amount into credits at the given USD-per-credit
// rate. Conversions always floor, never round or ceil; the sum of per-token
// USD values may therefore exceed what the floored credits are worth, which is
// accepted behavior.
func FloorCredits(usd, rate float64) int64 {
	if rate <= 0 {
		return 0
	}
	return int64(math.Floor(usd / rate))
}

// FloorAmount floors a raw amount to whole credits.
func FloorAmount(amount float64) int64 {
	return int64(math.Floor(amount))
}
