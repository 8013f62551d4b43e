// Package fee computes the processing fee added on top of an invoice total.
package fee

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compute returns round(base*percent/100 + fixed, 2), rounding half up.
// base must be the original invoice amount, never a fee-inclusive total,
// so the fee never compounds on itself. A result <= 0 means there is no
// fee to add.
func Compute(base, percent, fixed decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred).Add(fixed).Round(2)
}

// Description renders the human-readable line-item description, e.g.
// "PayPal Processing Fee (5.95% + USD 0.3)". Duplicate detection scans for
// the leading marker, so the prefix must stay stable.
func Description(percent, fixed decimal.Decimal, currency string) string {
	return fmt.Sprintf("PayPal Processing Fee (%s%% + %s %s)", percent.String(), currency, fixed.String())
}
