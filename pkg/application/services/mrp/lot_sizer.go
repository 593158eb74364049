package mrp

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// LotSize rounds a net requirement up to the smallest orderable quantity: at
// least the minimum and, when the multiple exceeds 1, a multiple of it. A
// non-positive minimum counts as 1 and a multiple of 1 or less means no rounding.
func LotSize(net, minOrderQty, orderMultiple decimal.Decimal) decimal.Decimal {
	if !minOrderQty.IsPositive() {
		minOrderQty = one
	}

	qty := decimal.Max(net, minOrderQty)
	if orderMultiple.GreaterThan(one) {
		if rem := qty.Mod(orderMultiple); !rem.IsZero() {
			qty = qty.Add(orderMultiple.Sub(rem))
		}
	}
	return qty
}
