// Package pricing derives cart totals. All amounts are integer cents and
// rounding is half away from zero.
package pricing

import (
	"github.com/shopspring/decimal"

	"restopos/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// UnitPrice is the base price plus every selected add-on extra.
func UnitPrice(line domain.CartLine) int64 {
	unit := line.UnitPriceCents
	for _, addon := range line.Addons {
		unit += addon.PriceExtraCents
	}
	return unit
}

func LineTotal(line domain.CartLine) int64 {
	if line.Quantity < 1 {
		return 0
	}
	return UnitPrice(line) * int64(line.Quantity)
}

func Subtotal(lines []domain.CartLine) int64 {
	subtotal := int64(0)
	for _, line := range lines {
		subtotal += LineTotal(line)
	}
	return subtotal
}

// DiscountAmount resolves a discount against a subtotal, clamped to [0, subtotal].
func DiscountAmount(subtotal int64, discount domain.Discount) int64 {
	if subtotal <= 0 {
		return 0
	}

	amount := int64(0)
	switch discount.Kind {
	case domain.DiscountPercentage:
		amount = percentOf(subtotal, discount.Percent)
	default:
		amount = discount.AmountCents
	}

	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// Tax applies a percentage rate to a taxable base. Negative inputs yield zero.
func Tax(base int64, ratePercent float64) int64 {
	if base <= 0 || ratePercent <= 0 {
		return 0
	}
	return percentOf(base, ratePercent)
}

func Compute(lines []domain.CartLine, discount domain.Discount, taxRatePercent float64) domain.Totals {
	subtotal := Subtotal(lines)
	discountCents := DiscountAmount(subtotal, discount)
	taxCents := Tax(subtotal-discountCents, taxRatePercent)

	return domain.Totals{
		SubtotalCents: subtotal,
		DiscountCents: discountCents,
		TaxCents:      taxCents,
		TotalCents:    subtotal - discountCents + taxCents,
	}
}

func percentOf(amount int64, percent float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred).
		Round(0).
		IntPart()
}
