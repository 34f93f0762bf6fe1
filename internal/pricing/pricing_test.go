package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"restopos/internal/domain"
)

func TestComputeFixedDiscountScenario(t *testing.T) {
	lines := []domain.CartLine{{ProductID: "p1", UnitPriceCents: 10000, Quantity: 2}}
	totals := Compute(lines, domain.Discount{Kind: domain.DiscountFixed, AmountCents: 5000}, 16)

	assert.Equal(t, domain.Totals{
		SubtotalCents: 20000,
		DiscountCents: 5000,
		TaxCents:      2400,
		TotalCents:    17400,
	}, totals)
}

func TestComputeIncludesAddonExtras(t *testing.T) {
	lines := []domain.CartLine{{
		ProductID:      "taco",
		UnitPriceCents: 2500,
		Quantity:       3,
		Addons: []domain.SelectedAddon{
			{GroupName: "Extras", Name: "Queso", PriceExtraCents: 1000},
			{GroupName: "Extras", Name: "Guacamole", PriceExtraCents: 1500},
		},
	}}
	totals := Compute(lines, domain.Discount{}, 0)
	assert.Equal(t, int64(15000), totals.SubtotalCents)
	assert.Equal(t, int64(15000), totals.TotalCents)
}

func TestComputePercentageDiscount(t *testing.T) {
	lines := []domain.CartLine{{ProductID: "p1", UnitPriceCents: 3333, Quantity: 1}}
	totals := Compute(lines, domain.Discount{Kind: domain.DiscountPercentage, Percent: 10}, 16)

	// 333.3 rounds to 333, tax on 3000 is 480.
	assert.Equal(t, int64(333), totals.DiscountCents)
	assert.Equal(t, int64(480), totals.TaxCents)
	assert.Equal(t, int64(3480), totals.TotalCents)
}

func TestComputeClampsDiscountToSubtotal(t *testing.T) {
	lines := []domain.CartLine{{ProductID: "p1", UnitPriceCents: 1000, Quantity: 1}}

	fixed := Compute(lines, domain.Discount{Kind: domain.DiscountFixed, AmountCents: 999999}, 16)
	assert.Equal(t, int64(1000), fixed.DiscountCents)
	assert.Zero(t, fixed.TaxCents)
	assert.Zero(t, fixed.TotalCents)

	pct := Compute(lines, domain.Discount{Kind: domain.DiscountPercentage, Percent: 250}, 16)
	assert.Equal(t, int64(1000), pct.DiscountCents)
	assert.Zero(t, pct.TotalCents)
}

func TestComputeEmptyCartIsZero(t *testing.T) {
	totals := Compute(nil, domain.Discount{Kind: domain.DiscountFixed, AmountCents: 500}, 16)
	assert.Equal(t, domain.Totals{}, totals)
}

func TestComputeNegativeDiscountIgnored(t *testing.T) {
	lines := []domain.CartLine{{ProductID: "p1", UnitPriceCents: 1000, Quantity: 1}}
	totals := Compute(lines, domain.Discount{Kind: domain.DiscountFixed, AmountCents: -300}, 0)
	assert.Zero(t, totals.DiscountCents)
	assert.Equal(t, int64(1000), totals.TotalCents)
}

func TestComputeTotalNeverBelowDiscountedSubtotal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		lines := make([]domain.CartLine, rng.Intn(5))
		for j := range lines {
			lines[j] = domain.CartLine{
				ProductID:      "p",
				UnitPriceCents: int64(rng.Intn(50000)),
				Quantity:       1 + rng.Intn(6),
			}
		}
		subtotal := Subtotal(lines)
		discount := int64(0)
		if subtotal > 0 {
			discount = rng.Int63n(subtotal + 1)
		}
		totals := Compute(lines, domain.Discount{Kind: domain.DiscountFixed, AmountCents: discount}, float64(rng.Intn(30)))

		if totals.DiscountCents != discount {
			t.Fatalf("case %d: expected discount %d, got %d", i, discount, totals.DiscountCents)
		}
		if totals.TotalCents < totals.SubtotalCents-discount {
			t.Fatalf("case %d: total %d below discounted subtotal %d", i, totals.TotalCents, totals.SubtotalCents-discount)
		}
	}
}

func TestComputeIsOrderIndependent(t *testing.T) {
	a := domain.CartLine{ProductID: "a", UnitPriceCents: 1250, Quantity: 3}
	b := domain.CartLine{ProductID: "b", UnitPriceCents: 899, Quantity: 7}
	c := domain.CartLine{ProductID: "c", UnitPriceCents: 45, Quantity: 1}
	discount := domain.Discount{Kind: domain.DiscountPercentage, Percent: 12.5}

	first := Compute([]domain.CartLine{a, b, c}, discount, 16)
	second := Compute([]domain.CartLine{c, a, b}, discount, 16)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Compute([]domain.CartLine{a, b, c}, discount, 16))
}
