package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restopos/internal/domain"
)

var (
	taco = domain.Product{ID: "prod-taco", Name: "Taco al Pastor", PriceCents: 2500}
	agua = domain.Product{ID: "prod-agua", Name: "Agua Fresca", PriceCents: 3000}
)

func queso() domain.SelectedAddon {
	return domain.SelectedAddon{GroupName: "Extras", Name: "Queso", PriceExtraCents: 1000}
}

func guacamole() domain.SelectedAddon {
	return domain.SelectedAddon{GroupName: "Extras", Name: "Guacamole", PriceExtraCents: 1500}
}

func TestNewSessionHasOneActiveTab(t *testing.T) {
	s := NewSession()
	require.Len(t, s.Tabs, 1)
	assert.Equal(t, 1, s.ActiveTabID)
	assert.Equal(t, "Client 1", s.ActiveTab().Name)
}

func TestAddTabUsesMaxIDPlusOne(t *testing.T) {
	s := NewSession()
	s.AddTab()
	s.AddTab()
	require.NoError(t, s.RemoveTab(2))

	tab := s.AddTab()
	assert.Equal(t, 4, tab.ID)
	assert.Equal(t, 4, s.ActiveTabID)
}

func TestRemoveLastTabIsRejected(t *testing.T) {
	s := NewSession()
	_, err := s.AddLine(taco, nil, "")
	require.NoError(t, err)

	err = s.RemoveTab(1)
	assert.ErrorIs(t, err, ErrLastTab)
	assert.ErrorIs(t, err, ErrRejected)
	require.Len(t, s.Tabs, 1)
	assert.Len(t, s.Tabs[0].Lines, 1)
}

func TestRemoveActiveTabFallsBackToFirstInListOrder(t *testing.T) {
	s := NewSession()
	s.AddTab() // 2
	s.AddTab() // 3
	require.NoError(t, s.RemoveTab(1))
	s.AddTab() // 4, order is now 2,3,4

	require.NoError(t, s.ActivateTab(3))
	require.NoError(t, s.RemoveTab(3))
	assert.Equal(t, 2, s.ActiveTabID)

	require.NoError(t, s.ActivateTab(4))
	require.NoError(t, s.RemoveTab(2))
	assert.Equal(t, 4, s.ActiveTabID, "removing an inactive tab keeps the active one")
}

func TestAddLineMergesSameProductAndAddonSet(t *testing.T) {
	s := NewSession()
	first, err := s.AddLine(taco, []domain.SelectedAddon{queso(), guacamole()}, "")
	require.NoError(t, err)
	second, err := s.AddLine(taco, []domain.SelectedAddon{guacamole(), queso()}, "")
	require.NoError(t, err)

	assert.Equal(t, first.LineID, second.LineID)
	require.Len(t, s.ActiveTab().Lines, 1)
	assert.Equal(t, 2, s.ActiveTab().Lines[0].Quantity)
}

func TestAddLineKeepsDifferentAddonsApart(t *testing.T) {
	s := NewSession()
	_, _ = s.AddLine(taco, []domain.SelectedAddon{queso()}, "")
	_, _ = s.AddLine(taco, nil, "")
	// Same option name in another group is a different selection.
	_, _ = s.AddLine(taco, []domain.SelectedAddon{{GroupName: "Salsa", Name: "Queso"}}, "")

	assert.Len(t, s.ActiveTab().Lines, 3)
}

func TestChangeQuantityRemovesLineAtZero(t *testing.T) {
	s := NewSession()
	line, _ := s.AddLine(agua, nil, "")
	require.NoError(t, s.ChangeQuantity(line.LineID, 2))
	assert.Equal(t, 3, s.ActiveTab().Lines[0].Quantity)

	require.NoError(t, s.ChangeQuantity(line.LineID, -5))
	assert.Empty(t, s.ActiveTab().Lines)

	assert.ErrorIs(t, s.ChangeQuantity(line.LineID, 1), ErrLineNotFound)
}

func TestAssignAndUnassignCustomer(t *testing.T) {
	s := NewSession()
	s.AssignCustomer(domain.CustomerRef{ID: "cus-1", Name: "Ana Lopez"})
	assert.Equal(t, "Ana", s.ActiveTab().Name)
	require.NotNil(t, s.ActiveTab().Customer)

	s.UnassignCustomer()
	assert.Nil(t, s.ActiveTab().Customer)
	assert.Equal(t, "Client 1", s.ActiveTab().Name)
}

func TestApplyDiscountValidatesKind(t *testing.T) {
	s := NewSession()
	assert.ErrorIs(t, s.ApplyDiscount(domain.Discount{Kind: "bogus"}), ErrInvalidDiscount)
	assert.ErrorIs(t, s.ApplyDiscount(domain.Discount{Kind: domain.DiscountPercentage, Percent: 120}), ErrInvalidDiscount)

	require.NoError(t, s.ApplyDiscount(domain.Discount{Kind: domain.DiscountFixed, AmountCents: 5000, Reason: "vip"}))
	assert.Equal(t, int64(5000), s.ActiveTab().Discount.AmountCents)
}

func TestTotalsFollowActiveTab(t *testing.T) {
	s := NewSession()
	line, _ := s.AddLine(domain.Product{ID: "burger", PriceCents: 10000}, nil, "")
	require.NoError(t, s.ChangeQuantity(line.LineID, 1))
	require.NoError(t, s.ApplyDiscount(domain.Discount{Kind: domain.DiscountFixed, AmountCents: 5000}))

	assert.Equal(t, int64(17400), s.Totals(16).TotalCents)

	s.AddTab()
	assert.Zero(t, s.Totals(16).TotalCents)
}

func TestCheckoutTabStagesCopyAndResetsOnSuccess(t *testing.T) {
	s := NewSession()
	_, _ = s.AddLine(taco, nil, "")
	s.AssignCustomer(domain.CustomerRef{ID: "cus-1", Name: "Ana"})

	pending, err := s.CheckoutTab()
	require.NoError(t, err)
	assert.Zero(t, pending.CheckID)
	require.Len(t, pending.Lines, 1)

	pending.Lines[0].Quantity = 99
	assert.Equal(t, 1, s.ActiveTab().Lines[0].Quantity, "staged lines must not alias the tab")

	_, err = s.AddLine(taco, nil, "")
	assert.ErrorIs(t, err, ErrPaymentPending)

	require.NoError(t, s.PaymentResult(true))
	assert.Nil(t, s.Pending)
	assert.Empty(t, s.ActiveTab().Lines)
	assert.Nil(t, s.ActiveTab().Customer)
}

func TestCheckoutTabFailureKeepsCart(t *testing.T) {
	s := NewSession()
	_, _ = s.AddLine(taco, nil, "")
	_, err := s.CheckoutTab()
	require.NoError(t, err)

	require.NoError(t, s.PaymentResult(false))
	assert.Nil(t, s.Pending)
	assert.Len(t, s.ActiveTab().Lines, 1)
}

func TestCheckoutEmptyTabRejected(t *testing.T) {
	s := NewSession()
	_, err := s.CheckoutTab()
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.ErrorIs(t, s.PaymentResult(true), ErrNoPendingPayment)
}

func TestLineQuantityCappedAtSaleLimit(t *testing.T) {
	s := NewSession()
	line, err := s.AddLine(taco, nil, "")
	require.NoError(t, err)
	require.NoError(t, s.ChangeQuantity(line.LineID, MaxLineQuantity-1))

	_, err = s.AddLine(taco, nil, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.ErrorIs(t, s.ChangeQuantity(line.LineID, 1), ErrInvalidQuantity)
	assert.Equal(t, MaxLineQuantity, s.ActiveTab().Lines[0].Quantity)

	require.NoError(t, s.ChangeQuantity(line.LineID, -1))
	assert.Equal(t, MaxLineQuantity-1, s.ActiveTab().Lines[0].Quantity)
}

func TestCheckoutTabCarriesPaymentKey(t *testing.T) {
	s := NewSession()
	_, _ = s.AddLine(taco, nil, "")

	pending, err := s.CheckoutTab()
	require.NoError(t, err)
	assert.NotEmpty(t, pending.Key)
	assert.Equal(t, pending.Key, s.Pending.Key)
}

func TestCloneLinesDeepCopiesAddons(t *testing.T) {
	lines := []domain.CartLine{{LineID: "l1", ProductID: taco.ID, Quantity: 1, Addons: []domain.SelectedAddon{queso()}}}

	out, err := CloneLines(lines)
	require.NoError(t, err)
	out[0].Addons[0].Name = "Changed"
	assert.Equal(t, "Queso", lines[0].Addons[0].Name)

	empty, err := CloneLines(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
