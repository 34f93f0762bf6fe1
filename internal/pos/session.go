// Package pos holds the per-terminal selling state: tabs, the bill splitter
// and the payment currently staged for checkout. A Session is a plain value
// owned by its caller; nothing here is safe for concurrent use.
package pos

import (
	"errors"
	"fmt"
	"strings"

	"restopos/internal/domain"
	"restopos/internal/pricing"
)

// MaxLineQuantity matches the per-line limit a sale accepts.
const MaxLineQuantity = 999

// ErrRejected marks an operator guardrail: the request was refused and the
// session is unchanged.
var ErrRejected = errors.New("rejected")

var (
	ErrLastTab          = fmt.Errorf("%w: cannot remove the last tab", ErrRejected)
	ErrTabNotFound      = fmt.Errorf("%w: tab not found", ErrRejected)
	ErrLineNotFound     = fmt.Errorf("%w: line not found", ErrRejected)
	ErrEmptyCart        = fmt.Errorf("%w: cart is empty", ErrRejected)
	ErrInvalidDiscount  = fmt.Errorf("%w: invalid discount", ErrRejected)
	ErrSplitInProgress  = fmt.Errorf("%w: tab is being split", ErrRejected)
	ErrSplitInactive    = fmt.Errorf("%w: no split in progress", ErrRejected)
	ErrCheckNotFound    = fmt.Errorf("%w: check not found", ErrRejected)
	ErrEmptyCheck       = fmt.Errorf("%w: check has no items", ErrRejected)
	ErrInvalidMove      = fmt.Errorf("%w: invalid move", ErrRejected)
	ErrInvalidQuantity  = fmt.Errorf("%w: invalid quantity", ErrRejected)
	ErrPaymentPending   = fmt.Errorf("%w: a payment is already pending", ErrRejected)
	ErrNoPendingPayment = fmt.Errorf("%w: no pending payment", ErrRejected)
)

type Session struct {
	Tabs        []domain.Tab           `json:"tabs"`
	ActiveTabID int                    `json:"active_tab_id"`
	Split       *domain.SplitSession   `json:"split,omitempty"`
	Pending     *domain.PendingPayment `json:"pending_payment,omitempty"`
}

func NewSession() *Session {
	return &Session{
		Tabs:        []domain.Tab{newTab(1)},
		ActiveTabID: 1,
	}
}

func newTab(id int) domain.Tab {
	return domain.Tab{
		ID:       id,
		Name:     defaultTabName(id),
		Discount: domain.Discount{Kind: domain.DiscountFixed},
	}
}

func defaultTabName(id int) string {
	return fmt.Sprintf("Client %d", id)
}

func (s *Session) tabIndex(id int) int {
	for i := range s.Tabs {
		if s.Tabs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) Tab(id int) (*domain.Tab, error) {
	idx := s.tabIndex(id)
	if idx < 0 {
		return nil, ErrTabNotFound
	}
	return &s.Tabs[idx], nil
}

func (s *Session) ActiveTab() *domain.Tab {
	if idx := s.tabIndex(s.ActiveTabID); idx >= 0 {
		return &s.Tabs[idx]
	}
	if len(s.Tabs) == 0 {
		s.Tabs = []domain.Tab{newTab(1)}
	}
	s.ActiveTabID = s.Tabs[0].ID
	return &s.Tabs[0]
}

// AddTab opens a new tab with id max+1 and makes it active.
func (s *Session) AddTab() domain.Tab {
	next := 1
	for _, tab := range s.Tabs {
		if tab.ID >= next {
			next = tab.ID + 1
		}
	}
	tab := newTab(next)
	s.Tabs = append(s.Tabs, tab)
	s.ActiveTabID = tab.ID
	return tab
}

// RemoveTab drops a tab. The last tab can never be removed. When the active
// tab goes away the first remaining tab in list order becomes active.
func (s *Session) RemoveTab(id int) error {
	idx := s.tabIndex(id)
	if idx < 0 {
		return ErrTabNotFound
	}
	if len(s.Tabs) == 1 {
		return ErrLastTab
	}
	if s.tabBusy(id) {
		return ErrSplitInProgress
	}

	s.Tabs = append(s.Tabs[:idx], s.Tabs[idx+1:]...)
	if s.ActiveTabID == id {
		s.ActiveTabID = s.Tabs[0].ID
	}
	return nil
}

func (s *Session) ActivateTab(id int) error {
	if s.tabIndex(id) < 0 {
		return ErrTabNotFound
	}
	s.ActiveTabID = id
	return nil
}

// editableTab returns the active tab unless its bill is staged for payment
// or its lines are owned by a split.
func (s *Session) editableTab() (*domain.Tab, error) {
	tab := s.ActiveTab()
	if s.Pending != nil && s.Pending.TabID == tab.ID {
		return nil, ErrPaymentPending
	}
	if s.Split != nil && s.Split.TabID == tab.ID {
		return nil, ErrSplitInProgress
	}
	return tab, nil
}

func (s *Session) tabBusy(id int) bool {
	return (s.Split != nil && s.Split.TabID == id) || (s.Pending != nil && s.Pending.TabID == id)
}

// AddLine adds one unit to the active tab, merging with a line that has the
// same product and the same add-on selection.
func (s *Session) AddLine(product domain.Product, addons []domain.SelectedAddon, note string) (domain.CartLine, error) {
	tab, err := s.editableTab()
	if err != nil {
		return domain.CartLine{}, err
	}
	line := domain.CartLine{
		LineID:         NewLineID(),
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPriceCents: product.PriceCents,
		Quantity:       1,
		Addons:         append([]domain.SelectedAddon(nil), addons...),
		Note:           strings.TrimSpace(note),
	}

	for i := range tab.Lines {
		if Equivalent(tab.Lines[i], line) {
			if tab.Lines[i].Quantity >= MaxLineQuantity {
				return domain.CartLine{}, ErrInvalidQuantity
			}
			tab.Lines[i].Quantity++
			return tab.Lines[i], nil
		}
	}
	tab.Lines = append(tab.Lines, line)
	return line, nil
}

// ChangeQuantity adjusts a line on the active tab; a result of zero or less
// removes the line.
func (s *Session) ChangeQuantity(lineID string, delta int) error {
	tab, err := s.editableTab()
	if err != nil {
		return err
	}
	idx := findLine(tab.Lines, lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	if tab.Lines[idx].Quantity+delta > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	tab.Lines[idx].Quantity += delta
	if tab.Lines[idx].Quantity <= 0 {
		tab.Lines = append(tab.Lines[:idx], tab.Lines[idx+1:]...)
	}
	return nil
}

func (s *Session) RemoveLine(lineID string) error {
	tab, err := s.editableTab()
	if err != nil {
		return err
	}
	idx := findLine(tab.Lines, lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	tab.Lines = append(tab.Lines[:idx], tab.Lines[idx+1:]...)
	return nil
}

func (s *Session) AssignCustomer(ref domain.CustomerRef) {
	tab := s.ActiveTab()
	tab.Customer = &ref
	if first := strings.Fields(ref.Name); len(first) > 0 {
		tab.Name = first[0]
	}
}

func (s *Session) UnassignCustomer() {
	tab := s.ActiveTab()
	tab.Customer = nil
	tab.Name = defaultTabName(tab.ID)
}

// ApplyDiscount sets the active tab discount. Callers check the cart is not
// empty before offering it.
func (s *Session) ApplyDiscount(discount domain.Discount) error {
	switch discount.Kind {
	case domain.DiscountFixed:
		if discount.AmountCents < 0 {
			return ErrInvalidDiscount
		}
		discount.Percent = 0
	case domain.DiscountPercentage:
		if discount.Percent < 0 || discount.Percent > 100 {
			return ErrInvalidDiscount
		}
		discount.AmountCents = 0
	default:
		return ErrInvalidDiscount
	}
	tab, err := s.editableTab()
	if err != nil {
		return err
	}
	tab.Discount = discount
	return nil
}

func (s *Session) Totals(taxRatePercent float64) domain.Totals {
	tab := s.ActiveTab()
	return pricing.Compute(tab.Lines, tab.Discount, taxRatePercent)
}

// ResetTab empties a tab after its bill is settled.
func (s *Session) ResetTab(id int) {
	idx := s.tabIndex(id)
	if idx < 0 {
		return
	}
	s.Tabs[idx] = newTab(id)
}

// CheckoutTab stages the whole active tab for payment.
func (s *Session) CheckoutTab() (domain.PendingPayment, error) {
	if s.Pending != nil {
		return domain.PendingPayment{}, ErrPaymentPending
	}
	tab := s.ActiveTab()
	if s.Split != nil && s.Split.TabID == tab.ID {
		return domain.PendingPayment{}, ErrSplitInProgress
	}
	if len(tab.Lines) == 0 {
		return domain.PendingPayment{}, ErrEmptyCart
	}

	lines, err := CloneLines(tab.Lines)
	if err != nil {
		return domain.PendingPayment{}, err
	}
	pending := domain.PendingPayment{
		Key:      NewLineID(),
		TabID:    tab.ID,
		Lines:    lines,
		Discount: tab.Discount,
		Customer: cloneCustomer(tab.Customer),
	}
	s.Pending = &pending
	return pending, nil
}
