package pos

import (
	"fmt"

	"restopos/internal/domain"
	"restopos/internal/pricing"
)

// Remaining addresses the unassigned items of a split in MoveItem.
const Remaining = -1

// StartSplit begins splitting the active tab. A split that is already in
// progress is returned as-is. The split takes ownership of the tab lines.
func (s *Session) StartSplit() (*domain.SplitSession, error) {
	if s.Split != nil {
		s.ActiveTabID = s.Split.TabID
		return s.Split, nil
	}
	if s.Pending != nil {
		return nil, ErrPaymentPending
	}

	tab := s.ActiveTab()
	if len(tab.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	remaining, err := CloneLines(tab.Lines)
	if err != nil {
		return nil, err
	}
	s.Split = &domain.SplitSession{
		TabID:       tab.ID,
		Remaining:   remaining,
		Checks:      []domain.Check{{ID: 1, Name: checkName(1)}},
		ActiveCheck: -1,
		InProgress:  true,
		CheckSeq:    1,
	}
	tab.Lines = nil
	return s.Split, nil
}

func checkName(n int) string {
	return fmt.Sprintf("Check #%d", n)
}

func (s *Session) AddCheck() (domain.Check, error) {
	if s.Split == nil {
		return domain.Check{}, ErrSplitInactive
	}
	if s.Pending != nil {
		return domain.Check{}, ErrPaymentPending
	}
	s.Split.CheckSeq++
	check := domain.Check{ID: s.Split.CheckSeq, Name: checkName(s.Split.CheckSeq)}
	s.Split.Checks = append(s.Split.Checks, check)
	return check, nil
}

func (s *Session) splitList(location int) (*[]domain.CartLine, error) {
	if location == Remaining {
		return &s.Split.Remaining, nil
	}
	if location < 0 || location >= len(s.Split.Checks) {
		return nil, ErrCheckNotFound
	}
	return &s.Split.Checks[location].Items, nil
}

// MoveItem moves qty units of a line between the remainder and the checks.
// Units that land next to an equivalent line are merged into it; a partial
// move that cannot merge gets a fresh line id.
func (s *Session) MoveItem(from int, lineID string, to int, qty int) error {
	if s.Split == nil {
		return ErrSplitInactive
	}
	if s.Pending != nil {
		return ErrPaymentPending
	}
	if from == to {
		return ErrInvalidMove
	}

	source, err := s.splitList(from)
	if err != nil {
		return err
	}
	target, err := s.splitList(to)
	if err != nil {
		return err
	}

	idx := findLine(*source, lineID)
	if idx < 0 {
		return ErrLineNotFound
	}
	line := (*source)[idx]
	if qty < 1 || qty > line.Quantity {
		return ErrInvalidQuantity
	}

	copied, err := CloneLines([]domain.CartLine{line})
	if err != nil {
		return err
	}
	moved := copied[0]
	moved.Quantity = qty
	if qty == line.Quantity {
		*source = append((*source)[:idx], (*source)[idx+1:]...)
	} else {
		(*source)[idx].Quantity -= qty
		moved.LineID = NewLineID()
	}

	*target = mergeLine(*target, moved)
	return nil
}

// PayCheck stages a copy of one check for payment. The split itself is left
// untouched until PaymentResult reports the outcome.
func (s *Session) PayCheck(index int) (domain.PendingPayment, error) {
	if s.Split == nil {
		return domain.PendingPayment{}, ErrSplitInactive
	}
	if s.Pending != nil {
		return domain.PendingPayment{}, ErrPaymentPending
	}
	if index < 0 || index >= len(s.Split.Checks) {
		return domain.PendingPayment{}, ErrCheckNotFound
	}
	check := s.Split.Checks[index]
	if len(check.Items) == 0 {
		return domain.PendingPayment{}, ErrEmptyCheck
	}

	tab, err := s.Tab(s.Split.TabID)
	if err != nil {
		return domain.PendingPayment{}, err
	}

	lines, err := CloneLines(check.Items)
	if err != nil {
		return domain.PendingPayment{}, err
	}
	pending := domain.PendingPayment{
		Key:      NewLineID(),
		TabID:    tab.ID,
		CheckID:  check.ID,
		Lines:    lines,
		Discount: tab.Discount,
		Customer: cloneCustomer(tab.Customer),
	}
	s.Pending = &pending
	s.Split.ActiveCheck = index
	return pending, nil
}

// PaymentResult settles the pending payment. A failure only drops the staged
// copy. A paid check leaves the split; once nothing is left to collect the
// split ends and the tab is reset.
func (s *Session) PaymentResult(success bool) error {
	if s.Pending == nil {
		return ErrNoPendingPayment
	}
	pending := *s.Pending
	s.Pending = nil
	if s.Split != nil {
		s.Split.ActiveCheck = -1
	}
	if !success {
		return nil
	}

	if pending.CheckID == 0 {
		s.ResetTab(pending.TabID)
		return nil
	}

	if s.Split == nil {
		return nil
	}
	for i := range s.Split.Checks {
		if s.Split.Checks[i].ID == pending.CheckID {
			s.Split.Checks = append(s.Split.Checks[:i], s.Split.Checks[i+1:]...)
			break
		}
	}
	s.consumeFixedDiscount(pending)

	if len(s.Split.Remaining) == 0 && len(s.Split.Checks) == 0 {
		tabID := s.Split.TabID
		s.Split = nil
		s.ResetTab(tabID)
	}
	return nil
}

// consumeFixedDiscount reduces a fixed tab discount by what the paid check
// used, so the amount is granted once across all checks.
func (s *Session) consumeFixedDiscount(pending domain.PendingPayment) {
	if pending.Discount.Kind != domain.DiscountFixed || pending.Discount.AmountCents <= 0 {
		return
	}
	tab, err := s.Tab(pending.TabID)
	if err != nil {
		return
	}
	used := pricing.DiscountAmount(pricing.Subtotal(pending.Lines), pending.Discount)
	tab.Discount.AmountCents -= used
	if tab.Discount.AmountCents < 0 {
		tab.Discount.AmountCents = 0
	}
}

// AbandonSplit returns every unpaid item to the tab and ends the split.
func (s *Session) AbandonSplit() error {
	if s.Split == nil {
		return ErrSplitInactive
	}
	if s.Pending != nil {
		return ErrPaymentPending
	}
	tab, err := s.Tab(s.Split.TabID)
	if err != nil {
		return err
	}

	for _, line := range s.Split.Remaining {
		tab.Lines = mergeLine(tab.Lines, line)
	}
	for _, check := range s.Split.Checks {
		for _, line := range check.Items {
			tab.Lines = mergeLine(tab.Lines, line)
		}
	}
	s.Split = nil
	return nil
}

// SplitQuantities sums quantities per product/add-on key across the remainder
// and every check.
func (s *Session) SplitQuantities() map[string]int {
	if s.Split == nil {
		return map[string]int{}
	}
	all := append([]domain.CartLine(nil), s.Split.Remaining...)
	for _, check := range s.Split.Checks {
		all = append(all, check.Items...)
	}
	return QuantitiesByKey(all)
}
