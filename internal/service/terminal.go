package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"restopos/internal/domain"
	"restopos/internal/pos"
	"restopos/internal/store"
)

const maxTerminalIDLength = 64

// TerminalState is what a register renders after every change.
type TerminalState struct {
	Terminal       string        `json:"terminal"`
	Session        *pos.Session  `json:"session"`
	Totals         domain.Totals `json:"totals"`
	TaxRatePercent float64       `json:"tax_rate_percent"`
}

type CheckoutResponse struct {
	Sale  domain.SaleResponse `json:"sale"`
	State TerminalState       `json:"state"`
}

func terminalID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxTerminalIDLength {
		return "", fmt.Errorf("%w: invalid terminal id", store.ErrInvalidInput)
	}
	return id, nil
}

func (s *Service) loadSession(ctx context.Context, businessID string, terminal string) (*pos.Session, error) {
	session, ok, err := s.sessions.Load(ctx, businessID, terminal)
	if err != nil {
		return nil, err
	}
	if !ok {
		return pos.NewSession(), nil
	}
	return session, nil
}

func (s *Service) terminalState(ctx context.Context, businessID string, terminal string, session *pos.Session) (TerminalState, error) {
	settings, err := s.settingsFor(ctx, businessID)
	if err != nil {
		return TerminalState{}, err
	}
	return TerminalState{
		Terminal:       terminal,
		Session:        session,
		Totals:         session.Totals(settings.TaxRatePercent),
		TaxRatePercent: settings.TaxRatePercent,
	}, nil
}

// mutateTerminal applies fn to the terminal's session and saves it only when
// fn succeeds, so a rejected action never changes stored state.
func (s *Service) mutateTerminal(ctx context.Context, rawTerminal string, fn func(businessID string, session *pos.Session) error) (TerminalState, error) {
	a, err := actor(ctx)
	if err != nil {
		return TerminalState{}, err
	}
	terminal, err := terminalID(rawTerminal)
	if err != nil {
		return TerminalState{}, err
	}
	session, err := s.loadSession(ctx, a.BusinessID, terminal)
	if err != nil {
		return TerminalState{}, err
	}
	if err := fn(a.BusinessID, session); err != nil {
		return TerminalState{}, err
	}
	if err := s.sessions.Save(ctx, a.BusinessID, terminal, session); err != nil {
		return TerminalState{}, err
	}
	return s.terminalState(ctx, a.BusinessID, terminal, session)
}

func (s *Service) TerminalSession(ctx context.Context, rawTerminal string) (TerminalState, error) {
	a, err := actor(ctx)
	if err != nil {
		return TerminalState{}, err
	}
	terminal, err := terminalID(rawTerminal)
	if err != nil {
		return TerminalState{}, err
	}
	session, err := s.loadSession(ctx, a.BusinessID, terminal)
	if err != nil {
		return TerminalState{}, err
	}
	return s.terminalState(ctx, a.BusinessID, terminal, session)
}

func (s *Service) AddTab(ctx context.Context, terminal string) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		session.AddTab()
		return nil
	})
}

func (s *Service) RemoveTab(ctx context.Context, terminal string, tabID int) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		return session.RemoveTab(tabID)
	})
}

func (s *Service) ActivateTab(ctx context.Context, terminal string, tabID int) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		return session.ActivateTab(tabID)
	})
}

// AddTabLine prices the product and its add-ons from the catalog before it
// reaches the tab.
func (s *Service) AddTabLine(ctx context.Context, terminal string, req domain.AddLineRequest) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(businessID string, session *pos.Session) error {
		productID := strings.TrimSpace(req.ProductID)
		products, err := s.repo.GetProductsByIDs(ctx, businessID, []string{productID})
		if err != nil {
			return err
		}
		product, ok := products[productID]
		if !ok {
			return fmt.Errorf("%w: product %s unavailable", store.ErrNotFound, productID)
		}
		addons, err := resolveAddons(product, req.Addons)
		if err != nil {
			return err
		}
		_, err = session.AddLine(product, addons, strings.TrimSpace(req.Note))
		return err
	})
}

func (s *Service) ChangeLineQuantity(ctx context.Context, terminal string, lineID string, req domain.QuantityChangeRequest) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		return session.ChangeQuantity(lineID, req.Delta)
	})
}

func (s *Service) RemoveTabLine(ctx context.Context, terminal string, lineID string) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		return session.RemoveLine(lineID)
	})
}

func (s *Service) AssignTabCustomer(ctx context.Context, terminal string, req domain.AssignCustomerRequest) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(businessID string, session *pos.Session) error {
		customer, err := s.repo.GetCustomer(ctx, businessID, strings.TrimSpace(req.CustomerID))
		if err != nil {
			return err
		}
		session.AssignCustomer(domain.CustomerRef{ID: customer.ID, Name: customer.Name})
		return nil
	})
}

func (s *Service) UnassignTabCustomer(ctx context.Context, terminal string) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		session.UnassignCustomer()
		return nil
	})
}

func (s *Service) ApplyTabDiscount(ctx context.Context, terminal string, req domain.DiscountRequest) (TerminalState, error) {
	discount, err := toDiscount(req)
	if err != nil {
		return TerminalState{}, err
	}
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		if len(session.ActiveTab().Lines) == 0 {
			return pos.ErrEmptyCart
		}
		return session.ApplyDiscount(discount)
	})
}

func (s *Service) StartSplit(ctx context.Context, terminal string) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		_, err := session.StartSplit()
		return err
	})
}

func (s *Service) AddSplitCheck(ctx context.Context, terminal string) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		_, err := session.AddCheck()
		return err
	})
}

func (s *Service) MoveSplitItem(ctx context.Context, terminal string, req domain.MoveItemRequest) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		return session.MoveItem(req.From, req.LineID, req.To, req.Quantity)
	})
}

func (s *Service) PaySplitCheck(ctx context.Context, terminal string, index int) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		_, err := session.PayCheck(index)
		return err
	})
}

func (s *Service) AbandonSplit(ctx context.Context, terminal string) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		return session.AbandonSplit()
	})
}

func (s *Service) CancelPayment(ctx context.Context, terminal string) (TerminalState, error) {
	return s.mutateTerminal(ctx, terminal, func(_ string, session *pos.Session) error {
		return session.PaymentResult(false)
	})
}

// Checkout charges the staged payment, or stages the whole active tab first,
// through FinalizeSale and feeds the outcome back into the session. A failed
// sale drops the staged copy and leaves the tab or check as it was. A newly
// staged payment is saved before charging so a retry reuses its key.
func (s *Service) Checkout(ctx context.Context, rawTerminal string, req domain.CheckoutRequest) (CheckoutResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return CheckoutResponse{}, err
	}
	terminal, err := terminalID(rawTerminal)
	if err != nil {
		return CheckoutResponse{}, err
	}
	session, err := s.loadSession(ctx, a.BusinessID, terminal)
	if err != nil {
		return CheckoutResponse{}, err
	}
	if session.Pending == nil {
		if _, err := session.CheckoutTab(); err != nil {
			return CheckoutResponse{}, err
		}
		if err := s.sessions.Save(ctx, a.BusinessID, terminal, session); err != nil {
			return CheckoutResponse{}, err
		}
	}
	pending := *session.Pending

	sale, saleErr := s.FinalizeSale(ctx, saleRequestFor(pending, req))
	if err := session.PaymentResult(saleErr == nil); err != nil {
		return CheckoutResponse{}, err
	}
	if err := s.sessions.Save(ctx, a.BusinessID, terminal, session); err != nil {
		if saleErr != nil {
			log.Printf("[service] WARN: failed to save session terminal=%s after failed sale: %v", terminal, err)
			return CheckoutResponse{}, saleErr
		}
		log.Printf("[service] WARN: sale %s recorded but session save failed terminal=%s: %v", sale.Order.ID, terminal, err)
		return CheckoutResponse{}, err
	}
	if saleErr != nil {
		return CheckoutResponse{}, saleErr
	}

	state, err := s.terminalState(ctx, a.BusinessID, terminal, session)
	if err != nil {
		return CheckoutResponse{}, err
	}
	return CheckoutResponse{Sale: sale, State: state}, nil
}

// saleRequestFor sends product ids and add-on names only; FinalizeSale
// re-prices everything from the catalog.
func saleRequestFor(pending domain.PendingPayment, req domain.CheckoutRequest) domain.FinalizeSaleRequest {
	cart := make([]domain.SaleLineRequest, 0, len(pending.Lines))
	for _, line := range pending.Lines {
		addons := make([]domain.AddonSelection, 0, len(line.Addons))
		for _, addon := range line.Addons {
			addons = append(addons, domain.AddonSelection{GroupName: addon.GroupName, Name: addon.Name})
		}
		cart = append(cart, domain.SaleLineRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Addons:    addons,
			Note:      line.Note,
		})
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = pending.Key
	}
	out := domain.FinalizeSaleRequest{
		IdempotencyKey: key,
		Cart:           cart,
		Discount: domain.DiscountRequest{
			Kind:        pending.Discount.Kind,
			AmountCents: pending.Discount.AmountCents,
			Percent:     pending.Discount.Percent,
			Reason:      pending.Discount.Reason,
		},
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
	}
	if pending.Customer != nil {
		out.CustomerID = pending.Customer.ID
	}
	return out
}
