package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"restopos/internal/domain"
	"restopos/internal/ledger"
	"restopos/internal/store"
)

const defaultHistoryLimit = 20

func (s *Service) CurrentShift(ctx context.Context) (domain.ShiftStatus, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.ShiftStatus{}, err
	}

	open, err := s.repo.GetOpenShift(ctx, a.BusinessID)
	if err != nil {
		if isNotFound(err) {
			return ledger.Status(nil, nil), nil
		}
		return domain.ShiftStatus{}, err
	}
	sales, err := s.repo.SalesByPaymentMethod(ctx, a.BusinessID, open.StartTime)
	if err != nil {
		return domain.ShiftStatus{}, err
	}
	return ledger.Status(open, sales), nil
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.CashShift, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.CashShift{}, err
	}
	if req.AmountCents < 0 {
		return domain.CashShift{}, fmt.Errorf("%w: opening amount must not be negative", store.ErrInvalidInput)
	}

	saved, err := s.repo.CreateShift(ctx, domain.CashShift{
		BusinessID:       a.BusinessID,
		OpenedBy:         a.Username,
		StartTime:        s.now(),
		Status:           domain.ShiftStatusOpen,
		InitialCashCents: req.AmountCents,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.CashShift{}, fmt.Errorf("%w: a cash shift is already open", store.ErrConflict)
		}
		return domain.CashShift{}, err
	}

	s.logAudit(ctx, a.BusinessID, "shift_open", "shift", saved.ID, fmt.Sprintf("initial_cash=%d", saved.InitialCashCents))
	return *saved, nil
}

func (s *Service) AddMovement(ctx context.Context, req domain.MovementRequest) (domain.CashShift, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.CashShift{}, err
	}
	if req.Type != domain.MovementIn && req.Type != domain.MovementOut {
		return domain.CashShift{}, fmt.Errorf("%w: movement type must be in or out", store.ErrInvalidInput)
	}
	if req.AmountCents <= 0 {
		return domain.CashShift{}, fmt.Errorf("%w: movement amount must be positive", store.ErrInvalidInput)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.CashShift{}, fmt.Errorf("%w: movement reason required", store.ErrInvalidInput)
	}

	updated, err := s.repo.AddShiftMovement(ctx, a.BusinessID, domain.CashMovement{
		Type:        req.Type,
		AmountCents: req.AmountCents,
		Reason:      reason,
		PerformedBy: s.displayName(ctx, a),
		Date:        s.now(),
	})
	if err != nil {
		if isNotFound(err) {
			return domain.CashShift{}, fmt.Errorf("%w: no open cash shift", store.ErrNotFound)
		}
		return domain.CashShift{}, err
	}

	s.logAudit(ctx, a.BusinessID, "shift_movement", "shift", updated.ID, fmt.Sprintf("type=%s,amount=%d", req.Type, req.AmountCents))
	return *updated, nil
}

// CloseShift recomputes the expected drawer from stored movements and sales;
// the client only supplies the counted cash.
func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.CashShift, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.CashShift{}, err
	}
	if req.FinalCashActualCents < 0 {
		return domain.CashShift{}, fmt.Errorf("%w: counted cash must not be negative", store.ErrInvalidInput)
	}

	open, err := s.repo.GetOpenShift(ctx, a.BusinessID)
	if err != nil {
		if isNotFound(err) {
			return domain.CashShift{}, fmt.Errorf("%w: no open cash shift", store.ErrNotFound)
		}
		return domain.CashShift{}, err
	}
	sales, err := s.repo.SalesByPaymentMethod(ctx, a.BusinessID, open.StartTime)
	if err != nil {
		return domain.CashShift{}, err
	}

	sealed := ledger.Close(*open, sales, req.FinalCashActualCents, a.Username, s.now())
	closed, err := s.repo.CloseShift(ctx, sealed)
	if err != nil {
		if isNotFound(err) {
			return domain.CashShift{}, fmt.Errorf("%w: no open cash shift", store.ErrNotFound)
		}
		return domain.CashShift{}, err
	}

	s.logAudit(ctx, a.BusinessID, "shift_close", "shift", closed.ID,
		fmt.Sprintf("expected=%d,actual=%d,difference=%d", closed.FinalCashExpectedCents, closed.FinalCashActualCents, closed.DifferenceCents))
	return *closed, nil
}

func (s *Service) ShiftHistory(ctx context.Context, limit int) ([]domain.ShiftHistoryEntry, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	shifts, err := s.repo.ListClosedShifts(ctx, a.BusinessID, limit)
	if err != nil {
		return nil, err
	}
	names := s.userNames(ctx, a.BusinessID)

	entries := make([]domain.ShiftHistoryEntry, 0, len(shifts))
	for _, shift := range shifts {
		entries = append(entries, domain.ShiftHistoryEntry{
			CashShift:    shift,
			OpenedByName: defaultString(names[shift.OpenedBy], shift.OpenedBy),
			ClosedByName: defaultString(names[shift.ClosedBy], shift.ClosedBy),
		})
	}
	return entries, nil
}

func (s *Service) userNames(ctx context.Context, businessID string) map[string]string {
	users, err := s.repo.ListUsers(ctx, businessID)
	if err != nil {
		log.Printf("[service] WARN: failed to resolve user names business=%s: %v", businessID, err)
		return map[string]string{}
	}
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.Username] = defaultString(user.DisplayName, user.Username)
	}
	return names
}

func (s *Service) displayName(ctx context.Context, a domain.Actor) string {
	return defaultString(s.userNames(ctx, a.BusinessID)[a.Username], a.Username)
}
