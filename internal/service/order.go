package service

import (
	"context"
	"fmt"
	"strings"

	"restopos/internal/domain"
	"restopos/internal/events"
	"restopos/internal/store"
)

const orderListLimit = 200

var orderStatuses = map[string]struct{}{
	domain.OrderStatusPending:   {},
	domain.OrderStatusPreparing: {},
	domain.OrderStatusReady:     {},
	domain.OrderStatusCompleted: {},
	domain.OrderStatusCancelled: {},
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx, a.BusinessID, orderListLimit)
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	order, err := s.repo.GetOrder(ctx, a.BusinessID, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

// UpdateOrderStatus moves an order between kitchen states. Setting the same
// status again is accepted and leaves the order as it was.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, req domain.OrderStatusRequest) (domain.Order, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if _, ok := orderStatuses[status]; !ok {
		return domain.Order{}, fmt.Errorf("%w: invalid order status %q", store.ErrInvalidInput, req.Status)
	}

	current, err := s.repo.GetOrder(ctx, a.BusinessID, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	if current.Status == status {
		return *current, nil
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, a.BusinessID, current.ID, status, s.now())
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, a.BusinessID, "order_status_update", "order", updated.ID, fmt.Sprintf("from=%s,to=%s", current.Status, updated.Status))
	s.publishOrder(ctx, events.TypeOrderStatusChanged, *updated)
	return *updated, nil
}
