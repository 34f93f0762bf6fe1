package service

import (
	"context"
	"fmt"
	"strings"

	"restopos/internal/domain"
	"restopos/internal/events"
	"restopos/internal/pos"
	"restopos/internal/pricing"
	"restopos/internal/store"
)

var supportedPaymentMethods = map[string]struct{}{
	domain.PaymentCash:       {},
	domain.PaymentCard:       {},
	domain.PaymentCreditCard: {},
	domain.PaymentDebitCard:  {},
	domain.PaymentTransfer:   {},
	domain.PaymentOnline:     {},
}

func normalizePaymentMethod(method string) (string, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if _, ok := supportedPaymentMethods[method]; !ok {
		return "", fmt.Errorf("%w: unsupported payment method %q", store.ErrInvalidInput, method)
	}
	return method, nil
}

// FinalizeSale prices the cart from the catalog, records the order and
// credits loyalty in one repository call. A repeated idempotency key returns
// the stored order without side effects.
func (s *Service) FinalizeSale(ctx context.Context, req domain.FinalizeSaleRequest) (domain.SaleResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	method, err := normalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	if len(req.Cart) == 0 {
		return domain.SaleResponse{}, fmt.Errorf("%w: cart is empty", store.ErrInvalidInput)
	}

	if _, err := s.repo.GetOpenShift(ctx, a.BusinessID); err != nil {
		if isNotFound(err) {
			return domain.SaleResponse{}, fmt.Errorf("%w: no open cash shift", store.ErrConflict)
		}
		return domain.SaleResponse{}, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.FindOrderByIdempotency(ctx, a.BusinessID, key)
		if err == nil {
			return domain.SaleResponse{Order: *existing, Duplicate: true}, nil
		}
		if !isNotFound(err) {
			return domain.SaleResponse{}, err
		}
	}

	lines, err := s.resolveCart(ctx, a.BusinessID, req.Cart)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	discount, err := toDiscount(req.Discount)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	settings, err := s.settingsFor(ctx, a.BusinessID)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	totals := pricing.Compute(lines, discount, settings.TaxRatePercent)
	if req.Totals != nil && *req.Totals != totals {
		return domain.SaleResponse{}, fmt.Errorf("%w: totals do not match server pricing (expected total %d)", store.ErrInvalidInput, totals.TotalCents)
	}

	now := s.now()
	order := domain.Order{
		BusinessID:       a.BusinessID,
		Items:            orderItems(lines),
		SubtotalCents:    totals.SubtotalCents,
		DiscountCents:    totals.DiscountCents,
		DiscountReason:   strings.TrimSpace(discount.Reason),
		TaxRatePercent:   settings.TaxRatePercent,
		TaxCents:         totals.TaxCents,
		TotalCents:       totals.TotalCents,
		PaymentMethod:    method,
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		Status:           domain.OrderStatusCompleted,
		Source:           domain.OrderSourcePOS,
		CreatedBy:        a.Username,
		IdempotencyKey:   key,
		CreatedAt:        now,
	}

	var award *domain.LoyaltyAward
	if customerID := strings.TrimSpace(req.CustomerID); customerID != "" {
		customer, err := s.repo.GetCustomer(ctx, a.BusinessID, customerID)
		if err != nil {
			return domain.SaleResponse{}, err
		}
		order.CustomerID = customer.ID
		order.CustomerName = customer.Name
		order.CustomerPhone = customer.Phone

		program, err := s.repo.GetLoyaltyProgram(ctx, a.BusinessID)
		if err != nil && !isNotFound(err) {
			return domain.SaleResponse{}, err
		}
		if program != nil && program.Active {
			award = &domain.LoyaltyAward{
				CustomerID: customer.ID,
				Points:     saleAward(*program, totals.TotalCents),
				At:         now,
			}
		}
	}

	saved, duplicate, err := s.repo.CreateSale(ctx, domain.SaleRecord{Order: order, Loyalty: award})
	if err != nil {
		return domain.SaleResponse{}, err
	}
	if duplicate {
		return domain.SaleResponse{Order: *saved, Duplicate: true}, nil
	}

	resp := domain.SaleResponse{Order: *saved}
	if award != nil {
		resp.PointsAwarded = award.Points
	}
	s.logAudit(ctx, a.BusinessID, "sale_finalize", "order", saved.ID,
		fmt.Sprintf("total=%d,method=%s,points=%d", saved.TotalCents, saved.PaymentMethod, resp.PointsAwarded))
	s.publishOrder(ctx, events.TypeOrderCreated, *saved)
	return resp, nil
}

// saleAward is whole currency units for points programs and one stamp per visit.
func saleAward(program domain.LoyaltyProgram, totalCents int64) int64 {
	if program.Type == domain.LoyaltyStamps {
		return 1
	}
	if totalCents <= 0 {
		return 0
	}
	return totalCents / 100
}

// CreatePublicOrder records an order placed from the public menu. It is not
// tied to a cash shift and waits in pending until the kitchen picks it up.
func (s *Service) CreatePublicOrder(ctx context.Context, req domain.PublicOrderRequest) (domain.Order, error) {
	business, err := s.repo.GetBusinessBySlug(ctx, req.Slug)
	if err != nil {
		return domain.Order{}, err
	}
	method, err := normalizePaymentMethod(defaultString(req.PaymentMethod, domain.PaymentCash))
	if err != nil {
		return domain.Order{}, err
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" || len(req.Items) == 0 {
		return domain.Order{}, store.ErrInvalidInput
	}

	lines, err := s.resolveCart(ctx, business.ID, req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	settings, err := s.settingsFor(ctx, business.ID)
	if err != nil {
		return domain.Order{}, err
	}
	totals := pricing.Compute(lines, domain.Discount{Kind: domain.DiscountFixed}, settings.TaxRatePercent)

	saved, _, err := s.repo.CreateSale(ctx, domain.SaleRecord{Order: domain.Order{
		BusinessID:     business.ID,
		Items:          orderItems(lines),
		SubtotalCents:  totals.SubtotalCents,
		TaxRatePercent: settings.TaxRatePercent,
		TaxCents:       totals.TaxCents,
		TotalCents:     totals.TotalCents,
		PaymentMethod:  method,
		Status:         domain.OrderStatusPending,
		Source:         domain.OrderSourceWhatsApp,
		CustomerName:   name,
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		CreatedAt:      s.now(),
	}})
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, business.ID, "public_order_create", "order", saved.ID, fmt.Sprintf("total=%d", saved.TotalCents))
	s.publishOrder(ctx, events.TypeOrderCreated, *saved)
	return *saved, nil
}

// resolveCart turns requested lines into priced cart lines using only catalog data.
func (s *Service) resolveCart(ctx context.Context, businessID string, cart []domain.SaleLineRequest) ([]domain.CartLine, error) {
	ids := make([]string, 0, len(cart))
	for _, line := range cart {
		ids = append(ids, strings.TrimSpace(line.ProductID))
	}
	products, err := s.repo.GetProductsByIDs(ctx, businessID, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(cart))
	for _, req := range cart {
		if req.Quantity < 1 || req.Quantity > pos.MaxLineQuantity {
			return nil, fmt.Errorf("%w: quantity must be between 1 and 999", store.ErrInvalidInput)
		}
		product, ok := products[strings.TrimSpace(req.ProductID)]
		if !ok {
			return nil, fmt.Errorf("%w: product %s unavailable", store.ErrInvalidInput, req.ProductID)
		}
		addons, err := resolveAddons(product, req.Addons)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.CartLine{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       req.Quantity,
			Addons:         addons,
			Note:           strings.TrimSpace(req.Note),
		})
	}
	return lines, nil
}

func toDiscount(req domain.DiscountRequest) (domain.Discount, error) {
	kind := req.Kind
	if kind == "" {
		kind = domain.DiscountFixed
	}
	switch kind {
	case domain.DiscountFixed:
		if req.AmountCents < 0 {
			return domain.Discount{}, fmt.Errorf("%w: discount must not be negative", store.ErrInvalidInput)
		}
	case domain.DiscountPercentage:
		if req.Percent < 0 || req.Percent > 100 {
			return domain.Discount{}, fmt.Errorf("%w: discount percent must be between 0 and 100", store.ErrInvalidInput)
		}
	default:
		return domain.Discount{}, fmt.Errorf("%w: unknown discount kind %q", store.ErrInvalidInput, kind)
	}
	return domain.Discount{Kind: kind, AmountCents: req.AmountCents, Percent: req.Percent, Reason: strings.TrimSpace(req.Reason)}, nil
}

func orderItems(lines []domain.CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			Addons:         append([]domain.SelectedAddon(nil), line.Addons...),
			Note:           line.Note,
			LineTotalCents: pricing.LineTotal(line),
		})
	}
	return items
}
