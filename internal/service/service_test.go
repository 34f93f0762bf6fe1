package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"restopos/internal/cache"
	"restopos/internal/domain"
	"restopos/internal/pos"
	"restopos/internal/store"
	"restopos/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), Options{})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username:   "admin",
		Role:       domain.RoleAdmin,
		BusinessID: memory.DemoBusinessID,
	})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username:   "cashier",
		Role:       domain.RoleCashier,
		BusinessID: memory.DemoBusinessID,
	})
}

func mustOpenShift(t *testing.T, svc *Service, ctx context.Context, amount int64) domain.CashShift {
	t.Helper()
	shift, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{AmountCents: amount})
	if err != nil {
		t.Fatalf("open shift failed: %v", err)
	}
	return shift
}

func mustSetTax(t *testing.T, svc *Service, rate float64) {
	t.Helper()
	if _, err := svc.UpdateSettings(adminCtx(), domain.SettingsUpdateRequest{TaxRatePercent: &rate}); err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
}

func burgerCart(qty int) []domain.SaleLineRequest {
	return []domain.SaleLineRequest{{ProductID: "prod-burger", Quantity: qty}}
}

func TestFinalizeSaleRequiresActor(t *testing.T) {
	svc := newTestService()

	_, err := svc.FinalizeSale(context.Background(), domain.FinalizeSaleRequest{
		Cart:          burgerCart(1),
		PaymentMethod: "cash",
	})
	if !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestFinalizeSaleRequiresOpenShift(t *testing.T) {
	svc := newTestService()

	_, err := svc.FinalizeSale(cashierCtx(), domain.FinalizeSaleRequest{
		Cart:          burgerCart(1),
		PaymentMethod: "cash",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict without an open shift, got %v", err)
	}
}

func TestFinalizeSaleRejectsUnknownPaymentMethod(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	_, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{
		Cart:          burgerCart(1),
		PaymentMethod: "bitcoin",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestFinalizeSalePricesFromCatalog(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	resp, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{
		Cart: []domain.SaleLineRequest{
			{ProductID: "prod-taco", Quantity: 2, Addons: []domain.AddonSelection{{GroupName: "Extras", Name: "Queso"}}},
		},
		Discount:      domain.DiscountRequest{Kind: domain.DiscountPercentage, Percent: 10, Reason: "staff"},
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("finalize sale failed: %v", err)
	}

	// (2500 + 1000) * 2 = 7000, 10% off = 700, tax 16% of 6300 = 1008
	order := resp.Order
	if order.SubtotalCents != 7000 || order.DiscountCents != 700 || order.TaxCents != 1008 || order.TotalCents != 7308 {
		t.Fatalf("unexpected totals: %+v", order)
	}
	if order.Items[0].LineTotalCents != 7000 {
		t.Fatalf("expected line total 7000, got %d", order.Items[0].LineTotalCents)
	}
	if order.Status != domain.OrderStatusCompleted || order.Source != domain.OrderSourcePOS {
		t.Fatalf("unexpected status/source %s/%s", order.Status, order.Source)
	}
	if order.CreatedBy != "cashier" {
		t.Fatalf("expected created_by cashier, got %s", order.CreatedBy)
	}
}

func TestFinalizeSaleRejectsUnknownAddon(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	_, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{
		Cart: []domain.SaleLineRequest{
			{ProductID: "prod-taco", Quantity: 1, Addons: []domain.AddonSelection{{GroupName: "Size", Name: "Grande"}}},
		},
		PaymentMethod: "cash",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for add-on from another product, got %v", err)
	}
}

func TestFinalizeSaleRejectsMismatchedTotals(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	_, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{
		Cart:          burgerCart(1),
		PaymentMethod: "cash",
		Totals:        &domain.Totals{SubtotalCents: 10000, TaxCents: 0, TotalCents: 10000},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for client totals, got %v", err)
	}

	resp, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{
		Cart:          burgerCart(1),
		PaymentMethod: "cash",
		Totals:        &domain.Totals{SubtotalCents: 10000, TaxCents: 1600, TotalCents: 11600},
	})
	if err != nil {
		t.Fatalf("matching totals rejected: %v", err)
	}
	if resp.Order.TotalCents != 11600 {
		t.Fatalf("expected 11600, got %d", resp.Order.TotalCents)
	}
}

func TestFinalizeSaleIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	req := domain.FinalizeSaleRequest{
		IdempotencyKey: "idem-burger",
		Cart:           burgerCart(1),
		PaymentMethod:  "cash",
	}
	first, err := svc.FinalizeSale(ctx, req)
	if err != nil {
		t.Fatalf("first sale failed: %v", err)
	}
	second, err := svc.FinalizeSale(ctx, req)
	if err != nil {
		t.Fatalf("replayed sale failed: %v", err)
	}
	if !second.Duplicate || second.Order.ID != first.Order.ID {
		t.Fatalf("expected duplicate of %s, got %+v", first.Order.ID, second)
	}

	orders, err := svc.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected one stored order, got %d", len(orders))
	}

	products, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	for _, p := range products {
		if p.ID == "prod-burger" && p.SalesCount != 1 {
			t.Fatalf("expected burger sales_count 1, got %d", p.SalesCount)
		}
	}
}

func TestFinalizeSaleAwardsLoyaltyPoints(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	customer, err := svc.PublicRegisterCustomer(context.Background(), domain.PublicCustomerRegisterRequest{
		Slug: "demo-kitchen", Name: "Ana Lopez", Phone: "5551234", PIN: "1234",
	})
	if err != nil {
		t.Fatalf("register customer failed: %v", err)
	}

	resp, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{
		Cart: []domain.SaleLineRequest{
			{ProductID: "prod-taco", Quantity: 1, Addons: []domain.AddonSelection{{GroupName: "Extras", Name: "Queso"}}},
		},
		CustomerID:    customer.ID,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("finalize sale failed: %v", err)
	}
	// 3500 + 16% tax = 4060 -> 40 points
	if resp.PointsAwarded != 40 {
		t.Fatalf("expected 40 points, got %d", resp.PointsAwarded)
	}
	if resp.Order.CustomerName != "Ana Lopez" {
		t.Fatalf("expected customer name on order, got %q", resp.Order.CustomerName)
	}

	found, err := svc.SearchCustomers(ctx, "ana")
	if err != nil || len(found) != 1 {
		t.Fatalf("search customers: %v (%d results)", err, len(found))
	}
	if found[0].Points != 40 || found[0].Visits != 1 || found[0].LastVisit == nil {
		t.Fatalf("unexpected customer after sale: %+v", found[0])
	}
}

func TestFinalizeSaleUnknownCustomerPersistsNothing(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	_, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{
		Cart:          burgerCart(1),
		CustomerID:    "cust-missing",
		PaymentMethod: "cash",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	orders, _ := svc.ListOrders(ctx)
	if len(orders) != 0 {
		t.Fatalf("expected no orders, got %d", len(orders))
	}
}

func TestOpenShiftRejectsSecondOpenShift(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 50000)

	_, err := svc.OpenShift(adminCtx(), domain.ShiftOpenRequest{AmountCents: 1000})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for second open shift, got %v", err)
	}
}

func TestCloseShiftWithoutOpenShiftIsNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.CloseShift(cashierCtx(), domain.ShiftCloseRequest{FinalCashActualCents: 100})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	status, err := svc.CurrentShift(cashierCtx())
	if err != nil {
		t.Fatalf("current shift failed: %v", err)
	}
	if status.Status != domain.ShiftStatusClosed {
		t.Fatalf("expected closed status, got %s", status.Status)
	}
}

func TestAddMovementRequiresOpenShift(t *testing.T) {
	svc := newTestService()

	_, err := svc.AddMovement(cashierCtx(), domain.MovementRequest{Type: "in", AmountCents: 100, Reason: "change"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCashDrawerScenario(t *testing.T) {
	svc := newTestService()
	mustSetTax(t, svc, 0)
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 50000)

	shift, err := svc.AddMovement(ctx, domain.MovementRequest{Type: "in", AmountCents: 10000, Reason: "change float"})
	if err != nil {
		t.Fatalf("add movement failed: %v", err)
	}
	if shift.Movements[0].PerformedBy != "Front Counter" {
		t.Fatalf("expected display name on movement, got %q", shift.Movements[0].PerformedBy)
	}

	if _, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{Cart: burgerCart(2), PaymentMethod: "cash"}); err != nil {
		t.Fatalf("cash sale failed: %v", err)
	}
	if _, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{Cart: burgerCart(1), PaymentMethod: "card"}); err != nil {
		t.Fatalf("card sale failed: %v", err)
	}

	status, err := svc.CurrentShift(ctx)
	if err != nil {
		t.Fatalf("current shift failed: %v", err)
	}
	if status.CurrentCashInDrawerCents != 80000 {
		t.Fatalf("expected 80000 in drawer, got %d", status.CurrentCashInDrawerCents)
	}
	if status.SalesSummary.CreditCardCents != 10000 || status.SalesSummary.TotalCents != 30000 {
		t.Fatalf("unexpected sales summary %+v", status.SalesSummary)
	}

	closed, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{FinalCashActualCents: 79000})
	if err != nil {
		t.Fatalf("close shift failed: %v", err)
	}
	if closed.FinalCashExpectedCents != 80000 || closed.DifferenceCents != -1000 {
		t.Fatalf("unexpected close result %+v", closed)
	}
	if closed.Status != domain.ShiftStatusClosed || closed.EndTime == nil {
		t.Fatalf("expected closed shift with end time, got %+v", closed)
	}

	history, err := svc.ShiftHistory(ctx, 0)
	if err != nil {
		t.Fatalf("shift history failed: %v", err)
	}
	if len(history) != 1 || history[0].OpenedByName != "Front Counter" {
		t.Fatalf("unexpected history %+v", history)
	}

	// sales from the closed shift do not leak into the next one
	mustOpenShift(t, svc, ctx, 1000)
	status, _ = svc.CurrentShift(ctx)
	if status.CurrentCashInDrawerCents != 1000 {
		t.Fatalf("expected fresh drawer 1000, got %d", status.CurrentCashInDrawerCents)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)
	resp, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{Cart: burgerCart(1), PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("finalize sale failed: %v", err)
	}

	_, err = svc.UpdateOrderStatus(ctx, resp.Order.ID, domain.OrderStatusRequest{Status: "delivered"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}

	ready, err := svc.UpdateOrderStatus(ctx, resp.Order.ID, domain.OrderStatusRequest{Status: "ready"})
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	again, err := svc.UpdateOrderStatus(ctx, resp.Order.ID, domain.OrderStatusRequest{Status: "ready"})
	if err != nil {
		t.Fatalf("repeated status update failed: %v", err)
	}
	if ready.Status != "ready" || again.Status != "ready" || !again.UpdatedAt.Equal(ready.UpdatedAt) {
		t.Fatalf("expected idempotent status update, got %+v then %+v", ready, again)
	}

	_, err = svc.UpdateOrderStatus(ctx, "ord-missing", domain.OrderStatusRequest{Status: "ready"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelledOrderLeavesDrawer(t *testing.T) {
	svc := newTestService()
	mustSetTax(t, svc, 0)
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)
	resp, err := svc.FinalizeSale(ctx, domain.FinalizeSaleRequest{Cart: burgerCart(1), PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("finalize sale failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, resp.Order.ID, domain.OrderStatusRequest{Status: "cancelled"}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	status, _ := svc.CurrentShift(ctx)
	if status.CurrentCashInDrawerCents != 0 {
		t.Fatalf("expected cancelled sale excluded, got %d", status.CurrentCashInDrawerCents)
	}
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{Name: "Flan", PriceCents: 4500})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:       "Flan",
		PriceCents: 4500,
		AddonGroups: []domain.AddonGroup{
			{Name: " Topping ", Options: []domain.AddonOption{{Name: "Cajeta", PriceExtraCents: 500}}},
		},
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if product.AddonGroups[0].Name != "Topping" {
		t.Fatalf("expected trimmed group name, got %q", product.AddonGroups[0].Name)
	}
}

func TestCreateProductRejectsDuplicateOptions(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:       "Flan",
		PriceCents: 4500,
		AddonGroups: []domain.AddonGroup{
			{Name: "Topping", Options: []domain.AddonOption{{Name: "Cajeta"}, {Name: "Cajeta"}}},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRegisterBusinessGeneratesUniqueSlug(t *testing.T) {
	svc := newTestService()

	first, err := svc.RegisterBusiness(context.Background(), domain.BusinessRegisterRequest{
		BusinessName: "Demo Kitchen", AdminUsername: "owner1", AdminPassword: "secret123",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if first.Business.Slug != "demo-kitchen-1" {
		t.Fatalf("expected demo-kitchen-1, got %s", first.Business.Slug)
	}
	if first.Admin.Role != domain.RoleAdmin || first.Business.Settings.TaxRatePercent != domain.DefaultTaxRatePercent {
		t.Fatalf("unexpected registration %+v", first)
	}

	second, err := svc.RegisterBusiness(context.Background(), domain.BusinessRegisterRequest{
		BusinessName: "Demo Kitchen", AdminUsername: "owner2", AdminPassword: "secret123",
	})
	if err != nil {
		t.Fatalf("second register failed: %v", err)
	}
	if second.Business.Slug != "demo-kitchen-2" {
		t.Fatalf("expected demo-kitchen-2, got %s", second.Business.Slug)
	}

	_, err = svc.RegisterBusiness(context.Background(), domain.BusinessRegisterRequest{
		BusinessName: "Other Place", AdminUsername: "owner1", AdminPassword: "secret123",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for taken username, got %v", err)
	}
}

type mapSettingsCache struct {
	mu      sync.Mutex
	entries map[string]domain.BusinessSettings
	deletes int
}

func (c *mapSettingsCache) Get(_ context.Context, businessID string) (*domain.BusinessSettings, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	settings, ok := c.entries[businessID]
	if !ok {
		return nil, false, nil
	}
	return &settings, true, nil
}

func (c *mapSettingsCache) Set(_ context.Context, businessID string, settings domain.BusinessSettings, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[businessID] = settings
	return nil
}

func (c *mapSettingsCache) Delete(_ context.Context, businessID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, businessID)
	c.deletes++
	return nil
}

func TestUpdateSettingsInvalidatesCache(t *testing.T) {
	settingsCache := &mapSettingsCache{entries: map[string]domain.BusinessSettings{}}
	svc := New(memory.NewSeeded(), Options{SettingsCache: settingsCache})

	if _, err := svc.GetSettings(cashierCtx()); err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if _, ok := settingsCache.entries[memory.DemoBusinessID]; !ok {
		t.Fatalf("expected settings to be cached after read")
	}

	rate := 8.0
	currency := "usd"
	if _, err := svc.UpdateSettings(cashierCtx(), domain.SettingsUpdateRequest{TaxRatePercent: &rate}); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected cashier to be forbidden, got %v", err)
	}
	updated, err := svc.UpdateSettings(adminCtx(), domain.SettingsUpdateRequest{TaxRatePercent: &rate, Currency: &currency})
	if err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if updated.Currency != "USD" {
		t.Fatalf("expected upper-cased currency, got %s", updated.Currency)
	}
	if settingsCache.deletes != 1 {
		t.Fatalf("expected one invalidation, got %d", settingsCache.deletes)
	}

	got, err := svc.GetSettings(cashierCtx())
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if got.TaxRatePercent != 8 {
		t.Fatalf("expected fresh tax rate 8, got %v", got.TaxRatePercent)
	}

	bad := 120.0
	if _, err := svc.UpdateSettings(adminCtx(), domain.SettingsUpdateRequest{TaxRatePercent: &bad}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for tax 120, got %v", err)
	}
}

func TestMenuQRIsPNG(t *testing.T) {
	svc := New(memory.NewSeeded(), Options{PublicBaseURL: "https://order.example.com/"})

	business, err := svc.GetBusiness(cashierCtx())
	if err != nil {
		t.Fatalf("get business failed: %v", err)
	}
	if got := svc.MenuURL(business); got != "https://order.example.com/menu/demo-kitchen" {
		t.Fatalf("unexpected menu url %s", got)
	}

	png, err := svc.MenuQR(cashierCtx())
	if err != nil {
		t.Fatalf("menu qr failed: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("expected PNG bytes")
	}
}

func TestPublicLoyaltyPINFlow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.PublicRegisterCustomer(ctx, domain.PublicCustomerRegisterRequest{
		Slug: "demo-kitchen", Name: "Luis", Phone: "5550000", PIN: "12a4",
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid pin rejection, got %v", err)
	}

	status, err := svc.PublicLoyaltyStatus(ctx, domain.PublicLoyaltyStatusRequest{Slug: "demo-kitchen", Phone: "5550000"})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Registered || status.Program == nil {
		t.Fatalf("expected unregistered status with program, got %+v", status)
	}

	if _, err := svc.PublicRegisterCustomer(ctx, domain.PublicCustomerRegisterRequest{
		Slug: "demo-kitchen", Name: "Luis", Phone: "5550000", PIN: "4321",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	status, err = svc.PublicLoyaltyStatus(ctx, domain.PublicLoyaltyStatusRequest{Slug: "demo-kitchen", Phone: "5550000"})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !status.Registered || !status.AuthRequired || status.Customer != nil {
		t.Fatalf("expected auth required without customer data, got %+v", status)
	}

	_, err = svc.PublicLoyaltyStatus(ctx, domain.PublicLoyaltyStatusRequest{Slug: "demo-kitchen", Phone: "5550000", PIN: "0000"})
	if !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong pin, got %v", err)
	}

	status, err = svc.PublicLoyaltyStatus(ctx, domain.PublicLoyaltyStatusRequest{Slug: "demo-kitchen", Phone: "5550000", PIN: "4321"})
	if err != nil {
		t.Fatalf("status with pin failed: %v", err)
	}
	if !status.AuthSuccess || status.Customer == nil || status.Customer.Name != "Luis" {
		t.Fatalf("expected customer on successful pin, got %+v", status)
	}
}

func TestLoyaltyPointsAndRedeem(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	if _, err := svc.PublicRegisterCustomer(context.Background(), domain.PublicCustomerRegisterRequest{
		Slug: "demo-kitchen", Name: "Rosa", Phone: "5557777", PIN: "1111",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	added, err := svc.AddLoyaltyPoints(ctx, domain.LoyaltyPointsRequest{Phone: "5557777", Amount: 150})
	if err != nil {
		t.Fatalf("add points failed: %v", err)
	}
	if added.NewBalance != 150 || !added.GoalReached || added.Reward != "Free dessert" {
		t.Fatalf("unexpected add points response %+v", added)
	}

	redeemed, err := svc.RedeemReward(ctx, domain.RedeemRequest{Phone: "5557777"})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redeemed.NewBalance != 50 {
		t.Fatalf("expected balance 50, got %d", redeemed.NewBalance)
	}

	_, err = svc.RedeemReward(ctx, domain.RedeemRequest{Phone: "5557777"})
	if !errors.Is(err, store.ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got %v", err)
	}

	_, err = svc.AddLoyaltyPoints(ctx, domain.LoyaltyPointsRequest{Phone: "0000000", Amount: 10})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown phone, got %v", err)
	}
}

func TestStampProgramCountsVisits(t *testing.T) {
	svc := newTestService()
	if _, err := svc.UpdateLoyaltyProgram(adminCtx(), domain.LoyaltyProgramUpdateRequest{
		Type: domain.LoyaltyStamps, Goal: 5, Reward: "Free taco", Active: true,
	}); err != nil {
		t.Fatalf("update program failed: %v", err)
	}
	if _, err := svc.PublicRegisterCustomer(context.Background(), domain.PublicCustomerRegisterRequest{
		Slug: "demo-kitchen", Name: "Tere", Phone: "5552222", PIN: "2222",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	resp, err := svc.AddLoyaltyPoints(cashierCtx(), domain.LoyaltyPointsRequest{Phone: "5552222", Amount: 900})
	if err != nil {
		t.Fatalf("add stamp failed: %v", err)
	}
	if resp.NewBalance != 1 || resp.GoalReached {
		t.Fatalf("expected one stamp, got %+v", resp)
	}
}

func TestGetLoyaltyProgramCreatesInactiveDefault(t *testing.T) {
	svc := New(memory.New(), Options{})
	ctx := WithActor(context.Background(), domain.Actor{Username: "owner", Role: domain.RoleAdmin, BusinessID: "biz-new"})

	program, err := svc.GetLoyaltyProgram(ctx)
	if err != nil {
		t.Fatalf("get program failed: %v", err)
	}
	if program.Active || program.Type != domain.LoyaltyPoints || program.Goal != 100 {
		t.Fatalf("unexpected default program %+v", program)
	}
}

func TestCreatePublicOrderIsPending(t *testing.T) {
	svc := newTestService()

	order, err := svc.CreatePublicOrder(context.Background(), domain.PublicOrderRequest{
		Slug:         "demo-kitchen",
		CustomerName: "Mesa 4",
		Items:        []domain.SaleLineRequest{{ProductID: "prod-agua", Quantity: 1, Addons: []domain.AddonSelection{{GroupName: "Size", Name: "Grande"}}}},
	})
	if err != nil {
		t.Fatalf("public order failed: %v", err)
	}
	if order.Status != domain.OrderStatusPending || order.Source != domain.OrderSourceWhatsApp || order.PaymentMethod != "cash" {
		t.Fatalf("unexpected public order %+v", order)
	}
	if order.SubtotalCents != 4000 {
		t.Fatalf("expected subtotal 4000, got %d", order.SubtotalCents)
	}

	_, err = svc.CreatePublicOrder(context.Background(), domain.PublicOrderRequest{
		Slug: "nowhere", CustomerName: "x", Items: burgerCart(1),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown slug, got %v", err)
	}
}

func TestTerminalCheckoutResetsTab(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	state, err := svc.AddTabLine(ctx, "t1", domain.AddLineRequest{
		ProductID: "prod-taco",
		Addons:    []domain.AddonSelection{{GroupName: "Extras", Name: "Queso"}},
	})
	if err != nil {
		t.Fatalf("add line failed: %v", err)
	}
	if state.Totals.TotalCents != 4060 {
		t.Fatalf("expected tab total 4060, got %d", state.Totals.TotalCents)
	}

	resp, err := svc.Checkout(ctx, "t1", domain.CheckoutRequest{PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Sale.Order.TotalCents != 4060 {
		t.Fatalf("expected order total 4060, got %d", resp.Sale.Order.TotalCents)
	}
	if len(resp.State.Session.ActiveTab().Lines) != 0 || resp.State.Session.Pending != nil {
		t.Fatalf("expected tab reset after payment, got %+v", resp.State.Session)
	}

	// other terminals are independent
	other, err := svc.TerminalSession(ctx, "t2")
	if err != nil {
		t.Fatalf("terminal session failed: %v", err)
	}
	if len(other.Session.Tabs) != 1 || len(other.Session.ActiveTab().Lines) != 0 {
		t.Fatalf("expected fresh session for t2")
	}
}

func TestTerminalCheckoutFailureKeepsTab(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	if _, err := svc.AddTabLine(ctx, "t1", domain.AddLineRequest{ProductID: "prod-burger"}); err != nil {
		t.Fatalf("add line failed: %v", err)
	}
	_, err := svc.Checkout(ctx, "t1", domain.CheckoutRequest{PaymentMethod: "cash"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict without shift, got %v", err)
	}

	state, err := svc.TerminalSession(ctx, "t1")
	if err != nil {
		t.Fatalf("terminal session failed: %v", err)
	}
	if state.Session.Pending != nil || len(state.Session.ActiveTab().Lines) != 1 {
		t.Fatalf("expected tab intact and no pending payment, got %+v", state.Session)
	}
}

func TestTerminalRejectedActionsLeaveSessionUnchanged(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	if _, err := svc.RemoveTab(ctx, "t1", 1); !errors.Is(err, pos.ErrLastTab) {
		t.Fatalf("expected last tab rejection, got %v", err)
	}
	if _, err := svc.ApplyTabDiscount(ctx, "t1", domain.DiscountRequest{AmountCents: 500}); !errors.Is(err, pos.ErrEmptyCart) {
		t.Fatalf("expected empty cart rejection, got %v", err)
	}
	if _, err := svc.AddTabLine(ctx, "t1", domain.AddLineRequest{ProductID: "prod-ghost"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unknown product rejection, got %v", err)
	}
	if _, err := svc.TerminalSession(ctx, " "); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid terminal id, got %v", err)
	}

	state, err := svc.TerminalSession(ctx, "t1")
	if err != nil {
		t.Fatalf("terminal session failed: %v", err)
	}
	if len(state.Session.Tabs) != 1 || len(state.Session.ActiveTab().Lines) != 0 {
		t.Fatalf("expected untouched session, got %+v", state.Session)
	}
}

func TestTerminalTabsAndCustomer(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	customer, err := svc.PublicRegisterCustomer(context.Background(), domain.PublicCustomerRegisterRequest{
		Slug: "demo-kitchen", Name: "Maria Perez", Phone: "5553333", PIN: "3333",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	state, err := svc.AddTab(ctx, "t1")
	if err != nil {
		t.Fatalf("add tab failed: %v", err)
	}
	if len(state.Session.Tabs) != 2 || state.Session.ActiveTabID != 2 {
		t.Fatalf("expected second tab active, got %+v", state.Session)
	}

	state, err = svc.AssignTabCustomer(ctx, "t1", domain.AssignCustomerRequest{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("assign customer failed: %v", err)
	}
	if state.Session.ActiveTab().Name != "Maria" {
		t.Fatalf("expected tab renamed to first name, got %q", state.Session.ActiveTab().Name)
	}

	state, err = svc.UnassignTabCustomer(ctx, "t1")
	if err != nil {
		t.Fatalf("unassign customer failed: %v", err)
	}
	if state.Session.ActiveTab().Customer != nil || state.Session.ActiveTab().Name != "Client 2" {
		t.Fatalf("expected default tab name, got %+v", state.Session.ActiveTab())
	}

	state, err = svc.ActivateTab(ctx, "t1", 1)
	if err != nil {
		t.Fatalf("activate tab failed: %v", err)
	}
	if state.Session.ActiveTabID != 1 {
		t.Fatalf("expected tab 1 active, got %d", state.Session.ActiveTabID)
	}

	state, err = svc.RemoveTab(ctx, "t1", 2)
	if err != nil {
		t.Fatalf("remove tab failed: %v", err)
	}
	if len(state.Session.Tabs) != 1 {
		t.Fatalf("expected one tab left, got %d", len(state.Session.Tabs))
	}
}

func TestTerminalLineEditing(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()

	state, err := svc.AddTabLine(ctx, "t1", domain.AddLineRequest{ProductID: "prod-burger"})
	if err != nil {
		t.Fatalf("add line failed: %v", err)
	}
	lineID := state.Session.ActiveTab().Lines[0].LineID

	state, err = svc.ChangeLineQuantity(ctx, "t1", lineID, domain.QuantityChangeRequest{Delta: 2})
	if err != nil {
		t.Fatalf("change quantity failed: %v", err)
	}
	if state.Session.ActiveTab().Lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", state.Session.ActiveTab().Lines[0].Quantity)
	}

	state, err = svc.ApplyTabDiscount(ctx, "t1", domain.DiscountRequest{AmountCents: 5000})
	if err != nil {
		t.Fatalf("apply discount failed: %v", err)
	}
	// 30000 - 5000 = 25000, tax 4000
	if state.Totals.TotalCents != 29000 {
		t.Fatalf("expected total 29000, got %d", state.Totals.TotalCents)
	}

	state, err = svc.RemoveTabLine(ctx, "t1", lineID)
	if err != nil {
		t.Fatalf("remove line failed: %v", err)
	}
	if len(state.Session.ActiveTab().Lines) != 0 || state.Totals.TotalCents != 0 {
		t.Fatalf("expected empty tab, got %+v", state.Totals)
	}
}

func TestTerminalSplitPayAndCancel(t *testing.T) {
	svc := newTestService()
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	for i := 0; i < 2; i++ {
		if _, err := svc.AddTabLine(ctx, "t1", domain.AddLineRequest{ProductID: "prod-burger"}); err != nil {
			t.Fatalf("add line failed: %v", err)
		}
	}
	state, err := svc.StartSplit(ctx, "t1")
	if err != nil {
		t.Fatalf("start split failed: %v", err)
	}
	lineID := state.Session.Split.Remaining[0].LineID

	if _, err := svc.AddSplitCheck(ctx, "t1"); err != nil {
		t.Fatalf("add check failed: %v", err)
	}
	if _, err := svc.MoveSplitItem(ctx, "t1", domain.MoveItemRequest{From: pos.Remaining, To: 0, LineID: lineID, Quantity: 1}); err != nil {
		t.Fatalf("move item failed: %v", err)
	}

	if _, err := svc.PaySplitCheck(ctx, "t1", 1); !errors.Is(err, pos.ErrEmptyCheck) {
		t.Fatalf("expected empty check rejection, got %v", err)
	}
	if _, err := svc.PaySplitCheck(ctx, "t1", 0); err != nil {
		t.Fatalf("pay check failed: %v", err)
	}

	// a failed charge drops the staged copy and keeps the check
	if _, err := svc.Checkout(ctx, "t1", domain.CheckoutRequest{PaymentMethod: "bitcoin"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid payment method, got %v", err)
	}
	state, _ = svc.TerminalSession(ctx, "t1")
	if state.Session.Pending != nil || len(state.Session.Split.Checks[0].Items) != 1 {
		t.Fatalf("expected check kept after failed payment, got %+v", state.Session.Split)
	}

	if _, err := svc.PaySplitCheck(ctx, "t1", 0); err != nil {
		t.Fatalf("pay check again failed: %v", err)
	}
	state, err = svc.CancelPayment(ctx, "t1")
	if err != nil {
		t.Fatalf("cancel payment failed: %v", err)
	}
	if state.Session.Pending != nil {
		t.Fatalf("expected no pending payment after cancel")
	}

	if _, err := svc.PaySplitCheck(ctx, "t1", 0); err != nil {
		t.Fatalf("pay check failed: %v", err)
	}
	resp, err := svc.Checkout(ctx, "t1", domain.CheckoutRequest{PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Sale.Order.SubtotalCents != 10000 {
		t.Fatalf("expected one burger charged, got %d", resp.Sale.Order.SubtotalCents)
	}
	split := resp.State.Session.Split
	if split == nil || len(split.Checks) != 1 || split.Remaining[0].Quantity != 1 {
		t.Fatalf("expected paid check removed and one burger remaining, got %+v", split)
	}

	state, err = svc.AbandonSplit(ctx, "t1")
	if err != nil {
		t.Fatalf("abandon split failed: %v", err)
	}
	if state.Session.Split != nil || state.Session.ActiveTab().Lines[0].Quantity != 1 {
		t.Fatalf("expected remaining burger back on tab, got %+v", state.Session)
	}
}

// failingSessionStore fails the save with the given 1-based number.
type failingSessionStore struct {
	*cache.MemorySessionStore
	saves  int
	failOn int
}

func (f *failingSessionStore) Save(ctx context.Context, businessID string, terminalID string, session *pos.Session) error {
	f.saves++
	if f.saves == f.failOn {
		return errors.New("session backend unavailable")
	}
	return f.MemorySessionStore.Save(ctx, businessID, terminalID, session)
}

func TestTerminalCheckoutRetryAfterSessionSaveFailureChargesOnce(t *testing.T) {
	sessions := &failingSessionStore{MemorySessionStore: cache.NewMemorySessionStore()}
	svc := New(memory.NewSeeded(), Options{Sessions: sessions})
	ctx := cashierCtx()
	mustOpenShift(t, svc, ctx, 0)

	if _, err := svc.AddTabLine(ctx, "t1", domain.AddLineRequest{ProductID: "prod-burger"}); err != nil {
		t.Fatalf("add line failed: %v", err)
	}

	// the staging save succeeds, the save after the sale fails
	sessions.saves = 0
	sessions.failOn = 2
	if _, err := svc.Checkout(ctx, "t1", domain.CheckoutRequest{PaymentMethod: "cash"}); err == nil {
		t.Fatalf("expected checkout to report the session save failure")
	}

	stored, err := svc.TerminalSession(ctx, "t1")
	if err != nil {
		t.Fatalf("terminal session failed: %v", err)
	}
	if stored.Session.Pending == nil || stored.Session.Pending.Key == "" {
		t.Fatalf("expected staged payment with key to survive, got %+v", stored.Session)
	}

	resp, err := svc.Checkout(ctx, "t1", domain.CheckoutRequest{PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("retry checkout failed: %v", err)
	}
	if !resp.Sale.Duplicate {
		t.Fatalf("expected retry to return the recorded sale")
	}
	if resp.State.Session.Pending != nil || len(resp.State.Session.ActiveTab().Lines) != 0 {
		t.Fatalf("expected tab reset after retry, got %+v", resp.State.Session)
	}

	orders, err := svc.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(orders))
	}
	status, err := svc.CurrentShift(ctx)
	if err != nil {
		t.Fatalf("current shift failed: %v", err)
	}
	if status.CurrentCashInDrawerCents != 11600 {
		t.Fatalf("expected one burger in the drawer, got %d", status.CurrentCashInDrawerCents)
	}
}

func TestTerminalCheckoutClientKeyWins(t *testing.T) {
	pending := domain.PendingPayment{Key: "staged-key", Lines: []domain.CartLine{{ProductID: "prod-burger", Quantity: 1}}}

	if got := saleRequestFor(pending, domain.CheckoutRequest{PaymentMethod: "cash"}).IdempotencyKey; got != "staged-key" {
		t.Fatalf("expected staged key, got %q", got)
	}
	if got := saleRequestFor(pending, domain.CheckoutRequest{PaymentMethod: "cash", IdempotencyKey: "client-key"}).IdempotencyKey; got != "client-key" {
		t.Fatalf("expected client key, got %q", got)
	}
}
