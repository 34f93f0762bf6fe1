package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"restopos/internal/domain"
	"restopos/internal/store"
	"restopos/internal/xid"
)

const DemoBusinessID = "biz-demo"

type Store struct {
	mu                sync.RWMutex
	businessesByID    map[string]domain.Business
	businessIDBySlug  map[string]string
	products          map[string]domain.Product
	usersByUsername   map[string]domain.UserAccount
	shiftsByID        map[string]domain.CashShift
	openShiftByBiz    map[string]string
	ordersByID        map[string]*domain.Order
	orderIDByIdem     map[string]string
	orderSeq          []string
	programsByBiz     map[string]domain.LoyaltyProgram
	customersByID     map[string]domain.Customer
	customerIDByPhone map[string]string
	auditLogs         []domain.AuditLog
}

func New() *Store {
	return &Store{
		businessesByID:    make(map[string]domain.Business),
		businessIDBySlug:  make(map[string]string),
		products:          make(map[string]domain.Product),
		usersByUsername:   make(map[string]domain.UserAccount),
		shiftsByID:        make(map[string]domain.CashShift),
		openShiftByBiz:    make(map[string]string),
		ordersByID:        make(map[string]*domain.Order),
		orderIDByIdem:     make(map[string]string),
		orderSeq:          make([]string, 0, 64),
		programsByBiz:     make(map[string]domain.LoyaltyProgram),
		customersByID:     make(map[string]domain.Customer),
		customerIDByPhone: make(map[string]string),
		auditLogs:         make([]domain.AuditLog, 0, 128),
	}
}

// seedUsers builds the demo business accounts for dev mode. Credentials are
// read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if unset the dev
// defaults are used with a warning. The memory store is never used when
// DATABASE_URL is set.
func seedUsers(businessID string) map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username    string
		password    string
		role        string
		displayName string
	}{
		{"admin", adminPwd, domain.RoleAdmin, "Owner"},
		{"cashier", cashierPwd, domain.RoleCashier, "Front Counter"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:    u.username,
			Password:    string(hash),
			Role:        u.role,
			BusinessID:  businessID,
			DisplayName: u.displayName,
			Active:      true,
			CreatedAt:   now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store holding one demo restaurant with a small menu and
// an active points program.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	s.businessesByID[DemoBusinessID] = domain.Business{
		ID:   DemoBusinessID,
		Name: "Demo Kitchen",
		Slug: "demo-kitchen",
		Settings: domain.BusinessSettings{
			TaxRatePercent: domain.DefaultTaxRatePercent,
			Currency:       domain.DefaultCurrency,
		},
		CreatedAt: now,
	}
	s.businessIDBySlug["demo-kitchen"] = DemoBusinessID

	for _, p := range []domain.Product{
		{ID: "prod-taco", Name: "Taco al Pastor", Category: "tacos", PriceCents: 2500, AddonGroups: []domain.AddonGroup{
			{Name: "Extras", Options: []domain.AddonOption{{Name: "Queso", PriceExtraCents: 1000}, {Name: "Guacamole", PriceExtraCents: 1500}}},
		}},
		{ID: "prod-agua", Name: "Agua Fresca", Category: "drinks", PriceCents: 3000, AddonGroups: []domain.AddonGroup{
			{Name: "Size", Options: []domain.AddonOption{{Name: "Chico", PriceExtraCents: 0}, {Name: "Grande", PriceExtraCents: 1000}}},
		}},
		{ID: "prod-burger", Name: "Hamburguesa", Category: "mains", PriceCents: 10000},
	} {
		p.BusinessID = DemoBusinessID
		p.Active = true
		p.CreatedAt = now
		s.products[p.ID] = p
	}

	s.usersByUsername = seedUsers(DemoBusinessID)
	s.programsByBiz[DemoBusinessID] = domain.LoyaltyProgram{
		BusinessID: DemoBusinessID,
		Type:       domain.LoyaltyPoints,
		Goal:       100,
		Reward:     "Free dessert",
		Active:     true,
		UpdatedAt:  now,
	}
	return s
}

func (s *Store) CreateBusiness(_ context.Context, business domain.Business, admin domain.UserAccount) (*domain.Business, error) {
	business.Slug = strings.TrimSpace(business.Slug)
	admin.Username = strings.ToLower(strings.TrimSpace(admin.Username))
	if strings.TrimSpace(business.Name) == "" || business.Slug == "" {
		return nil, store.ErrInvalidInput
	}
	if admin.Username == "" || strings.TrimSpace(admin.Password) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.businessIDBySlug[business.Slug]; exists {
		return nil, store.ErrConflict
	}
	if _, exists := s.usersByUsername[admin.Username]; exists {
		return nil, store.ErrConflict
	}
	if business.ID == "" {
		business.ID = xid.New("biz")
	}
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}
	admin.BusinessID = business.ID
	admin.Role = domain.RoleAdmin
	admin.Active = true
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = business.CreatedAt
	}

	s.businessesByID[business.ID] = business
	s.businessIDBySlug[business.Slug] = business.ID
	s.usersByUsername[admin.Username] = admin
	created := business
	return &created, nil
}

func (s *Store) GetBusiness(_ context.Context, id string) (*domain.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	business, exists := s.businessesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &business, nil
}

func (s *Store) GetBusinessBySlug(_ context.Context, slug string) (*domain.Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.businessIDBySlug[strings.TrimSpace(slug)]
	if !exists {
		return nil, store.ErrNotFound
	}
	business := s.businessesByID[id]
	return &business, nil
}

func (s *Store) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.businessIDBySlug[slug]
	return exists, nil
}

func (s *Store) UpdateBusinessSettings(_ context.Context, businessID string, settings domain.BusinessSettings) (*domain.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	business, exists := s.businessesByID[businessID]
	if !exists {
		return nil, store.ErrNotFound
	}
	business.Settings = settings
	s.businessesByID[businessID] = business
	return &business, nil
}

func (s *Store) ListProducts(_ context.Context, businessID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 16)
	for _, p := range s.products {
		if p.BusinessID != businessID || !p.Active {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.BusinessID == "" || strings.TrimSpace(product.Name) == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true
	product.SalesCount = 0
	product = cloneProduct(product)
	s.products[product.ID] = product
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, businessID string, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		product, exists := s.products[id]
		if !exists || product.BusinessID != businessID || !product.Active {
			continue
		}
		result[id] = cloneProduct(product)
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" || user.BusinessID == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

// ListUsers returns the users of one business, or every user when businessID is empty.
func (s *Store) ListUsers(_ context.Context, businessID string) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		if businessID != "" && user.BusinessID != businessID {
			continue
		}
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) CreateShift(_ context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	if strings.TrimSpace(shift.BusinessID) == "" || shift.InitialCashCents < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.openShiftByBiz[shift.BusinessID]; exists {
		return nil, store.ErrConflict
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.EndTime = nil
	shift.Movements = []domain.CashMovement{}

	s.shiftsByID[shift.ID] = shift
	s.openShiftByBiz[shift.BusinessID] = shift.ID
	created := cloneShift(shift)
	return &created, nil
}

func (s *Store) GetOpenShift(_ context.Context, businessID string) (*domain.CashShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, ok := s.openShiftLocked(businessID)
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneShift(shift)
	return &found, nil
}

func (s *Store) AddShiftMovement(_ context.Context, businessID string, movement domain.CashMovement) (*domain.CashShift, error) {
	if movement.AmountCents <= 0 || (movement.Type != domain.MovementIn && movement.Type != domain.MovementOut) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shift, ok := s.openShiftLocked(businessID)
	if !ok {
		return nil, store.ErrNotFound
	}
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.Date.IsZero() {
		movement.Date = time.Now().UTC()
	}
	shift.Movements = append(shift.Movements, movement)
	s.shiftsByID[shift.ID] = shift
	updated := cloneShift(shift)
	return &updated, nil
}

// CloseShift persists a shift already sealed by the ledger. It must still be
// the open shift of its business.
func (s *Store) CloseShift(_ context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	if shift.Status != domain.ShiftStatusClosed || shift.EndTime == nil {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, ok := s.openShiftLocked(shift.BusinessID)
	if !ok || open.ID != shift.ID {
		return nil, store.ErrNotFound
	}
	shift.Movements = open.Movements
	s.shiftsByID[shift.ID] = shift
	delete(s.openShiftByBiz, shift.BusinessID)
	closed := cloneShift(shift)
	return &closed, nil
}

func (s *Store) ListClosedShifts(_ context.Context, businessID string, limit int) ([]domain.CashShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CashShift, 0, 16)
	for _, shift := range s.shiftsByID {
		if shift.BusinessID != businessID || shift.Status != domain.ShiftStatusClosed {
			continue
		}
		result = append(result, cloneShift(shift))
	}
	slices.SortFunc(result, func(a, b domain.CashShift) int {
		return b.StartTime.Compare(a.StartTime)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SalesByPaymentMethod(_ context.Context, businessID string, since time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64)
	for _, order := range s.ordersByID {
		if order.BusinessID != businessID || order.Status == domain.OrderStatusCancelled {
			continue
		}
		if order.CreatedAt.Before(since) {
			continue
		}
		result[order.PaymentMethod] += order.TotalCents
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.SaleRecord) (*domain.Order, bool, error) {
	order := sale.Order
	if order.BusinessID == "" || len(order.Items) == 0 {
		return nil, false, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IdempotencyKey != "" {
		if id, ok := s.orderIDByIdem[idemKey(order.BusinessID, order.IdempotencyKey)]; ok {
			return cloneOrder(s.ordersByID[id]), true, nil
		}
	}

	var customer domain.Customer
	if sale.Loyalty != nil {
		found, exists := s.customersByID[sale.Loyalty.CustomerID]
		if !exists || found.BusinessID != order.BusinessID {
			return nil, false, store.ErrNotFound
		}
		customer = found
	}

	now := time.Now().UTC()
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	for _, item := range order.Items {
		product, exists := s.products[item.ProductID]
		if !exists || product.BusinessID != order.BusinessID {
			continue
		}
		product.SalesCount += int64(item.Quantity)
		s.products[product.ID] = product
	}

	if sale.Loyalty != nil {
		at := sale.Loyalty.At
		customer.Points += sale.Loyalty.Points
		customer.Visits++
		customer.LastVisit = &at
		s.customersByID[customer.ID] = customer
	}

	stored := cloneOrder(&order)
	s.ordersByID[order.ID] = stored
	s.orderSeq = append(s.orderSeq, order.ID)
	if order.IdempotencyKey != "" {
		s.orderIDByIdem[idemKey(order.BusinessID, order.IdempotencyKey)] = order.ID
	}
	return cloneOrder(stored), false, nil
}

func (s *Store) FindOrderByIdempotency(_ context.Context, businessID string, key string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.orderIDByIdem[idemKey(businessID, key)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(s.ordersByID[id]), nil
}

func (s *Store) GetOrder(_ context.Context, businessID string, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok || order.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *Store) ListOrders(_ context.Context, businessID string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, 32)
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		order := s.ordersByID[s.orderSeq[i]]
		if order.BusinessID != businessID {
			continue
		}
		result = append(result, *cloneOrder(order))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, businessID string, id string, status string, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[id]
	if !ok || order.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = at
	return cloneOrder(order), nil
}

func (s *Store) GetLoyaltyProgram(_ context.Context, businessID string) (*domain.LoyaltyProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	program, ok := s.programsByBiz[businessID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &program, nil
}

func (s *Store) UpsertLoyaltyProgram(_ context.Context, program domain.LoyaltyProgram) (*domain.LoyaltyProgram, error) {
	if program.BusinessID == "" || program.Goal < 1 {
		return nil, store.ErrInvalidInput
	}
	if program.Type != domain.LoyaltyPoints && program.Type != domain.LoyaltyStamps {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if program.UpdatedAt.IsZero() {
		program.UpdatedAt = time.Now().UTC()
	}
	s.programsByBiz[program.BusinessID] = program
	return &program, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Phone = strings.TrimSpace(customer.Phone)
	if customer.BusinessID == "" || customer.Phone == "" || strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := phoneKey(customer.BusinessID, customer.Phone)
	if _, exists := s.customerIDByPhone[key]; exists {
		return nil, store.ErrConflict
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	s.customerIDByPhone[key] = customer.ID
	return &customer, nil
}

func (s *Store) GetCustomer(_ context.Context, businessID string, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customersByID[id]
	if !ok || customer.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	return &customer, nil
}

func (s *Store) GetCustomerByPhone(_ context.Context, businessID string, phone string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.customerIDByPhone[phoneKey(businessID, strings.TrimSpace(phone))]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer := s.customersByID[id]
	return &customer, nil
}

// SearchCustomers matches name or phone case-insensitively, most recent visit first.
func (s *Store) SearchCustomers(_ context.Context, businessID string, query string, limit int) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	result := make([]domain.Customer, 0, 16)
	for _, customer := range s.customersByID {
		if customer.BusinessID != businessID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(customer.Name), query) &&
			!strings.Contains(strings.ToLower(customer.Phone), query) {
			continue
		}
		result = append(result, customer)
	}
	slices.SortFunc(result, func(a, b domain.Customer) int {
		switch {
		case a.LastVisit == nil && b.LastVisit == nil:
			return strings.Compare(a.Name, b.Name)
		case a.LastVisit == nil:
			return 1
		case b.LastVisit == nil:
			return -1
		}
		return b.LastVisit.Compare(*a.LastVisit)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) AddCustomerPoints(_ context.Context, businessID string, customerID string, points int64, at time.Time) (*domain.Customer, error) {
	if points < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customersByID[customerID]
	if !ok || customer.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	customer.Points += points
	customer.Visits++
	customer.LastVisit = &at
	s.customersByID[customerID] = customer
	return &customer, nil
}

func (s *Store) RedeemCustomerPoints(_ context.Context, businessID string, customerID string, cost int64) (*domain.Customer, error) {
	if cost < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customersByID[customerID]
	if !ok || customer.BusinessID != businessID {
		return nil, store.ErrNotFound
	}
	if customer.Points < cost {
		return nil, store.ErrInsufficientPoints
	}
	customer.Points -= cost
	s.customersByID[customerID] = customer
	return &customer, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, businessID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if businessID != "" && entry.BusinessID != businessID {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) openShiftLocked(businessID string) (domain.CashShift, bool) {
	id, exists := s.openShiftByBiz[businessID]
	if !exists {
		return domain.CashShift{}, false
	}
	shift, exists := s.shiftsByID[id]
	if !exists || shift.Status != domain.ShiftStatusOpen {
		return domain.CashShift{}, false
	}
	return shift, true
}

func idemKey(businessID string, key string) string {
	return businessID + "|" + key
}

func phoneKey(businessID string, phone string) string {
	return businessID + "|" + phone
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	if src.AddonGroups != nil {
		dup.AddonGroups = make([]domain.AddonGroup, len(src.AddonGroups))
		for i, group := range src.AddonGroups {
			dup.AddonGroups[i] = domain.AddonGroup{
				Name:    group.Name,
				Options: append([]domain.AddonOption(nil), group.Options...),
			}
		}
	}
	return dup
}

func cloneShift(src domain.CashShift) domain.CashShift {
	dup := src
	dup.Movements = append([]domain.CashMovement{}, src.Movements...)
	if src.EndTime != nil {
		end := *src.EndTime
		dup.EndTime = &end
	}
	return dup
}

func cloneOrder(src *domain.Order) *domain.Order {
	if src == nil {
		return nil
	}
	dup := *src
	dup.Items = make([]domain.OrderItem, len(src.Items))
	for i, item := range src.Items {
		item.Addons = append([]domain.SelectedAddon(nil), item.Addons...)
		dup.Items[i] = item
	}
	return &dup
}
