package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"restopos/internal/domain"
	"restopos/internal/store"
	"restopos/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates missing tables and indexes. Every statement is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const businessColumns = `id, name, slug, phone, tax_rate_percent, currency, created_at`

func scanBusiness(row rowScanner) (*domain.Business, error) {
	var b domain.Business
	if err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.Phone, &b.Settings.TaxRatePercent, &b.Settings.Currency, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

func (s *Store) CreateBusiness(ctx context.Context, business domain.Business, admin domain.UserAccount) (*domain.Business, error) {
	business.Slug = strings.TrimSpace(business.Slug)
	admin.Username = strings.ToLower(strings.TrimSpace(admin.Username))
	if strings.TrimSpace(business.Name) == "" || business.Slug == "" {
		return nil, store.ErrInvalidInput
	}
	if admin.Username == "" || strings.TrimSpace(admin.Password) == "" {
		return nil, store.ErrInvalidInput
	}
	if business.ID == "" {
		business.ID = xid.New("biz")
	}
	if business.CreatedAt.IsZero() {
		business.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO businesses (id, name, slug, phone, tax_rate_percent, currency, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, business.ID, business.Name, business.Slug, business.Phone,
		business.Settings.TaxRatePercent, business.Settings.Currency, business.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, business_id, display_name, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,true,$6,now())
	`, admin.Username, admin.Password, domain.RoleAdmin, business.ID, admin.DisplayName, business.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := business
	return &created, nil
}

func (s *Store) GetBusiness(ctx context.Context, id string) (*domain.Business, error) {
	return scanBusiness(s.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id))
}

func (s *Store) GetBusinessBySlug(ctx context.Context, slug string) (*domain.Business, error) {
	return scanBusiness(s.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE slug = $1`, strings.TrimSpace(slug)))
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM businesses WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (s *Store) UpdateBusinessSettings(ctx context.Context, businessID string, settings domain.BusinessSettings) (*domain.Business, error) {
	return scanBusiness(s.db.QueryRowContext(ctx, `
		UPDATE businesses
		SET tax_rate_percent = $2, currency = $3
		WHERE id = $1
		RETURNING `+businessColumns, businessID, settings.TaxRatePercent, settings.Currency))
}

const productColumns = `id, business_id, name, category, price_cents, addon_groups, sales_count, active, created_at`

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var addons []byte
	if err := row.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Category, &p.PriceCents, &addons, &p.SalesCount, &p.Active, &p.CreatedAt); err != nil {
		return p, err
	}
	if len(addons) > 0 {
		if err := json.Unmarshal(addons, &p.AddonGroups); err != nil {
			return p, fmt.Errorf("decode addon groups for %s: %w", p.ID, err)
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, businessID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE business_id = $1 AND active = true
		ORDER BY category, name
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.BusinessID == "" || strings.TrimSpace(product.Name) == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if product.AddonGroups == nil {
		product.AddonGroups = []domain.AddonGroup{}
	}
	product.Active = true
	product.SalesCount = 0

	addons, err := json.Marshal(product.AddonGroups)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, business_id, name, category, price_cents, addon_groups, sales_count, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,0,true,$7)
	`, product.ID, product.BusinessID, product.Name, product.Category, product.PriceCents, addons, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, businessID string, ids []string) (map[string]domain.Product, error) {
	ids = uniqueStrings(ids)
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE business_id = $1 AND active = true AND id = ANY($2)
	`, businessID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" || user.BusinessID == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, business_id, display_name, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,true,$6,now())
	`, user.Username, user.Password, user.Role, user.BusinessID, user.DisplayName, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

// ListUsers returns the users of one business, or every user when businessID is empty.
func (s *Store) ListUsers(ctx context.Context, businessID string) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, business_id, display_name, active, created_at
		FROM app_users
		WHERE $1 = '' OR business_id = $1
		ORDER BY username ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.BusinessID, &user.DisplayName, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const shiftColumns = `id, business_id, opened_by, closed_by, start_time, end_time, status,
	initial_cash_cents, final_cash_expected_cents, final_cash_actual_cents, difference_cents`

func scanShift(row rowScanner) (*domain.CashShift, error) {
	var shift domain.CashShift
	var endTime sql.NullTime
	err := row.Scan(&shift.ID, &shift.BusinessID, &shift.OpenedBy, &shift.ClosedBy, &shift.StartTime, &endTime, &shift.Status,
		&shift.InitialCashCents, &shift.FinalCashExpectedCents, &shift.FinalCashActualCents, &shift.DifferenceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	shift.StartTime = shift.StartTime.UTC()
	if endTime.Valid {
		end := endTime.Time.UTC()
		shift.EndTime = &end
	}
	shift.Movements = []domain.CashMovement{}
	return &shift, nil
}

func (s *Store) loadMovements(ctx context.Context, q queryer, shift *domain.CashShift) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, type, amount_cents, reason, performed_by, created_at
		FROM cash_movements
		WHERE shift_id = $1
		ORDER BY created_at ASC, id ASC
	`, shift.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.CashMovement
		if err := rows.Scan(&m.ID, &m.Type, &m.AmountCents, &m.Reason, &m.PerformedBy, &m.Date); err != nil {
			return err
		}
		m.Date = m.Date.UTC()
		shift.Movements = append(shift.Movements, m)
	}
	return rows.Err()
}

func (s *Store) CreateShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	if strings.TrimSpace(shift.BusinessID) == "" || shift.InitialCashCents < 0 {
		return nil, store.ErrInvalidInput
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_shifts (id, business_id, opened_by, start_time, status, initial_cash_cents)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, shift.ID, shift.BusinessID, shift.OpenedBy, shift.StartTime, shift.Status, shift.InitialCashCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := shift
	return &saved, nil
}

func (s *Store) GetOpenShift(ctx context.Context, businessID string) (*domain.CashShift, error) {
	shift, err := scanShift(s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM cash_shifts
		WHERE business_id = $1 AND status = 'open'
	`, businessID))
	if err != nil {
		return nil, err
	}
	if err := s.loadMovements(ctx, s.db, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

func (s *Store) AddShiftMovement(ctx context.Context, businessID string, movement domain.CashMovement) (*domain.CashShift, error) {
	if movement.AmountCents <= 0 || (movement.Type != domain.MovementIn && movement.Type != domain.MovementOut) {
		return nil, store.ErrInvalidInput
	}
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.Date.IsZero() {
		movement.Date = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	shift, err := scanShift(pgTx.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM cash_shifts
		WHERE business_id = $1 AND status = 'open'
		FOR UPDATE
	`, businessID))
	if err != nil {
		return nil, err
	}
	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO cash_movements (id, shift_id, type, amount_cents, reason, performed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, movement.ID, shift.ID, movement.Type, movement.AmountCents, movement.Reason, movement.PerformedBy, movement.Date); err != nil {
		return nil, err
	}
	if err := s.loadMovements(ctx, pgTx, shift); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return shift, nil
}

// CloseShift persists a shift already sealed by the ledger. It must still be
// the open shift of its business.
func (s *Store) CloseShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error) {
	if shift.Status != domain.ShiftStatusClosed || shift.EndTime == nil {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cash_shifts
		SET status = 'closed', closed_by = $3, end_time = $4,
			final_cash_expected_cents = $5, final_cash_actual_cents = $6, difference_cents = $7
		WHERE id = $1 AND business_id = $2 AND status = 'open'
	`, shift.ID, shift.BusinessID, shift.ClosedBy, nullTime(shift.EndTime),
		shift.FinalCashExpectedCents, shift.FinalCashActualCents, shift.DifferenceCents)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	closed := shift
	closed.Movements = append([]domain.CashMovement{}, shift.Movements...)
	return &closed, nil
}

func (s *Store) ListClosedShifts(ctx context.Context, businessID string, limit int) ([]domain.CashShift, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shiftColumns+`
		FROM cash_shifts
		WHERE business_id = $1 AND status = 'closed'
		ORDER BY start_time DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}

	shifts := make([]domain.CashShift, 0, limit)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		shifts = append(shifts, *shift)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range shifts {
		if err := s.loadMovements(ctx, s.db, &shifts[i]); err != nil {
			return nil, err
		}
	}
	return shifts, nil
}

func (s *Store) SalesByPaymentMethod(ctx context.Context, businessID string, since time.Time) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COALESCE(SUM(total_cents), 0)
		FROM orders
		WHERE business_id = $1 AND created_at >= $2 AND status <> 'cancelled'
		GROUP BY payment_method
	`, businessID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var method string
		var total int64
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		result[method] = total
	}
	return result, rows.Err()
}

const orderColumns = `id, business_id, items, subtotal_cents, discount_cents, discount_reason, tax_rate_percent,
	tax_cents, total_cents, payment_method, payment_reference, status, source, created_by,
	customer_id, customer_name, customer_phone, COALESCE(idempotency_key, ''), created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var items []byte
	err := row.Scan(&order.ID, &order.BusinessID, &items, &order.SubtotalCents, &order.DiscountCents, &order.DiscountReason,
		&order.TaxRatePercent, &order.TaxCents, &order.TotalCents, &order.PaymentMethod, &order.PaymentReference,
		&order.Status, &order.Source, &order.CreatedBy, &order.CustomerID, &order.CustomerName, &order.CustomerPhone,
		&order.IdempotencyKey, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("decode items for order %s: %w", order.ID, err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return &order, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.SaleRecord) (*domain.Order, bool, error) {
	order := sale.Order
	if order.BusinessID == "" || len(order.Items) == 0 {
		return nil, false, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if order.IdempotencyKey != "" {
		existing, err := scanOrder(pgTx.QueryRowContext(ctx, `
			SELECT `+orderColumns+`
			FROM orders
			WHERE business_id = $1 AND idempotency_key = $2
		`, order.BusinessID, order.IdempotencyKey))
		if err == nil {
			return existing, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, err
		}
	}

	if sale.Loyalty != nil {
		res, err := pgTx.ExecContext(ctx, `
			UPDATE customers
			SET points = points + $3, visits = visits + 1, last_visit = $4
			WHERE business_id = $1 AND id = $2
		`, order.BusinessID, sale.Loyalty.CustomerID, sale.Loyalty.Points, sale.Loyalty.At)
		if err != nil {
			return nil, false, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, false, err
		}
		if affected == 0 {
			return nil, false, store.ErrNotFound
		}
	}

	now := time.Now().UTC()
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, false, err
	}
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO orders (
			id, business_id, items, subtotal_cents, discount_cents, discount_reason, tax_rate_percent,
			tax_cents, total_cents, payment_method, payment_reference, status, source, created_by,
			customer_id, customer_name, customer_phone, idempotency_key, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`, order.ID, order.BusinessID, items, order.SubtotalCents, order.DiscountCents, order.DiscountReason, order.TaxRatePercent,
		order.TaxCents, order.TotalCents, order.PaymentMethod, order.PaymentReference, order.Status, order.Source, order.CreatedBy,
		order.CustomerID, order.CustomerName, order.CustomerPhone, nullIfEmpty(order.IdempotencyKey), order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) && order.IdempotencyKey != "" {
			_ = pgTx.Rollback()
			existing, findErr := s.FindOrderByIdempotency(ctx, order.BusinessID, order.IdempotencyKey)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, true, nil
		}
		return nil, false, err
	}

	counts := quantitiesByProduct(order.Items)
	productIDs := make([]string, 0, len(counts))
	for productID := range counts {
		productIDs = append(productIDs, productID)
	}
	sort.Strings(productIDs)
	for _, productID := range productIDs {
		qty := counts[productID]
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET sales_count = sales_count + $3
			WHERE business_id = $1 AND id = $2
		`, order.BusinessID, productID, qty); err != nil {
			return nil, false, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, false, err
	}
	created := order
	return &created, false, nil
}

func (s *Store) FindOrderByIdempotency(ctx context.Context, businessID string, key string) (*domain.Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key))
}

func (s *Store) GetOrder(ctx context.Context, businessID string, id string) (*domain.Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE business_id = $1 AND id = $2
	`, businessID, id))
}

func (s *Store) ListOrders(ctx context.Context, businessID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE business_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, businessID string, id string, status string, at time.Time) (*domain.Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE business_id = $1 AND id = $2
		RETURNING `+orderColumns, businessID, id, status, at))
}

func (s *Store) GetLoyaltyProgram(ctx context.Context, businessID string) (*domain.LoyaltyProgram, error) {
	var program domain.LoyaltyProgram
	err := s.db.QueryRowContext(ctx, `
		SELECT business_id, type, goal, reward, active, updated_at
		FROM loyalty_programs
		WHERE business_id = $1
	`, businessID).Scan(&program.BusinessID, &program.Type, &program.Goal, &program.Reward, &program.Active, &program.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	program.UpdatedAt = program.UpdatedAt.UTC()
	return &program, nil
}

func (s *Store) UpsertLoyaltyProgram(ctx context.Context, program domain.LoyaltyProgram) (*domain.LoyaltyProgram, error) {
	if program.BusinessID == "" || program.Goal < 1 {
		return nil, store.ErrInvalidInput
	}
	if program.Type != domain.LoyaltyPoints && program.Type != domain.LoyaltyStamps {
		return nil, store.ErrInvalidInput
	}
	if program.UpdatedAt.IsZero() {
		program.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loyalty_programs (business_id, type, goal, reward, active, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (business_id)
		DO UPDATE SET type = EXCLUDED.type, goal = EXCLUDED.goal, reward = EXCLUDED.reward,
			active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
	`, program.BusinessID, program.Type, program.Goal, program.Reward, program.Active, program.UpdatedAt)
	if err != nil {
		return nil, err
	}
	saved := program
	return &saved, nil
}

const customerColumns = `id, business_id, name, phone, pin_hash, points, visits, last_visit, created_at`

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	var lastVisit sql.NullTime
	if err := row.Scan(&c.ID, &c.BusinessID, &c.Name, &c.Phone, &c.PINHash, &c.Points, &c.Visits, &lastVisit, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if lastVisit.Valid {
		at := lastVisit.Time.UTC()
		c.LastVisit = &at
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Phone = strings.TrimSpace(customer.Phone)
	if customer.BusinessID == "" || customer.Phone == "" || strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, business_id, name, phone, pin_hash, points, visits, last_visit, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, customer.ID, customer.BusinessID, customer.Name, customer.Phone, customer.PINHash,
		customer.Points, customer.Visits, nullTime(customer.LastVisit), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(ctx context.Context, businessID string, id string) (*domain.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE business_id = $1 AND id = $2
	`, businessID, id))
}

func (s *Store) GetCustomerByPhone(ctx context.Context, businessID string, phone string) (*domain.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE business_id = $1 AND phone = $2
	`, businessID, strings.TrimSpace(phone)))
}

// SearchCustomers matches name or phone case-insensitively, most recent visit first.
func (s *Store) SearchCustomers(ctx context.Context, businessID string, query string, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 10
	}
	query = strings.TrimSpace(query)
	pattern := "%" + escapeLike(query) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE business_id = $1 AND ($2 = '' OR name ILIKE $3 OR phone ILIKE $3)
		ORDER BY last_visit DESC NULLS LAST, name ASC
		LIMIT $4
	`, businessID, query, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *Store) AddCustomerPoints(ctx context.Context, businessID string, customerID string, points int64, at time.Time) (*domain.Customer, error) {
	if points < 0 {
		return nil, store.ErrInvalidInput
	}
	return scanCustomer(s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET points = points + $3, visits = visits + 1, last_visit = $4
		WHERE business_id = $1 AND id = $2
		RETURNING `+customerColumns, businessID, customerID, points, at))
}

func (s *Store) RedeemCustomerPoints(ctx context.Context, businessID string, customerID string, cost int64) (*domain.Customer, error) {
	if cost < 1 {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	customer, err := scanCustomer(pgTx.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE business_id = $1 AND id = $2 FOR UPDATE
	`, businessID, customerID))
	if err != nil {
		return nil, err
	}
	if customer.Points < cost {
		return nil, store.ErrInsufficientPoints
	}
	if _, err := pgTx.ExecContext(ctx, `
		UPDATE customers SET points = points - $3 WHERE business_id = $1 AND id = $2
	`, businessID, customerID, cost); err != nil {
		return nil, err
	}
	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	customer.Points -= cost
	return customer, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, business_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.BusinessID, entry.ActorUsername, entry.ActorRole, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, businessID string, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE $1 = '' OR business_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.BusinessID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func quantitiesByProduct(items []domain.OrderItem) map[string]int {
	result := make(map[string]int, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		result[item.ProductID] += item.Quantity
	}
	return result
}

func uniqueStrings(values []string) []string {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func escapeLike(val string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(val)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
