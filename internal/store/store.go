package store

import (
	"context"
	"errors"
	"time"

	"restopos/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInsufficientPoints = errors.New("insufficient points")
)

// Repository is scoped by business id on every tenant-owned call. Usernames
// are global so login does not need a business hint.
type Repository interface {
	CreateBusiness(ctx context.Context, business domain.Business, admin domain.UserAccount) (*domain.Business, error)
	GetBusiness(ctx context.Context, id string) (*domain.Business, error)
	GetBusinessBySlug(ctx context.Context, slug string) (*domain.Business, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateBusinessSettings(ctx context.Context, businessID string, settings domain.BusinessSettings) (*domain.Business, error)

	ListProducts(ctx context.Context, businessID string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, businessID string, ids []string) (map[string]domain.Product, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context, businessID string) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error

	CreateShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error)
	GetOpenShift(ctx context.Context, businessID string) (*domain.CashShift, error)
	AddShiftMovement(ctx context.Context, businessID string, movement domain.CashMovement) (*domain.CashShift, error)
	CloseShift(ctx context.Context, shift domain.CashShift) (*domain.CashShift, error)
	ListClosedShifts(ctx context.Context, businessID string, limit int) ([]domain.CashShift, error)
	SalesByPaymentMethod(ctx context.Context, businessID string, since time.Time) (map[string]int64, error)

	// CreateSale stores the order, bumps product sales counters and applies the
	// loyalty award atomically. A repeated idempotency key returns the stored
	// order with duplicate set and changes nothing.
	CreateSale(ctx context.Context, sale domain.SaleRecord) (*domain.Order, bool, error)
	FindOrderByIdempotency(ctx context.Context, businessID string, key string) (*domain.Order, error)
	GetOrder(ctx context.Context, businessID string, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, businessID string, limit int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, businessID string, id string, status string, at time.Time) (*domain.Order, error)

	GetLoyaltyProgram(ctx context.Context, businessID string) (*domain.LoyaltyProgram, error)
	UpsertLoyaltyProgram(ctx context.Context, program domain.LoyaltyProgram) (*domain.LoyaltyProgram, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, businessID string, id string) (*domain.Customer, error)
	GetCustomerByPhone(ctx context.Context, businessID string, phone string) (*domain.Customer, error)
	SearchCustomers(ctx context.Context, businessID string, query string, limit int) ([]domain.Customer, error)
	AddCustomerPoints(ctx context.Context, businessID string, customerID string, points int64, at time.Time) (*domain.Customer, error)
	RedeemCustomerPoints(ctx context.Context, businessID string, customerID string, cost int64) (*domain.Customer, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, businessID string, limit int) ([]domain.AuditLog, error)
}
