package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	DefaultTaxRatePercent = 16.0
	DefaultCurrency       = "MXN"
)

type Actor struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	BusinessID string `json:"business_id"`
}

type Business struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	Phone     string           `json:"phone,omitempty"`
	Settings  BusinessSettings `json:"settings"`
	CreatedAt time.Time        `json:"created_at"`
}

type BusinessSettings struct {
	TaxRatePercent float64 `json:"tax_rate_percent"`
	Currency       string  `json:"currency"`
}

type UserAccount struct {
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	Role        string    `json:"role"`
	BusinessID  string    `json:"business_id"`
	DisplayName string    `json:"display_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type CashierUser struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type AddonOption struct {
	Name            string `json:"name"`
	PriceExtraCents int64  `json:"price_extra_cents"`
}

type AddonGroup struct {
	Name    string        `json:"name"`
	Options []AddonOption `json:"options"`
}

type Product struct {
	ID          string       `json:"id"`
	BusinessID  string       `json:"business_id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	PriceCents  int64        `json:"price_cents"`
	AddonGroups []AddonGroup `json:"addon_groups"`
	SalesCount  int64        `json:"sales_count"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
}

// SelectedAddon is an add-on option picked for one cart line. Two selections
// are the same option only when both the group and the option name match.
type SelectedAddon struct {
	GroupName       string `json:"group_name"`
	Name            string `json:"name"`
	PriceExtraCents int64  `json:"price_extra_cents"`
}

type CartLine struct {
	LineID         string          `json:"line_id"`
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	Quantity       int             `json:"quantity"`
	Addons         []SelectedAddon `json:"addons"`
	Note           string          `json:"note,omitempty"`
}

type DiscountKind string

const (
	DiscountFixed      DiscountKind = "fixed"
	DiscountPercentage DiscountKind = "percentage"
)

// Discount applies to a tab subtotal. Fixed discounts use AmountCents,
// percentage discounts use Percent (0..100).
type Discount struct {
	Kind        DiscountKind `json:"kind"`
	AmountCents int64        `json:"amount_cents"`
	Percent     float64      `json:"percent"`
	Reason      string       `json:"reason,omitempty"`
}

type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Tab struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Lines    []CartLine   `json:"lines"`
	Customer *CustomerRef `json:"customer,omitempty"`
	Discount Discount     `json:"discount"`
}

type Check struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Items []CartLine `json:"items"`
}

// SplitSession holds the partition of one tab while its bill is being split.
// ActiveCheck is -1 unless a check payment is pending.
type SplitSession struct {
	TabID       int        `json:"tab_id"`
	Remaining   []CartLine `json:"remaining"`
	Checks      []Check    `json:"checks"`
	ActiveCheck int        `json:"active_check"`
	InProgress  bool       `json:"in_progress"`
	CheckSeq    int        `json:"check_seq"`
}

// PendingPayment is the staged amount handed to checkout. CheckID is zero when
// the whole tab is being paid.
// PendingPayment Key is sent as the sale idempotency key when the client has
// none, so a retried charge of the same staged bill records one order.
type PendingPayment struct {
	Key      string       `json:"key"`
	TabID    int          `json:"tab_id"`
	CheckID  int          `json:"check_id,omitempty"`
	Lines    []CartLine   `json:"lines"`
	Discount Discount     `json:"discount"`
	Customer *CustomerRef `json:"customer,omitempty"`
}

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	MovementIn  = "in"
	MovementOut = "out"
)

type CashMovement struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
	PerformedBy string    `json:"performed_by"`
	Date        time.Time `json:"date"`
}

type CashShift struct {
	ID                     string         `json:"id"`
	BusinessID             string         `json:"business_id"`
	OpenedBy               string         `json:"opened_by"`
	ClosedBy               string         `json:"closed_by,omitempty"`
	StartTime              time.Time      `json:"start_time"`
	EndTime                *time.Time     `json:"end_time,omitempty"`
	Status                 string         `json:"status"`
	InitialCashCents       int64          `json:"initial_cash_cents"`
	Movements              []CashMovement `json:"movements"`
	FinalCashExpectedCents int64          `json:"final_cash_expected_cents"`
	FinalCashActualCents   int64          `json:"final_cash_actual_cents"`
	DifferenceCents        int64          `json:"difference_cents"`
}

type SalesSummary struct {
	CashCents       int64 `json:"cash_cents"`
	CreditCardCents int64 `json:"credit_card_cents"`
	DebitCardCents  int64 `json:"debit_card_cents"`
	TransferCents   int64 `json:"transfer_cents"`
	TotalCents      int64 `json:"total_cents"`
}

type ManualStats struct {
	InsCents  int64 `json:"ins_cents"`
	OutsCents int64 `json:"outs_cents"`
}

type ShiftStatus struct {
	Status                   string        `json:"status"`
	Shift                    *CashShift    `json:"shift,omitempty"`
	SalesSummary             *SalesSummary `json:"sales_summary,omitempty"`
	ManualStats              *ManualStats  `json:"manual_stats,omitempty"`
	CurrentCashInDrawerCents int64         `json:"current_cash_in_drawer_cents"`
}

type ShiftHistoryEntry struct {
	CashShift
	OpenedByName string `json:"opened_by_name"`
	ClosedByName string `json:"closed_by_name"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderSourcePOS      = "pos"
	OrderSourceWhatsApp = "whatsapp"
)

const (
	PaymentCash       = "cash"
	PaymentCard       = "card"
	PaymentCreditCard = "credit_card"
	PaymentDebitCard  = "debit_card"
	PaymentTransfer   = "transfer"
	PaymentOnline     = "online"
)

type OrderItem struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	Quantity       int             `json:"quantity"`
	Addons         []SelectedAddon `json:"addons"`
	Note           string          `json:"note,omitempty"`
	LineTotalCents int64           `json:"line_total_cents"`
}

type Order struct {
	ID               string      `json:"id"`
	BusinessID       string      `json:"business_id"`
	Items            []OrderItem `json:"items"`
	SubtotalCents    int64       `json:"subtotal_cents"`
	DiscountCents    int64       `json:"discount_cents"`
	DiscountReason   string      `json:"discount_reason,omitempty"`
	TaxRatePercent   float64     `json:"tax_rate_percent"`
	TaxCents         int64       `json:"tax_cents"`
	TotalCents       int64       `json:"total_cents"`
	PaymentMethod    string      `json:"payment_method"`
	PaymentReference string      `json:"payment_reference,omitempty"`
	Status           string      `json:"status"`
	Source           string      `json:"source"`
	CreatedBy        string      `json:"created_by,omitempty"`
	CustomerID       string      `json:"customer_id,omitempty"`
	CustomerName     string      `json:"customer_name,omitempty"`
	CustomerPhone    string      `json:"customer_phone,omitempty"`
	IdempotencyKey   string      `json:"idempotency_key"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

const (
	LoyaltyPoints = "points"
	LoyaltyStamps = "stamps"
)

type LoyaltyProgram struct {
	BusinessID string    `json:"business_id"`
	Type       string    `json:"type"`
	Goal       int64     `json:"goal"`
	Reward     string    `json:"reward"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Customer struct {
	ID         string     `json:"id"`
	BusinessID string     `json:"business_id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	PINHash    string     `json:"-"`
	Points     int64      `json:"points"`
	Visits     int64      `json:"visits"`
	LastVisit  *time.Time `json:"last_visit,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LoyaltyAward is credited to a customer in the same unit of work as the sale.
type LoyaltyAward struct {
	CustomerID string    `json:"customer_id"`
	Points     int64     `json:"points"`
	At         time.Time `json:"at"`
}

type SaleRecord struct {
	Order   Order
	Loyalty *LoyaltyAward
}

type AuditLog struct {
	ID            string    `json:"id"`
	BusinessID    string    `json:"business_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
