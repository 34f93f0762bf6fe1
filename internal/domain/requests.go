package domain

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	BusinessID  string `json:"business_id"`
	ExpiresAt   string `json:"expires_at"`
}

type BusinessRegisterRequest struct {
	BusinessName  string `json:"business_name" validate:"required,min=2,max=120"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	AdminUsername string `json:"admin_username" validate:"required,min=4,max=64,excludesall= "`
	AdminPassword string `json:"admin_password" validate:"required,min=6,max=128"`
	DisplayName   string `json:"display_name" validate:"omitempty,max=80"`
}

type BusinessRegisterResponse struct {
	Business Business    `json:"business"`
	Admin    CashierUser `json:"admin"`
}

type SettingsUpdateRequest struct {
	TaxRatePercent *float64 `json:"tax_rate_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	Currency       *string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

type ProductCreateRequest struct {
	Name        string       `json:"name" validate:"required,max=120"`
	Category    string       `json:"category" validate:"omitempty,max=60"`
	PriceCents  int64        `json:"price_cents" validate:"gte=1"`
	AddonGroups []AddonGroup `json:"addon_groups" validate:"omitempty,max=10"`
}

type CashierCreateRequest struct {
	Username    string `json:"username" validate:"required,min=4,max=64"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
	DisplayName string `json:"display_name" validate:"omitempty,max=80"`
}

type AddonSelection struct {
	GroupName string `json:"group_name" validate:"required,max=60"`
	Name      string `json:"name" validate:"required,max=60"`
}

type SaleLineRequest struct {
	ProductID string           `json:"product_id" validate:"required,max=80"`
	Quantity  int              `json:"quantity" validate:"gte=1,lte=999"`
	Addons    []AddonSelection `json:"addons" validate:"omitempty,max=20,dive"`
	Note      string           `json:"note" validate:"omitempty,max=200"`
}

type DiscountRequest struct {
	Kind        DiscountKind `json:"kind" validate:"omitempty,oneof=fixed percentage"`
	AmountCents int64        `json:"amount_cents" validate:"gte=0"`
	Percent     float64      `json:"percent" validate:"gte=0,lte=100"`
	Reason      string       `json:"reason" validate:"omitempty,max=200"`
}

type FinalizeSaleRequest struct {
	IdempotencyKey   string            `json:"idempotency_key" validate:"omitempty,max=128"`
	Cart             []SaleLineRequest `json:"cart" validate:"required,min=1,max=200,dive"`
	CustomerID       string            `json:"customer_id" validate:"omitempty,max=80"`
	Discount         DiscountRequest   `json:"discount"`
	PaymentMethod    string            `json:"payment_method" validate:"required"`
	PaymentReference string            `json:"payment_reference" validate:"omitempty,max=120"`
	Totals           *Totals           `json:"totals,omitempty"`
}

type SaleResponse struct {
	Order         Order `json:"order"`
	Duplicate     bool  `json:"duplicate"`
	PointsAwarded int64 `json:"points_awarded"`
}

type ShiftOpenRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"gte=0"`
}

type MovementRequest struct {
	Type        string `json:"type" validate:"required,oneof=in out"`
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Reason      string `json:"reason" validate:"required,max=200"`
}

type ShiftCloseRequest struct {
	FinalCashActualCents int64 `json:"final_cash_actual_cents" validate:"gte=0"`
}

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type LoyaltyProgramUpdateRequest struct {
	Type   string `json:"type" validate:"required,oneof=points stamps"`
	Goal   int64  `json:"goal" validate:"gte=1"`
	Reward string `json:"reward" validate:"omitempty,max=200"`
	Active bool   `json:"active"`
}

type LoyaltyPointsRequest struct {
	Phone  string `json:"phone" validate:"required,max=32"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

type LoyaltyPointsResponse struct {
	NewBalance  int64  `json:"new_balance"`
	GoalReached bool   `json:"goal_reached"`
	Reward      string `json:"reward"`
}

type RedeemRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

type RedeemResponse struct {
	NewBalance int64 `json:"new_balance"`
}

type PublicLoyaltyStatusRequest struct {
	Slug  string `json:"slug" validate:"required,max=140"`
	Phone string `json:"phone" validate:"required,max=32"`
	PIN   string `json:"pin" validate:"omitempty,max=8"`
}

type PublicLoyaltyStatusResponse struct {
	Registered   bool            `json:"registered"`
	Active       bool            `json:"active"`
	AuthRequired bool            `json:"auth_required,omitempty"`
	AuthSuccess  bool            `json:"auth_success,omitempty"`
	Customer     *Customer       `json:"customer,omitempty"`
	Program      *LoyaltyProgram `json:"program"`
}

type PublicCustomerRegisterRequest struct {
	Slug  string `json:"slug" validate:"required,max=140"`
	Name  string `json:"name" validate:"required,max=80"`
	Phone string `json:"phone" validate:"required,max=32"`
	PIN   string `json:"pin" validate:"required"`
}

type PublicOrderRequest struct {
	Slug          string            `json:"slug" validate:"required,max=140"`
	CustomerName  string            `json:"customer_name" validate:"required,max=80"`
	CustomerPhone string            `json:"customer_phone" validate:"omitempty,max=32"`
	Items         []SaleLineRequest `json:"items" validate:"required,min=1,max=100,dive"`
	PaymentMethod string            `json:"payment_method" validate:"omitempty"`
}

type AddLineRequest struct {
	ProductID string           `json:"product_id" validate:"required,max=80"`
	Addons    []AddonSelection `json:"addons" validate:"omitempty,max=20,dive"`
	Note      string           `json:"note" validate:"omitempty,max=200"`
}

type QuantityChangeRequest struct {
	Delta int `json:"delta" validate:"required,gte=-999,lte=999"`
}

type AssignCustomerRequest struct {
	CustomerID string `json:"customer_id" validate:"required,max=80"`
}

// MoveItemRequest locations are check indexes; -1 is the unassigned remainder.
type MoveItemRequest struct {
	From     int    `json:"from" validate:"gte=-1"`
	To       int    `json:"to" validate:"gte=-1"`
	LineID   string `json:"line_id" validate:"required,max=80"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

type CheckoutRequest struct {
	IdempotencyKey   string `json:"idempotency_key" validate:"omitempty,max=128"`
	PaymentMethod    string `json:"payment_method" validate:"required"`
	PaymentReference string `json:"payment_reference" validate:"omitempty,max=120"`
}
