package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"restopos/internal/domain"
	"restopos/internal/store"
)

const (
	defaultLoyaltyGoal   = 100
	defaultLoyaltyReward = "Surprise discount"
	customerSearchLimit  = 10
)

func defaultProgram(businessID string) domain.LoyaltyProgram {
	return domain.LoyaltyProgram{
		BusinessID: businessID,
		Type:       domain.LoyaltyPoints,
		Goal:       defaultLoyaltyGoal,
		Reward:     defaultLoyaltyReward,
	}
}

// programFor returns the stored program, creating the inactive default the
// first time a business looks at loyalty.
func (s *Service) programFor(ctx context.Context, businessID string) (domain.LoyaltyProgram, error) {
	program, err := s.repo.GetLoyaltyProgram(ctx, businessID)
	if err == nil {
		return *program, nil
	}
	if !isNotFound(err) {
		return domain.LoyaltyProgram{}, err
	}
	def := defaultProgram(businessID)
	def.UpdatedAt = s.now()
	created, err := s.repo.UpsertLoyaltyProgram(ctx, def)
	if err != nil {
		return domain.LoyaltyProgram{}, err
	}
	return *created, nil
}

func (s *Service) GetLoyaltyProgram(ctx context.Context) (domain.LoyaltyProgram, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.LoyaltyProgram{}, err
	}
	return s.programFor(ctx, a.BusinessID)
}

func (s *Service) UpdateLoyaltyProgram(ctx context.Context, req domain.LoyaltyProgramUpdateRequest) (domain.LoyaltyProgram, error) {
	a, err := adminActor(ctx)
	if err != nil {
		return domain.LoyaltyProgram{}, err
	}
	if req.Type != domain.LoyaltyPoints && req.Type != domain.LoyaltyStamps {
		return domain.LoyaltyProgram{}, fmt.Errorf("%w: loyalty type must be points or stamps", store.ErrInvalidInput)
	}
	if req.Goal < 1 {
		return domain.LoyaltyProgram{}, fmt.Errorf("%w: loyalty goal must be positive", store.ErrInvalidInput)
	}

	saved, err := s.repo.UpsertLoyaltyProgram(ctx, domain.LoyaltyProgram{
		BusinessID: a.BusinessID,
		Type:       req.Type,
		Goal:       req.Goal,
		Reward:     defaultString(strings.TrimSpace(req.Reward), defaultLoyaltyReward),
		Active:     req.Active,
		UpdatedAt:  s.now(),
	})
	if err != nil {
		return domain.LoyaltyProgram{}, err
	}

	s.logAudit(ctx, a.BusinessID, "loyalty_program_update", "loyalty_program", a.BusinessID,
		fmt.Sprintf("type=%s,goal=%d,active=%t", saved.Type, saved.Goal, saved.Active))
	return *saved, nil
}

// SearchCustomers matches name or phone; an empty query lists the most
// recent visitors.
func (s *Service) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.SearchCustomers(ctx, a.BusinessID, strings.TrimSpace(query), customerSearchLimit)
}

// AddLoyaltyPoints credits a manual visit. Points programs add the amount,
// stamp programs add one stamp.
func (s *Service) AddLoyaltyPoints(ctx context.Context, req domain.LoyaltyPointsRequest) (domain.LoyaltyPointsResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.LoyaltyPointsResponse{}, err
	}
	if req.Amount < 0 {
		return domain.LoyaltyPointsResponse{}, fmt.Errorf("%w: amount must not be negative", store.ErrInvalidInput)
	}
	customer, err := s.repo.GetCustomerByPhone(ctx, a.BusinessID, strings.TrimSpace(req.Phone))
	if err != nil {
		return domain.LoyaltyPointsResponse{}, err
	}
	program, err := s.programFor(ctx, a.BusinessID)
	if err != nil {
		return domain.LoyaltyPointsResponse{}, err
	}

	points := int64(1)
	if program.Type == domain.LoyaltyPoints {
		points = req.Amount
	}
	updated, err := s.repo.AddCustomerPoints(ctx, a.BusinessID, customer.ID, points, s.now())
	if err != nil {
		return domain.LoyaltyPointsResponse{}, err
	}

	s.logAudit(ctx, a.BusinessID, "loyalty_points_add", "customer", updated.ID, fmt.Sprintf("points=%d", points))
	return domain.LoyaltyPointsResponse{
		NewBalance:  updated.Points,
		GoalReached: updated.Points >= program.Goal,
		Reward:      program.Reward,
	}, nil
}

// RedeemReward spends one goal's worth of points.
func (s *Service) RedeemReward(ctx context.Context, req domain.RedeemRequest) (domain.RedeemResponse, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.RedeemResponse{}, err
	}
	customer, err := s.repo.GetCustomerByPhone(ctx, a.BusinessID, strings.TrimSpace(req.Phone))
	if err != nil {
		return domain.RedeemResponse{}, err
	}
	program, err := s.programFor(ctx, a.BusinessID)
	if err != nil {
		return domain.RedeemResponse{}, err
	}

	updated, err := s.repo.RedeemCustomerPoints(ctx, a.BusinessID, customer.ID, program.Goal)
	if err != nil {
		return domain.RedeemResponse{}, err
	}

	s.logAudit(ctx, a.BusinessID, "loyalty_redeem", "customer", updated.ID, fmt.Sprintf("cost=%d,reward=%s", program.Goal, program.Reward))
	return domain.RedeemResponse{NewBalance: updated.Points}, nil
}

// PublicLoyaltyStatus answers the customer web app. Without a PIN it only
// tells whether the phone is registered; with a PIN it returns the balance.
func (s *Service) PublicLoyaltyStatus(ctx context.Context, req domain.PublicLoyaltyStatusRequest) (domain.PublicLoyaltyStatusResponse, error) {
	business, err := s.repo.GetBusinessBySlug(ctx, strings.TrimSpace(req.Slug))
	if err != nil {
		return domain.PublicLoyaltyStatusResponse{}, err
	}
	program, err := s.repo.GetLoyaltyProgram(ctx, business.ID)
	if err != nil {
		if isNotFound(err) {
			return domain.PublicLoyaltyStatusResponse{}, fmt.Errorf("%w: no loyalty program", store.ErrNotFound)
		}
		return domain.PublicLoyaltyStatusResponse{}, err
	}

	customer, err := s.repo.GetCustomerByPhone(ctx, business.ID, strings.TrimSpace(req.Phone))
	if err != nil {
		if isNotFound(err) {
			return domain.PublicLoyaltyStatusResponse{Registered: false, Program: program}, nil
		}
		return domain.PublicLoyaltyStatusResponse{}, err
	}

	if req.PIN == "" {
		return domain.PublicLoyaltyStatusResponse{
			Registered:   true,
			Active:       program.Active,
			AuthRequired: true,
			Program:      program,
		}, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(customer.PINHash), []byte(req.PIN)) != nil {
		return domain.PublicLoyaltyStatusResponse{}, fmt.Errorf("%w: incorrect pin", store.ErrUnauthorized)
	}
	return domain.PublicLoyaltyStatusResponse{
		Registered:  true,
		Active:      program.Active,
		AuthSuccess: true,
		Customer:    customer,
		Program:     program,
	}, nil
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *Service) PublicRegisterCustomer(ctx context.Context, req domain.PublicCustomerRegisterRequest) (domain.Customer, error) {
	if !validPIN(req.PIN) {
		return domain.Customer{}, fmt.Errorf("%w: pin must be 4 digits", store.ErrInvalidInput)
	}
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	business, err := s.repo.GetBusinessBySlug(ctx, strings.TrimSpace(req.Slug))
	if err != nil {
		return domain.Customer{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("hash pin: %w", err)
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		BusinessID: business.ID,
		Name:       name,
		Phone:      phone,
		PINHash:    string(hash),
		CreatedAt:  s.now(),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, business.ID, "customer_register", "customer", created.ID, "source=public")
	return *created, nil
}
