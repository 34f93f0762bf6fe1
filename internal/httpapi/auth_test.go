package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"restopos/internal/domain"
	"restopos/internal/store"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	if _, exists := s.users[user.Username]; exists {
		return store.ErrConflict
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context, businessID string) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		if businessID != "" && user.BusinessID != businessID {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func newStubWithAdmin(password string) *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:   "admin",
				Password:   password,
				Role:       domain.RoleAdmin,
				BusinessID: "biz-a",
				Active:     true,
				CreatedAt:  time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	users := newStubWithAdmin("admin123")

	manager := NewAuthManager("test-secret", time.Hour, users)
	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	stored, err := users.ListUsers(context.Background(), "")
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 user, got %d", len(stored))
	}
	if stored[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(stored[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", stored[0].Password)
	}
	if users.updates != 1 {
		t.Fatalf("expected a single password upgrade, got %d", users.updates)
	}
}

func TestLoginTokenCarriesBusiness(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newStubWithAdmin("admin123"))

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "ADMIN ", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.BusinessID != "biz-a" || resp.Role != domain.RoleAdmin {
		t.Fatalf("unexpected login response %+v", resp)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.BusinessID != "biz-a" {
		t.Fatalf("unexpected actor %+v", actor)
	}

	other := NewAuthManager("another-secret", time.Hour, nil)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	users := newStubWithAdmin("admin123")
	admin := users.users["admin"]
	admin.Active = false
	users.users["admin"] = admin

	manager := NewAuthManager("test-secret", time.Hour, users)
	if _, err := manager.Login(context.Background(), domain.LoginRequest{Username: "admin", Password: "admin123"}); err == nil {
		t.Fatalf("expected inactive account to be refused")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, nil)
	token, err := manager.sign("admin", domain.RoleAdmin, "biz-a", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestTokenWithoutBusinessRejected(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, nil)
	token, err := manager.sign("admin", domain.RoleAdmin, "", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected token without business to be rejected")
	}
}

func TestCreateCashierStoresPasswordHash(t *testing.T) {
	users := newStubWithAdmin("admin123")

	manager := NewAuthManager("test-secret", time.Hour, users)
	cashier, err := manager.CreateCashier(context.Background(), "biz-a", domain.CashierCreateRequest{
		Username: "Mostrador",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}
	if cashier.Username != "mostrador" || cashier.DisplayName != "mostrador" {
		t.Fatalf("unexpected cashier %+v", cashier)
	}

	found, ok := users.users["mostrador"]
	if !ok {
		t.Fatalf("expected cashier to be saved")
	}
	if found.BusinessID != "biz-a" || found.Role != domain.RoleCashier {
		t.Fatalf("expected cashier scoped to biz-a, got %+v", found)
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "mostrador",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with hashed cashier failed: %v", err)
	}
	if resp.BusinessID != "biz-a" {
		t.Fatalf("expected cashier token for biz-a, got %s", resp.BusinessID)
	}
}

func TestCreateCashierValidation(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newStubWithAdmin("admin123"))
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CashierCreateRequest
		want error
	}{
		{"short username", domain.CashierCreateRequest{Username: "abc", Password: "pass1234"}, store.ErrInvalidInput},
		{"space in username", domain.CashierCreateRequest{Username: "front desk", Password: "pass1234"}, store.ErrInvalidInput},
		{"short password", domain.CashierCreateRequest{Username: "frontdesk", Password: "12345"}, store.ErrInvalidInput},
		{"taken username", domain.CashierCreateRequest{Username: "admin", Password: "pass1234"}, store.ErrConflict},
	}
	for _, tc := range cases {
		if _, err := manager.CreateCashier(ctx, "biz-a", tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestListCashiersScopedToBusiness(t *testing.T) {
	users := newStubWithAdmin("admin123")
	manager := NewAuthManager("test-secret", time.Hour, users)
	ctx := context.Background()

	if _, err := manager.CreateCashier(ctx, "biz-a", domain.CashierCreateRequest{Username: "alpha", Password: "pass1234"}); err != nil {
		t.Fatalf("create alpha: %v", err)
	}
	if _, err := manager.CreateCashier(ctx, "biz-b", domain.CashierCreateRequest{Username: "bravo", Password: "pass1234"}); err != nil {
		t.Fatalf("create bravo: %v", err)
	}

	cashiers := manager.ListCashiers(ctx, "biz-a")
	if len(cashiers) != 1 || cashiers[0].Username != "alpha" {
		t.Fatalf("expected only alpha for biz-a, got %+v", cashiers)
	}
}
