package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jinzhu/copier"

	"restopos/internal/cache"
	"restopos/internal/domain"
	"restopos/internal/events"
	"restopos/internal/store"
	"restopos/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	SettingsCache         cache.SettingsCache
	SettingsTTL           time.Duration
	Sessions              cache.SessionStore
	Events                events.Publisher
	DefaultTaxRatePercent float64
	PublicBaseURL         string
}

type Service struct {
	repo          store.Repository
	settings      cache.SettingsCache
	settingsTTL   time.Duration
	sessions      cache.SessionStore
	events        events.Publisher
	defaultTax    float64
	publicBaseURL string
	now           func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.SettingsCache == nil {
		opts.SettingsCache = cache.NoopSettingsCache{}
	}
	if opts.SettingsTTL <= 0 {
		opts.SettingsTTL = 5 * time.Minute
	}
	if opts.Sessions == nil {
		opts.Sessions = cache.NewMemorySessionStore()
	}
	if opts.Events == nil {
		opts.Events = events.NoopPublisher{}
	}
	if opts.DefaultTaxRatePercent < 0 || opts.DefaultTaxRatePercent > 100 {
		opts.DefaultTaxRatePercent = domain.DefaultTaxRatePercent
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "http://localhost:3000"
	}

	return &Service{
		repo:          repo,
		settings:      opts.SettingsCache,
		settingsTTL:   opts.SettingsTTL,
		sessions:      opts.Sessions,
		events:        opts.Events,
		defaultTax:    opts.DefaultTaxRatePercent,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// actor returns the authenticated caller. Every tenant-scoped operation
// reads its business id from here, never from the request body.
func actor(ctx context.Context) (domain.Actor, error) {
	a, ok := ActorFromContext(ctx)
	if !ok || a.Username == "" || a.BusinessID == "" {
		return domain.Actor{}, store.ErrUnauthorized
	}
	return a, nil
}

func adminActor(ctx context.Context) (domain.Actor, error) {
	a, err := actor(ctx)
	if err != nil {
		return a, err
	}
	if a.Role != domain.RoleAdmin {
		return a, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}
	return a, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	a, err := adminActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, a.BusinessID, limit)
}

func (s *Service) logAudit(ctx context.Context, businessID string, action string, entityType string, entityID string, detail string) {
	a, ok := ActorFromContext(ctx)
	if !ok {
		a = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		BusinessID:    businessID,
		ActorUsername: a.Username,
		ActorRole:     a.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// publishOrder is best effort; a sale is never failed because the broker is down.
func (s *Service) publishOrder(ctx context.Context, eventType string, order domain.Order) {
	if err := s.events.PublishOrder(ctx, events.FromOrder(eventType, order, s.now())); err != nil {
		log.Printf("[service] WARN: failed to publish %s order=%s: %v", eventType, order.ID, err)
	}
}

func toCashierUser(user domain.UserAccount) domain.CashierUser {
	var out domain.CashierUser
	if err := copier.Copy(&out, &user); err != nil {
		out = domain.CashierUser{
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Role:        user.Role,
			Active:      user.Active,
			CreatedAt:   user.CreatedAt,
		}
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
