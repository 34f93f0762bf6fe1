package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gosimple/slug"
	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"restopos/internal/domain"
	"restopos/internal/store"
)

const maxSlugAttempts = 50

// RegisterBusiness creates a tenant together with its owner account.
func (s *Service) RegisterBusiness(ctx context.Context, req domain.BusinessRegisterRequest) (domain.BusinessRegisterResponse, error) {
	name := strings.TrimSpace(req.BusinessName)
	username := strings.ToLower(strings.TrimSpace(req.AdminUsername))
	if name == "" || username == "" || len(req.AdminPassword) < 6 {
		return domain.BusinessRegisterResponse{}, store.ErrInvalidInput
	}

	businessSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return domain.BusinessRegisterResponse{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.BusinessRegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	admin := domain.UserAccount{
		Username:    username,
		Password:    string(hash),
		Role:        domain.RoleAdmin,
		DisplayName: defaultString(strings.TrimSpace(req.DisplayName), username),
		Active:      true,
		CreatedAt:   now,
	}
	business, err := s.repo.CreateBusiness(ctx, domain.Business{
		Name:  name,
		Slug:  businessSlug,
		Phone: strings.TrimSpace(req.Phone),
		Settings: domain.BusinessSettings{
			TaxRatePercent: s.defaultTax,
			Currency:       domain.DefaultCurrency,
		},
		CreatedAt: now,
	}, admin)
	if err != nil {
		return domain.BusinessRegisterResponse{}, err
	}
	admin.BusinessID = business.ID

	ctx = WithActor(ctx, domain.Actor{Username: admin.Username, Role: admin.Role, BusinessID: business.ID})
	s.logAudit(ctx, business.ID, "business_register", "business", business.ID, "slug="+business.Slug)

	return domain.BusinessRegisterResponse{Business: *business, Admin: toCashierUser(admin)}, nil
}

func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "restaurant"
	}
	result := base
	for i := 1; i <= maxSlugAttempts; i++ {
		exists, err := s.repo.SlugExists(ctx, result)
		if err != nil {
			return "", err
		}
		if !exists {
			return result, nil
		}
		result = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("%w: no free slug for %q", store.ErrConflict, name)
}

func (s *Service) GetBusiness(ctx context.Context) (domain.Business, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.Business{}, err
	}
	business, err := s.repo.GetBusiness(ctx, a.BusinessID)
	if err != nil {
		return domain.Business{}, err
	}
	return *business, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.BusinessSettings, error) {
	a, err := actor(ctx)
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	return s.settingsFor(ctx, a.BusinessID)
}

// settingsFor reads through the settings cache. Cache failures fall back to
// the repository.
func (s *Service) settingsFor(ctx context.Context, businessID string) (domain.BusinessSettings, error) {
	cached, ok, err := s.settings.Get(ctx, businessID)
	if err != nil {
		log.Printf("[service] WARN: settings cache get business=%s: %v", businessID, err)
	}
	if ok && cached != nil {
		return *cached, nil
	}

	business, err := s.repo.GetBusiness(ctx, businessID)
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	settings := business.Settings
	if settings.Currency == "" {
		settings.Currency = domain.DefaultCurrency
	}
	if err := s.settings.Set(ctx, businessID, settings, s.settingsTTL); err != nil {
		log.Printf("[service] WARN: settings cache set business=%s: %v", businessID, err)
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.BusinessSettings, error) {
	a, err := adminActor(ctx)
	if err != nil {
		return domain.BusinessSettings{}, err
	}

	current, err := s.settingsFor(ctx, a.BusinessID)
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	updated := current
	if req.TaxRatePercent != nil {
		if *req.TaxRatePercent < 0 || *req.TaxRatePercent > 100 {
			return domain.BusinessSettings{}, fmt.Errorf("%w: tax rate must be between 0 and 100", store.ErrInvalidInput)
		}
		updated.TaxRatePercent = *req.TaxRatePercent
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return domain.BusinessSettings{}, fmt.Errorf("%w: currency must be a 3 letter code", store.ErrInvalidInput)
		}
		updated.Currency = currency
	}

	business, err := s.repo.UpdateBusinessSettings(ctx, a.BusinessID, updated)
	if err != nil {
		return domain.BusinessSettings{}, err
	}
	if err := s.settings.Delete(ctx, a.BusinessID); err != nil {
		log.Printf("[service] WARN: settings cache invalidate business=%s: %v", a.BusinessID, err)
	}

	s.logAudit(ctx, a.BusinessID, "settings_update", "business", a.BusinessID,
		fmt.Sprintf("tax_rate=%.2f,currency=%s", business.Settings.TaxRatePercent, business.Settings.Currency))
	return business.Settings, nil
}

// MenuURL is the public ordering page printed on table QR codes.
func (s *Service) MenuURL(business domain.Business) string {
	return s.publicBaseURL + "/menu/" + business.Slug
}

// MenuQR renders the public ordering URL as a PNG.
func (s *Service) MenuQR(ctx context.Context) ([]byte, error) {
	business, err := s.GetBusiness(ctx)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(s.MenuURL(business), qrcode.Medium, 256)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	a, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, a.BusinessID)
}

// ListPublicMenu serves the customer-facing menu by business slug.
func (s *Service) ListPublicMenu(ctx context.Context, businessSlug string) (domain.Business, []domain.Product, error) {
	business, err := s.repo.GetBusinessBySlug(ctx, businessSlug)
	if err != nil {
		return domain.Business{}, nil, err
	}
	products, err := s.repo.ListProducts(ctx, business.ID)
	if err != nil {
		return domain.Business{}, nil, err
	}
	return *business, products, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	a, err := adminActor(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || req.PriceCents < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}
	groups, err := normalizeAddonGroups(req.AddonGroups)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		BusinessID:  a.BusinessID,
		Name:        name,
		Category:    strings.TrimSpace(req.Category),
		PriceCents:  req.PriceCents,
		AddonGroups: groups,
		Active:      true,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, a.BusinessID, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d", created.Name, created.PriceCents))
	return *created, nil
}

// normalizeAddonGroups trims names and rejects duplicate or negative options.
// Option names only need to be unique inside their group.
func normalizeAddonGroups(groups []domain.AddonGroup) ([]domain.AddonGroup, error) {
	out := make([]domain.AddonGroup, 0, len(groups))
	seenGroups := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		groupName := strings.TrimSpace(group.Name)
		if groupName == "" {
			return nil, fmt.Errorf("%w: add-on group name required", store.ErrInvalidInput)
		}
		if _, dup := seenGroups[groupName]; dup {
			return nil, fmt.Errorf("%w: duplicate add-on group %q", store.ErrInvalidInput, groupName)
		}
		seenGroups[groupName] = struct{}{}

		options := make([]domain.AddonOption, 0, len(group.Options))
		seenOptions := make(map[string]struct{}, len(group.Options))
		for _, option := range group.Options {
			optionName := strings.TrimSpace(option.Name)
			if optionName == "" || option.PriceExtraCents < 0 {
				return nil, fmt.Errorf("%w: invalid option in group %q", store.ErrInvalidInput, groupName)
			}
			if _, dup := seenOptions[optionName]; dup {
				return nil, fmt.Errorf("%w: duplicate option %q in group %q", store.ErrInvalidInput, optionName, groupName)
			}
			seenOptions[optionName] = struct{}{}
			options = append(options, domain.AddonOption{Name: optionName, PriceExtraCents: option.PriceExtraCents})
		}
		out = append(out, domain.AddonGroup{Name: groupName, Options: options})
	}
	return out, nil
}

// resolveAddons looks selections up in the catalog so prices always come from
// the server.
func resolveAddons(product domain.Product, selections []domain.AddonSelection) ([]domain.SelectedAddon, error) {
	if len(selections) == 0 {
		return nil, nil
	}
	out := make([]domain.SelectedAddon, 0, len(selections))
	seen := make(map[string]struct{}, len(selections))
	for _, sel := range selections {
		groupName := strings.TrimSpace(sel.GroupName)
		optionName := strings.TrimSpace(sel.Name)
		key := groupName + "\x1f" + optionName
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		option, ok := findAddonOption(product, groupName, optionName)
		if !ok {
			return nil, fmt.Errorf("%w: add-on %s/%s not offered for %s", store.ErrInvalidInput, groupName, optionName, product.Name)
		}
		out = append(out, domain.SelectedAddon{GroupName: groupName, Name: option.Name, PriceExtraCents: option.PriceExtraCents})
	}
	return out, nil
}

func findAddonOption(product domain.Product, groupName string, optionName string) (domain.AddonOption, bool) {
	for _, group := range product.AddonGroups {
		if group.Name != groupName {
			continue
		}
		for _, option := range group.Options {
			if option.Name == optionName {
				return option, true
			}
		}
	}
	return domain.AddonOption{}, false
}
