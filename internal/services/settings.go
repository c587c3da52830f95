package services

import (
	"context"
	"fmt"

	"storefront-orders/internal/domain"
	"storefront-orders/internal/repository"

	"golang.org/x/sync/singleflight"
)

// SettingsProvider resolves the store's pricing settings against the
// configured defaults. Concurrent checkouts share one in-flight load.
type SettingsProvider struct {
	repo     repository.SettingsRepository
	defaults domain.StoreSettings
	group    singleflight.Group
}

func NewSettingsProvider(repo repository.SettingsRepository, defaults domain.StoreSettings) *SettingsProvider {
	return &SettingsProvider{repo: repo, defaults: defaults}
}

func (p *SettingsProvider) StoreSettings(ctx context.Context) (domain.StoreSettings, error) {
	v, err, _ := p.group.Do("store_settings", func() (any, error) {
		rec, err := p.repo.Load(ctx)
		if err != nil {
			return nil, err
		}
		return rec.Resolve(p.defaults), nil
	})
	if err != nil {
		return domain.StoreSettings{}, fmt.Errorf("load store settings: %w", err)
	}
	return v.(domain.StoreSettings), nil
}
