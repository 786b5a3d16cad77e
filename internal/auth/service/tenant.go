package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

type TenantService struct {
	Store   store.Store
	Timeout time.Duration
}

func (s *TenantService) Create(ctx context.Context, name, address string) (domain.Tenant, error) {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	t, err := s.Store.Tenants().CreateTenant(ctx, domain.Tenant{Name: name, Address: address})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Tenant{}, ErrConflict
		}
		return domain.Tenant{}, storeErr(err)
	}

	slogx.FromContext(ctx).Info("tenant created", slog.Int64("tenant_id", t.ID))
	return t, nil
}

func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	tenants, err := s.Store.Tenants().ListTenants(ctx)
	return tenants, storeErr(err)
}

func (s *TenantService) Get(ctx context.Context, id int64) (domain.Tenant, error) {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	t, err := s.Store.Tenants().GetTenantByID(ctx, id)
	return t, tenantErr(err)
}

func (s *TenantService) Update(ctx context.Context, id int64, patch domain.TenantPatch) (domain.Tenant, error) {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	t, err := s.Store.Tenants().UpdateTenant(ctx, id, patch)
	return t, tenantErr(err)
}

// Delete removes a tenant. Its identities stay, detached.
func (s *TenantService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.Store.Tenants().DeleteTenant(ctx, id); err != nil {
		return tenantErr(err)
	}
	slogx.FromContext(ctx).Info("tenant deleted", slog.Int64("tenant_id", id))
	return nil
}

func tenantErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return storeErr(err)
}
