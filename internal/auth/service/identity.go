package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

type CreateIdentityInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
	TenantID  *int64
}

// IdentityService is the administrative side of identities.
type IdentityService struct {
	Store   store.Store
	Refresh store.RefreshTokens
	Hasher  *cryptox.Hasher
	Timeout time.Duration
}

func (s *IdentityService) Create(ctx context.Context, in CreateIdentityInput) (domain.Identity, error) {
	if !in.Role.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown role", ErrInvalidInput)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	if in.TenantID != nil {
		if err := s.requireTenant(ctx, *in.TenantID); err != nil {
			return domain.Identity{}, err
		}
	}

	identity, err := s.Store.Identities().CreateIdentity(ctx, domain.Identity{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		TenantID:     in.TenantID,
	})
	if err != nil {
		return domain.Identity{}, identityWriteErr(err)
	}

	slogx.FromContext(ctx).Info("identity created",
		slog.Int64("identity_id", identity.ID),
		slog.String("role", identity.Role.String()),
	)
	return identity, nil
}

func (s *IdentityService) Get(ctx context.Context, id int64) (domain.Identity, error) {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	identity, err := s.Store.Identities().GetIdentityByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrNotFound
		}
		return domain.Identity{}, storeErr(err)
	}
	return identity, nil
}

// Update applies patch. A changed role shows up in the next token pair,
// since refresh reads the role from the store.
func (s *IdentityService) Update(ctx context.Context, id int64, patch domain.IdentityPatch) (domain.Identity, error) {
	if patch.Role != nil && !patch.Role.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown role", ErrInvalidInput)
	}
	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		patch.Email = &email
	}

	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	if patch.TenantID != nil && !patch.ClearTenant {
		if err := s.requireTenant(ctx, *patch.TenantID); err != nil {
			return domain.Identity{}, err
		}
	}

	identity, err := s.Store.Identities().UpdateIdentity(ctx, id, patch)
	if err != nil {
		return domain.Identity{}, identityWriteErr(err)
	}
	return identity, nil
}

// Delete removes an identity and every refresh record it owns.
func (s *IdentityService) Delete(ctx context.Context, id int64) error {
	l := slogx.FromContext(ctx)
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.Store.Identities().DeleteIdentity(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr(err)
	}

	// SQL cascades on its own; a Redis refresh store does not. Leftover
	// records are harmless since refresh fails on the missing identity.
	n, err := s.Refresh.DeleteByIdentity(ctx, id)
	if err != nil {
		l.Warn("refresh records not removed", slog.Int64("identity_id", id), slog.Any("error", err))
	}

	l.Info("identity deleted", slog.Int64("identity_id", id), slog.Int64("sessions_revoked", n))
	return nil
}

func (s *IdentityService) requireTenant(ctx context.Context, tenantID int64) error {
	if tenantID <= 0 {
		return fmt.Errorf("%w: tenantId must be positive", ErrInvalidInput)
	}
	if _, err := s.Store.Tenants().GetTenantByID(ctx, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: tenant %d does not exist", ErrInvalidInput, tenantID)
		}
		return storeErr(err)
	}
	return nil
}

func identityWriteErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrConflict
	case errors.Is(err, store.ErrInvalidReference):
		return fmt.Errorf("%w: tenant does not exist", ErrInvalidInput)
	}
	return storeErr(err)
}
