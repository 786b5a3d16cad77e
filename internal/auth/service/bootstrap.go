package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

var ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin identity")

// BootstrapService seeds the first administrator so a fresh deployment can
// be managed at all; registration only ever creates customers.
type BootstrapService struct {
	Store   store.Store
	Hasher  *cryptox.Hasher
	Timeout time.Duration
}

// IsBootstrapped reports whether any identity exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	empty, err := s.Store.Identities().IsEmpty(ctx)
	if err != nil {
		return false, storeErr(err)
	}
	return !empty, nil
}

// EnsureAdmin creates an admin with the given credentials when the identity
// store is empty. It reports whether it created one. An empty password is
// replaced by a generated one, logged once at warn level.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	l := slogx.FromContext(ctx)

	// 1. Nothing to do once anyone exists
	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return false, err
	}
	if bootstrapped {
		l.Debug("bootstrap skipped, identities already exist")
		return false, nil
	}

	// 2. Hash password
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			l.Error("failed to generate admin password", slog.Any("error", err))
			return false, ErrBootstrapFailedToCreateAdmin
		}
		l.Warn("generated admin password, change it after first login",
			slog.String("email", domain.NormalizeEmail(email)),
			slog.String("initial_password", password),
		)
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return false, ErrBootstrapFailedToCreateAdmin
	}

	// 3. Create the admin
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	admin, err := s.Store.Identities().CreateIdentity(ctx, domain.Identity{
		FirstName:    "System",
		LastName:     "Administrator",
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		l.Error("failed to create admin identity", slog.Any("error", err))
		return false, errors.Join(ErrBootstrapFailedToCreateAdmin, storeErr(err))
	}

	l.Info("bootstrapped admin identity", slog.Int64("identity_id", admin.ID))
	return true, nil
}
