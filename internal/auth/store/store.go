package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrInvalidReference means a foreign key pointed at a missing row, for
	// example an identity assigned to a tenant that does not exist.
	ErrInvalidReference = errors.New("store: invalid reference")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so nobody accidentally opens a transaction inside a
// transaction.
type Store interface {
	Identities() Identities
	Tenants() Tenants
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// CreateIdentity inserts an identity and returns it with its assigned id.
	// A duplicate email is ErrAlreadyExists; an unknown tenant is
	// ErrInvalidReference. The email must already be normalized.
	CreateIdentity(ctx context.Context, i domain.Identity) (domain.Identity, error)

	GetIdentityByID(ctx context.Context, id int64) (domain.Identity, error)

	// GetIdentityByEmail expects a normalized email.
	GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error)

	// UpdateIdentity applies patch and bumps updated_at.
	UpdateIdentity(ctx context.Context, id int64, patch domain.IdentityPatch) (domain.Identity, error)

	// UpdatePasswordHash replaces the stored hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// DeleteIdentity cascades to refresh_tokens (per schema).
	DeleteIdentity(ctx context.Context, id int64) error

	// IsEmpty returns true if there are no identities.
	IsEmpty(ctx context.Context) (bool, error)
}

type Tenants interface {
	CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error)
	GetTenantByID(ctx context.Context, id int64) (domain.Tenant, error)

	// ListTenants returns all tenants ordered by id.
	ListTenants(ctx context.Context) ([]domain.Tenant, error)

	UpdateTenant(ctx context.Context, id int64, patch domain.TenantPatch) (domain.Tenant, error)

	// DeleteTenant detaches its identities (tenant_id set to NULL).
	DeleteTenant(ctx context.Context, id int64) error
}

// RefreshTokens persists one record per issued refresh token. A record's
// presence is what keeps its token redeemable.
type RefreshTokens interface {
	// Create stores a new record and assigns it a fresh id.
	Create(ctx context.Context, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error)

	// FindByID returns ErrNotFound when the record is absent.
	FindByID(ctx context.Context, id int64) (domain.RefreshRecord, error)

	// DeleteByID removes a record. Deleting an absent id is not an error.
	DeleteByID(ctx context.Context, id int64) error

	// Rotate atomically deletes oldID and creates its replacement. It returns
	// ErrNotFound, creating nothing, when oldID is absent or belongs to a
	// different identity. Of two concurrent rotations of the same record
	// exactly one succeeds.
	Rotate(ctx context.Context, oldID, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error)

	// DeleteByIdentity removes every record owned by identityID.
	DeleteByIdentity(ctx context.Context, identityID int64) (int64, error)

	// DeleteExpired removes records whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
