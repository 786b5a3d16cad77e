package storetest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/stretchr/testify/require"
)

var emailSeq atomic.Int64

// SeedIdentity inserts a customer with a unique email and returns it.
func SeedIdentity(t *testing.T, s store.Store) domain.Identity {
	t.Helper()
	n := emailSeq.Add(1)
	i, err := s.Identities().CreateIdentity(t.Context(), domain.Identity{
		FirstName:    "Test",
		LastName:     "User",
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "$argon2id$placeholder",
		Role:         domain.RoleCustomer,
	})
	require.NoError(t, err)
	return i
}

// SQLRefreshHarness adapts a full Store to RunRefreshTokens.
func SQLRefreshHarness(s store.Store) RefreshHarness {
	return RefreshHarness{
		Refresh: s.RefreshTokens(),
		NewIdentity: func(t *testing.T) int64 {
			return SeedIdentity(t, s).ID
		},
	}
}

// RunStore exercises identities, tenants and their relations.
func RunStore(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("identity lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		empty, err := s.Identities().IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)

		created, err := s.Identities().CreateIdentity(ctx, domain.Identity{
			FirstName:    "Ada",
			LastName:     "Lovelace",
			Email:        "ada@example.com",
			PasswordHash: "hash",
			Role:         domain.RoleManager,
		})
		require.NoError(t, err)
		require.Positive(t, created.ID)
		require.Equal(t, domain.RoleManager, created.Role)
		require.Nil(t, created.TenantID)
		require.False(t, created.CreatedAt.IsZero())

		empty, err = s.Identities().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)

		byEmail, err := s.Identities().GetIdentityByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		require.Equal(t, created.ID, byEmail.ID)
		require.Equal(t, "hash", byEmail.PasswordHash)

		_, err = s.Identities().CreateIdentity(ctx, domain.Identity{
			FirstName: "Ada", LastName: "Again", Email: "ada@example.com",
			PasswordHash: "hash", Role: domain.RoleCustomer,
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		first := "Augusta"
		admin := domain.RoleAdmin
		updated, err := s.Identities().UpdateIdentity(ctx, created.ID, domain.IdentityPatch{
			FirstName: &first,
			Role:      &admin,
		})
		require.NoError(t, err)
		require.Equal(t, "Augusta", updated.FirstName)
		require.Equal(t, "Lovelace", updated.LastName)
		require.Equal(t, domain.RoleAdmin, updated.Role)

		require.NoError(t, s.Identities().UpdatePasswordHash(ctx, created.ID, "hash2"))
		got, err := s.Identities().GetIdentityByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "hash2", got.PasswordHash)

		require.NoError(t, s.Identities().DeleteIdentity(ctx, created.ID))
		_, err = s.Identities().GetIdentityByID(ctx, created.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.Identities().DeleteIdentity(ctx, created.ID), store.ErrNotFound)

		_, err = s.Identities().UpdateIdentity(ctx, created.ID, domain.IdentityPatch{FirstName: &first})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("tenant lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		list, err := s.Tenants().ListTenants(ctx)
		require.NoError(t, err)
		require.Empty(t, list)

		a, err := s.Tenants().CreateTenant(ctx, domain.Tenant{Name: "Acme", Address: "1 Road"})
		require.NoError(t, err)
		b, err := s.Tenants().CreateTenant(ctx, domain.Tenant{Name: "Globex"})
		require.NoError(t, err)

		list, err = s.Tenants().ListTenants(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, a.ID, list[0].ID)
		require.Equal(t, b.ID, list[1].ID)

		addr := "2 Street"
		updated, err := s.Tenants().UpdateTenant(ctx, a.ID, domain.TenantPatch{Address: &addr})
		require.NoError(t, err)
		require.Equal(t, "Acme", updated.Name)
		require.Equal(t, "2 Street", updated.Address)

		require.NoError(t, s.Tenants().DeleteTenant(ctx, b.ID))
		_, err = s.Tenants().GetTenantByID(ctx, b.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.Tenants().DeleteTenant(ctx, b.ID), store.ErrNotFound)
	})

	t.Run("tenant references", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		missing := int64(424242)
		_, err := s.Identities().CreateIdentity(ctx, domain.Identity{
			FirstName: "No", LastName: "Tenant", Email: "nt@example.com",
			PasswordHash: "h", Role: domain.RoleCustomer, TenantID: &missing,
		})
		require.ErrorIs(t, err, store.ErrInvalidReference)

		tenant, err := s.Tenants().CreateTenant(ctx, domain.Tenant{Name: "Acme"})
		require.NoError(t, err)

		member, err := s.Identities().CreateIdentity(ctx, domain.Identity{
			FirstName: "Mem", LastName: "Ber", Email: "member@example.com",
			PasswordHash: "h", Role: domain.RoleCustomer, TenantID: &tenant.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, member.TenantID)
		require.Equal(t, tenant.ID, *member.TenantID)

		require.NoError(t, s.Tenants().DeleteTenant(ctx, tenant.ID))
		member, err = s.Identities().GetIdentityByID(ctx, member.ID)
		require.NoError(t, err)
		require.Nil(t, member.TenantID, "deleting a tenant detaches its identities")

		tenant, err = s.Tenants().CreateTenant(ctx, domain.Tenant{Name: "Again"})
		require.NoError(t, err)
		member, err = s.Identities().UpdateIdentity(ctx, member.ID, domain.IdentityPatch{TenantID: &tenant.ID})
		require.NoError(t, err)
		require.Equal(t, tenant.ID, *member.TenantID)

		member, err = s.Identities().UpdateIdentity(ctx, member.ID, domain.IdentityPatch{ClearTenant: true})
		require.NoError(t, err)
		require.Nil(t, member.TenantID)
	})

	t.Run("deleting an identity removes its refresh records", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		i := SeedIdentity(t, s)
		rec, err := s.RefreshTokens().Create(ctx, i.ID, time.Now().Add(time.Hour))
		require.NoError(t, err)

		require.NoError(t, s.Identities().DeleteIdentity(ctx, i.ID))
		_, err = s.RefreshTokens().FindByID(ctx, rec.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("transactions roll back", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		i := SeedIdentity(t, s)

		var created int64
		err := s.WithTx(ctx, func(tx store.Tx) error {
			rec, err := tx.RefreshTokens().Create(ctx, i.ID, time.Now().Add(time.Hour))
			if err != nil {
				return err
			}
			created = rec.ID
			return fmt.Errorf("abort")
		})
		require.EqualError(t, err, "abort")
		require.Positive(t, created)

		_, err = s.RefreshTokens().FindByID(ctx, created)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(t.Context()))
	})
}
