package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

type identitiesRepo struct {
	q DBTX
}

const identityColumns = `id, first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at`

func scanIdentity(row interface{ Scan(...any) error }) (domain.Identity, error) {
	var (
		i         domain.Identity
		role      string
		tenantID  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&i.ID, &i.FirstName, &i.LastName, &i.Email, &i.PasswordHash,
		&role, &tenantID, &createdAt, &updatedAt)
	if err != nil {
		return domain.Identity{}, err
	}
	i.Role = domain.Role(role)
	i.TenantID = int64Ptr(tenantID)
	i.CreatedAt = fromUnix(createdAt)
	i.UpdatedAt = fromUnix(updatedAt)
	return i, nil
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) (domain.Identity, error) {
	now := toUnix(time.Now())
	row := r.q.QueryRowContext(ctx,
		`INSERT INTO identities (first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+identityColumns,
		i.FirstName, i.LastName, i.Email, i.PasswordHash, string(i.Role), nullInt64(i.TenantID), now, now,
	)
	created, err := scanIdentity(row)
	if err != nil {
		return domain.Identity{}, mapConstraint(err)
	}
	return created, nil
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id int64) (domain.Identity, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	i, err := scanIdentity(row)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return i, nil
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	i, err := scanIdentity(row)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return i, nil
}

func (r *identitiesRepo) UpdateIdentity(
	ctx context.Context,
	id int64,
	patch domain.IdentityPatch,
) (domain.Identity, error) {
	var role sql.NullString
	if patch.Role != nil {
		role = sql.NullString{String: string(*patch.Role), Valid: true}
	}

	row := r.q.QueryRowContext(ctx,
		`UPDATE identities SET
			first_name = COALESCE(?, first_name),
			last_name  = COALESCE(?, last_name),
			email      = COALESCE(?, email),
			role       = COALESCE(?, role),
			tenant_id  = CASE WHEN ? THEN NULL ELSE COALESCE(?, tenant_id) END,
			updated_at = ?
		 WHERE id = ?
		 RETURNING `+identityColumns,
		nullString(patch.FirstName), nullString(patch.LastName), nullString(patch.Email),
		role, patch.ClearTenant, nullInt64(patch.TenantID), toUnix(time.Now()), id,
	)
	i, err := scanIdentity(row)
	if err != nil {
		return domain.Identity{}, mapConstraint(mapNotFound(err))
	}
	return i, nil
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE identities SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toUnix(time.Now()), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *identitiesRepo) DeleteIdentity(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM identities)`).Scan(&exists)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
