package postgres

import (
	"context"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

type identitiesRepo struct {
	q DBTX
}

const identityColumns = `id, first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at`

func scanIdentity(row pgx.Row) (domain.Identity, error) {
	var (
		i    domain.Identity
		role string
	)
	err := row.Scan(&i.ID, &i.FirstName, &i.LastName, &i.Email, &i.PasswordHash,
		&role, &i.TenantID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return domain.Identity{}, err
	}
	i.Role = domain.Role(role)
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return i, nil
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) (domain.Identity, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO identities (first_name, last_name, email, password_hash, role, tenant_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+identityColumns,
		i.FirstName, i.LastName, i.Email, i.PasswordHash, string(i.Role), i.TenantID,
	)
	created, err := scanIdentity(row)
	return created, mapError(err)
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id int64) (domain.Identity, error) {
	i, err := scanIdentity(r.q.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id))
	return i, mapError(err)
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	i, err := scanIdentity(r.q.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE lower(email) = lower($1)`, email))
	return i, mapError(err)
}

func (r *identitiesRepo) UpdateIdentity(
	ctx context.Context,
	id int64,
	patch domain.IdentityPatch,
) (domain.Identity, error) {
	var role *string
	if patch.Role != nil {
		s := string(*patch.Role)
		role = &s
	}

	row := r.q.QueryRow(ctx,
		`UPDATE identities SET
			first_name = COALESCE($1, first_name),
			last_name  = COALESCE($2, last_name),
			email      = COALESCE($3, email),
			role       = COALESCE($4, role),
			tenant_id  = CASE WHEN $5::boolean THEN NULL ELSE COALESCE($6, tenant_id) END,
			updated_at = now()
		 WHERE id = $7
		 RETURNING `+identityColumns,
		patch.FirstName, patch.LastName, patch.Email, role, patch.ClearTenant, patch.TenantID, id,
	)
	i, err := scanIdentity(row)
	return i, mapError(err)
}

func (r *identitiesRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE identities SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (r *identitiesRepo) DeleteIdentity(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM identities)`).Scan(&exists)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
