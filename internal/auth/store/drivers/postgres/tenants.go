package postgres

import (
	"context"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

type tenantsRepo struct {
	q DBTX
}

const tenantColumns = `id, name, address, created_at, updated_at`

func scanTenant(row pgx.Row) (domain.Tenant, error) {
	var t domain.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Tenant{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error) {
	created, err := scanTenant(r.q.QueryRow(ctx,
		`INSERT INTO tenants (name, address) VALUES ($1, $2) RETURNING `+tenantColumns,
		t.Name, t.Address,
	))
	return created, mapError(err)
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id int64) (domain.Tenant, error) {
	t, err := scanTenant(r.q.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	return t, mapError(err)
}

func (r *tenantsRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.q.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := make([]domain.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *tenantsRepo) UpdateTenant(ctx context.Context, id int64, patch domain.TenantPatch) (domain.Tenant, error) {
	t, err := scanTenant(r.q.QueryRow(ctx,
		`UPDATE tenants SET
			name       = COALESCE($1, name),
			address    = COALESCE($2, address),
			updated_at = now()
		 WHERE id = $3
		 RETURNING `+tenantColumns,
		patch.Name, patch.Address, id,
	))
	return t, mapError(err)
}

func (r *tenantsRepo) DeleteTenant(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(tag)
}
