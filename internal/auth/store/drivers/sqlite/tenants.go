package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

type tenantsRepo struct {
	q DBTX
}

const tenantColumns = `id, name, address, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (domain.Tenant, error) {
	var (
		t         domain.Tenant
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt); err != nil {
		return domain.Tenant{}, err
	}
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return t, nil
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) (domain.Tenant, error) {
	now := toUnix(time.Now())
	row := r.q.QueryRowContext(ctx,
		`INSERT INTO tenants (name, address, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING `+tenantColumns,
		t.Name, t.Address, now, now,
	)
	created, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, mapConstraint(err)
	}
	return created, nil
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id int64) (domain.Tenant, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	t, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tenantsRepo) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY id`)
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
	row := r.q.QueryRowContext(ctx,
		`UPDATE tenants SET
			name       = COALESCE(?, name),
			address    = COALESCE(?, address),
			updated_at = ?
		 WHERE id = ?
		 RETURNING `+tenantColumns,
		nullString(patch.Name), nullString(patch.Address), toUnix(time.Now()), id,
	)
	t, err := scanTenant(row)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tenantsRepo) DeleteTenant(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
