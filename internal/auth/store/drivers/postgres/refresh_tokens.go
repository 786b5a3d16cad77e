package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type refreshTokensRepo struct {
	q DBTX

	// pool is set outside a transaction, Rotate opens its own then.
	pool *pgxpool.Pool
}

const refreshColumns = `id, identity_id, expires_at, created_at`

func scanRefresh(row pgx.Row) (domain.RefreshRecord, error) {
	var rec domain.RefreshRecord
	if err := row.Scan(&rec.ID, &rec.IdentityID, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		return domain.RefreshRecord{}, err
	}
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func createRefresh(ctx context.Context, q DBTX, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error) {
	row := q.QueryRow(ctx,
		`INSERT INTO refresh_tokens (identity_id, expires_at)
		 VALUES ($1, $2)
		 RETURNING `+refreshColumns,
		identityID, expiresAt.UTC(),
	)
	rec, err := scanRefresh(row)
	return rec, mapError(err)
}

func (r *refreshTokensRepo) Create(ctx context.Context, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error) {
	return createRefresh(ctx, r.q, identityID, expiresAt)
}

func (r *refreshTokensRepo) FindByID(ctx context.Context, id int64) (domain.RefreshRecord, error) {
	rec, err := scanRefresh(r.q.QueryRow(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens WHERE id = $1`, id))
	return rec, mapError(err)
}

func (r *refreshTokensRepo) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	return err
}

func (r *refreshTokensRepo) Rotate(
	ctx context.Context,
	oldID, identityID int64,
	expiresAt time.Time,
) (domain.RefreshRecord, error) {
	if r.pool == nil {
		return rotate(ctx, r.q, oldID, identityID, expiresAt)
	}

	var rec domain.RefreshRecord
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		rec, err = rotate(ctx, tx, oldID, identityID, expiresAt)
		return err
	})
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	return rec, nil
}

// rotate deletes first; the row lock taken by DELETE makes a concurrent
// rotation wait, then find nothing once we commit.
func rotate(ctx context.Context, q DBTX, oldID, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE id = $1 AND identity_id = $2`, oldID, identityID)
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.RefreshRecord{}, store.ErrNotFound
	}
	return createRefresh(ctx, q, identityID, expiresAt)
}

func (r *refreshTokensRepo) DeleteByIdentity(ctx context.Context, identityID int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE identity_id = $1`, identityID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
