package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

type refreshTokensRepo struct {
	q DBTX

	// db is set when the repo is not already inside a transaction, Rotate
	// opens its own then.
	db *sql.DB
}

const refreshColumns = `id, identity_id, expires_at, created_at`

func scanRefresh(row interface{ Scan(...any) error }) (domain.RefreshRecord, error) {
	var (
		rec       domain.RefreshRecord
		expiresAt int64
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &rec.IdentityID, &expiresAt, &createdAt); err != nil {
		return domain.RefreshRecord{}, err
	}
	rec.ExpiresAt = fromUnix(expiresAt)
	rec.CreatedAt = fromUnix(createdAt)
	return rec, nil
}

func createRefresh(ctx context.Context, q DBTX, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error) {
	row := q.QueryRowContext(ctx,
		`INSERT INTO refresh_tokens (identity_id, expires_at, created_at)
		 VALUES (?, ?, ?)
		 RETURNING `+refreshColumns,
		identityID, toUnix(expiresAt), toUnix(time.Now()),
	)
	rec, err := scanRefresh(row)
	if err != nil {
		return domain.RefreshRecord{}, mapConstraint(err)
	}
	return rec, nil
}

func (r *refreshTokensRepo) Create(ctx context.Context, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error) {
	return createRefresh(ctx, r.q, identityID, expiresAt)
}

func (r *refreshTokensRepo) FindByID(ctx context.Context, id int64) (domain.RefreshRecord, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens WHERE id = ?`, id)
	rec, err := scanRefresh(row)
	if err != nil {
		return domain.RefreshRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *refreshTokensRepo) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = ?`, id)
	return err
}

func (r *refreshTokensRepo) Rotate(
	ctx context.Context,
	oldID, identityID int64,
	expiresAt time.Time,
) (domain.RefreshRecord, error) {
	if r.db == nil {
		return rotate(ctx, r.q, oldID, identityID, expiresAt)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	rec, err := rotate(ctx, tx, oldID, identityID, expiresAt)
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RefreshRecord{}, err
	}
	return rec, nil
}

// rotate deletes first; the delete is the lock. Whoever removes the row
// creates the successor, everyone else sees zero affected rows.
func rotate(ctx context.Context, q DBTX, oldID, identityID int64, expiresAt time.Time) (domain.RefreshRecord, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE id = ? AND identity_id = ?`, oldID, identityID)
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.RefreshRecord{}, err
	}
	if n == 0 {
		return domain.RefreshRecord{}, store.ErrNotFound
	}
	return createRefresh(ctx, q, identityID, expiresAt)
}

func (r *refreshTokensRepo) DeleteByIdentity(ctx context.Context, identityID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE identity_id = ?`, identityID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, toUnix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
