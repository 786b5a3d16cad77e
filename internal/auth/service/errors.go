package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrInvalidToken         = errors.New("invalid_token")
	ErrIdentityNotFound     = errors.New("identity_not_found")
	ErrKeySourceUnavailable = errors.New("key_source_unavailable")
	ErrConflict             = errors.New("conflict")
	ErrStoreUnavailable     = errors.New("temporarily_unavailable")
	ErrNotFound             = errors.New("not_found")
	ErrInvalidInput         = errors.New("invalid_request")
)

// DefaultStoreTimeout bounds every store call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// withStoreTimeout bounds a store call. Zero means DefaultStoreTimeout.
func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// storeErr classifies a store failure. Deadlines and broken connections
// become ErrStoreUnavailable; everything else is returned unchanged.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
