package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

// HousekeepingService deletes expired refresh records on a timer. Expired
// records can no longer be redeemed, so the sweep only bounds storage.
type HousekeepingService struct {
	Refresh  store.RefreshTokens
	Logger   *slog.Logger
	Interval time.Duration
	Timeout  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHousekeepingService returns a sweep that runs every interval once
// started. Interval <= 0 disables it.
func NewHousekeepingService(refresh store.RefreshTokens, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	return &HousekeepingService{Refresh: refresh, Logger: logger, Interval: interval}
}

func (s *HousekeepingService) Enabled() bool { return s.Interval > 0 }

// Start launches the sweep loop, which runs once straight away.
func (s *HousekeepingService) Start() {
	if !s.Enabled() {
		s.Logger.Debug("housekeeping disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Go(func() { s.loop(ctx) })
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels the loop and waits for a sweep in progress to return.
func (s *HousekeepingService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		n, err := s.RunOnce(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			s.Logger.Error("housekeeping sweep failed", "error", err)
		case n > 0:
			s.Logger.Info("housekeeping swept expired refresh records", "deleted", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce deletes every record that has expired by now.
func (s *HousekeepingService) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := withStoreTimeout(ctx, s.Timeout)
	defer cancel()

	n, err := s.Refresh.DeleteExpired(ctx, time.Now())
	return n, storeErr(err)
}
