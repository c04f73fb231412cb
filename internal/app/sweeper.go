package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/claim"
)

// Sweeper runs background maintenance over the claim store, dropping expired
// claims so they stop occupying memory between lazy-expiry touches.
type Sweeper struct {
	store    claim.Store
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewSweeper(store claim.Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting claim sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop halts the sweep loop.
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping claim sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Claim sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Claim sweep task cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.Error("Claim sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Swept expired claims", zap.Int("removed", removed))
	}
}
