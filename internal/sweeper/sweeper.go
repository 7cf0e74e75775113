// Package sweeper periodically purges revocation entries for tokens that have expired anyway
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepTimeout bounds a single purge so a hung database cannot stall the schedule
const sweepTimeout = 30 * time.Second

// Cleaner removes revocation entries for tokens that expired at or before the given time
type Cleaner interface {
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// Sweeper runs Cleaner on a cron schedule
type Sweeper struct {
	cleaner  Cleaner
	logger   *zap.Logger
	cron     *cron.Cron
	initial  sync.WaitGroup
	stopOnce sync.Once
}

// NewSweeper creates a new sweeper instance.
// schedule is a standard cron expression or a descriptor such as "@every 15m".
func NewSweeper(cleaner Cleaner, logger *zap.Logger, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		cleaner: cleaner,
		logger:  logger,
		// A slow sweep is never overlapped by the next tick
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs one sweep right away and then follows the schedule
func (s *Sweeper) Start() {
	s.logger.Info("Revocation sweeper started")
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.sweep()
	}()
	s.cron.Start()
}

// Stop stops the schedule and waits for in-flight sweeps to finish. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.initial.Wait()
		s.logger.Info("Revocation sweeper stopped")
	})
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	deleted, err := s.cleaner.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to purge expired revocations", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("Purged expired revocations", zap.Int("count", deleted))
	}
}
