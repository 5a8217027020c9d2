package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CartMaintainer retries failed cart writes and releases idle carts.
type CartMaintainer interface {
	FlushDirty(ctx context.Context) (int, error)
	EvictIdle(ctx context.Context, idle time.Duration) (int, error)
}

// CartFlushScheduler periodically retries failed cart writes and evicts
// carts idle for longer than idleTTL. A zero idleTTL disables eviction.
type CartFlushScheduler struct {
	cron     *cron.Cron
	carts    CartMaintainer
	schedule string
	timeout  time.Duration
	idleTTL  time.Duration
}

func NewCartFlushScheduler(carts CartMaintainer, schedule string, timeout, idleTTL time.Duration) *CartFlushScheduler {
	return &CartFlushScheduler{
		cron:     cron.New(),
		carts:    carts,
		schedule: schedule,
		timeout:  timeout,
		idleTTL:  idleTTL,
	}
}

// Start registers the flush job and starts the scheduler
func (s *CartFlushScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runFlush)
	if err != nil {
		logger.Error("Failed to add cron job for cart flush", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Cart flush scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

func (s *CartFlushScheduler) runFlush() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	flushed, err := s.carts.FlushDirty(ctx)
	if err != nil {
		logger.Warn("Some carts are still waiting to be persisted", map[string]interface{}{
			"flushed": flushed,
			"error":   err.Error(),
		})
	} else if flushed > 0 {
		logger.Debug("Scheduled cart flush finished", map[string]interface{}{
			"flushed": flushed,
		})
	}

	evicted, err := s.carts.EvictIdle(ctx, s.idleTTL)
	if err != nil {
		logger.Warn("Some idle carts could not be released", map[string]interface{}{
			"evicted": evicted,
			"error":   err.Error(),
		})
	}
}

// Stop stops the scheduler and waits for a running flush
func (s *CartFlushScheduler) Stop() {
	logger.Info("Stopping cart flush scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Cart flush scheduler stopped", nil)
}
