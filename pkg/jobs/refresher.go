package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RefreshFunc performs one refresh pass.
type RefreshFunc func(context.Context) error

// RefresherConfig configures the periodic worker.
type RefresherConfig struct {
	Interval   time.Duration
	RunTimeout time.Duration
	Logger     *zap.Logger
}

// Refresher runs a refresh function on a fixed interval in a background
// goroutine. It keeps derived values, like the present-today gauge, warm
// between requests.
type Refresher struct {
	name       string
	refresh    RefreshFunc
	interval   time.Duration
	runTimeout time.Duration
	logger     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewRefresher builds a refresher. Interval defaults to five minutes.
func NewRefresher(name string, refresh RefreshFunc, cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Refresher{
		name:       name,
		refresh:    refresh,
		interval:   cfg.Interval,
		runTimeout: cfg.RunTimeout,
		logger:     cfg.Logger,
	}
}

// Start launches the background loop, running one pass immediately.
// Safe to call once.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop()
	r.started = true
	r.logger.Sugar().Infow("refresher started", "refresher", r.name, "interval", r.interval)
}

// Stop cancels the loop and waits for it to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Sugar().Infow("refresher stopped", "refresher", r.name)
}

func (r *Refresher) loop() {
	defer r.wg.Done()
	r.runOnce()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runOnce()
		}
	}
}

func (r *Refresher) runOnce() {
	ctx, cancel := context.WithTimeout(r.ctx, r.runTimeout)
	defer cancel()
	if err := r.refresh(ctx); err != nil {
		r.logger.Sugar().Warnw("refresh pass failed", "refresher", r.name, "error", err)
	}
}
