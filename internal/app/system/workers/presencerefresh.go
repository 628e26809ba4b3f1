// internal/app/system/workers/presencerefresh.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher extends the presence marks of locally connected users.
type Refresher interface {
	RefreshPresence(ctx context.Context) error
}

// PresenceRefresh is a background worker that keeps this instance's online
// users marked as online before their presence keys expire.
type PresenceRefresh struct {
	target   Refresher
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewPresenceRefresh creates the worker. interval must be comfortably below
// the presence TTL (e.g., 30 seconds against a 2 minute TTL).
func NewPresenceRefresh(target Refresher, logger *zap.Logger, interval time.Duration) *PresenceRefresh {
	return &PresenceRefresh{
		target:   target,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop.
func (w *PresenceRefresh) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("presence refresh worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *PresenceRefresh) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("presence refresh worker stopped")
}

func (w *PresenceRefresh) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refresh()
		}
	}
}

func (w *PresenceRefresh) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.target.RefreshPresence(ctx); err != nil {
		w.log.Warn("presence refresh failed", zap.Error(err))
	}
}
