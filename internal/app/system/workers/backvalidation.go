// internal/app/system/workers/backvalidation.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/badgehub/internal/app/store/badges"
	"github.com/dalemusser/badgehub/internal/app/validation"
	"go.uber.org/zap"
)

// BackValidationSweep is a background worker that tops up under-endorsed
// validated experts after a badge's threshold has grown. The validation
// engine propagates endorsements inline when a new expert crosses the
// threshold; this worker is the safety net for propagation passes that
// failed partway.
type BackValidationSweep struct {
	engine   *validation.Engine
	badges   *badges.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewBackValidationSweep creates a new sweep worker.
func NewBackValidationSweep(engine *validation.Engine, badgeStore *badges.Store, logger *zap.Logger, interval time.Duration) *BackValidationSweep {
	return &BackValidationSweep{
		engine:   engine,
		badges:   badgeStore,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *BackValidationSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("back-validation sweep worker started",
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *BackValidationSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("back-validation sweep worker stopped")
}

func (w *BackValidationSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *BackValidationSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	all, err := w.badges.List(ctx)
	if err != nil {
		w.log.Error("back-validation sweep: listing badges failed", zap.Error(err))
		return
	}

	var failed int
	for i := range all {
		for _, err := range w.engine.SweepBadge(ctx, &all[i]) {
			failed++
			w.log.Error("back-validation sweep: top-up failed",
				zap.String("badge_id", all[i].ID.Hex()),
				zap.Error(err))
		}
	}

	if failed > 0 {
		w.log.Warn("back-validation sweep finished with failures",
			zap.Int("badges", len(all)),
			zap.Int("failures", failed))
	}
}
