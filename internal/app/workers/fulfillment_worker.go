package workers

import (
	"context"
	"time"

	"github.com/offerpoint/offerpoint-core/internal/app/services"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
)

const defaultSweepInterval = 15 * time.Second

// FulfillmentWorker runs the fulfillment sweep on a fixed interval. It is safe
// to run several instances; job claiming keeps them from double-paying.
type FulfillmentWorker struct {
	fulfillmentService *services.FulfillmentService
	interval           time.Duration
	cancel             context.CancelFunc
	done               chan struct{}
}

func NewFulfillmentWorker(fulfillmentService *services.FulfillmentService) *FulfillmentWorker {
	interval := defaultSweepInterval
	if infrastructures.Config != nil && infrastructures.Config.SweepInterval > 0 {
		interval = infrastructures.Config.SweepInterval
	}
	return &FulfillmentWorker{
		fulfillmentService: fulfillmentService,
		interval:           interval,
	}
}

// Start launches the sweep loop. It returns immediately.
func (w *FulfillmentWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)

		log := infrastructures.GetLogger()
		log.Infof("fulfillment worker started, sweep interval %s", w.interval)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("fulfillment worker stopped")
				return
			case <-ticker.C:
				if err := w.fulfillmentService.Sweep(ctx); err != nil && ctx.Err() == nil {
					log.Errorf("fulfillment sweep: %v", err)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
func (w *FulfillmentWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}
