package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/groundctl/groundctl/internal/engine"
)

const defaultInterval = 2 * time.Second

// Dispatcher periodically sweeps undelivered notifications and pushes them
// through the configured transport. Failed deliveries stay pending and are
// retried on the next sweep.
type Dispatcher struct {
	engine    *engine.Engine
	transport Transport
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dispatcher. A zero interval means the default.
func New(eng *engine.Engine, transport Transport, interval time.Duration, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = defaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		engine:    eng,
		transport: transport,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the sweep loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.loop()
	d.logger.Info("dispatcher started", "transport", d.transport.Name(), "interval", d.interval)
}

// Stop waits for the current sweep to finish.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Sweep(d.ctx); err != nil {
				d.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// Sweep delivers all currently pending notifications in creation order and
// returns how many were handed off. A transport failure on one notification
// is logged and skipped; the notification stays pending.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	pending, err := d.engine.UndeliveredNotifications()
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range pending {
		n := &pending[i]

		if err := d.transport.Deliver(ctx, n); err != nil {
			d.logger.Warn("delivery failed, will retry",
				"id", n.ID, "target", n.TargetAgent, "error", err)
			continue
		}

		if _, err := d.engine.MarkDelivered(n.ID); err != nil {
			d.logger.Error("failed to mark delivered", "id", n.ID, "error", err)
			continue
		}
		delivered++
	}

	return delivered, nil
}
