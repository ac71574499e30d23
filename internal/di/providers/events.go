package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
const shutdownTimeout = 30 * time.Second

// BusHandle wraps the event bus with its context for lifecycle management.
type BusHandle struct {
	*events.Bus
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BusHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Bus.Shutdown(ctx)
}

// ProvideBus provides the pipeline event bus.
func ProvideBus(i do.Injector) (*BusHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	bus := events.NewBus(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)

	log.Info("Event bus started")

	return &BusHandle{
		Bus:    bus,
		cancel: cancel,
	}, nil
}
