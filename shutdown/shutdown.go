// Package shutdown turns SIGINT and SIGTERM into context cancellation.
// Registered hooks run, newest first, while the context is still alive.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/amp-labs/amp-fsm/logger"
)

// Handler owns the signal subscription and the shutdown hooks.
type Handler struct {
	ctx     context.Context //nolint:containedctx
	cancel  context.CancelFunc
	signals chan os.Signal
	done    chan struct{}

	mu    sync.Mutex
	hooks []func(ctx context.Context)
	once  sync.Once
}

// SetupHandler subscribes to the given signals, or SIGINT and SIGTERM when
// none are given. The handler's context is canceled on the first signal.
func SetupHandler(parent context.Context, sigs ...os.Signal) *Handler {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		ctx:     ctx,
		cancel:  cancel,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}

	signal.Notify(h.signals, sigs...)

	go func() {
		select {
		case sig := <-h.signals:
			logger.Get(ctx).Warn("Received " + sig.String() + ", shutting down...")
			h.Shutdown()
		case <-h.done:
		}
	}()

	return h
}

// Context is canceled once shutdown completes.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// BeforeShutdown registers a hook. Hooks registered after shutdown has
// started are never called.
func (h *Handler) BeforeShutdown(fn func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = append(h.hooks, fn)
}

// Shutdown runs the hooks and cancels the context. Only the first call has
// any effect.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.mu.Lock()
		hooks := h.hooks
		h.hooks = nil
		h.mu.Unlock()

		for _, fn := range slices.Backward(hooks) {
			fn(h.ctx)
		}

		h.cancel()
	})
}

// Stop unsubscribes from signals and shuts down.
func (h *Handler) Stop() {
	signal.Stop(h.signals)

	select {
	case <-h.done:
	default:
		close(h.done)
	}

	h.Shutdown()
}
