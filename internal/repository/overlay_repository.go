package repository

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/domain"
	"github.com/spec-kit/intake-desk/internal/observability"
)

// OverlayState maps ticket → workflow overlay.
type OverlayState map[string]domain.Overlay

// Get returns the overlay for ticket, or the default when absent.
func (s OverlayState) Get(ticket string) (domain.Overlay, bool) {
	o, ok := s[ticket]
	if !ok {
		return domain.DefaultOverlay(), false
	}
	return o.Normalized(), true
}

// OverlayStore persists the whole overlay mapping. Save must replace the
// stored mapping atomically: readers see the old or the new state, never a mix.
// Lock excludes every other process using the same store until release is
// called, so the API server and deskctl can share one overlay.
type OverlayStore interface {
	Load(ctx context.Context) (OverlayState, error)
	Save(ctx context.Context, state OverlayState) error
	Lock(ctx context.Context) (release func() error, err error)
}

// OverlayGuard serializes every load → modify → save on an OverlayStore.
// Goroutines are ordered by the guard's mutex and processes by the store lock.
type OverlayGuard struct {
	mu      sync.Mutex
	store   OverlayStore
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewOverlayGuard wraps store.
func NewOverlayGuard(store OverlayStore, logger *zap.Logger, metrics *observability.Metrics) *OverlayGuard {
	return &OverlayGuard{store: store, logger: logger, metrics: metrics}
}

// Snapshot reads the current state for the merge path. A load failure
// degrades to an empty state (every ticket shows defaults) and is logged.
func (g *OverlayGuard) Snapshot(ctx context.Context) OverlayState {
	state, err := g.store.Load(ctx)
	if err != nil {
		g.metrics.Inc(observability.MetricOverlayReadFallback)
		g.logger.Warn("overlay unreadable; serving default workflow state", zap.Error(err))
		return OverlayState{}
	}
	return state
}

// Mutate runs fn inside the critical section. fn reports whether it
// changed state; only then is the state saved. An error from fn aborts
// without saving.
func (g *OverlayGuard) Mutate(ctx context.Context, fn func(OverlayState) (bool, error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	release, err := g.store.Lock(ctx)
	if err != nil {
		return fmt.Errorf("lock overlay: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			g.logger.Warn("release overlay lock failed", zap.Error(err))
		}
	}()

	state, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load overlay: %w", err)
	}
	if state == nil {
		state = OverlayState{}
	}
	changed, err := fn(state)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := g.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save overlay: %w", err)
	}
	return nil
}

// Ensure creates the default overlay for ticket if none exists.
func (g *OverlayGuard) Ensure(ctx context.Context, ticket string) error {
	return g.Mutate(ctx, func(state OverlayState) (bool, error) {
		if _, ok := state[ticket]; ok {
			return false, nil
		}
		state[ticket] = domain.DefaultOverlay()
		return true, nil
	})
}
