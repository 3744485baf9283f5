package application

import (
	"context"
	"sync"
)

// SavingGuard allows at most one outstanding write per identity and step,
// the server-side twin of a disabled "continue" button.
type SavingGuard interface {
	// Acquire returns ok=false when a write for the same key is in flight.
	Acquire(ctx context.Context, id Identity, step string) (release func(), ok bool, err error)
}

// MemoryGuard is a process-local SavingGuard.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: map[string]struct{}{}}
}

func (g *MemoryGuard) Acquire(_ context.Context, id Identity, step string) (func(), bool, error) {
	key := id.String() + ":" + step
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return nil, false, nil
	}
	g.inFlight[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.inFlight, key)
		g.mu.Unlock()
	}, true, nil
}
