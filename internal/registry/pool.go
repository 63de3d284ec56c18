package registry

import (
	"sync"

	"github.com/modelgate/modelgate/internal/httperr"
)

// Pool holds the backends registered for one kind, in registration order.
type Pool struct {
	kind Kind

	mu       sync.RWMutex
	backends []*Backend
}

func newPool(kind Kind) *Pool { return &Pool{kind: kind} }

// Kind returns the single kind this pool serves.
func (p *Pool) Kind() Kind { return p.kind }

// Select picks the backend with the lowest load and increments its counter.
// Ties go to the earliest-registered backend, which spreads equal-load
// traffic round-robin-like across the pool.
func (p *Pool) Select() (*Backend, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var (
		chosen *Backend
		min    uint64
	)
	for _, b := range p.backends {
		if l := b.Load(); chosen == nil || l < min {
			chosen, min = b, l
		}
	}
	if chosen == nil {
		return nil, httperr.NotFoundBackend(p.kind.String())
	}
	chosen.load.Add(1)
	return chosen, nil
}

// Size returns the current number of backends.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.backends)
}

func (p *Pool) add(b *Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backends = append(p.backends, b)
}

// remove reports whether the id was present.
func (p *Pool) remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, b := range p.backends {
		if b.id == id {
			p.backends = append(p.backends[:i], p.backends[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot copies the membership for listing.
func (p *Pool) snapshot() []*Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Backend, len(p.backends))
	copy(out, p.backends)
	return out
}
