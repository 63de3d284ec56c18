package registry

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/modelgate/modelgate/internal/httperr"
	"github.com/modelgate/modelgate/pkg/models"
)

// Registry maps each kind onto its pool. Pools are created lazily on first
// registration and live until process exit; a missing pool means the same
// thing as an empty one.
type Registry struct {
	mu    sync.RWMutex
	pools map[Kind]*Pool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{pools: make(map[Kind]*Pool)}
}

// Register commits the backend to every pool matching its kinds under one
// write lock, so a multi-kind backend appears in all of its pools or in
// none. Capability verification must already have passed; the registry does
// no I/O.
func (r *Registry) Register(b *Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range b.kinds.Kinds() {
		pool, ok := r.pools[k]
		if !ok {
			pool = newPool(k)
			r.pools[k] = pool
		}
		pool.add(b)
		log.Info().
			Str("server_id", b.id).
			Str("kind", k.String()).
			Str("url", b.baseURL).
			Msg("Registered server")
	}
}

// Unregister parses the kind tokens off the id prefix and removes the
// backend from each named pool. It fails only when no pool contained the id.
func (r *Registry) Unregister(id string) error {
	kinds, err := KindsFromID(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for _, k := range kinds.Kinds() {
		if pool, ok := r.pools[k]; ok && pool.remove(id) {
			found = true
			log.Info().Str("server_id", id).Str("kind", k.String()).Msg("Unregistered server")
		}
	}
	if !found {
		return &httperr.Error{
			Kind:    httperr.KindNotFoundBackend,
			Message: fmt.Sprintf("Server %s not found", id),
		}
	}
	return nil
}

// Pool returns the pool for a kind, or nil when nothing of that kind has
// registered yet.
func (r *Registry) Pool(k Kind) *Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pools[k]
}

// Select picks a backend for the kind and bumps its load counter. The
// registry lock is released before the pool scan; neither is held across
// network I/O.
func (r *Registry) Select(k Kind) (*Backend, error) {
	pool := r.Pool(k)
	if pool == nil {
		return nil, httperr.NotFoundBackend(k.String())
	}
	return pool.Select()
}

// List snapshots the registry as kind-token → backend views, omitting empty
// pools.
func (r *Registry) List() map[string][]models.BackendView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]models.BackendView, len(r.pools))
	for k, pool := range r.pools {
		backends := pool.snapshot()
		if len(backends) == 0 {
			continue
		}
		views := make([]models.BackendView, len(backends))
		for i, b := range backends {
			views[i] = b.View()
		}
		out[k.String()] = views
	}
	return out
}
