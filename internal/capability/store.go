// Package capability verifies candidate backends at admission time and
// caches what each registered backend reported about itself.
package capability

import (
	"sync"

	"github.com/modelgate/modelgate/pkg/models"
)

// Store caches per-backend capability documents and model lists, keyed by
// backend id. Entries are committed on successful registration and dropped
// on unregister; readers are the RAG prompt-template lookup and the
// aggregated /v1/info and /v1/models endpoints.
type Store struct {
	mu     sync.RWMutex
	caps   map[string]models.BackendCapabilities
	models map[string][]models.Model
}

// NewStore returns an empty capability cache.
func NewStore() *Store {
	return &Store{
		caps:   make(map[string]models.BackendCapabilities),
		models: make(map[string][]models.Model),
	}
}

// Put commits a verified backend's capabilities and model list.
func (s *Store) Put(id string, caps models.BackendCapabilities, list []models.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caps.ServerID = id
	s.caps[id] = caps
	s.models[id] = list
}

// Remove drops everything cached for the backend id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caps, id)
	delete(s.models, id)
}

// Info snapshots the capability documents of all registered backends.
func (s *Store) Info() map[string]models.BackendCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.BackendCapabilities, len(s.caps))
	for id, c := range s.caps {
		out[id] = c
	}
	return out
}

// Models returns the union of all cached per-backend model lists.
func (s *Store) Models() []models.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Model
	for _, list := range s.models {
		out = append(out, list...)
	}
	return out
}

// ChatPromptTemplate finds a backend that serves chat and returns its
// declared prompt template. The second value is false when no chat backend
// is cached.
func (s *Store) ChatPromptTemplate() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.caps {
		if c.ChatModel != nil {
			return c.ChatModel.PromptTemplate, true
		}
	}
	return "", false
}
