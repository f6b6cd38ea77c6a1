package pipeline

import (
	"sync"
	"time"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// Store estado del tablero de un actor: los items normalizados y su registro de auditoría.
// Se reemplaza entero al recargar y se parchea por id tras cada transición.
// Los lectores siempre ven un snapshot consistente (nunca un item a medio actualizar).
type Store struct {
	actor entity.Actor

	// txMu serializa lotes y recargas sobre el mismo store.
	txMu sync.Mutex

	mu       sync.RWMutex
	items    []pipeline.Item
	index    map[string]int
	loaded   bool
	loadedAt time.Time
	lastUsed time.Time

	audit *AuditRecorder
}

// NewStore crea un store vacío (sin cargar) para el actor.
func NewStore(actor entity.Actor, auditSize int, now time.Time) *Store {
	return &Store{
		actor:    actor,
		index:    map[string]int{},
		lastUsed: now,
		audit:    NewAuditRecorder(auditSize),
	}
}

// Actor identidad dueña del store.
func (s *Store) Actor() entity.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actor
}

// SetActor actualiza la identidad (p. ej. token renovado con otra credencial).
func (s *Store) SetActor(a entity.Actor) {
	s.mu.Lock()
	s.actor = a
	s.mu.Unlock()
}

// Replace sustituye todos los items (recarga completa).
func (s *Store) Replace(items []pipeline.Item, at time.Time) {
	cp := make([]pipeline.Item, len(items))
	copy(cp, items)
	idx := make(map[string]int, len(cp))
	for i, it := range cp {
		idx[it.ID] = i
	}

	s.mu.Lock()
	s.items = cp
	s.index = idx
	s.loaded = true
	s.loadedAt = at
	s.mu.Unlock()
}

// Loaded informa si el store ya recibió una carga.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LoadedAt momento de la última carga completa.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Items copia de los items actuales, en orden de carga.
func (s *Store) Items() []pipeline.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Get busca un item por id.
func (s *Store) Get(id string) (pipeline.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return pipeline.Item{}, false
	}
	return s.items[i], true
}

// Len número de items cargados.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// patch sustituye por id los items dados, todos bajo el mismo lock.
// Los ids que ya no existen (recarga intermedia) se ignoran.
func (s *Store) patch(items []pipeline.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if i, ok := s.index[it.ID]; ok {
			s.items[i] = it
		}
	}
}

// Audit registro de auditoría de la sesión.
func (s *Store) Audit() *AuditRecorder {
	return s.audit
}

func (s *Store) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Store) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}
