package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// SessionRegistry mantiene un Store por actor.
// Ciclo de vida: se crea al montar el tablero, se reemplaza al recargar, se parchea en cada
// transición y se descarta al desmontar o tras IdleTimeout sin uso.
type SessionRegistry struct {
	mu        sync.Mutex
	stores    map[string]*Store
	auditSize int
	idle      time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// SessionConfig parámetros del registro de sesiones.
type SessionConfig struct {
	AuditSize   int
	IdleTimeout time.Duration // 0 desactiva la expiración
	Now         func() time.Time
}

// NewSessionRegistry construye el registro.
func NewSessionRegistry(cfg SessionConfig, log *logger.Logger) *SessionRegistry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{
		stores:    map[string]*Store{},
		auditSize: cfg.AuditSize,
		idle:      cfg.IdleTimeout,
		now:       now,
		log:       log.Component("sessions"),
	}
}

// Open devuelve el store del actor, creándolo si no existe. created indica si es nuevo.
func (r *SessionRegistry) Open(actor entity.Actor) (store *Store, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.stores[actor.ID]; ok {
		s.SetActor(actor)
		s.touch(now)
		return s, false
	}
	s := NewStore(actor, r.auditSize, now)
	r.stores[actor.ID] = s
	return s, true
}

// Get devuelve el store del actor si existe.
func (r *SessionRegistry) Get(actorID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[actorID]
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Close descarta el store del actor. Devuelve false si no había sesión.
func (r *SessionRegistry) Close(actorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[actorID]; !ok {
		return false
	}
	delete(r.stores, actorID)
	return true
}

// Holds informa si el registro asocia actorID con store.
func (r *SessionRegistry) Holds(actorID string, store *Store) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stores[actorID] == store
}

// Discard descarta la sesión de actorID solo si sigue siendo store.
func (r *SessionRegistry) Discard(actorID string, store *Store) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stores[actorID] != store {
		return false
	}
	delete(r.stores, actorID)
	return true
}

// Len número de sesiones abiertas.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep descarta las sesiones inactivas desde hace más de IdleTimeout. Devuelve cuántas cerró.
func (r *SessionRegistry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.stores {
		if s.idleSince().Before(cutoff) {
			delete(r.stores, id)
			n++
		}
	}
	return n
}

// Run ejecuta Sweep cada interval hasta que ctx se cancele.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if r.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Debug().Int("closed", n).Msg("sesiones inactivas descartadas")
			}
		}
	}
}
