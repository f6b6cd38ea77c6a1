package pipeline

import (
	"sync"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
)

// DefaultAuditSize tamaño del buffer circular mostrado en pantalla.
const DefaultAuditSize = 5

// AuditRecorder registro en memoria, solo de anexado, de las últimas transiciones de la sesión.
// No es fuente de verdad: el backend guarda el histórico autoritativo.
type AuditRecorder struct {
	mu      sync.RWMutex
	size    int
	entries []entity.AuditEntry // más reciente primero
}

// NewAuditRecorder construye el registro con capacidad size (DefaultAuditSize si size <= 0).
func NewAuditRecorder(size int) *AuditRecorder {
	if size <= 0 {
		size = DefaultAuditSize
	}
	return &AuditRecorder{size: size, entries: make([]entity.AuditEntry, 0, size)}
}

// Record añade una entrada al principio y descarta las que exceden la capacidad.
func (r *AuditRecorder) Record(e entity.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]entity.AuditEntry{e}, r.entries...)
	if len(r.entries) > r.size {
		r.entries = r.entries[:r.size]
	}
}

// Entries copia de las entradas, la más reciente primero.
func (r *AuditRecorder) Entries() []entity.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len número de entradas retenidas.
func (r *AuditRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
