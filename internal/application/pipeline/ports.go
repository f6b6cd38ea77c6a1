package pipeline

import (
	"context"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// FeedCache caché opcional del feed crudo por actor. Las implementaciones degradan
// en silencio: un fallo de caché nunca impide cargar desde el backend.
type FeedCache interface {
	Get(ctx context.Context, key string) ([]pipeline.FeedEntry, bool)
	Set(ctx context.Context, key string, entries []pipeline.FeedEntry)
	// Invalidate descarta el feed cacheado de todos los actores.
	Invalidate(ctx context.Context)
}

// CommittedTransition cambio de etapa confirmado por el backend.
type CommittedTransition struct {
	Item pipeline.Item // estado posterior
	From pipeline.Stage
	To   pipeline.Stage
}

// AutomationTrigger efecto secundario invocado tras confirmar un lote.
// No debe bloquear ni devolver error: la transición ya es definitiva.
type AutomationTrigger interface {
	OnCommitted(ctx context.Context, actor entity.Actor, moved []CommittedTransition)
}

// Metrics contadores del pipeline.
type Metrics interface {
	BatchFinished(outcome string)
	ItemTransitioned(kind pipeline.Kind)
	AutomationFinished(outcome string)
	FeedLoaded(source string)
}

// NopMetrics implementación vacía de Metrics.
type NopMetrics struct{}

func (NopMetrics) BatchFinished(string)           {}
func (NopMetrics) ItemTransitioned(pipeline.Kind) {}
func (NopMetrics) AutomationFinished(string)      {}
func (NopMetrics) FeedLoaded(string)              {}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]pipeline.FeedEntry, bool) { return nil, false }
func (nopCache) Set(context.Context, string, []pipeline.FeedEntry)        {}
func (nopCache) Invalidate(context.Context)                               {}

type nopAutomation struct{}

func (nopAutomation) OnCommitted(context.Context, entity.Actor, []CommittedTransition) {}
