package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// Origen de una carga del feed (etiqueta de métricas).
const (
	SourceCache    = "cache"
	SourceFeed     = "feed"
	SourceFallback = "fallback"
)

// Loader obtiene el feed del backend y lo normaliza.
// Orden: caché (salvo recarga explícita), feed combinado y, si falla, clientes + trabajos por separado.
type Loader struct {
	backend    repository.PipelineBackend
	normalizer *pipeline.Normalizer
	cache      FeedCache
	metrics    Metrics
	log        *logger.Logger
}

// NewLoader construye el cargador. cache y metrics pueden ser nil.
func NewLoader(backend repository.PipelineBackend, reg *pipeline.Registry, cache FeedCache, metrics Metrics, log *logger.Logger) *Loader {
	if cache == nil {
		cache = nopCache{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Loader{
		backend:    backend,
		normalizer: pipeline.NewNormalizer(reg),
		cache:      cache,
		metrics:    metrics,
		log:        log.Component("loader"),
	}
}

// Load devuelve los items normalizados visibles para la credencial del actor.
func (l *Loader) Load(ctx context.Context, actor entity.Actor, bypassCache bool) ([]pipeline.Item, error) {
	ctx = domain.WithActor(ctx, actor)

	var (
		entries []pipeline.FeedEntry
		source  string
	)
	if !bypassCache {
		if cached, ok := l.cache.Get(ctx, actor.ID); ok {
			entries, source = cached, SourceCache
		}
	}
	if source == "" {
		var err error
		entries, source, err = l.fetch(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.Set(ctx, actor.ID, entries)
	}

	items, anomalies := l.normalizer.NormalizeFeed(entries)
	for _, a := range anomalies {
		l.log.Warn().Str("ref", a.Ref).Str("actor", actor.Label()).Msg(a.Detail)
	}
	l.metrics.FeedLoaded(source)
	l.log.Debug().
		Str("actor", actor.Label()).
		Str("source", source).
		Int("items", len(items)).
		Int("anomalies", len(anomalies)).
		Msg("pipeline cargado")
	return items, nil
}

func (l *Loader) fetch(ctx context.Context) ([]pipeline.FeedEntry, string, error) {
	entries, feedErr := l.backend.LoadFeed(ctx)
	if feedErr == nil {
		return entries, SourceFeed, nil
	}
	if errors.Is(feedErr, context.Canceled) {
		return nil, "", feedErr
	}
	l.log.Warn().Err(feedErr).Msg("feed combinado no disponible, se cargan clientes y trabajos por separado")

	var (
		customers []entity.Customer
		jobs      []entity.Job
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = l.backend.ListCustomers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		jobs, err = l.backend.ListJobs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, "", fmt.Errorf("cargar pipeline: %w", errors.Join(feedErr, err))
	}
	return pipeline.EntriesFromCollections(customers, jobs, nil), SourceFallback, nil
}
