package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

var _ pipelineapp.FeedCache = (*FeedCache)(nil)

// Claves del feed cacheado. La generación se incrementa en cada lote confirmado,
// lo que deja huérfanas (y las expira el TTL) todas las entradas anteriores.
const (
	feedGenerationKey = "pipeline:feed:gen"
	feedKeyFmt        = "pipeline:feed:%d:%s"
)

// Options conexión a Redis.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient conecta a Redis. Si Addr está vacío o el ping falla devuelve nil:
// la caché queda desactivada y el servicio sigue funcionando contra el backend.
func NewClient(ctx context.Context, opts Options, log *logger.Logger) *redis.Client {
	if opts.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("redis no disponible, caché del feed desactivada")
		return nil
	}
	return client
}

// FeedCache caché del feed crudo por actor sobre Redis. Con client nil todas las
// operaciones son no-ops.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewFeedCache construye la caché. ttl <= 0 usa 60 s.
func NewFeedCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *FeedCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &FeedCache{client: client, ttl: ttl, log: log.Component("feed_cache")}
}

// Enabled informa si hay conexión a Redis.
func (c *FeedCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *FeedCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, feedGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get devuelve el feed cacheado del actor en la generación actual.
func (c *FeedCache) Get(ctx context.Context, actorID string) ([]pipeline.FeedEntry, bool) {
	if !c.Enabled() {
		return nil, false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("leer generación del feed")
		return nil, false
	}
	data, err := c.client.Get(ctx, fmt.Sprintf(feedKeyFmt, gen, actorID)).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []pipeline.FeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.log.Warn().Err(err).Msg("feed cacheado ilegible, se ignora")
		return nil, false
	}
	return entries, true
}

// Set guarda el feed del actor en la generación actual.
func (c *FeedCache) Set(ctx context.Context, actorID string, entries []pipeline.FeedEntry) {
	if !c.Enabled() {
		return
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		c.log.Warn().Err(err).Msg("serializar feed para caché")
		return
	}
	if err := c.client.Set(ctx, fmt.Sprintf(feedKeyFmt, gen, actorID), data, c.ttl).Err(); err != nil {
		c.log.Debug().Err(err).Msg("guardar feed en caché")
	}
}

// Invalidate avanza la generación: ningún feed anterior vuelve a servirse.
func (c *FeedCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, feedGenerationKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("no se pudo invalidar la caché del feed")
	}
}
