package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/pipeline-api/internal/application/billing"
	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
	"github.com/jhoicas/pipeline-api/internal/infrastructure/backend"
	"github.com/jhoicas/pipeline-api/internal/infrastructure/cache"
	"github.com/jhoicas/pipeline-api/internal/infrastructure/metrics"
	"github.com/jhoicas/pipeline-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/pipeline-api/internal/interfaces/http"
	"github.com/jhoicas/pipeline-api/pkg/config"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("backend", cfg.Backend.BaseURL).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.New(reg)

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		MaxRPS:  cfg.Backend.MaxRPS,
		Burst:   cfg.Backend.Burst,
	}, prom.ObserveBackend, log)
	if err != nil {
		log.Fatal().Err(err).Msg("cliente del backend")
	}

	// Redis es opcional: sin REDIS_ADDR la caché no hace nada.
	redisClient := cache.NewClient(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if redisClient != nil {
		defer redisClient.Close()
	}
	feedCache := cache.NewFeedCache(redisClient, cfg.Redis.FeedTTL, log)

	// Diario de transiciones en PostgreSQL (opcional).
	var journalRepo repository.TransitionLogRepository
	if cfg.DB.JournalEnabled {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		repo := postgres.NewTransitionLogRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("esquema del diario de transiciones")
		}
		journalRepo = repo
	}

	automation := billing.NewInvoiceAutomation(client, cfg.Pipeline.InvoiceTemplateID, prom, log)
	coordinator := pipelineapp.NewCoordinator(pipelineapp.CoordinatorDeps{
		Backend:    client,
		Registry:   pipeline.DefaultRegistry,
		Journal:    journalRepo,
		Cache:      feedCache,
		Metrics:    prom,
		Automation: automation,
		Logger:     log,
	})
	loader := pipelineapp.NewLoader(client, pipeline.DefaultRegistry, feedCache, prom, log)

	sessions := pipelineapp.NewSessionRegistry(pipelineapp.SessionConfig{
		AuditSize:   cfg.Pipeline.AuditRingSize,
		IdleTimeout: cfg.Pipeline.SessionIdle,
	}, log)
	metrics.RegisterSessionGauge(reg, sessions.Len)
	go sessions.Run(ctx, cfg.Pipeline.SessionSweepInterval)

	boardUC := pipelineapp.NewBoardUseCase(sessions, loader, coordinator, pipeline.DefaultRegistry, log)
	quoteUC := billing.NewQuoteUseCase(boardUC, client, cfg.Pipeline.QuoteTemplateID, log)
	journalUC := pipelineapp.NewJournalUseCase(journalRepo, cfg.Pipeline.JournalListLimit)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Backend.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Pipeline API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  cfg.App.Name,
			"cache":    feedCache.Enabled(),
			"journal":  journalUC.Enabled(),
			"sessions": sessions.Len(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	httpRouter.Router(app, httpRouter.RouterDeps{
		BoardUC:   boardUC,
		QuoteUC:   quoteUC,
		JournalUC: journalUC,
		Registry:  pipeline.DefaultRegistry,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Las facturas automáticas en curso terminan antes de salir.
	automation.Wait()

	log.Info().Msg("aplicación detenida")
}
