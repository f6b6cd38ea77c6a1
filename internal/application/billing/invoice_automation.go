package billing

import (
	"context"
	"sync"

	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// Resultados de la automatización (etiqueta de métricas).
const (
	AutomationCreated = "created"
	AutomationFailed  = "failed"
	AutomationSkipped = "skipped"
)

// ShouldCreateInvoice regla única de automatización: un trabajo que pasa a Accepted,
// movido por un rol que puede enviar presupuestos.
func ShouldCreateInvoice(kind pipeline.Kind, to pipeline.Stage, role string) bool {
	return kind == pipeline.KindJob &&
		to == pipeline.StageAccepted &&
		pipeline.CapabilitiesFor(role).CanSendQuotes
}

// InvoiceAutomation crea la factura de un trabajo aceptado. Es best-effort: un fallo se
// registra en log y no revierte la transición, que ya está confirmada.
type InvoiceAutomation struct {
	backend    InvoiceCreator
	templateID string
	metrics    pipelineapp.Metrics
	log        *logger.Logger
	wg         sync.WaitGroup
}

// NewInvoiceAutomation construye la automatización con la plantilla de factura por defecto.
func NewInvoiceAutomation(backend InvoiceCreator, templateID string, metrics pipelineapp.Metrics, log *logger.Logger) *InvoiceAutomation {
	if metrics == nil {
		metrics = pipelineapp.NopMetrics{}
	}
	return &InvoiceAutomation{
		backend:    backend,
		templateID: templateID,
		metrics:    metrics,
		log:        log.Component("invoice_automation"),
	}
}

// OnCommitted lanza en segundo plano una petición de factura por cada trabajo aceptado.
func (a *InvoiceAutomation) OnCommitted(ctx context.Context, actor entity.Actor, moved []pipelineapp.CommittedTransition) {
	for _, m := range moved {
		if !ShouldCreateInvoice(m.Item.Kind, m.To, actor.Role) {
			continue
		}
		if a.templateID == "" {
			a.metrics.AutomationFinished(AutomationSkipped)
			a.log.Warn().Str("job_id", m.Item.EntityID).Msg("sin plantilla de factura configurada, no se crea factura")
			continue
		}

		req := repository.InvoiceRequest{JobID: m.Item.EntityID, TemplateID: a.templateID}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.backend.CreateInvoice(ctx, req); err != nil {
				a.metrics.AutomationFinished(AutomationFailed)
				a.log.Error().Err(err).
					Str("job_id", req.JobID).
					Str("actor", actor.Label()).
					Msg("no se pudo crear la factura automática")
				return
			}
			a.metrics.AutomationFinished(AutomationCreated)
			a.log.Info().Str("job_id", req.JobID).Str("template_id", req.TemplateID).Msg("factura automática creada")
		}()
	}
}

// Wait espera a que terminen las peticiones en curso (apagado ordenado y tests).
func (a *InvoiceAutomation) Wait() {
	a.wg.Wait()
}
