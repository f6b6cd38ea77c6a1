package repository

import (
	"context"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// StagePatch cuerpo del PATCH {kind}s/{id}/stage.
type StagePatch struct {
	Stage     string
	Reason    string
	UpdatedBy string
}

// InvoiceRequest cuerpo del POST invoices (automatización al aceptar un trabajo).
type InvoiceRequest struct {
	JobID      string
	TemplateID string
}

// PipelineBackend define el puerto de salida hacia el backend de registros (REST).
// La credencial del actor viaja en el contexto (domain.WithActor).
type PipelineBackend interface {
	// LoadFeed GET pipeline: feed combinado de clientes, trabajos y proyectos.
	LoadFeed(ctx context.Context) ([]pipeline.FeedEntry, error)
	// ListCustomers GET customers (ruta de respaldo).
	ListCustomers(ctx context.Context) ([]entity.Customer, error)
	// ListJobs GET jobs (ruta de respaldo).
	ListJobs(ctx context.Context) ([]entity.Job, error)
	// PatchStage PATCH {kind}s/{id}/stage. Solo para customer y job.
	PatchStage(ctx context.Context, kind pipeline.Kind, entityID string, patch StagePatch) error
	// ReplaceProject PUT projects/{id} con el proyecto completo.
	ReplaceProject(ctx context.Context, project entity.Project) error
	// CreateInvoice POST invoices.
	CreateInvoice(ctx context.Context, req InvoiceRequest) error
	// SendQuote POST jobs/{id}/quotes.
	SendQuote(ctx context.Context, jobID, templateID string) error
}
