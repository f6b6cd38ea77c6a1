package billing

import (
	"context"

	"github.com/jhoicas/pipeline-api/internal/domain/repository"
)

// InvoiceCreator puerto hacia el backend para crear facturas desde plantilla.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req repository.InvoiceRequest) error
}

// QuoteSender puerto hacia el backend para enviar presupuestos al cliente.
type QuoteSender interface {
	SendQuote(ctx context.Context, jobID, templateID string) error
}
