package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// ItemResolver resuelve un item visible de la sesión del actor.
type ItemResolver interface {
	Item(ctx context.Context, actor entity.Actor, id string) (pipelineapp.ItemView, error)
}

// SentQuote confirmación de un presupuesto enviado.
type SentQuote struct {
	ItemID     string
	JobID      string
	TemplateID string
	SentAt     time.Time
}

// QuoteUseCase envía presupuestos de trabajos desde el tablero.
type QuoteUseCase struct {
	items           ItemResolver
	sender          QuoteSender
	defaultTemplate string
	log             *logger.Logger
	now             func() time.Time
}

// NewQuoteUseCase construye el caso de uso.
func NewQuoteUseCase(items ItemResolver, sender QuoteSender, defaultTemplate string, log *logger.Logger) *QuoteUseCase {
	return &QuoteUseCase{
		items:           items,
		sender:          sender,
		defaultTemplate: defaultTemplate,
		log:             log.Component("quotes"),
		now:             time.Now,
	}
}

// Send envía el presupuesto del trabajo itemID. Solo para items de tipo job visibles y
// editables por el actor, y roles con canSendQuotes. templateID vacío usa la plantilla por defecto.
func (uc *QuoteUseCase) Send(ctx context.Context, actor entity.Actor, itemID, templateID string) (*SentQuote, error) {
	if !pipeline.CapabilitiesFor(actor.Role).CanSendQuotes {
		return nil, fmt.Errorf("%w: el rol %s no puede enviar presupuestos", domain.ErrForbidden, actor.Role)
	}
	kind, jobID, err := pipeline.ParseItemID(itemID)
	if err != nil {
		return nil, err
	}
	if kind != pipeline.KindJob {
		return nil, fmt.Errorf("%w: solo los trabajos tienen presupuesto", domain.ErrInvalidInput)
	}

	view, err := uc.items.Item(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}
	if !view.Access.IsEditable {
		return nil, fmt.Errorf("%w: %s no puede modificar %s", domain.ErrForbidden, actor.Label(), itemID)
	}

	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		templateID = uc.defaultTemplate
	}
	if templateID == "" {
		return nil, fmt.Errorf("%w: template_id es obligatorio", domain.ErrInvalidInput)
	}

	if err := uc.sender.SendQuote(domain.WithActor(ctx, actor), jobID, templateID); err != nil {
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("no se pudo enviar el presupuesto")
		return nil, fmt.Errorf("enviar presupuesto: %w", err)
	}
	uc.log.Info().Str("job_id", jobID).Str("template_id", templateID).Str("actor", actor.Label()).Msg("presupuesto enviado")
	return &SentQuote{ItemID: itemID, JobID: jobID, TemplateID: templateID, SentAt: uc.now().UTC()}, nil
}
