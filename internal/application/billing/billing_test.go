package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pipeline-api/internal/application/billing"
	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Backend falso
// ──────────────────────────────────────────────────────────────────────────────

type call struct {
	method, path string
	stage        string
	reason       string
	invoice      repository.InvoiceRequest
	template     string
	credential   string
}

type fakeBackend struct {
	mu         sync.Mutex
	calls      []call
	feed       []pipeline.FeedEntry
	invoiceErr error
	quoteErr   error
}

func (f *fakeBackend) add(ctx context.Context, c call) {
	if a, ok := domain.ActorFrom(ctx); ok {
		c.credential = a.Credential
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeBackend) byMethod(method string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) LoadFeed(ctx context.Context) ([]pipeline.FeedEntry, error) {
	f.add(ctx, call{method: "GET", path: "pipeline"})
	return f.feed, nil
}
func (f *fakeBackend) ListCustomers(context.Context) ([]entity.Customer, error) { return nil, nil }
func (f *fakeBackend) ListJobs(context.Context) ([]entity.Job, error)           { return nil, nil }
func (f *fakeBackend) PatchStage(ctx context.Context, kind pipeline.Kind, id string, p repository.StagePatch) error {
	f.add(ctx, call{method: "PATCH", path: kind.Resource() + "/" + id + "/stage", stage: p.Stage, reason: p.Reason})
	return nil
}
func (f *fakeBackend) ReplaceProject(ctx context.Context, p entity.Project) error {
	f.add(ctx, call{method: "PUT", path: "projects/" + p.ID, stage: p.Stage})
	return nil
}
func (f *fakeBackend) CreateInvoice(ctx context.Context, req repository.InvoiceRequest) error {
	f.add(ctx, call{method: "POST", path: "invoices", invoice: req})
	return f.invoiceErr
}
func (f *fakeBackend) SendQuote(ctx context.Context, jobID, templateID string) error {
	f.add(ctx, call{method: "POST", path: "jobs/" + jobID + "/quotes", template: templateID})
	return f.quoteErr
}

type outcomes struct {
	pipelineapp.NopMetrics
	mu  sync.Mutex
	got map[string]int
}

func (o *outcomes) AutomationFinished(outcome string) {
	o.mu.Lock()
	if o.got == nil {
		o.got = map[string]int{}
	}
	o.got[outcome]++
	o.mu.Unlock()
}

var (
	jane = entity.Actor{ID: "u-jane", Name: "Jane", Email: "jane@co", Role: entity.RoleSalesRep, Credential: "tok-jane"}
	bob  = entity.Actor{ID: "u-bob", Name: "Bob", Email: "bob@co", Role: entity.RoleSalesRep}
)

func feed() []pipeline.FeedEntry {
	return []pipeline.FeedEntry{
		{Job: &entity.Job{ID: "123", Stage: "Quoted", Salesperson: "jane@co"}},
		{Job: &entity.Job{ID: "124", Stage: "Production", Salesperson: "jane@co"}},
		{Project: &entity.Project{ID: "9", Name: "Loft", Stage: "Quoted", Salesperson: "jane@co"}},
	}
}

type stack struct {
	backend    *fakeBackend
	metrics    *outcomes
	automation *billing.InvoiceAutomation
	board      *pipelineapp.BoardUseCase
}

func newStack(templateID string) *stack {
	s := &stack{backend: &fakeBackend{feed: feed()}, metrics: &outcomes{}}
	s.automation = billing.NewInvoiceAutomation(s.backend, templateID, s.metrics, logger.Nop())
	coord := pipelineapp.NewCoordinator(pipelineapp.CoordinatorDeps{
		Backend:    s.backend,
		Automation: s.automation,
		Logger:     logger.Nop(),
	})
	sessions := pipelineapp.NewSessionRegistry(pipelineapp.SessionConfig{}, logger.Nop())
	loader := pipelineapp.NewLoader(s.backend, nil, nil, nil, logger.Nop())
	s.board = pipelineapp.NewBoardUseCase(sessions, loader, coord, nil, logger.Nop())
	return s
}

func dragTo(id, col string) pipelineapp.TransitionRequest {
	return pipelineapp.TransitionRequest{Moves: []pipelineapp.Move{{ItemID: id, TargetColumn: col}}}
}

// ──────────────────────────────────────────────────────────────────────────────
// Regla de automatización
// ──────────────────────────────────────────────────────────────────────────────

func TestShouldCreateInvoice_Tabla(t *testing.T) {
	for _, kind := range pipeline.Kinds {
		for _, info := range pipeline.DefaultRegistry.Stages() {
			for _, role := range entity.Roles {
				want := kind == pipeline.KindJob && info.Stage == pipeline.StageAccepted &&
					(role == entity.RoleOwner || role == entity.RoleAccessAdmin || role == entity.RoleSalesRep)
				assert.Equal(t, want, billing.ShouldCreateInvoice(kind, info.Stage, role),
					"kind=%s stage=%s role=%s", kind, info.Stage, role)
			}
		}
	}
}

func TestInvoiceAutomation_TrabajoAceptadoCreaFactura(t *testing.T) {
	s := newStack("tpl-invoice")

	_, err := s.board.Move(context.Background(), jane, dragTo("job-123", "col-accepted"))
	require.NoError(t, err)
	s.automation.Wait()

	patches := s.backend.byMethod("PATCH")
	require.Len(t, patches, 1)
	assert.Equal(t, "jobs/123/stage", patches[0].path)
	assert.Equal(t, "Accepted", patches[0].stage)
	assert.Equal(t, pipelineapp.DragReason, patches[0].reason)

	posts := s.backend.byMethod("POST")
	require.Len(t, posts, 1)
	assert.Equal(t, "invoices", posts[0].path)
	assert.Equal(t, repository.InvoiceRequest{JobID: "123", TemplateID: "tpl-invoice"}, posts[0].invoice)
	assert.Equal(t, "tok-jane", posts[0].credential)
	assert.Len(t, s.board.Audit(jane), 1)
	assert.Equal(t, 1, s.metrics.got[billing.AutomationCreated])
}

func TestInvoiceAutomation_OtrosCasosNoFacturan(t *testing.T) {
	cases := []struct {
		name  string
		actor entity.Actor
		req   pipelineapp.TransitionRequest
	}{
		{"proyecto a aceptado", jane, dragTo("project-9", "col-accepted")},
		{"trabajo a otra etapa", jane, dragTo("job-123", "col-on-hold")},
		{"rol sin envío de presupuestos", entity.Actor{ID: "p", Role: entity.RoleProductionStaff}, dragTo("job-124", "col-accepted")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStack("tpl")
			_, err := s.board.Move(context.Background(), tc.actor, tc.req)
			require.NoError(t, err)
			s.automation.Wait()
			assert.Empty(t, s.backend.byMethod("POST"))
		})
	}
}

func TestInvoiceAutomation_FalloNoRevierteLaTransicion(t *testing.T) {
	s := newStack("tpl")
	s.backend.invoiceErr = domain.ErrBackend

	res, err := s.board.Move(context.Background(), jane, dragTo("job-123", "col-accepted"))
	require.NoError(t, err)
	s.automation.Wait()

	assert.Equal(t, pipelineapp.BatchCommitted, res.State)
	v, err := s.board.Item(context.Background(), jane, "job-123")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageAccepted, v.Item.Stage)
	assert.Equal(t, 1, s.metrics.got[billing.AutomationFailed])
}

func TestInvoiceAutomation_SinPlantillaSeOmite(t *testing.T) {
	s := newStack("")
	_, err := s.board.Move(context.Background(), jane, dragTo("job-123", "col-accepted"))
	require.NoError(t, err)
	s.automation.Wait()

	assert.Empty(t, s.backend.byMethod("POST"))
	assert.Equal(t, 1, s.metrics.got[billing.AutomationSkipped])
}

// ──────────────────────────────────────────────────────────────────────────────
// Envío de presupuestos
// ──────────────────────────────────────────────────────────────────────────────

func TestQuoteUseCase_Send(t *testing.T) {
	s := newStack("tpl")
	uc := billing.NewQuoteUseCase(s.board, s.backend, "tpl-quote", logger.Nop())
	ctx := context.Background()

	sent, err := uc.Send(ctx, jane, "job-123", "")
	require.NoError(t, err)
	assert.Equal(t, "123", sent.JobID)
	assert.Equal(t, "tpl-quote", sent.TemplateID)

	sent, err = uc.Send(ctx, jane, "job-123", " tpl-x ")
	require.NoError(t, err)
	assert.Equal(t, "tpl-x", sent.TemplateID)

	posts := s.backend.byMethod("POST")
	require.Len(t, posts, 2)
	assert.Equal(t, "jobs/123/quotes", posts[0].path)
	assert.Equal(t, "tok-jane", posts[0].credential)
}

func TestQuoteUseCase_Rechazos(t *testing.T) {
	s := newStack("tpl")
	uc := billing.NewQuoteUseCase(s.board, s.backend, "tpl-quote", logger.Nop())
	ctx := context.Background()

	_, err := uc.Send(ctx, bob, "job-123", "")
	assert.ErrorIs(t, err, domain.ErrNotFound, "item no visible para bob")

	_, err = uc.Send(ctx, entity.Actor{ID: "p", Role: entity.RoleProductionStaff}, "job-124", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Send(ctx, jane, "project-9", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Send(ctx, jane, "quote-1", "")
	assert.ErrorIs(t, err, domain.ErrUnknownEntityKind)

	s.backend.quoteErr = domain.ErrBackend
	_, err = uc.Send(ctx, jane, "job-123", "")
	assert.True(t, errors.Is(err, domain.ErrBackend))

	assert.Len(t, s.backend.byMethod("POST"), 1, "solo el último intento llega al backend")
}
