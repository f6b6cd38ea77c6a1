package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// DragReason motivo que acompaña a toda transición por arrastre.
const DragReason = "Moved via Kanban drag & drop"

// Resultados de lote para métricas.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
	OutcomeNoop       = "noop"
)

// Move un item arrastrado a una columna.
type Move struct {
	ItemID       string
	TargetColumn string
}

// TransitionRequest lote de movimientos. Source es drag (por defecto) o manual;
// las transiciones manuales exigen Reason.
type TransitionRequest struct {
	Moves  []Move
	Source string
	Reason string
}

// ItemFailure fallo de persistencia de un item.
type ItemFailure struct {
	ItemID string
	Err    error
}

// BatchError error agregado de un lote revertido. Envuelve domain.ErrBackend.
type BatchError struct {
	BatchID  string
	Total    int
	Failures []ItemFailure
}

func (e *BatchError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ItemID
	}
	return fmt.Sprintf("lote %s revertido: %d de %d cambios fallaron (%s)",
		e.BatchID, len(e.Failures), e.Total, strings.Join(ids, ", "))
}

func (e *BatchError) Unwrap() error { return domain.ErrBackend }

// TransitionResult resultado de Transition.
type TransitionResult struct {
	BatchID string
	State   BatchState
	Moved   []CommittedTransition
	Skipped []string // items que ya estaban en la etapa destino
}

// CoordinatorDeps dependencias del coordinador. Journal, Cache, Metrics y Automation son opcionales.
type CoordinatorDeps struct {
	Backend    repository.PipelineBackend
	Registry   *pipeline.Registry
	Journal    repository.TransitionLogRepository
	Cache      FeedCache
	Metrics    Metrics
	Automation AutomationTrigger
	Logger     *logger.Logger
	Now        func() time.Time
}

// Coordinator valida y persiste lotes de transiciones de etapa.
type Coordinator struct {
	backend    repository.PipelineBackend
	registry   *pipeline.Registry
	evaluator  *pipeline.Evaluator
	journal    repository.TransitionLogRepository
	cache      FeedCache
	metrics    Metrics
	automation AutomationTrigger
	log        *logger.Logger
	now        func() time.Time
}

// NewCoordinator construye el coordinador.
func NewCoordinator(d CoordinatorDeps) *Coordinator {
	c := &Coordinator{
		backend:    d.Backend,
		registry:   d.Registry,
		journal:    d.Journal,
		cache:      d.Cache,
		metrics:    d.Metrics,
		automation: d.Automation,
		log:        d.Logger.Component("coordinator"),
		now:        d.Now,
	}
	if c.registry == nil {
		c.registry = pipeline.DefaultRegistry
	}
	c.evaluator = pipeline.NewEvaluator(c.registry)
	if c.cache == nil {
		c.cache = nopCache{}
	}
	if c.metrics == nil {
		c.metrics = NopMetrics{}
	}
	if c.automation == nil {
		c.automation = nopAutomation{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Transition valida el lote completo, lo aplica en local y lo persiste.
//
// Cualquier error de validación o permiso rechaza el lote entero antes de tocar el estado
// local o la red. Si falla cualquier escritura al backend, todos los items del lote vuelven
// a su estado previo y se devuelve un *BatchError.
func (c *Coordinator) Transition(ctx context.Context, store *Store, req TransitionRequest) (*TransitionResult, error) {
	actor := store.Actor()
	batch := newBatch(uuid.NewString())
	res := &TransitionResult{BatchID: batch.ID, State: BatchIdle}

	reject := func(err error) (*TransitionResult, error) {
		_ = batch.reject()
		res.State = batch.State()
		c.metrics.BatchFinished(OutcomeRejected)
		c.log.Warn().Err(err).
			Str("batch_id", batch.ID).
			Str("actor", actor.Label()).
			Str("role", actor.Role).
			Msg("lote rechazado")
		return res, err
	}

	source, reason, err := resolveSource(req)
	if err != nil {
		return reject(err)
	}
	if len(req.Moves) == 0 {
		return reject(fmt.Errorf("%w: el lote no contiene movimientos", domain.ErrInvalidInput))
	}

	store.txMu.Lock()
	defer store.txMu.Unlock()

	planned, skipped, err := c.plan(store, actor, source, dedupeMoves(req.Moves))
	if err != nil {
		return reject(err)
	}
	res.Skipped = skipped
	if len(planned) == 0 {
		c.metrics.BatchFinished(OutcomeNoop)
		return res, nil
	}

	if err := batch.apply(store, planned); err != nil {
		return res, err
	}
	res.State = batch.State()

	// Las escrituras no se cancelan una vez lanzadas aunque el cliente abandone la petición.
	pctx := domain.WithActor(context.WithoutCancel(ctx), actor)

	if failures := c.persist(pctx, actor, reason, planned); len(failures) > 0 {
		if err := batch.rollback(store); err != nil {
			return res, err
		}
		res.State = batch.State()
		c.metrics.BatchFinished(OutcomeRolledBack)
		berr := &BatchError{BatchID: batch.ID, Total: len(planned), Failures: failures}
		c.log.Error().Err(berr).Str("batch_id", batch.ID).Msg("lote revertido")
		return res, berr
	}

	if err := batch.commit(); err != nil {
		return res, err
	}
	res.State = batch.State()

	at := c.now().UTC()
	moved := make([]CommittedTransition, len(planned))
	records := make([]entity.TransitionRecord, len(planned))
	for i, m := range planned {
		moved[i] = CommittedTransition{Item: m.After, From: m.Before.Stage, To: m.After.Stage}
		store.Audit().Record(entity.AuditEntry{
			ID:         uuid.NewString(),
			EntityType: string(m.After.Kind),
			EntityID:   m.After.EntityID,
			Action:     entity.AuditActionStageChange,
			Actor:      actor.Label(),
			Timestamp:  at,
			Summary:    fmt.Sprintf("%s → %s: %s", m.Before.Stage, m.After.Stage, reason),
		})
		records[i] = entity.TransitionRecord{
			ID:         uuid.NewString(),
			BatchID:    batch.ID,
			ItemID:     m.After.ID,
			EntityType: string(m.After.Kind),
			EntityID:   m.After.EntityID,
			FromStage:  string(m.Before.Stage),
			ToStage:    string(m.After.Stage),
			Reason:     reason,
			Source:     source,
			Actor:      actor.Label(),
			ActorRole:  actor.Role,
			OccurredAt: at,
		}
		c.metrics.ItemTransitioned(m.After.Kind)
	}
	res.Moved = moved
	c.metrics.BatchFinished(OutcomeCommitted)
	c.log.Info().
		Str("batch_id", batch.ID).
		Str("actor", actor.Label()).
		Int("items", len(planned)).
		Str("source", source).
		Msg("lote confirmado")

	if c.journal != nil {
		if err := c.journal.InsertBatch(pctx, records); err != nil {
			c.log.Warn().Err(err).Str("batch_id", batch.ID).Msg("no se pudo escribir el diario de transiciones")
		}
	}
	c.cache.Invalidate(pctx)
	c.automation.OnCommitted(pctx, actor, moved)

	return res, nil
}

func resolveSource(req TransitionRequest) (source, reason string, err error) {
	switch req.Source {
	case "", entity.TransitionSourceDrag:
		return entity.TransitionSourceDrag, DragReason, nil
	case entity.TransitionSourceManual:
		reason = strings.TrimSpace(req.Reason)
		if reason == "" {
			return "", "", domain.ErrReasonRequired
		}
		return entity.TransitionSourceManual, reason, nil
	default:
		return "", "", fmt.Errorf("%w: origen %q", domain.ErrInvalidInput, req.Source)
	}
}

// dedupeMoves conserva el último destino de cada item, en el orden de su primera aparición.
func dedupeMoves(moves []Move) []Move {
	pos := make(map[string]int, len(moves))
	out := make([]Move, 0, len(moves))
	for _, m := range moves {
		if i, ok := pos[m.ItemID]; ok {
			out[i] = m
			continue
		}
		pos[m.ItemID] = len(out)
		out = append(out, m)
	}
	return out
}

func (c *Coordinator) plan(store *Store, actor entity.Actor, source string, moves []Move) ([]PlannedMove, []string, error) {
	planned := make([]PlannedMove, 0, len(moves))
	var skipped []string
	for _, m := range moves {
		target, ok := c.registry.StageForColumn(m.TargetColumn)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownColumn, m.TargetColumn)
		}
		if _, _, err := pipeline.ParseItemID(m.ItemID); err != nil {
			c.log.Error().Err(err).Str("item_id", m.ItemID).Msg("id de item sin tipo reconocible")
			return nil, nil, err
		}
		// Un item inexistente se rechaza igual que uno no editable.
		item, ok := store.Get(m.ItemID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s no puede modificar %s", domain.ErrForbidden, actor.Label(), m.ItemID)
		}
		access := c.evaluator.Evaluate(actor, item)
		if !access.IsEditable {
			return nil, nil, fmt.Errorf("%w: %s no puede modificar %s", domain.ErrForbidden, actor.Label(), m.ItemID)
		}
		if source == entity.TransitionSourceDrag && !access.CanDragDrop {
			return nil, nil, fmt.Errorf("%w: el rol %s no puede arrastrar tarjetas", domain.ErrForbidden, actor.Role)
		}
		if item.Stage == target {
			skipped = append(skipped, item.ID)
			continue
		}
		planned = append(planned, PlannedMove{Before: item, After: item.WithStage(target)})
	}
	return planned, skipped, nil
}

// persist lanza una escritura por item en paralelo y espera a todas.
func (c *Coordinator) persist(ctx context.Context, actor entity.Actor, reason string, planned []PlannedMove) []ItemFailure {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []ItemFailure
	)
	for _, m := range planned {
		g.Go(func() error {
			if err := c.persistOne(ctx, actor, reason, m.After); err != nil {
				mu.Lock()
				failures = append(failures, ItemFailure{ItemID: m.After.ID, Err: err})
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

func (c *Coordinator) persistOne(ctx context.Context, actor entity.Actor, reason string, it pipeline.Item) error {
	switch it.Kind.WriteMode() {
	case pipeline.WritePatchStage:
		return c.backend.PatchStage(ctx, it.Kind, it.EntityID, repository.StagePatch{
			Stage:     string(it.Stage),
			Reason:    reason,
			UpdatedBy: actor.Label(),
		})
	case pipeline.WriteReplace:
		project, ok := it.ProjectRecord()
		if !ok {
			return errors.New("item de proyecto sin payload")
		}
		return c.backend.ReplaceProject(ctx, project)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEntityKind, it.Kind)
	}
}
