package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// ItemView item visible para el actor con su decisión de acceso.
// Los importes ya vienen ocultos si el rol no puede verlos.
type ItemView struct {
	Item   pipeline.Item
	Access pipeline.Access
}

// Column columna del tablero.
type Column struct {
	Info  pipeline.StageInfo
	Items []ItemView
}

// Board tablero Kanban filtrado.
type Board struct {
	Columns  []Column
	Total    int
	LoadedAt time.Time
}

// BoardUseCase orquesta las sesiones, la carga y las consultas del tablero.
type BoardUseCase struct {
	sessions    *SessionRegistry
	loader      *Loader
	coordinator *Coordinator
	registry    *pipeline.Registry
	evaluator   *pipeline.Evaluator
	filter      *pipeline.Filter
	now         func() time.Time
	log         *logger.Logger
}

// NewBoardUseCase construye el caso de uso.
func NewBoardUseCase(sessions *SessionRegistry, loader *Loader, coordinator *Coordinator, reg *pipeline.Registry, log *logger.Logger) *BoardUseCase {
	if reg == nil {
		reg = pipeline.DefaultRegistry
	}
	return &BoardUseCase{
		sessions:    sessions,
		loader:      loader,
		coordinator: coordinator,
		registry:    reg,
		evaluator:   pipeline.NewEvaluator(reg),
		filter:      pipeline.NewFilter(reg),
		now:         time.Now,
		log:         log.Component("board"),
	}
}

// SetClock reemplaza el reloj (tests de filtros por fecha).
func (uc *BoardUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Session devuelve el store del actor, cargándolo la primera vez.
// Si el store esperado deja de estar registrado mientras se espera su carga, se vuelve a abrir.
func (uc *BoardUseCase) Session(ctx context.Context, actor entity.Actor) (*Store, error) {
	for {
		store, _ := uc.sessions.Open(actor)
		if store.Loaded() {
			return store, nil
		}
		loaded, retry, err := uc.loadSession(ctx, actor, store)
		if retry {
			continue
		}
		return loaded, err
	}
}

func (uc *BoardUseCase) loadSession(ctx context.Context, actor entity.Actor, store *Store) (*Store, bool, error) {
	store.txMu.Lock()
	defer store.txMu.Unlock()
	if store.Loaded() {
		return store, false, nil
	}
	if !uc.sessions.Holds(actor.ID, store) {
		return nil, true, nil
	}
	items, err := uc.loader.Load(ctx, actor, false)
	if err != nil {
		uc.sessions.Discard(actor.ID, store)
		return nil, false, err
	}
	store.Replace(items, uc.now())
	return store, false, nil
}

// Reload recarga el tablero desde el backend ignorando la caché.
func (uc *BoardUseCase) Reload(ctx context.Context, actor entity.Actor) (*Store, error) {
	store, _ := uc.sessions.Open(actor)

	store.txMu.Lock()
	defer store.txMu.Unlock()
	items, err := uc.loader.Load(ctx, actor, true)
	if err != nil {
		return nil, err
	}
	store.Replace(items, uc.now())
	return store, nil
}

// Close descarta la sesión del actor.
func (uc *BoardUseCase) Close(actor entity.Actor) bool {
	return uc.sessions.Close(actor.ID)
}

// Capabilities capacidades globales del rol del actor.
func (uc *BoardUseCase) Capabilities(actor entity.Actor) pipeline.Capabilities {
	return pipeline.CapabilitiesFor(actor.Role)
}

// Stages registro de etapas en orden.
func (uc *BoardUseCase) Stages() []pipeline.StageInfo {
	return uc.registry.Stages()
}

// Items lista plana de items visibles que cumplen los criterios.
func (uc *BoardUseCase) Items(ctx context.Context, actor entity.Actor, c pipeline.Criteria) ([]ItemView, error) {
	store, err := uc.Session(ctx, actor)
	if err != nil {
		return nil, err
	}
	visible := uc.visible(actor, store.Items())
	filtered := uc.filter.Apply(itemsOf(visible), c, uc.now())

	byID := make(map[string]ItemView, len(visible))
	for _, v := range visible {
		byID[v.Item.ID] = v
	}
	out := make([]ItemView, 0, len(filtered))
	for _, it := range filtered {
		out = append(out, byID[it.ID])
	}
	return out, nil
}

// Board items visibles agrupados por columna, en el orden del registro.
func (uc *BoardUseCase) Board(ctx context.Context, actor entity.Actor, c pipeline.Criteria) (*Board, error) {
	views, err := uc.Items(ctx, actor, c)
	if err != nil {
		return nil, err
	}
	store, _ := uc.sessions.Get(actor.ID)

	stages := uc.registry.Stages()
	pos := make(map[pipeline.Stage]int, len(stages))
	board := &Board{Columns: make([]Column, len(stages)), Total: len(views)}
	for i, info := range stages {
		pos[info.Stage] = i
		board.Columns[i] = Column{Info: info, Items: []ItemView{}}
	}
	for _, v := range views {
		i, ok := pos[v.Item.Stage]
		if !ok {
			continue
		}
		board.Columns[i].Items = append(board.Columns[i].Items, v)
	}
	if store != nil {
		board.LoadedAt = store.LoadedAt()
	}
	return board, nil
}

// Facets valores distintos entre los items visibles.
func (uc *BoardUseCase) Facets(ctx context.Context, actor entity.Actor) (pipeline.FacetSet, error) {
	store, err := uc.Session(ctx, actor)
	if err != nil {
		return pipeline.FacetSet{}, err
	}
	return uc.filter.Facets(itemsOf(uc.visible(actor, store.Items()))), nil
}

// Item un item visible para el actor.
func (uc *BoardUseCase) Item(ctx context.Context, actor entity.Actor, id string) (ItemView, error) {
	store, err := uc.Session(ctx, actor)
	if err != nil {
		return ItemView{}, err
	}
	it, ok := store.Get(id)
	if !ok {
		return ItemView{}, fmt.Errorf("%w: item %q", domain.ErrNotFound, id)
	}
	access := uc.evaluator.Evaluate(actor, it)
	if !access.IsVisible {
		return ItemView{}, fmt.Errorf("%w: item %q", domain.ErrNotFound, id)
	}
	return uc.view(it, access), nil
}

// Move aplica un lote de transiciones sobre la sesión del actor (cargándola si hace falta).
func (uc *BoardUseCase) Move(ctx context.Context, actor entity.Actor, req TransitionRequest) (*TransitionResult, error) {
	store, err := uc.Session(ctx, actor)
	if err != nil {
		return nil, err
	}
	return uc.coordinator.Transition(ctx, store, req)
}

// Audit últimas transiciones de la sesión, la más reciente primero.
// Sin sesión abierta devuelve una lista vacía.
func (uc *BoardUseCase) Audit(actor entity.Actor) []entity.AuditEntry {
	store, ok := uc.sessions.Get(actor.ID)
	if !ok {
		return []entity.AuditEntry{}
	}
	return store.Audit().Entries()
}

func (uc *BoardUseCase) visible(actor entity.Actor, items []pipeline.Item) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		access := uc.evaluator.Evaluate(actor, it)
		if !access.IsVisible {
			continue
		}
		out = append(out, uc.view(it, access))
	}
	return out
}

func (uc *BoardUseCase) view(it pipeline.Item, access pipeline.Access) ItemView {
	if !access.CanViewFinancials {
		it = it.WithoutFinancials()
	}
	return ItemView{Item: it, Access: access}
}

func itemsOf(views []ItemView) []pipeline.Item {
	out := make([]pipeline.Item, len(views))
	for i, v := range views {
		out[i] = v.Item
	}
	return out
}
