package pipeline_test

import (
	"context"
	"fmt"
	"sync"

	app "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
)

// backendCall registro de una petición al backend falso.
type backendCall struct {
	Method  string
	Path    string
	Patch   repository.StagePatch
	Project entity.Project
	Invoice repository.InvoiceRequest
	Actor   entity.Actor
}

// fakeBackend implementa repository.PipelineBackend en memoria.
type fakeBackend struct {
	mu        sync.Mutex
	calls     []backendCall
	feed      []pipeline.FeedEntry
	feedErr   error
	feedHook  func() error // si no es nil, decide el error de cada LoadFeed
	customers []entity.Customer
	jobs      []entity.Job
	listErr   error
	failPaths map[string]bool // paths que responden 500
}

func newFakeBackend(entries ...pipeline.FeedEntry) *fakeBackend {
	return &fakeBackend{feed: entries, failPaths: map[string]bool{}}
}

func (f *fakeBackend) record(ctx context.Context, c backendCall) {
	c.Actor, _ = domain.ActorFrom(ctx)
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func (f *fakeBackend) fail(path string) {
	f.mu.Lock()
	f.failPaths[path] = true
	f.mu.Unlock()
}

func (f *fakeBackend) result(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[path] {
		return fmt.Errorf("%w: HTTP 500 en %s", domain.ErrBackend, path)
	}
	return nil
}

func (f *fakeBackend) Calls() []backendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backendCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBackend) callsTo(method string) []backendCall {
	var out []backendCall
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) LoadFeed(ctx context.Context) ([]pipeline.FeedEntry, error) {
	f.record(ctx, backendCall{Method: "GET", Path: "pipeline"})
	if f.feedHook != nil {
		if err := f.feedHook(); err != nil {
			return nil, err
		}
		return f.feed, nil
	}
	if f.feedErr != nil {
		return nil, f.feedErr
	}
	return f.feed, nil
}

func (f *fakeBackend) ListCustomers(ctx context.Context) ([]entity.Customer, error) {
	f.record(ctx, backendCall{Method: "GET", Path: "customers"})
	return f.customers, f.listErr
}

func (f *fakeBackend) ListJobs(ctx context.Context) ([]entity.Job, error) {
	f.record(ctx, backendCall{Method: "GET", Path: "jobs"})
	return f.jobs, f.listErr
}

func (f *fakeBackend) PatchStage(ctx context.Context, kind pipeline.Kind, id string, patch repository.StagePatch) error {
	path := kind.Resource() + "/" + id + "/stage"
	f.record(ctx, backendCall{Method: "PATCH", Path: path, Patch: patch})
	return f.result(path)
}

func (f *fakeBackend) ReplaceProject(ctx context.Context, p entity.Project) error {
	path := "projects/" + p.ID
	f.record(ctx, backendCall{Method: "PUT", Path: path, Project: p})
	return f.result(path)
}

func (f *fakeBackend) CreateInvoice(ctx context.Context, req repository.InvoiceRequest) error {
	f.record(ctx, backendCall{Method: "POST", Path: "invoices", Invoice: req})
	return f.result("invoices")
}

func (f *fakeBackend) SendQuote(ctx context.Context, jobID, templateID string) error {
	path := "jobs/" + jobID + "/quotes"
	f.record(ctx, backendCall{Method: "POST", Path: path, Invoice: repository.InvoiceRequest{JobID: jobID, TemplateID: templateID}})
	return f.result(path)
}

// fakeJournal diario en memoria.
type fakeJournal struct {
	mu      sync.Mutex
	records []entity.TransitionRecord
	err     error
}

func (j *fakeJournal) InsertBatch(_ context.Context, records []entity.TransitionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, records...)
	return nil
}

func (j *fakeJournal) ListRecent(_ context.Context, limit int) ([]entity.TransitionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if limit > len(j.records) {
		limit = len(j.records)
	}
	return j.records[:limit], nil
}

// recordingAutomation guarda las invocaciones de la automatización.
type recordingAutomation struct {
	mu    sync.Mutex
	calls [][]string // ids movidos por invocación
}

func (a *recordingAutomation) OnCommitted(_ context.Context, _ entity.Actor, moved []app.CommittedTransition) {
	ids := make([]string, len(moved))
	for i, m := range moved {
		ids[i] = m.Item.ID
	}
	a.mu.Lock()
	a.calls = append(a.calls, ids)
	a.mu.Unlock()
}

// memoryCache caché en memoria con contador de invalidaciones.
type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]pipeline.FeedEntry
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]pipeline.FeedEntry{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]pipeline.FeedEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *memoryCache) Set(_ context.Context, key string, entries []pipeline.FeedEntry) {
	c.mu.Lock()
	c.entries[key] = entries
	c.mu.Unlock()
}

func (c *memoryCache) Invalidate(context.Context) {
	c.mu.Lock()
	c.entries = map[string][]pipeline.FeedEntry{}
	c.invalidated++
	c.mu.Unlock()
}

// countingMetrics cuenta resultados de lote.
type countingMetrics struct {
	app.NopMetrics
	mu      sync.Mutex
	batches map[string]int
	sources map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{batches: map[string]int{}, sources: map[string]int{}}
}

func (m *countingMetrics) BatchFinished(outcome string) {
	m.mu.Lock()
	m.batches[outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) FeedLoaded(source string) {
	m.mu.Lock()
	m.sources[source]++
	m.mu.Unlock()
}
