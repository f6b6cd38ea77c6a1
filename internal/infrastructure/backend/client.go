package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
	"github.com/jhoicas/pipeline-api/pkg/logger"
)

// Verificar en tiempo de compilación que Client implementa PipelineBackend.
var _ repository.PipelineBackend = (*Client)(nil)

const maxResponseBytes = 8 << 20

// StatusError respuesta no 2xx del backend. Envuelve domain.ErrBackend.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s %s respondió HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return domain.ErrBackend }

// RequestObserver recibe la duración de cada petición (status 0 = error de red).
type RequestObserver func(method, resource string, status int, elapsed time.Duration)

// Config opciones del cliente.
type Config struct {
	BaseURL string
	Timeout time.Duration
	MaxRPS  float64 // 0 = sin límite
	Burst   int
}

// Client adaptador REST del backend de registros. Reenvía el bearer del actor del contexto.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	observe    RequestObserver
	log        *logger.Logger
}

// NewClient construye el adaptador. observe puede ser nil.
func NewClient(cfg Config, observe RequestObserver, log *logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: BACKEND_BASE_URL inválida %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.MaxRPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}
	if observe == nil {
		observe = func(string, string, int, time.Duration) {}
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		observe:    observe,
		log:        log.Component("backend"),
	}, nil
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// LoadFeed GET pipeline.
func (c *Client) LoadFeed(ctx context.Context) ([]pipeline.FeedEntry, error) {
	body, err := c.do(ctx, http.MethodGet, "pipeline", nil)
	if err != nil {
		return nil, err
	}
	raws, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: feed ilegible: %w", domain.ErrBackend, err)
	}
	entries := make([]pipeline.FeedEntry, 0, len(raws))
	for i, raw := range raws {
		var w feedEntryWire
		if err := json.Unmarshal(raw, &w); err != nil {
			c.log.Warn().Err(err).Int("index", i).Msg("registro del feed ilegible, se omite")
			continue
		}
		e, err := w.toEntry()
		if err != nil {
			c.log.Warn().Err(err).Int("index", i).Msg("registro del feed ilegible, se omite")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ListCustomers GET customers.
func (c *Client) ListCustomers(ctx context.Context) ([]entity.Customer, error) {
	body, err := c.do(ctx, http.MethodGet, "customers", nil)
	if err != nil {
		return nil, err
	}
	raws, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: clientes ilegibles: %w", domain.ErrBackend, err)
	}
	out := make([]entity.Customer, 0, len(raws))
	for i, raw := range raws {
		var w customerWire
		if err := json.Unmarshal(raw, &w); err != nil {
			c.log.Warn().Err(err).Int("index", i).Msg("cliente ilegible, se omite")
			continue
		}
		out = append(out, w.toEntity())
	}
	return out, nil
}

// ListJobs GET jobs.
func (c *Client) ListJobs(ctx context.Context) ([]entity.Job, error) {
	body, err := c.do(ctx, http.MethodGet, "jobs", nil)
	if err != nil {
		return nil, err
	}
	raws, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: trabajos ilegibles: %w", domain.ErrBackend, err)
	}
	out := make([]entity.Job, 0, len(raws))
	for i, raw := range raws {
		var w jobWire
		if err := json.Unmarshal(raw, &w); err != nil {
			c.log.Warn().Err(err).Int("index", i).Msg("trabajo ilegible, se omite")
			continue
		}
		out = append(out, w.toEntity())
	}
	return out, nil
}

// PatchStage PATCH {resource}/{id}/stage.
func (c *Client) PatchStage(ctx context.Context, kind pipeline.Kind, entityID string, patch repository.StagePatch) error {
	if kind.WriteMode() != pipeline.WritePatchStage || !kind.Valid() {
		return fmt.Errorf("%w: %s no admite PATCH de etapa", domain.ErrInvalidInput, kind)
	}
	body, err := json.Marshal(stagePatchWire{Stage: patch.Stage, Reason: patch.Reason, UpdatedBy: patch.UpdatedBy})
	if err != nil {
		return fmt.Errorf("backend: serializar patch: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, kind.Resource()+"/"+url.PathEscape(entityID)+"/stage", body)
	return err
}

// ReplaceProject PUT projects/{id} con el objeto completo.
func (c *Client) ReplaceProject(ctx context.Context, project entity.Project) error {
	body, err := encodeProject(project)
	if err != nil {
		return fmt.Errorf("backend: serializar proyecto: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, "projects/"+url.PathEscape(project.ID), body)
	return err
}

// CreateInvoice POST invoices.
func (c *Client) CreateInvoice(ctx context.Context, req repository.InvoiceRequest) error {
	body, err := json.Marshal(invoiceWire{JobID: req.JobID, TemplateID: req.TemplateID})
	if err != nil {
		return fmt.Errorf("backend: serializar factura: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "invoices", body)
	return err
}

// SendQuote POST jobs/{id}/quotes.
func (c *Client) SendQuote(ctx context.Context, jobID, templateID string) error {
	body, err := json.Marshal(quoteWire{TemplateID: templateID})
	if err != nil {
		return fmt.Errorf("backend: serializar presupuesto: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "jobs/"+url.PathEscape(jobID)+"/quotes", body)
	return err
}

// ── Transporte ────────────────────────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrBackend, method, path, err)
	}

	ref, err := url.Parse("./" + path)
	if err != nil {
		return nil, fmt.Errorf("backend: ruta inválida %q: %w", path, err)
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, fmt.Errorf("backend: crear HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor, ok := domain.ActorFrom(ctx); ok && actor.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+actor.Credential)
	}

	resource := resourceOf(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, resource, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrBackend, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(method, resource, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta de %s %s: %w", domain.ErrBackend, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("backend")
	return raw, nil
}

// resourceOf primer segmento de la ruta (etiqueta de métricas con cardinalidad acotada).
func resourceOf(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
