package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

var _ pipelineapp.Metrics = (*Prometheus)(nil)

// Prometheus métricas del pipeline. Todas llevan el prefijo pipeline_.
//
//   - pipeline_batches_total{outcome}
//   - pipeline_transitions_total{kind}
//   - pipeline_automation_total{outcome}
//   - pipeline_feed_loads_total{source}
//   - pipeline_backend_request_duration_seconds{method,resource,status}
type Prometheus struct {
	batches     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	automation  *prometheus.CounterVec
	feedLoads   *prometheus.CounterVec
	backend     *prometheus.HistogramVec
}

// New registra las métricas en reg (prometheus.DefaultRegisterer en producción,
// un registro propio en tests).
func New(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_batches_total",
			Help: "Lotes de transiciones por resultado",
		}, []string{"outcome"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_transitions_total",
			Help: "Items que cambiaron de etapa, por tipo",
		}, []string{"kind"}),
		automation: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_automation_total",
			Help: "Facturas automáticas por resultado",
		}, []string{"outcome"}),
		feedLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_feed_loads_total",
			Help: "Cargas del feed por origen",
		}, []string{"source"}),
		backend: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_backend_request_duration_seconds",
			Help:    "Duración de las peticiones al backend de registros",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "resource", "status"}),
	}
}

// RegisterSessionGauge expone el número de sesiones abiertas.
func RegisterSessionGauge(reg prometheus.Registerer, open func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pipeline_sessions_open",
		Help: "Sesiones de tablero abiertas",
	}, func() float64 { return float64(open()) })
}

func (p *Prometheus) BatchFinished(outcome string) {
	p.batches.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) ItemTransitioned(kind pipeline.Kind) {
	p.transitions.WithLabelValues(string(kind)).Inc()
}

func (p *Prometheus) AutomationFinished(outcome string) {
	p.automation.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) FeedLoaded(source string) {
	p.feedLoads.WithLabelValues(source).Inc()
}

// ObserveBackend firma compatible con backend.RequestObserver.
func (p *Prometheus) ObserveBackend(method, resource string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	p.backend.WithLabelValues(method, resource, code).Observe(elapsed.Seconds())
}
