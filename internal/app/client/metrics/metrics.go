package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spratt/internal/app/client/syncer"
)

const namespace = "spratt_client"

// Collector метрики клиента на отдельном реестре
type Collector struct {
	registry *prometheus.Registry

	staged  prometheus.Gauge
	passes  prometheus.Counter
	uploads *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		staged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staged_records",
			Help:      "Recordings waiting in the local staging store.",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_passes_total",
			Help:      "Completed sync passes.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by result.",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		c.staged,
		c.passes,
		c.uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveStatus обновляет число записей в очереди
func (c *Collector) ObserveStatus(st syncer.Status) {
	c.staged.Set(float64(st.PendingCount))
}

// ObservePass учитывает итог прохода синхронизации
func (c *Collector) ObservePass(r syncer.Result) {
	c.passes.Inc()
	c.uploads.WithLabelValues("synced").Add(float64(r.Synced))
	c.uploads.WithLabelValues("failed").Add(float64(r.Failed))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
