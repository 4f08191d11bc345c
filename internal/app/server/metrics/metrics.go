package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spratt/internal/domain/transcription"
)

const namespace = "spratt_server"

type Collector struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	ingested       prometheus.Counter
	transcriptions *prometheus.CounterVec
	actions        prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by operation and status code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_ingested_total",
			Help:      "New recordings accepted from clients.",
		}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription attempts by result.",
		}, []string{"result"}),
		actions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_extracted_total",
			Help:      "Actions extracted from transcripts.",
		}),
	}

	c.registry.MustRegister(
		c.requests,
		c.duration,
		c.ingested,
		c.transcriptions,
		c.actions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) ObserveRequest(operation string, code int, elapsed time.Duration) {
	c.requests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	c.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (c *Collector) RecordingIngested() {
	c.ingested.Inc()
}

// ObserveTranscription подходит как transcription.Observer
func (c *Collector) ObserveTranscription(result transcription.Result, actions int) {
	c.transcriptions.WithLabelValues(string(result)).Inc()
	c.actions.Add(float64(actions))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
