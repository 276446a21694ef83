package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PEEL_TIME     = "onionPeelTime"
	LAYERS_PEELED = "onionLayersPeeled"
	ONION_SIZE    = "onionSizeBytes"
	MSG_SENT      = "messagesSent"
	MSG_RECEIVED  = "messagesReceived"
)

// Outcome label values for LAYERS_PEELED and MSG_SENT.
const (
	OutcomeForwarded     = "forwarded"
	OutcomeRejected      = "rejected"
	OutcomeRateLimited   = "rate_limited"
	OutcomeForwardFailed = "forward_failed"
	OutcomeSent          = "sent"
	OutcomeFailed        = "failed"
)

var collectorMap = map[string]prometheus.Collector{
	PEEL_TIME: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    PEEL_TIME,
		Help:    "Time spent peeling one onion layer in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"node"}),
	LAYERS_PEELED: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: LAYERS_PEELED,
			Help: "Number of onions a relay received, by outcome",
		},
		[]string{"node", "outcome"},
	),
	ONION_SIZE: prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ONION_SIZE,
		Help:    "Size in bytes of onions handed to the transport",
		Buckets: prometheus.ExponentialBuckets(256, 2, 10),
	}),
	MSG_SENT: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: MSG_SENT,
			Help: "Number of messages a user tried to send, by outcome",
		},
		[]string{"node", "outcome"},
	),
	MSG_RECEIVED: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: MSG_RECEIVED,
			Help: "Number of messages delivered to a user",
		},
		[]string{"node"},
	),
}

// Registry holds every collector of this package plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range collectorMap {
		Registry.MustRegister(c)
	}
}

func toStrings(labels []any) []string {
	return utils.Map(labels, func(label any) string {
		return fmt.Sprintf("%v", label)
	})
}

func Observe(id string, value float64, labels ...any) {
	if len(labels) == 0 {
		if collector, ok := collectorMap[id].(prometheus.Observer); ok {
			collector.Observe(value)
		} else {
			slog.Error("Failed to find observer", "id", id)
		}
		return
	}
	if collector, ok := collectorMap[id].(prometheus.ObserverVec); ok {
		collector.WithLabelValues(toStrings(labels)...).Observe(value)
	} else {
		slog.Error("Failed to find observerVec", "id", id)
	}
}

func Inc(id string, labels ...any) {
	if len(labels) == 0 {
		if collector, ok := collectorMap[id].(prometheus.Counter); ok {
			collector.Inc()
		} else {
			slog.Error("Failed to find counter", "id", id)
		}
		return
	}
	if collector, ok := collectorMap[id].(*prometheus.CounterVec); ok {
		collector.WithLabelValues(toStrings(labels)...).Inc()
	} else {
		slog.Error("Failed to find counterVec", "id", id)
	}
}

// Since observes the seconds elapsed since start.
func Since(id string, start time.Time, labels ...any) {
	Observe(id, time.Since(start).Seconds(), labels...)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func ServeMetrics(prometheusPort int) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", prometheusPort),
		Handler: mux,
	}

	go func(server *http.Server) {
		slog.Info("Starting Prometheus server", "Addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start Prometheus server", "error", err)
		}
	}(server)

	return func() {
		slog.Info("Shutting down Prometheus server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Prometheus server forced to shutdown", "error", err)
		} else {
			slog.Info("Prometheus server gracefully stopped")
		}
	}
}
