package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the console
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, route, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // QueueReplays counts replayed offline actions by kind and outcome (succeeded, retained, discarded)
    QueueReplays = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "offline_queue_replays_total", Help: "Offline action replays by kind and outcome."},
        []string{"kind", "outcome"},
    )
    // QueueDepth is the number of actions waiting to be replayed
    QueueDepth = prometheus.NewGauge(
        prometheus.GaugeOpts{Name: "offline_queue_depth", Help: "Pending offline actions."},
    )
    // DrainDuration tracks how long a full drain pass takes
    DrainDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "offline_queue_drain_seconds", Help: "Offline queue drain duration in seconds.", Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30}},
    )
    // ReconcileAdvisories counts mixed payments whose cash portion could not be read from notes
    ReconcileAdvisories = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "reconcile_advisories_total", Help: "Reconciliation advisories by payment category."},
        []string{"category"},
    )
)

// RegisterDefault registers collectors to the console registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(QueueReplays)
        Registry.MustRegister(QueueDepth)
        Registry.MustRegister(DrainDuration)
        Registry.MustRegister(ReconcileAdvisories)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
