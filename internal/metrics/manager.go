// Package metrics exposes the bridge's Prometheus metrics: a custom
// queue-depth collector pulled at scrape time plus a handful of counters.
// The download worker pool pushes to TransfersCompleted, TransfersFailed and
// BytesDownloaded; NotifyFailures is registered but nothing in the bridge
// increments it, so it stays at zero.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// QueueDepther reports how many transfers currently have outstanding
// download targets — satisfied by download.Service.
type QueueDepther interface {
	InFlightCount() int
}

// Manager owns the registry and every bridge-specific metric.
type Manager struct {
	registry *prometheus.Registry

	TransfersCompleted prometheus.Counter
	TransfersFailed    prometheus.Counter
	BytesDownloaded    prometheus.Counter
	NotifyFailures     prometheus.Counter
}

// NewManager builds a Manager and registers the process collector, the Go
// runtime collector, the queue-depth collector, and the push-style counters.
func NewManager(queue QueueDepther) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	queueCollector := newQueueCollector(queue)
	registry.MustRegister(queueCollector)

	m := &Manager{
		registry: registry,
		TransfersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "putioarr_transfers_completed_total",
			Help: "Total number of transfers fully downloaded and cleaned up.",
		}),
		TransfersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "putioarr_transfers_failed_total",
			Help: "Total number of transfers that failed unrecoverably.",
		}),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "putioarr_bytes_downloaded_total",
			Help: "Total bytes streamed to disk by the download worker pool.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "putioarr_notify_failures_total",
			Help: "Total number of failed media-manager notification attempts.",
		}),
	}

	registry.MustRegister(m.TransfersCompleted, m.TransfersFailed, m.BytesDownloaded, m.NotifyFailures)

	log.Info().Msg("Metrics manager initialized")

	return m
}

// Registry returns the registry to expose at /metrics.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}
