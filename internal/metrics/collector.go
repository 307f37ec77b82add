// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// queueCollector exposes how many transfers the download worker pool has in
// flight, pulled at scrape time rather than pushed.
type queueCollector struct {
	queue QueueDepther

	queueDepthDesc *prometheus.Desc
}

func newQueueCollector(queue QueueDepther) *queueCollector {
	return &queueCollector{
		queue: queue,
		queueDepthDesc: prometheus.NewDesc(
			"putioarr_inflight_transfers",
			"Number of transfers currently being downloaded.",
			nil,
			nil,
		),
	}
}

func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queueDepthDesc
}

func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	if c.queue == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(
		c.queueDepthDesc,
		prometheus.GaugeValue,
		float64(c.queue.InFlightCount()),
	)
}
