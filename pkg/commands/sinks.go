// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"os"

	"github.com/metalbox-io/smartd-go/internal/smartd/supervisor"
)

// newMetricsSink builds and starts the optional Prometheus exporter.
func newMetricsSink(addr string) *supervisor.Metrics {
	m := supervisor.NewMetrics()
	m.Serve(addr)
	return m
}

// attachEventsSink connects the optional NATS events sink and wires it
// into cfg, tagging every published event with the local hostname.
func attachEventsSink(cfg *supervisor.Config, natsURL string) error {
	nodeName, err := os.Hostname()
	if err != nil {
		nodeName = "unknown"
	}
	events, err := supervisor.NewEvents(natsURL, nodeName)
	if err != nil {
		return err
	}
	cfg.Events = events
	return nil
}
