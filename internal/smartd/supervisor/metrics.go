// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package supervisor

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/metalbox-io/smartd-go/internal/smartd/registrar"
)

// Metrics is the optional outbound Prometheus exporter (spec SPEC_FULL
// DOMAIN STACK), off by default, enabled by a non-empty listen address.
// It is a one-way observability sink: nothing it serves can alter a
// device's monitoring behavior.
type Metrics struct {
	temperature    *prometheus.GaugeVec
	attributeRaw   *prometheus.GaugeVec
	selfTestErrors *prometheus.GaugeVec
	warningsSent   *prometheus.GaugeVec
	registry       *prometheus.Registry
}

// NewMetrics builds a fresh, independently-registered set of gauges so
// tests can create more than one Metrics instance without colliding on
// the global default registerer.
func NewMetrics() *Metrics {
	m := &Metrics{
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartd_temperature_celsius",
			Help: "Current device temperature in Celsius.",
		}, []string{"device", "identity"}),
		attributeRaw: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartd_attribute_raw_value",
			Help: "Raw value of a SMART attribute as last observed.",
		}, []string{"device", "identity", "attribute"}),
		selfTestErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartd_self_test_log_error_count",
			Help: "Entry count of the device's self-test error log.",
		}, []string{"device", "identity"}),
		warningsSent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smartd_warnings_dispatched_total",
			Help: "Cumulative warning dispatches per device and failure type.",
		}, []string{"device", "identity", "warning_type"}),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.temperature, m.attributeRaw, m.selfTestErrors, m.warningsSent)
	return m
}

// Observe publishes one device's post-cycle state into the gauges (the
// diskhealthmetrics prometheus sink's per-metric With(Labels).Set shape,
// adapted from per-disk-capacity fields to per-device SMART fields).
func (m *Metrics) Observe(dev *registrar.EnrolledDevice) {
	labels := prometheus.Labels{"device": dev.Config.Name, "identity": dev.Identity}
	if dev.Temp.LastTemperature != 0 {
		m.temperature.With(labels).Set(float64(dev.Temp.LastTemperature))
	}
	for id, attr := range dev.Persist.Attributes {
		m.attributeRaw.With(prometheus.Labels{
			"device":    dev.Config.Name,
			"identity":  dev.Identity,
			"attribute": fmt.Sprintf("%d", id),
		}).Set(float64(attr.Raw48))
	}
	m.selfTestErrors.With(labels).Set(float64(dev.Persist.SelfTestErrorCount))
	for typ, throttle := range dev.Persist.Warnings {
		m.warningsSent.With(prometheus.Labels{
			"device":       dev.Config.Name,
			"identity":     dev.Identity,
			"warning_type": typ,
		}).Set(float64(throttle.Count))
	}
}

// Serve starts the /metrics HTTP endpoint in the background, mirroring
// StartPrometheusServer's fire-and-forget goroutine shape.
func (m *Metrics) Serve(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
		log.Info().Str("addr", addr).Msg("starting smartd metrics server")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}
