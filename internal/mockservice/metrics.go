// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockservice

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the mock service's Prometheus collectors. Each Server owns a
// registry so several servers can run in one process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PasscodesIssued prometheus.Counter
	BansTotal       prometheus.Counter
	ResponsesTotal  *prometheus.CounterVec
	Completions     prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proctor_mock_requests_total",
				Help: "Total API calls handled",
			},
			[]string{"call", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proctor_mock_request_duration_seconds",
				Help:    "API call duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
			},
			[]string{"call"},
		),
		PasscodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proctor_mock_passcodes_issued_total",
			Help: "Passcodes issued by send-otp",
		}),
		BansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proctor_mock_bans_total",
			Help: "Participants newly banned",
		}),
		ResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proctor_mock_responses_total",
				Help: "Answers recorded",
			},
			[]string{"correct"},
		),
		Completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proctor_mock_completions_total",
			Help: "Tests completed",
		}),
	}
	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.PasscodesIssued,
		m.BansTotal,
		m.ResponsesTotal,
		m.Completions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
