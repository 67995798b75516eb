// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the chat gateway:
// turn counters, generation latency and queue-wait histograms, active
// session gauges, and audit write outcomes. Exposed via /metrics for
// Prometheus + Grafana. All operations are thread-safe via Prometheus's
// internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tidepool"

const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for chat operations.
// Initialize once at startup via InitMetrics().
type ChatMetrics struct {
	// TurnsTotal counts completed conversation turns by status.
	// Labels: status (success, error)
	TurnsTotal *prometheus.CounterVec

	// GenerationSeconds measures gated generation latency.
	GenerationSeconds prometheus.Histogram

	// GateWaitSeconds measures time spent queued behind the generation gate.
	GateWaitSeconds prometheus.Histogram

	// ActiveSessions tracks currently connected websocket sessions.
	ActiveSessions prometheus.Gauge

	// AuditRecordsTotal counts audit log write outcomes.
	// Labels: status (written, failed)
	AuditRecordsTotal *prometheus.CounterVec

	// ClientDisconnectsTotal counts client-initiated disconnections.
	ClientDisconnectsTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all chat metrics. Call once at startup;
// a second call panics on duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turns_total",
				Help:      "Total completed conversation turns by status",
			},
			[]string{"status"},
		),

		GenerationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "generation_seconds",
				Help:      "Gated generation call latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		GateWaitSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "gate_wait_seconds",
				Help:      "Time spent queued behind the generation gate in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
			},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_sessions",
				Help:      "Number of currently connected websocket sessions",
			},
		),

		AuditRecordsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "audit_records_total",
				Help:      "Total audit log write outcomes by status",
			},
			[]string{"status"},
		),

		ClientDisconnectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total client-initiated websocket disconnections",
			},
		),
	}

	return DefaultMetrics
}

// RecordTurn records a completed conversation turn.
func (m *ChatMetrics) RecordTurn(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.TurnsTotal.WithLabelValues(status).Inc()
}

// RecordGeneration records one gated generation call's latency.
func (m *ChatMetrics) RecordGeneration(d time.Duration) {
	m.GenerationSeconds.Observe(d.Seconds())
}

// RecordGateWait records time a request spent queued behind the gate.
func (m *ChatMetrics) RecordGateWait(d time.Duration) {
	m.GateWaitSeconds.Observe(d.Seconds())
}

// SessionOpened increments the active sessions gauge.
func (m *ChatMetrics) SessionOpened() {
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (m *ChatMetrics) SessionClosed() {
	m.ActiveSessions.Dec()
}

// RecordAuditOutcome records one audit log write outcome.
func (m *ChatMetrics) RecordAuditOutcome(written bool) {
	status := "written"
	if !written {
		status = "failed"
	}
	m.AuditRecordsTotal.WithLabelValues(status).Inc()
}

// RecordClientDisconnect increments the client disconnect counter.
func (m *ChatMetrics) RecordClientDisconnect() {
	m.ClientDisconnectsTotal.Inc()
}
