// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"context"
	"time"

	"github.com/AleutianAI/tidepool/services/chat/audit"
	"github.com/AleutianAI/tidepool/services/chat/gate"
)

// GateObserver feeds generation gate timings into the chat metrics.
type GateObserver struct {
	Metrics *ChatMetrics
}

func (o *GateObserver) GenerationStarted(prompt string) {}

func (o *GateObserver) GenerationFinished(prompt string, err error) {}

func (o *GateObserver) QueueWait(d time.Duration) {
	o.Metrics.RecordGateWait(d)
}

var _ gate.Observer = (*GateObserver)(nil)

// AuditMetricsSink counts audit write outcomes.
type AuditMetricsSink struct {
	Metrics *ChatMetrics
}

func (s *AuditMetricsSink) OnRecordWritten(ctx context.Context, rec audit.Record) {
	s.Metrics.RecordAuditOutcome(true)
}

func (s *AuditMetricsSink) OnWriteFailed(ctx context.Context, rec audit.Record, err error) {
	s.Metrics.RecordAuditOutcome(false)
}

var _ audit.Sink = (*AuditMetricsSink)(nil)
