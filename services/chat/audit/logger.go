// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// writeTimeout bounds one insert so a wedged database cannot pin the
// writer goroutine forever.
const writeTimeout = 10 * time.Second

// Sink receives the outcome of every submitted record. The default is a
// no-op; tests and monitoring inject their own.
type Sink interface {
	OnRecordWritten(ctx context.Context, rec Record)
	OnWriteFailed(ctx context.Context, rec Record, err error)
}

type noopSink struct{}

func (noopSink) OnRecordWritten(ctx context.Context, rec Record) {}

func (noopSink) OnWriteFailed(ctx context.Context, rec Record, err error) {}

// DefaultSink is the no-op outcome sink.
var DefaultSink Sink = noopSink{}

// Logger persists chat log records asynchronously. Submissions are
// fire-and-forget from the connection handler's point of view: a write
// failure is reported through the sink and the operational log, never to
// the client, and is not retried. Records accepted by Log are never
// dropped before their outcome reaches the sink; Close drains the queue.
type Logger struct {
	store Writer
	sink  Sink

	// mu orders Log submissions against Close: websocket handlers are
	// hijacked connections, so server shutdown cannot guarantee they have
	// returned before the logger is closed.
	mu     sync.RWMutex
	closed bool

	queue chan Record
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewLogger starts the writer goroutine. sink may be nil for the default.
func NewLogger(store Writer, sink Sink) *Logger {
	if sink == nil {
		sink = DefaultSink
	}
	l := &Logger{
		store: store,
		sink:  sink,
		queue: make(chan Record, 64),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Log enqueues one record. Blocks only if the queue is full, which keeps
// backpressure on a failing store visible instead of silently dropping
// audit records. A record submitted after Close is dropped with a warning
// instead of panicking the process.
func (l *Logger) Log(sessionID, userMessage, aiResponse string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		slog.Warn("Chat log record submitted after shutdown, dropping",
			"sessionID", sessionID)
		return
	}
	l.queue <- Record{
		SessionID:   sessionID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
	}
}

// Close stops accepting records and blocks until every accepted record's
// outcome has been observed.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.queue)
	})
	l.wg.Wait()
}

func (l *Logger) run() {
	defer l.wg.Done()
	for rec := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := l.store.Insert(ctx, rec)
		if err != nil {
			slog.Warn("Failed to write chat log record",
				"sessionID", rec.SessionID, "error", err)
			l.sink.OnWriteFailed(ctx, rec, err)
		} else {
			l.sink.OnRecordWritten(ctx, rec)
		}
		cancel()
	}
}
