// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gate serializes access to the shared model backend. The backend's
// execution context is not safe for concurrent use and generation is heavy
// enough that parallel calls thrash instead of overlapping usefully, so at
// most one generation runs process-wide at any instant.
//
// The gate is a single worker goroutine draining a request queue rather
// than a bare mutex: callers that disconnect while queued can walk away
// without holding anything, and the worker always releases the gate when a
// call resolves or errors.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/tidepool/services/llm"
)

// ErrClosed is returned by Generate after Close.
var ErrClosed = errors.New("gate: closed")

// Defaults for every gated call. The values were tuned against the small
// distilled models this gateway fronts; short replies, mild sampling.
var (
	defaultMaxTokens         = 100
	defaultDoSample          = true
	defaultTemperature       = float32(0.5)
	defaultTopP              = float32(0.8)
	defaultRepetitionPenalty = float32(1.4)
)

// defaultStop cuts hallucinated follow-up turns at the backend when it
// honors stop sequences. The sanitizer still enforces the same cut for
// backends that ignore them.
var defaultStop = []string{"\nUser:"}

type request struct {
	ctx    context.Context
	prompt string
	reply  chan result

	enqueued time.Time
}

type result struct {
	text string
	err  error
}

// Observer receives call timing for tests and metrics. May be nil.
type Observer interface {
	// GenerationStarted is called on the worker goroutine immediately
	// before the backend call, GenerationFinished immediately after.
	GenerationStarted(prompt string)
	GenerationFinished(prompt string, err error)

	// QueueWait reports how long a request sat behind the gate.
	QueueWait(d time.Duration)
}

// Gate owns the single generation worker.
type Gate struct {
	backend  llm.LLMClient
	params   llm.GenerationParams
	requests chan request
	done     chan struct{}
	observer Observer
}

// New creates a gate around backend and starts its worker. obs may be nil.
func New(backend llm.LLMClient, obs Observer) *Gate {
	g := &Gate{
		backend: backend,
		params: llm.GenerationParams{
			MaxTokens:         &defaultMaxTokens,
			DoSample:          &defaultDoSample,
			Temperature:       &defaultTemperature,
			TopP:              &defaultTopP,
			RepetitionPenalty: &defaultRepetitionPenalty,
			Stop:              defaultStop,
		},
		requests: make(chan request),
		done:     make(chan struct{}),
		observer: obs,
	}
	go g.worker()
	return g
}

// Generate submits prompt to the worker and blocks until the generation
// resolves. ctx is honored only while waiting for the gate: once the worker
// picks the request up, the call runs to completion even if the caller's
// connection died, and the worker moves on to the next request afterwards.
// There is deliberately no generation timeout.
func (g *Gate) Generate(ctx context.Context, prompt string) (string, error) {
	req := request{
		ctx:      ctx,
		prompt:   prompt,
		reply:    make(chan result, 1),
		enqueued: time.Now(),
	}
	select {
	case g.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-g.done:
		return "", ErrClosed
	}
	res := <-req.reply
	return res.text, res.err
}

// Release forwards a transient-resource release to the backend. Called by
// handlers after each completed turn; failures are advisory.
func (g *Gate) Release(ctx context.Context) error {
	return g.backend.Release(ctx)
}

// Close stops the worker. Pending Generate calls that have not been picked
// up fail with ErrClosed; an in-flight call completes first.
func (g *Gate) Close() {
	close(g.done)
}

func (g *Gate) worker() {
	for {
		select {
		case req := <-g.requests:
			if g.observer != nil {
				g.observer.QueueWait(time.Since(req.enqueued))
				g.observer.GenerationStarted(req.prompt)
			}
			// Detach cancellation but keep values (trace context): a caller
			// that disconnected mid-generation must not abort the backend
			// call, only abandon its result.
			callCtx := context.WithoutCancel(req.ctx)
			text, err := g.backend.Generate(callCtx, req.prompt, g.params)
			if g.observer != nil {
				g.observer.GenerationFinished(req.prompt, err)
			}
			req.reply <- result{text: text, err: err}
		case <-g.done:
			return
		}
	}
}
