// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session holds per-connection conversation state. State lives only
// in memory: a process restart loses every in-flight session, which is fine
// because the audit trail is persisted separately.
package session

import (
	"strings"
	"sync"
)

// Role tags one conversation turn.
type Role string

const (
	RoleSystem    Role = "System"
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

// MaxHistory is the number of user/assistant pairs retained per session.
// A session's history never exceeds 1 + 2*MaxHistory turns: the system
// preamble plus the most recent pairs.
const MaxHistory = 3

// SystemPrompt is the fixed instruction preamble that opens every session.
// The trailing blank line separates the preamble from the first user turn
// in the rendered context; prompt formatting affects model behavior, so
// keep it.
const SystemPrompt = "You are a helpful AI assistant. Answer the user's question concisely and accurately. " +
	"Do not explain your reasoning or thought process. Just provide the answer in 1-3 complete sentences\n\n"

// Turn is one utterance in a conversation.
type Turn struct {
	Role Role
	Text string
}

// Store maps session ids to ordered conversation histories. Safe for
// concurrent use; each websocket handler runs on its own goroutine.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string][]Turn),
	}
}

// Create inserts a new session seeded with the system preamble turn.
// Creating an id that already exists resets it.
func (s *Store) Create(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = []Turn{{Role: RoleSystem, Text: SystemPrompt}}
}

// Append adds a turn to the session's history, then trims the oldest
// excess turns so the count never exceeds 1 + 2*MaxHistory. The system
// turn is always retained. Appending to an absent id is a no-op.
func (s *Store) Append(id string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.sessions[id]
	if !ok {
		return
	}
	history = append(history, turn)
	if len(history) > MaxHistory*2+1 {
		trimmed := make([]Turn, 0, MaxHistory*2+1)
		trimmed = append(trimmed, history[0])
		trimmed = append(trimmed, history[len(history)-MaxHistory*2:]...)
		history = trimmed
	}
	s.sessions[id] = history
}

// Render concatenates the session's turns as "<Role>: <text>" lines and
// appends a trailing "Assistant:" line. The result is the exact context
// string handed to the generation backend. Absent ids render as a bare
// "Assistant:" prompt.
func (s *Store) Render(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b strings.Builder
	for _, turn := range s.sessions[id] {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}

// Remove deletes the session. Idempotent: removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// History returns a copy of the session's turns and whether the id exists.
func (s *Store) History(id string) ([]Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	out := make([]Turn, len(history))
	copy(out, history)
	return out, true
}
