// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit persists one chat log record per completed conversation
// turn. Records survive process restarts; in-memory session state does not.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// Record is one immutable chat log entry.
type Record struct {
	ID          int64     `db:"id"`
	SessionID   string    `db:"session_id"`
	UserMessage string    `db:"user_message"`
	AIResponse  string    `db:"ai_response"`
	Timestamp   time.Time `db:"timestamp"`
}

// Writer is the persistence capability the async logger needs.
type Writer interface {
	Insert(ctx context.Context, rec Record) error
}

// Store is the sqlite-backed chat log store.
type Store struct {
	db *sqlx.DB
}

// Connect opens the database for the given DSN.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the chat log database: %w", err)
	}
	return db, nil
}

// NewStore ensures the chat_logs schema exists and returns the store.
func NewStore(db *sqlx.DB) (*Store, error) {
	createChatLogsTable := `
	CREATE TABLE IF NOT EXISTS chat_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_message TEXT NOT NULL,
		ai_response TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)
	`
	if _, err := db.Exec(createChatLogsTable); err != nil {
		return nil, fmt.Errorf("failed to create chat_logs table: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert appends one record. The timestamp column defaults to insertion
// time unless the record carries one.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		insertQuery := `INSERT INTO chat_logs (session_id, user_message, ai_response)
			VALUES (?, ?, ?)`
		if _, err := s.db.ExecContext(ctx, insertQuery,
			rec.SessionID, rec.UserMessage, rec.AIResponse); err != nil {
			return fmt.Errorf("failed to insert chat log for session %s: %w", rec.SessionID, err)
		}
		return nil
	}
	insertQuery := `INSERT INTO chat_logs (session_id, user_message, ai_response, timestamp)
		VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, insertQuery,
		rec.SessionID, rec.UserMessage, rec.AIResponse, rec.Timestamp); err != nil {
		return fmt.Errorf("failed to insert chat log for session %s: %w", rec.SessionID, err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []Record
	err := s.db.SelectContext(ctx, &records,
		"SELECT id, session_id, user_message, ai_response, timestamp FROM chat_logs ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat logs: %w", err)
	}
	return records, nil
}

// BySessionID returns all records for one session in insertion order.
func (s *Store) BySessionID(ctx context.Context, sessionID string) ([]Record, error) {
	var records []Record
	err := s.db.SelectContext(ctx, &records,
		"SELECT id, session_id, user_message, ai_response, timestamp FROM chat_logs WHERE session_id = ? ORDER BY id ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat logs for session_id %s: %w", sessionID, err)
	}
	return records, nil
}
