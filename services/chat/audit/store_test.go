// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a throwaway sqlite database in the test's temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "chat_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

// TestStore_SchemaEnsureIsIdempotent verifies NewStore can run against an
// already-initialized database.
func TestStore_SchemaEnsureIsIdempotent(t *testing.T) {
	db, err := Connect(filepath.Join(t.TempDir(), "chat_test.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = NewStore(db)
	require.NoError(t, err)
	_, err = NewStore(db)
	require.NoError(t, err)
}

// TestStore_InsertDefaultsTimestamp verifies a record inserted without a
// timestamp gets one from the database.
func TestStore_InsertDefaultsTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Insert(ctx, Record{
		SessionID:   "s1",
		UserMessage: "What is 2+2?",
		AIResponse:  "4.",
	})
	require.NoError(t, err)

	records, err := store.BySessionID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "What is 2+2?", records[0].UserMessage)
	assert.Equal(t, "4.", records[0].AIResponse)
	assert.False(t, records[0].Timestamp.IsZero())
	assert.Positive(t, records[0].ID)
}

// TestStore_InsertKeepsExplicitTimestamp verifies a provided timestamp is
// persisted as-is.
func TestStore_InsertKeepsExplicitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := store.Insert(ctx, Record{
		SessionID:   "s1",
		UserMessage: "q",
		AIResponse:  "a",
		Timestamp:   ts,
	})
	require.NoError(t, err)

	records, err := store.BySessionID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Timestamp.Equal(ts))
}

// TestStore_RecentOrdersNewestFirst verifies Recent returns records in
// reverse insertion order and honors the limit.
func TestStore_RecentOrdersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, store.Insert(ctx, Record{
			SessionID:   "s1",
			UserMessage: msg,
			AIResponse:  "a.",
		}))
	}

	records, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].UserMessage)
	assert.Equal(t, "second", records[1].UserMessage)
}

// TestStore_BySessionIDFiltersSessions verifies records of other sessions
// never leak into a session's audit trail.
func TestStore_BySessionIDFiltersSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, Record{SessionID: "a", UserMessage: "qa", AIResponse: "ra"}))
	require.NoError(t, store.Insert(ctx, Record{SessionID: "b", UserMessage: "qb", AIResponse: "rb"}))

	records, err := store.BySessionID(ctx, "a")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "qa", records[0].UserMessage)
}
