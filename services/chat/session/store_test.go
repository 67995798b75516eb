// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_CreateSeedsSystemTurn verifies that a fresh session starts
// with exactly one System turn carrying the instruction preamble.
func TestStore_CreateSeedsSystemTurn(t *testing.T) {
	store := NewStore()
	store.Create("s1")

	history, ok := store.History("s1")
	require.True(t, ok)
	require.Len(t, history, 1)
	assert.Equal(t, RoleSystem, history[0].Role)
	assert.Equal(t, SystemPrompt, history[0].Text)
}

// TestStore_BoundedHistory verifies the turn count never exceeds
// 1 + 2*MaxHistory and that trimming keeps the System turn plus the most
// recent turns.
func TestStore_BoundedHistory(t *testing.T) {
	store := NewStore()
	store.Create("s1")

	for i := 0; i < 20; i++ {
		store.Append("s1", Turn{Role: RoleUser, Text: fmt.Sprintf("question %d", i)})
		store.Append("s1", Turn{Role: RoleAssistant, Text: fmt.Sprintf("answer %d", i)})

		history, ok := store.History("s1")
		require.True(t, ok)
		assert.LessOrEqual(t, len(history), 1+2*MaxHistory)
		assert.Equal(t, RoleSystem, history[0].Role, "first turn must stay the System turn")
	}

	history, _ := store.History("s1")
	require.Len(t, history, 1+2*MaxHistory)
	// Oldest excess turns are gone; the newest pairs survive.
	assert.Equal(t, "answer 19", history[len(history)-1].Text)
	assert.Equal(t, "question 17", history[1].Text)
}

// TestStore_RenderFormat verifies the exact context string handed to the
// generation backend: "<Role>: <text>" lines, a blank line after the
// system preamble, and a trailing "Assistant:".
func TestStore_RenderFormat(t *testing.T) {
	store := NewStore()
	store.Create("s1")
	store.Append("s1", Turn{Role: RoleUser, Text: "What is 2+2?"})

	rendered := store.Render("s1")

	assert.True(t, strings.HasPrefix(rendered, "System: "+SystemPrompt))
	assert.Contains(t, rendered, "complete sentences\n\n\nUser: What is 2+2?")
	assert.True(t, strings.HasSuffix(rendered, "What is 2+2?\nAssistant:"))
}

// TestStore_RemoveIsIdempotent verifies removing a session twice (or one
// that never existed) is a no-op.
func TestStore_RemoveIsIdempotent(t *testing.T) {
	store := NewStore()
	store.Create("s1")

	store.Remove("s1")
	_, ok := store.History("s1")
	assert.False(t, ok)

	store.Remove("s1")
	store.Remove("never-existed")
	assert.Equal(t, 0, store.Len())
}

// TestStore_AppendToAbsentSession verifies appending after removal does
// not resurrect the session.
func TestStore_AppendToAbsentSession(t *testing.T) {
	store := NewStore()
	store.Append("ghost", Turn{Role: RoleUser, Text: "hello?"})
	_, ok := store.History("ghost")
	assert.False(t, ok)
}

// TestStore_ConcurrentSessions verifies sessions are isolated under
// concurrent handlers.
func TestStore_ConcurrentSessions(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("s%d", i)
		store.Create(id)
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Append(id, Turn{Role: RoleUser, Text: id})
				store.Render(id)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 8, store.Len())
	for i := 0; i < 8; i++ {
		history, ok := store.History(fmt.Sprintf("s%d", i))
		require.True(t, ok)
		assert.LessOrEqual(t, len(history), 1+2*MaxHistory)
		for _, turn := range history[1:] {
			assert.Equal(t, fmt.Sprintf("s%d", i), turn.Text)
		}
	}
}
