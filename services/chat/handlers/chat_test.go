// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/tidepool/services/chat/gate"
	"github.com/AleutianAI/tidepool/services/llm"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// MockLLMClient implements llm.LLMClient for handler testing. It records
// every prompt it receives so tests can assert on the rendered context.
type MockLLMClient struct {
	mu       sync.Mutex
	Prompts  []string
	Response string
	Err      error
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	return m.Response, m.Err
}

func (m *MockLLMClient) Release(ctx context.Context) error {
	return nil
}

// LastPrompt returns the most recent prompt seen by the mock.
func (m *MockLLMClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}

// PromptCount returns how many generations the mock has served.
func (m *MockLLMClient) PromptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// createTestRouter creates a Gin router with the specified handler for testing.
func createTestRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	switch method {
	case "POST":
		router.POST(path, handler)
	case "GET":
		router.GET(path, handler)
	}
	return router
}

// performRequest executes an HTTP request against the test router.
func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// HandleDirectChat Tests
// =============================================================================

// TestHandleDirectChat_Success verifies a sessionless turn returns the
// sanitized backend reply.
func TestHandleDirectChat_Success(t *testing.T) {
	backend := &MockLLMClient{Response: "Assistant: The answer is 4. Wait, let me double check."}
	g := gate.New(backend, nil)
	defer g.Close()

	router := createTestRouter("POST", "/v1/chat/direct", HandleDirectChat(g))
	w := performRequest(router, "POST", "/v1/chat/direct",
		DirectChatRequest{Message: "What is 2+2?"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp DirectChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "The answer is 4.", resp.Answer)

	prompt := backend.LastPrompt()
	assert.Contains(t, prompt, "User: What is 2+2?")
	assert.True(t, strings.HasSuffix(prompt, "Assistant:"),
		"prompt should end with the Assistant cue, got %q", prompt)
}

// TestHandleDirectChat_InvalidJSON verifies a malformed body is rejected
// before the gate is touched.
func TestHandleDirectChat_InvalidJSON(t *testing.T) {
	backend := &MockLLMClient{Response: "unused"}
	g := gate.New(backend, nil)
	defer g.Close()

	router := createTestRouter("POST", "/v1/chat/direct", HandleDirectChat(g))

	req, _ := http.NewRequest("POST", "/v1/chat/direct", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, backend.Prompts)
}

// TestHandleDirectChat_EmptyMessage verifies an empty message fails the
// required-field binding with a 400.
func TestHandleDirectChat_EmptyMessage(t *testing.T) {
	backend := &MockLLMClient{Response: "unused"}
	g := gate.New(backend, nil)
	defer g.Close()

	router := createTestRouter("POST", "/v1/chat/direct", HandleDirectChat(g))
	w := performRequest(router, "POST", "/v1/chat/direct", DirectChatRequest{Message: ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, backend.Prompts)
}

// TestHandleDirectChat_GenerationError verifies a backend failure surfaces
// as a 500.
func TestHandleDirectChat_GenerationError(t *testing.T) {
	backend := &MockLLMClient{Err: assert.AnError}
	g := gate.New(backend, nil)
	defer g.Close()

	router := createTestRouter("POST", "/v1/chat/direct", HandleDirectChat(g))
	w := performRequest(router, "POST", "/v1/chat/direct",
		DirectChatRequest{Message: "hello"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
