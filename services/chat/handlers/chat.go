// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/tidepool/services/chat/gate"
	"github.com/AleutianAI/tidepool/services/chat/sanitize"
	"github.com/AleutianAI/tidepool/services/chat/session"
)

var chatTracer = otel.Tracer("tidepool.chat.handlers")

type DirectChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type DirectChatResponse struct {
	Answer string `json:"answer"`
}

// HandleDirectChat runs a single sessionless turn over plain HTTP: one
// gated generation against the system preamble plus the posted message.
// Useful for smoke tests and scripted clients that don't want a socket.
func HandleDirectChat(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleDirectChat")
		defer span.End()
		var req DirectChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		prompt := string(session.RoleSystem) + ": " + session.SystemPrompt + "\n" +
			string(session.RoleUser) + ": " + req.Message + "\nAssistant:"

		raw, err := g.Generate(ctx, prompt)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Gated generation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, DirectChatResponse{Answer: sanitize.Clean(raw)})
	}
}
