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
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/tidepool/services/chat/audit"
)

// ListChatLogs returns the most recent chat log records, newest first.
// Query param: limit (default 50).
func ListChatLogs(store *audit.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = parsed
		}
		records, err := store.Recent(c.Request.Context(), limit)
		if err != nil {
			slog.Error("Failed to list chat logs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chat logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": records, "count": len(records)})
	}
}

// GetSessionChatLogs returns every persisted record for one session id in
// insertion order. The session itself may be long gone; records outlive it.
func GetSessionChatLogs(store *audit.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		records, err := store.BySessionID(c.Request.Context(), sessionID)
		if err != nil {
			slog.Error("Failed to get session chat logs",
				"sessionID", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chat logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": records, "count": len(records)})
	}
}
