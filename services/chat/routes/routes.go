// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/tidepool/services/chat/audit"
	"github.com/AleutianAI/tidepool/services/chat/gate"
	"github.com/AleutianAI/tidepool/services/chat/handlers"
	"github.com/AleutianAI/tidepool/services/chat/session"
)

func SetupRoutes(router *gin.Engine, sessions *session.Store, g *gate.Gate,
	auditor *audit.Logger, logStore *audit.Store, staticDir string) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.StaticFS("/chatbot/static", http.Dir(staticDir))

	// Friendly redirect from /chat to the actual HTML file
	router.GET("/chat", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/chatbot/static/chat.html")
	})

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/chat/ws", handlers.HandleChatWebSocket(sessions, g, auditor))
		v1.POST("/chat/direct", handlers.HandleDirectChat(g))
		// Chat log administration routes
		logs := v1.Group("/logs")
		{
			logs.GET("", handlers.ListChatLogs(logStore))
			logs.GET("/:sessionId", handlers.GetSessionChatLogs(logStore))
		}
	}
}
