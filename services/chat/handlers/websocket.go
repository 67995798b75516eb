package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/tidepool/services/chat/audit"
	"github.com/AleutianAI/tidepool/services/chat/gate"
	"github.com/AleutianAI/tidepool/services/chat/observability"
	"github.com/AleutianAI/tidepool/services/chat/sanitize"
	"github.com/AleutianAI/tidepool/services/chat/session"
)

// EndOfTurnMarker is sent as its own text frame after every reply.
const EndOfTurnMarker = "[END]"

var upgrader = websocket.Upgrader{
	// CORS is transport configuration, not chat logic: allow every origin
	// and let the deployment's proxy impose policy.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// HandleChatWebSocket runs one client's conversation over a websocket.
//
// Per received text frame: append the User turn, render the bounded
// context, run one gated generation, sanitize, append the Assistant turn,
// submit the audit record, then send the reply frame followed by the
// end-of-turn marker frame. There is no structured error frame: the client
// observes clean reply/marker pairs or an abrupt close.
func HandleChatWebSocket(sessions *session.Store, g *gate.Gate,
	auditor *audit.Logger) gin.HandlerFunc {

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		sessionID := uuid.New().String()
		sessions.Create(sessionID)
		defer sessions.Remove(sessionID)
		// Best-effort cache release on the way out, whatever state the
		// conversation was left in.
		defer g.Release(context.Background())

		metrics := observability.DefaultMetrics
		if metrics != nil {
			metrics.SessionOpened()
			defer metrics.SessionClosed()
		}
		slog.Info("Websocket session started", "sessionID", sessionID)

		for {
			msgType, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure,
					websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					slog.Info("Websocket client disconnected", "sessionID", sessionID)
					if metrics != nil {
						metrics.RecordClientDisconnect()
					}
				} else {
					slog.Warn("Websocket read failed", "sessionID", sessionID, "error", err)
				}
				return
			}
			// Binary frames are not part of the protocol.
			if msgType != websocket.TextMessage {
				slog.Warn("Ignoring non-text websocket frame",
					"sessionID", sessionID, "type", msgType)
				continue
			}
			userInput := string(data)
			slog.Info("Received user message", "sessionID", sessionID)

			sessions.Append(sessionID, session.Turn{Role: session.RoleUser, Text: userInput})
			prompt := sessions.Render(sessionID)

			start := time.Now()
			raw, err := g.Generate(c.Request.Context(), prompt)
			if err != nil {
				// No valid reply exists; close the session rather than
				// send a malformed or partial one.
				slog.Error("Generation failed, closing session",
					"sessionID", sessionID, "error", err)
				if metrics != nil {
					metrics.RecordTurn(false)
				}
				ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""),
					time.Now().Add(time.Second))
				return
			}
			if metrics != nil {
				metrics.RecordGeneration(time.Since(start))
			}

			reply := sanitize.Clean(raw)
			sessions.Append(sessionID, session.Turn{Role: session.RoleAssistant, Text: reply})

			// Fire-and-forget: the logger's own goroutine persists the
			// record and reports the outcome; a write failure never
			// reaches this client.
			auditor.Log(sessionID, userInput, reply)

			if err := ws.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				slog.Warn("Failed to send reply", "sessionID", sessionID, "error", err)
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, []byte(EndOfTurnMarker)); err != nil {
				slog.Warn("Failed to send end-of-turn marker",
					"sessionID", sessionID, "error", err)
				return
			}
			if metrics != nil {
				metrics.RecordTurn(true)
			}

			if err := g.Release(c.Request.Context()); err != nil {
				slog.Warn("Failed to release generation resources",
					"sessionID", sessionID, "error", err)
			}
		}
	}
}
