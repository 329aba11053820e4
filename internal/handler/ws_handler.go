package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hirewise/assessment-backend/internal/middleware"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/service"
	ws "github.com/hirewise/assessment-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the candidate's live session stream: integrity
// events and draft autosave without per-request HTTP overhead.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/candidate/assessments/:assessment_id/stream
// Upgrades to WebSocket for real-time integrity events and autosave.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment ID"})
		return
	}

	// A session must exist before streaming against it.
	if _, err := h.sessionService.Snapshot(c.Request.Context(), assessmentID, claims.UserID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session for this assessment"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int64("candidate_id", claims.UserID).
		Str("assessment_id", assessmentID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionEvent:
			h.handleEvent(conn, wsLog, assessmentID, claims.UserID, raw)
		case ws.ActionDraft:
			h.handleDraft(conn, assessmentID, claims.UserID, raw)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

// handleEvent folds one integrity event into the session and echoes the
// updated violation summary so the client can alert immediately.
func (h *WSHandler) handleEvent(conn *websocket.Conn, wsLog zerolog.Logger, assessmentID uuid.UUID, candidateID int64, raw []byte) {
	var req ws.EventRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed event")
		return
	}

	summary, err := h.sessionService.RecordEvent(context.Background(), assessmentID, candidateID, model.EventKind(req.Kind), req.Description, req.Timestamp)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	alert := ""
	if n := len(summary.Recent); n > 0 {
		alert = summary.Recent[n-1]
	}
	ws.WriteTyped(conn, ws.ViolationResponse{
		Event:   ws.EventViolation,
		Alert:   alert,
		Summary: summary,
	})
}

// handleDraft autosaves a provisional answer for the current question.
func (h *WSHandler) handleDraft(conn *websocket.Conn, assessmentID uuid.UUID, candidateID int64, raw []byte) {
	var req ws.DraftRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed draft")
		return
	}

	if err := h.sessionService.SaveDraft(context.Background(), assessmentID, candidateID, req.Answer); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Status: "saved"})
}
