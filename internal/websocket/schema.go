package websocket

import (
	"time"

	"github.com/hirewise/assessment-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEvent Action = "event"
	ActionDraft Action = "draft"
	ActionPing  Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// EventRequest is sent by the client to report one integrity event.
type EventRequest struct {
	Action      Action    `json:"action"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// DraftRequest is sent by the client to autosave a provisional answer
// for the current question.
type DraftRequest struct {
	Action Action               `json:"action"`
	Answer model.AnswerEnvelope `json:"answer"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventViolation Event = "violation"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// ViolationResponse carries the updated running summary after an
// integrity event is folded in, plus the immediate alert line.
type ViolationResponse struct {
	Event   Event                  `json:"event"`
	Alert   string                 `json:"alert"`
	Summary model.ViolationSummary `json:"summary"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
