package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/middleware"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/response"
	"github.com/hirewise/assessment-backend/internal/service"
	"github.com/hirewise/assessment-backend/internal/session"
	"github.com/hirewise/assessment-backend/internal/validator"
)

// SessionHandler handles candidate-facing assessment session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/candidate/assessments/:assessment_id/session
// Activates a session (idempotent: a reload resumes the existing one).
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	snapshot, err := h.sessionService.StartSession(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// GetSession godoc
// GET /api/v1/candidate/assessments/:assessment_id/session
// Returns the reload-safe session snapshot.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	snapshot, err := h.sessionService.Snapshot(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// SelectQuestion godoc
// PUT /api/v1/candidate/assessments/:assessment_id/session/cursor
// Moves the cursor to an explicit question index.
func (h *SessionHandler) SelectQuestion(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	var req model.SelectQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snapshot, err := h.sessionService.SelectQuestion(c.Request.Context(), assessmentID, claims.UserID, req.Index)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// NextQuestion godoc
// POST /api/v1/candidate/assessments/:assessment_id/session/next
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	snapshot, err := h.sessionService.NextQuestion(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// PreviousQuestion godoc
// POST /api/v1/candidate/assessments/:assessment_id/session/previous
func (h *SessionHandler) PreviousQuestion(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	snapshot, err := h.sessionService.PreviousQuestion(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

// SaveDraft godoc
// PUT /api/v1/candidate/assessments/:assessment_id/session/draft
// Stores a provisional answer for the current question.
func (h *SessionHandler) SaveDraft(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	var req model.DraftRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SaveDraft(c.Request.Context(), assessmentID, claims.UserID, req.Answer); err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SubmitAnswer godoc
// POST /api/v1/candidate/assessments/:assessment_id/session/submit
// Finalizes the current question's draft. Irreversible.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	result, err := h.sessionService.SubmitAnswer(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// RunCode godoc
// POST /api/v1/candidate/assessments/:assessment_id/session/run
// Executes the current code draft in the sandbox.
func (h *SessionHandler) RunCode(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	var req model.RunCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, applied, err := h.sessionService.RunCode(c.Request.Context(), assessmentID, claims.UserID, req.Language)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result, "applied": applied})
}

// RecordEvent godoc
// POST /api/v1/candidate/assessments/:assessment_id/session/events
// Reports one integrity event. Also available over the WebSocket stream.
func (h *SessionHandler) RecordEvent(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	var req struct {
		Kind        string `json:"kind" binding:"required"`
		Description string `json:"description" binding:"max=500"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	summary, err := h.sessionService.RecordEvent(c.Request.Context(), assessmentID, claims.UserID, model.EventKind(req.Kind), req.Description, time.Time{})
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violations": summary})
}

// Complete godoc
// POST /api/v1/candidate/assessments/:assessment_id/session/complete
// Finishes the session. When unanswered questions remain, the first call
// without confirm returns the unanswered count for the confirmation
// prompt; the retry carries confirm=true.
func (h *SessionHandler) Complete(c *gin.Context) {
	claims, assessmentID, ok := h.identify(c)
	if !ok {
		return
	}

	var req model.CompleteRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snapshot, err := h.sessionService.Complete(c.Request.Context(), assessmentID, claims.UserID, req.Confirm)
	if err != nil {
		var confirmErr *session.ConfirmationRequiredError
		if errors.As(err, &confirmErr) {
			response.FailWithFields(c, http.StatusConflict, response.ErrConfirmationRequired, map[string]string{
				"unanswered": strconv.Itoa(confirmErr.Unanswered),
			})
			return
		}
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, snapshot)
}

func (h *SessionHandler) identify(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, assessmentID, true
}

// failSessionError maps domain errors to response codes.
func failSessionError(c *gin.Context, err error) {
	var (
		validationErr *model.ValidationError
		boundsErr     *model.BoundsError
		transportErr  *model.TransportError
	)
	switch {
	case errors.As(err, &boundsErr):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionOutOfRange)
	case errors.As(err, &validationErr):
		response.Fail(c, http.StatusBadRequest, validationCode(validationErr))
	case errors.As(err, &transportErr):
		response.Fail(c, http.StatusBadGateway, response.ErrInternal)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func validationCode(err *model.ValidationError) response.ErrCode {
	switch err.Reason {
	case "question already answered":
		return response.ErrAlreadyAnswered
	case "please provide an answer", "write some code first":
		return response.ErrEmptyAnswer
	case "current question is not a coding question":
		return response.ErrNotCodeQuestion
	case "no session for this assessment":
		return response.ErrNotFound
	default:
		return response.ErrValidation
	}
}
