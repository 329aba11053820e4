package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/response"
	"github.com/hirewise/assessment-backend/internal/service"
)

// ReviewHandler handles recruiter-facing answer review endpoints.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ListResponses godoc
// GET /api/v1/recruiter/assessments/:assessment_id/candidates/:candidate_id/responses
func (h *ReviewHandler) ListResponses(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	candidateID, err := strconv.ParseInt(c.Param("candidate_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	responses, err := h.reviewService.ListResponses(c.Request.Context(), assessmentID, candidateID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"responses": responses, "total": len(responses)})
}

// Progress godoc
// GET /api/v1/recruiter/assessments/:assessment_id/candidates/:candidate_id/progress
func (h *ReviewHandler) Progress(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	candidateID, err := strconv.ParseInt(c.Param("candidate_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	count, err := h.reviewService.Progress(c.Request.Context(), assessmentID, candidateID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answered": count})
}
