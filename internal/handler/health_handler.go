package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewise/assessment-backend/internal/gateway"
	"github.com/hirewise/assessment-backend/internal/response"
)

// HealthHandler reports liveness plus reachability of the upstream
// services the session core depends on.
type HealthHandler struct {
	assessment *gateway.AssessmentClient
	sandbox    *gateway.SandboxClient
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(assessment *gateway.AssessmentClient, sandbox *gateway.SandboxClient) *HealthHandler {
	return &HealthHandler{assessment: assessment, sandbox: sandbox}
}

// Check godoc
// GET /health
// Always returns 200; per-dependency status is in the body. The server
// stays up when upstreams are down because sessions degrade gracefully,
// so upstream failures must not fail the probe.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := gin.H{"assessment_service": "ok", "sandbox_service": "ok"}

	if err := h.assessment.Health(ctx); err != nil {
		deps["assessment_service"] = "unreachable"
		status = "degraded"
	}
	if err := h.sandbox.Health(ctx); err != nil {
		deps["sandbox_service"] = "unreachable"
		status = "degraded"
	}

	response.Success(c, http.StatusOK, gin.H{"status": status, "dependencies": deps})
}
