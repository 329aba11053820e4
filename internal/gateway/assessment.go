// Package gateway holds HTTP clients for the external services the
// session core depends on: the assessment/evaluation API and the code
// execution sandbox. Unreachable services surface as TransportError so
// callers can choose their degraded path.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/pipeline"
)

// Option configures a client.
type Option func(*AssessmentClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *AssessmentClient) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *AssessmentClient) {
		c.httpClient.Timeout = timeout
	}
}

// AssessmentClient talks to the assessment service. It satisfies both
// the session question loader and the pipeline evaluator.
type AssessmentClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAssessmentClient creates a client for the assessment service.
func NewAssessmentClient(baseURL, apiKey string, opts ...Option) *AssessmentClient {
	c := &AssessmentClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchQuestions retrieves the ordered question set for an assessment.
func (c *AssessmentClient) FetchQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/api/v1/assessments/%s/questions", assessmentID), nil)
	if err != nil {
		return nil, &model.TransportError{Op: "fetch questions", Err: err}
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Questions []model.Question `json:"questions"`
			Total     int              `json:"total"`
		} `json:"data"`
		Error *apiError `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, &model.TransportError{Op: "fetch questions", Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	if !result.Success {
		return nil, &model.TransportError{Op: "fetch questions", Err: result.Error}
	}

	return result.Data.Questions, nil
}

// SubmitAnswer delivers one finalized answer.
func (c *AssessmentClient) SubmitAnswer(ctx context.Context, assessmentID uuid.UUID, sub pipeline.AnswerSubmission) error {
	path := fmt.Sprintf("/api/v1/assessments/%s/answers", assessmentID)
	return c.postEnvelope(ctx, "submit answer", path, sub)
}

// CompleteAssessment delivers the final completion payload.
func (c *AssessmentClient) CompleteAssessment(ctx context.Context, assessmentID uuid.UUID, sub pipeline.CompletionSubmission) error {
	path := fmt.Sprintf("/api/v1/assessments/%s/complete", assessmentID)
	return c.postEnvelope(ctx, "complete assessment", path, sub)
}

// ReportProctoringEvent forwards one integrity event to the assessment
// service. Delivery is best effort; the caller retains the event on
// failure and retries later.
func (c *AssessmentClient) ReportProctoringEvent(ctx context.Context, ev model.ProctoringEvent) error {
	path := fmt.Sprintf("/api/v1/assessments/%s/proctoring-events", ev.AssessmentID)
	return c.postEnvelope(ctx, "report proctoring event", path, ev)
}

// Health checks if the assessment service is reachable.
func (c *AssessmentClient) Health(ctx context.Context) error {
	if _, err := c.doRequest(ctx, "GET", "/health", nil); err != nil {
		return &model.TransportError{Op: "health check", Err: err}
	}
	return nil
}

func (c *AssessmentClient) postEnvelope(ctx context.Context, op, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", path, bytes.NewReader(body))
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}

	var result struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return &model.TransportError{Op: op, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	if !result.Success {
		return &model.TransportError{Op: op, Err: result.Error}
	}

	return nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

func (c *AssessmentClient) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
