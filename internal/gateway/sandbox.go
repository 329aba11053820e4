package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hirewise/assessment-backend/internal/model"
)

// SandboxClient talks to the code execution sandbox service.
type SandboxClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// SandboxOption configures a SandboxClient.
type SandboxOption func(*SandboxClient)

// WithSandboxHTTPClient sets a custom HTTP client.
func WithSandboxHTTPClient(client *http.Client) SandboxOption {
	return func(c *SandboxClient) {
		c.httpClient = client
	}
}

// NewSandboxClient creates a client for the execution sandbox. The
// timeout is generous because a run includes container scheduling, not
// just the candidate's code.
func NewSandboxClient(baseURL, apiKey string, opts ...SandboxOption) *SandboxClient {
	c := &SandboxClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type executeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Execute runs candidate code in the sandbox and returns the normalized
// result. Any failure to reach or parse the service is a TransportError;
// the bridge turns that into a simulated result.
func (c *SandboxClient) Execute(ctx context.Context, code, language string) (model.ExecutionResult, error) {
	body, err := json.Marshal(executeRequest{Code: code, Language: language})
	if err != nil {
		return model.ExecutionResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/execute", bytes.NewReader(body))
	if err != nil {
		return model.ExecutionResult{}, &model.TransportError{Op: "execute code", Err: err}
	}

	var result struct {
		Success bool                  `json:"success"`
		Data    model.ExecutionResult `json:"data"`
		Error   *apiError             `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return model.ExecutionResult{}, &model.TransportError{Op: "execute code", Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	if !result.Success {
		return model.ExecutionResult{}, &model.TransportError{Op: "execute code", Err: result.Error}
	}

	return result.Data, nil
}

// Health checks if the sandbox service is reachable.
func (c *SandboxClient) Health(ctx context.Context) error {
	if _, err := c.doRequest(ctx, "GET", "/health", nil); err != nil {
		return &model.TransportError{Op: "health check", Err: err}
	}
	return nil
}

func (c *SandboxClient) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
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
