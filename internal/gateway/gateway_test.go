package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/pipeline"
)

func TestFetchQuestionsDecodesEnvelope(t *testing.T) {
	assessmentID := uuid.New()
	questionID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/assessments/"+assessmentID.String()+"/questions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization header = %q", auth)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"questions": []map[string]any{
					{
						"id":                 questionID.String(),
						"question_type":      "multiple_choice",
						"question_text":      "What is 2+2?",
						"options":            []string{"3", "4"},
						"time_limit_seconds": 60,
					},
				},
				"total": 1,
			},
		})
	}))
	defer srv.Close()

	client := NewAssessmentClient(srv.URL, "test-key")
	questions, err := client.FetchQuestions(context.Background(), assessmentID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(questions))
	}
	if questions[0].ID != questionID || questions[0].Type != model.QuestionTypeMultipleChoice {
		t.Fatalf("question = %+v", questions[0])
	}
}

func TestFetchQuestionsWrapsConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewAssessmentClient(srv.URL, "")
	_, err := client.FetchQuestions(context.Background(), uuid.New())
	var te *model.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("fetch against closed server: %v, want TransportError", err)
	}
}

func TestSubmitAnswerSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"code": "DUPLICATE", "message": "answer already recorded"},
		})
	}))
	defer srv.Close()

	client := NewAssessmentClient(srv.URL, "")
	err := client.SubmitAnswer(context.Background(), uuid.New(), pipeline.AnswerSubmission{QuestionID: uuid.New(), Attempt: 1})
	var te *model.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("submit with API error: %v, want TransportError", err)
	}
}

func TestCompleteAssessmentPostsPayload(t *testing.T) {
	var got pipeline.CompletionSubmission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := NewAssessmentClient(srv.URL, "")
	sub := pipeline.CompletionSubmission{
		Attempt:    7,
		Violations: model.ViolationSummary{Count: 3, RiskScore: 11, RiskLevel: "medium"},
	}
	if err := client.CompleteAssessment(context.Background(), uuid.New(), sub); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Attempt != 7 || got.Violations.RiskLevel != "medium" {
		t.Fatalf("server received %+v", got)
	}
}

func TestSandboxExecuteRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Language != "python" {
			t.Errorf("language = %q", req.Language)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"succeeded":         true,
				"output":            "4\n",
				"execution_time_ms": 12,
			},
		})
	}))
	defer srv.Close()

	client := NewSandboxClient(srv.URL, "")
	result, err := client.Execute(context.Background(), "print(2+2)", "python")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Succeeded || result.Output != "4\n" || result.Simulated {
		t.Fatalf("result = %+v", result)
	}
}

func TestSandboxExecuteWrapsOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewSandboxClient(srv.URL, "")
	_, err := client.Execute(context.Background(), "print(1)", "python")
	var te *model.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("execute against closed server: %v, want TransportError", err)
	}
}
