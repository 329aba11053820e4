package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/config"
	"github.com/hirewise/assessment-backend/internal/gateway"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// newTestSessionService wires a SessionService against a stub assessment
// service and an unreachable Redis. Every Redis-backed path in the
// service is best effort, so sessions run fully in memory here.
func newTestSessionService(t *testing.T) *SessionService {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/questions") {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"questions": []map[string]any{
						{
							"id":            uuid.New().String(),
							"question_type": "free_text",
							"question_text": "Describe a race condition.",
						},
						{
							"id":            uuid.New().String(),
							"question_type": "multiple_choice",
							"question_text": "What is 2+2?",
							"options":       []string{"3", "4"},
						},
					},
					"total": 2,
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{JWTExpiry: time.Hour}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })

	assessment := gateway.NewAssessmentClient(srv.URL, "", gateway.WithTimeout(5*time.Second))
	sandbox := gateway.NewSandboxClient("http://127.0.0.1:1", "")

	return NewSessionService(cfg, rdb, assessment, sandbox, zerolog.Nop())
}

func TestRecordEventRejectedAfterCompletion(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()
	assessmentID := uuid.New()
	candidateID := int64(42)

	if _, err := svc.StartSession(ctx, assessmentID, candidateID); err != nil {
		t.Fatalf("start: %v", err)
	}

	summary, err := svc.RecordEvent(ctx, assessmentID, candidateID, model.EventTabSwitch, "", time.Time{})
	if err != nil {
		t.Fatalf("record while active: %v", err)
	}
	if summary.Count != 1 {
		t.Fatalf("count after first event = %d, want 1", summary.Count)
	}

	snap, err := svc.Complete(ctx, assessmentID, candidateID, true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if snap.State != model.SessionStateCompleted {
		t.Fatalf("state after complete = %s, want completed", snap.State)
	}

	_, err = svc.RecordEvent(ctx, assessmentID, candidateID, model.EventTabSwitch, "", time.Time{})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("record after complete: %v, want ValidationError", err)
	}
}

func TestCompleteDestroysLiveSession(t *testing.T) {
	svc := newTestSessionService(t)
	ctx := context.Background()
	assessmentID := uuid.New()
	candidateID := int64(42)

	if _, err := svc.StartSession(ctx, assessmentID, candidateID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Complete(ctx, assessmentID, candidateID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := svc.Snapshot(ctx, assessmentID, candidateID)
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("snapshot after complete: %v, want ValidationError", err)
	}

	// A new start on the same key yields a fresh active session, not the
	// finished one.
	snap, err := svc.StartSession(ctx, assessmentID, candidateID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap.State != model.SessionStateActive {
		t.Fatalf("state after restart = %s, want active", snap.State)
	}
	if snap.Violations.Count != 0 {
		t.Fatalf("restarted session carries %d violations, want 0", snap.Violations.Count)
	}
}
