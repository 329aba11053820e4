package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/rs/zerolog"
)

type fakeEvaluator struct {
	mu          sync.Mutex
	failing     bool
	answerFails int
	answers     []AnswerSubmission
	completions []CompletionSubmission
}

func (e *fakeEvaluator) SubmitAnswer(_ context.Context, _ uuid.UUID, sub AnswerSubmission) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failing || e.answerFails > 0 {
		if e.answerFails > 0 {
			e.answerFails--
		}
		return &model.TransportError{Op: "submit answer", Err: errors.New("service unavailable")}
	}
	e.answers = append(e.answers, sub)
	return nil
}

func (e *fakeEvaluator) CompleteAssessment(_ context.Context, _ uuid.UUID, sub CompletionSubmission) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failing {
		return &model.TransportError{Op: "complete assessment", Err: errors.New("service unavailable")}
	}
	e.completions = append(e.completions, sub)
	return nil
}

func testConfig() Config {
	return Config{MaxRetries: 3, BaseBackoff: time.Millisecond}
}

func answerFor(id uuid.UUID) model.Answer {
	return model.Answer{
		QuestionID:       id,
		Value:            model.OptionIndex(2),
		Answered:         true,
		TimeTakenSeconds: 12,
		SubmittedAt:      time.Now(),
	}
}

func TestAttemptMarkersIncrease(t *testing.T) {
	eval := &fakeEvaluator{}
	p := New(eval, testConfig(), zerolog.Nop())
	assessmentID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := p.SubmitQuestionAnswer(context.Background(), assessmentID, answerFor(uuid.New())); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	for i, sub := range eval.answers {
		if sub.Attempt != uint64(i+1) {
			t.Fatalf("attempt[%d] = %d, want %d", i, sub.Attempt, i+1)
		}
	}
}

func TestFailedSubmissionIsCachedNotFatal(t *testing.T) {
	eval := &fakeEvaluator{failing: true}
	p := New(eval, testConfig(), zerolog.Nop())

	err := p.SubmitQuestionAnswer(context.Background(), uuid.New(), answerFor(uuid.New()))
	if !errors.Is(err, ErrQueuedForRetry) {
		t.Fatalf("submit during outage: %v, want ErrQueuedForRetry", err)
	}
	if p.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", p.PendingCount())
	}
}

func TestTransientFailureRecoversWithinRetries(t *testing.T) {
	eval := &fakeEvaluator{answerFails: 2}
	p := New(eval, testConfig(), zerolog.Nop())

	if err := p.SubmitQuestionAnswer(context.Background(), uuid.New(), answerFor(uuid.New())); err != nil {
		t.Fatalf("submit with transient failures: %v", err)
	}
	if p.PendingCount() != 0 {
		t.Fatalf("pending = %d, want 0", p.PendingCount())
	}
	if len(eval.answers) != 1 {
		t.Fatalf("delivered = %d, want 1", len(eval.answers))
	}
}

func TestFlushPendingPreservesOrder(t *testing.T) {
	eval := &fakeEvaluator{failing: true}
	p := New(eval, testConfig(), zerolog.Nop())
	assessmentID := uuid.New()

	first, second := uuid.New(), uuid.New()
	p.SubmitQuestionAnswer(context.Background(), assessmentID, answerFor(first))
	p.SubmitQuestionAnswer(context.Background(), assessmentID, answerFor(second))
	if p.PendingCount() != 2 {
		t.Fatalf("pending = %d, want 2", p.PendingCount())
	}

	eval.mu.Lock()
	eval.failing = false
	eval.mu.Unlock()

	if err := p.FlushPending(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(eval.answers) != 2 {
		t.Fatalf("delivered = %d, want 2", len(eval.answers))
	}
	if eval.answers[0].QuestionID != first || eval.answers[1].QuestionID != second {
		t.Fatal("flush reordered cached submissions")
	}
	if eval.answers[0].Attempt >= eval.answers[1].Attempt {
		t.Fatal("cached submissions lost their attempt ordering")
	}
}

func TestCompletionFlushesPendingFirst(t *testing.T) {
	eval := &fakeEvaluator{answerFails: 3}
	p := New(eval, testConfig(), zerolog.Nop())
	assessmentID := uuid.New()

	questionID := uuid.New()
	if err := p.SubmitQuestionAnswer(context.Background(), assessmentID, answerFor(questionID)); !errors.Is(err, ErrQueuedForRetry) {
		t.Fatalf("submit during outage: %v, want ErrQueuedForRetry", err)
	}

	answers := map[uuid.UUID]model.Answer{questionID: answerFor(questionID)}
	summary := model.ViolationSummary{Count: 2, RiskScore: 8, RiskLevel: "low"}
	if err := p.SubmitCompletion(context.Background(), assessmentID, answers, summary); err != nil {
		t.Fatalf("completion: %v", err)
	}

	if len(eval.answers) != 1 {
		t.Fatalf("pending answer not flushed before completion, delivered = %d", len(eval.answers))
	}
	if len(eval.completions) != 1 {
		t.Fatalf("completions = %d, want 1", len(eval.completions))
	}
	if got := eval.completions[0].Violations.Count; got != 2 {
		t.Fatalf("completion violation count = %d, want 2", got)
	}
}

func TestCompletionFailureSurfacesTransportError(t *testing.T) {
	eval := &fakeEvaluator{failing: true}
	p := New(eval, testConfig(), zerolog.Nop())

	err := p.SubmitCompletion(context.Background(), uuid.New(), nil, model.ViolationSummary{})
	var te *model.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("completion during outage: %v, want TransportError", err)
	}
}
