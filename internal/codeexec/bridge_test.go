package codeexec

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/session"
	"github.com/hirewise/assessment-backend/internal/timer"
	"github.com/rs/zerolog"
)

type fakeSandbox struct {
	down     bool
	lastCode string
	lastLang string
	result   model.ExecutionResult
}

func (s *fakeSandbox) Execute(_ context.Context, code, language string) (model.ExecutionResult, error) {
	if s.down {
		return model.ExecutionResult{}, &model.TransportError{Op: "execute code", Err: errors.New("connection refused")}
	}
	s.lastCode = code
	s.lastLang = language
	return s.result, nil
}

type staticLoader struct{ questions []model.Question }

func (l staticLoader) FetchQuestions(context.Context, uuid.UUID) ([]model.Question, error) {
	return l.questions, nil
}

func codingMachine(t *testing.T) *session.Machine {
	t.Helper()
	questions := []model.Question{
		{ID: uuid.New(), Type: model.QuestionTypeCode, TimeLimitSeconds: 300},
		{ID: uuid.New(), Type: model.QuestionTypeFreeText, TimeLimitSeconds: 120},
	}
	m := session.New(uuid.New(), 1, staticLoader{questions}, timer.New(nil), zerolog.Nop())
	if _, err := m.LoadQuestions(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}

func TestRunRejectsEmptyDraftWithoutContactingSandbox(t *testing.T) {
	m := codingMachine(t)
	sandbox := &fakeSandbox{}
	bridge := NewBridge(sandbox, zerolog.Nop())

	var ve *model.ValidationError
	if _, _, err := bridge.Run(context.Background(), m, ""); !errors.As(err, &ve) {
		t.Fatalf("run with no draft: %v, want ValidationError", err)
	}
	if sandbox.lastCode != "" {
		t.Fatal("sandbox contacted despite empty draft")
	}
}

func TestRunAppliesGenuineResult(t *testing.T) {
	m := codingMachine(t)
	sandbox := &fakeSandbox{result: model.ExecutionResult{Succeeded: true, Output: "42\n"}}
	bridge := NewBridge(sandbox, zerolog.Nop())

	if err := m.SetAnswerDraft(model.SourceCode("print(42)")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	result, applied, err := bridge.Run(context.Background(), m, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !applied {
		t.Fatal("fresh result not applied")
	}
	if result.Simulated {
		t.Fatal("genuine result marked simulated")
	}
	if sandbox.lastLang != DefaultLanguage {
		t.Fatalf("language = %q, want %q", sandbox.lastLang, DefaultLanguage)
	}
	if out := m.TransientOutput(); out == nil || out.Output != "42\n" {
		t.Fatalf("transient output = %+v", out)
	}
}

func TestRunFallsBackToSimulatedResult(t *testing.T) {
	m := codingMachine(t)
	bridge := NewBridge(&fakeSandbox{down: true}, zerolog.Nop())

	if err := m.SetAnswerDraft(model.SourceCode("print('hello')")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	result, applied, err := bridge.Run(context.Background(), m, "python")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !applied {
		t.Fatal("simulated result not applied")
	}
	if !result.Simulated {
		t.Fatal("fallback result not marked simulated")
	}
	if !result.Succeeded {
		t.Fatal("simulated result should not look like a hard failure")
	}
}

func TestRunDoesNotMutateAnswer(t *testing.T) {
	m := codingMachine(t)
	bridge := NewBridge(&fakeSandbox{result: model.ExecutionResult{Succeeded: true}}, zerolog.Nop())

	if err := m.SetAnswerDraft(model.SourceCode("print(1)")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, _, err := bridge.Run(context.Background(), m, ""); err != nil {
		t.Fatalf("run: %v", err)
	}

	q, err := m.CurrentQuestion()
	if err != nil {
		t.Fatalf("current question: %v", err)
	}
	if _, ok := m.Answer(q.ID); ok {
		t.Fatal("run created a finalized answer")
	}
}
