package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/proctor"
	"github.com/hirewise/assessment-backend/internal/timer"
	"github.com/rs/zerolog"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeLoader struct {
	questions []model.Question
	err       error
}

func (l *fakeLoader) FetchQuestions(context.Context, uuid.UUID) ([]model.Question, error) {
	return l.questions, l.err
}

func fiveQuestions() []model.Question {
	mk := func(t model.QuestionType, limit int) model.Question {
		q := model.Question{ID: uuid.New(), Type: t, TimeLimitSeconds: limit, MaxScore: 10}
		if t == model.QuestionTypeMultipleChoice {
			q.Options = []string{"a", "b", "c", "d"}
		}
		return q
	}
	return []model.Question{
		mk(model.QuestionTypeMultipleChoice, 60),
		mk(model.QuestionTypeCode, 300),
		mk(model.QuestionTypeFreeText, 180),
		mk(model.QuestionTypeRatingScale, 30),
		mk(model.QuestionTypeMultipleChoice, 60),
	}
}

func activeMachine(t *testing.T, loader QuestionLoader, clock timer.Clock) *Machine {
	t.Helper()
	m := New(uuid.New(), 42, loader, timer.New(clock), zerolog.Nop())
	if _, err := m.LoadQuestions(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}

func TestCursorStaysInBounds(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)

	// Previous at index 0 clamps, never wraps.
	for i := 0; i < 3; i++ {
		if err := m.Previous(); err != nil {
			t.Fatalf("previous: %v", err)
		}
	}
	if got := m.Cursor(); got != 0 {
		t.Fatalf("cursor = %d, want 0", got)
	}

	// Next past the last index clamps.
	for i := 0; i < 10; i++ {
		if err := m.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if got := m.Cursor(); got != 4 {
		t.Fatalf("cursor = %d, want 4", got)
	}

	// Explicit out-of-range jumps are a BoundsError and leave the cursor alone.
	var be *model.BoundsError
	if err := m.SelectQuestion(5); !errors.As(err, &be) {
		t.Fatalf("select 5: %v, want BoundsError", err)
	}
	if err := m.SelectQuestion(-1); !errors.As(err, &be) {
		t.Fatalf("select -1: %v, want BoundsError", err)
	}
	if got := m.Cursor(); got != 4 {
		t.Fatalf("cursor after bad jumps = %d, want 4", got)
	}

	if err := m.SelectQuestion(2); err != nil {
		t.Fatalf("select 2: %v", err)
	}
	if got := m.Cursor(); got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}
}

func TestSubmitIdempotentAfterFinalize(t *testing.T) {
	qs := fiveQuestions()
	m := activeMachine(t, &fakeLoader{questions: qs}, nil)

	if err := m.SetAnswerDraft(model.OptionIndex(2)); err != nil {
		t.Fatalf("draft: %v", err)
	}
	first, advanced, err := m.SubmitAnswer()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !advanced || m.Cursor() != 1 {
		t.Fatalf("advanced=%v cursor=%d, want auto-advance to 1", advanced, m.Cursor())
	}

	// Navigate back and try to resubmit with a different value.
	if err := m.SelectQuestion(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	var ve *model.ValidationError
	if err := m.SetAnswerDraft(model.OptionIndex(3)); !errors.As(err, &ve) {
		t.Fatalf("draft on answered question: %v, want ValidationError", err)
	}
	if _, _, err := m.SubmitAnswer(); !errors.As(err, &ve) {
		t.Fatalf("resubmit: %v, want ValidationError", err)
	}

	stored, ok := m.Answer(qs[0].ID)
	if !ok || stored.Value != first.Value || stored.Value.(model.OptionIndex) != 2 {
		t.Fatalf("stored answer changed: %+v", stored)
	}
}

func TestZeroValuesAreValidDrafts(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)

	// MCQ option index 0 submits fine.
	if err := m.SetAnswerDraft(model.OptionIndex(0)); err != nil {
		t.Fatalf("draft option 0: %v", err)
	}
	if _, _, err := m.SubmitAnswer(); err != nil {
		t.Fatalf("submit option 0: %v", err)
	}

	// Rating 0 submits fine.
	if err := m.SelectQuestion(3); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := m.SetAnswerDraft(model.Rating(0)); err != nil {
		t.Fatalf("draft rating 0: %v", err)
	}
	if _, _, err := m.SubmitAnswer(); err != nil {
		t.Fatalf("submit rating 0: %v", err)
	}
}

func TestEmptyDraftRejected(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)
	var ve *model.ValidationError

	// No draft at all.
	if _, _, err := m.SubmitAnswer(); !errors.As(err, &ve) {
		t.Fatalf("submit without draft: %v, want ValidationError", err)
	}

	// Empty free text.
	if err := m.SelectQuestion(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := m.SetAnswerDraft(model.FreeText("   ")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, _, err := m.SubmitAnswer(); !errors.As(err, &ve) {
		t.Fatalf("submit empty text: %v, want ValidationError", err)
	}
}

func TestDraftTypeMustMatchQuestion(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)
	var ve *model.ValidationError
	if err := m.SetAnswerDraft(model.FreeText("hello")); !errors.As(err, &ve) {
		t.Fatalf("free text on MCQ: %v, want ValidationError", err)
	}
}

func TestNoAdvancePastFinalQuestion(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)
	if err := m.SelectQuestion(4); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := m.SetAnswerDraft(model.OptionIndex(1)); err != nil {
		t.Fatalf("draft: %v", err)
	}
	_, advanced, err := m.SubmitAnswer()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if advanced || m.Cursor() != 4 {
		t.Fatalf("advanced=%v cursor=%d, want no advance past last question", advanced, m.Cursor())
	}
}

func TestTimeTakenResetsOnNavigation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, clock)

	clock.advance(30 * time.Second)
	if err := m.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}

	// Question 2's timer starts fresh at navigation, not at session start.
	clock.advance(12 * time.Second)
	if err := m.SetAnswerDraft(model.SourceCode("print('hi')")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	ans, _, err := m.SubmitAnswer()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ans.TimeTakenSeconds != 12 {
		t.Fatalf("time taken = %d, want 12", ans.TimeTakenSeconds)
	}
}

func TestCompletionConfirmationGate(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)

	// Answer 2 of 5, then try to complete without confirming.
	if err := m.SetAnswerDraft(model.OptionIndex(1)); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, _, err := m.SubmitAnswer(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.SetAnswerDraft(model.SourceCode("pass")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, _, err := m.SubmitAnswer(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var cre *ConfirmationRequiredError
	err := m.BeginCompletion(false)
	if !errors.As(err, &cre) {
		t.Fatalf("complete: %v, want ConfirmationRequiredError", err)
	}
	if cre.Unanswered != 3 {
		t.Fatalf("unanswered = %d, want 3", cre.Unanswered)
	}
	if m.State() != model.SessionStateActive {
		t.Fatalf("state = %s, want active after refused confirmation", m.State())
	}

	// Confirmed completion proceeds.
	if err := m.BeginCompletion(true); err != nil {
		t.Fatalf("confirmed complete: %v", err)
	}
	if m.State() != model.SessionStateCompleting {
		t.Fatalf("state = %s, want completing", m.State())
	}
	if err := m.FinishCompletion(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if m.State() != model.SessionStateCompleted {
		t.Fatalf("state = %s, want completed", m.State())
	}
}

func TestCompletionWithAllAnsweredSkipsConfirmation(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)

	drafts := []model.AnswerValue{
		model.OptionIndex(0),
		model.SourceCode("print('x')"),
		model.FreeText("answer"),
		model.Rating(7),
		model.OptionIndex(3),
	}
	for _, d := range drafts {
		if err := m.SetAnswerDraft(d); err != nil {
			t.Fatalf("draft: %v", err)
		}
		if _, _, err := m.SubmitAnswer(); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if err := m.BeginCompletion(false); err != nil {
		t.Fatalf("complete with all answered: %v", err)
	}
}

func TestFallbackOnTransportFailure(t *testing.T) {
	loader := &fakeLoader{err: &model.TransportError{Op: "fetch questions", Err: errors.New("connection refused")}}
	m := New(uuid.New(), 42, loader, timer.New(nil), zerolog.Nop())

	source, err := m.LoadQuestions(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if source != model.QuestionSourceFallback {
		t.Fatalf("source = %s, want fallback", source)
	}
	if m.State() != model.SessionStateActive {
		t.Fatalf("state = %s, want active (not stuck in loading)", m.State())
	}

	// The degraded session is fully usable.
	if err := m.SetAnswerDraft(model.OptionIndex(2)); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, _, err := m.SubmitAnswer(); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestStaleExecutionResultDiscarded(t *testing.T) {
	m := activeMachine(t, &fakeLoader{questions: fiveQuestions()}, nil)

	// Issue a run on question 2 (coding), then navigate away before the
	// result lands.
	if err := m.SelectQuestion(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := m.SetAnswerDraft(model.SourceCode("print('hi')")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	_, epoch, err := m.CurrentCodeDraft()
	if err != nil {
		t.Fatalf("code draft: %v", err)
	}

	if err := m.SelectQuestion(2); err != nil {
		t.Fatalf("select: %v", err)
	}

	applied := m.ApplyExecution(epoch, model.ExecutionResult{Succeeded: true, Output: "hi"})
	if applied {
		t.Fatal("stale result applied, want discarded")
	}
	if m.TransientOutput() != nil {
		t.Fatal("transient output set from stale result")
	}

	// A result for the current epoch applies.
	if err := m.SelectQuestion(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	_, epoch, err = m.CurrentCodeDraft()
	if err != nil {
		t.Fatalf("code draft: %v", err)
	}
	if !m.ApplyExecution(epoch, model.ExecutionResult{Succeeded: true, Output: "hi"}) {
		t.Fatal("fresh result discarded")
	}
	if out := m.TransientOutput(); out == nil || out.Output != "hi" {
		t.Fatalf("transient output = %+v", out)
	}
}

// Submitting question 1 then tab-switching on question 2 must record the
// violation against question 2 without disturbing question 1's finalized
// answer.
func TestViolationIndependentOfFinalizedAnswers(t *testing.T) {
	qs := fiveQuestions()
	m := activeMachine(t, &fakeLoader{questions: qs}, nil)

	if err := m.SetAnswerDraft(model.OptionIndex(2)); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, advanced, err := m.SubmitAnswer(); err != nil || !advanced {
		t.Fatalf("submit: advanced=%v err=%v", advanced, err)
	}

	ch := proctor.NewChannel(uuid.New(), 42, &nopCollector{}, zerolog.Nop())
	sub, err := ch.Install()
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	defer sub.Close()
	agg := proctor.NewAggregator(nil, zerolog.Nop())

	ev := ch.Record(context.Background(), model.EventTabSwitch, time.Now(), "document hidden", m.Cursor())
	summary := agg.OnEvent(ev)

	if summary.Count != 1 {
		t.Fatalf("violation count = %d, want 1", summary.Count)
	}
	if ev.QuestionIndex != 1 {
		t.Fatalf("event question index = %d, want 1", ev.QuestionIndex)
	}
	stored, ok := m.Answer(qs[0].ID)
	if !ok || !stored.Answered || stored.Value.(model.OptionIndex) != 2 {
		t.Fatalf("finalized answer disturbed: %+v", stored)
	}
}

type nopCollector struct{}

func (nopCollector) Log(context.Context, model.ProctoringEvent) error { return nil }
