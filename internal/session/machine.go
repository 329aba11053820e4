// Package session implements the assessment session state machine: the
// single owner of the cursor, drafts, answers, and lifecycle state. Every
// mutation funnels through the Machine; no other component touches answer
// state directly.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/timer"
	"github.com/rs/zerolog"
)

// QuestionLoader fetches the ordered question sequence from the external
// assessment service.
type QuestionLoader interface {
	FetchQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

// ConfirmationRequiredError signals that completion needs explicit
// candidate confirmation because questions remain unanswered. It is a
// policy gate, not a failure.
type ConfirmationRequiredError struct {
	Unanswered int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%d questions unanswered, confirmation required", e.Unanswered)
}

// Machine is one candidate's session over one assessment's question
// sequence. A single mutex serializes every mutation so concurrent HTTP
// and WebSocket handlers observe one consistent ordering.
type Machine struct {
	mu  sync.Mutex
	log zerolog.Logger

	assessmentID uuid.UUID
	candidateID  int64
	loader       QuestionLoader
	timer        *timer.Authority

	state     model.SessionState
	source    model.QuestionSource
	questions []model.Question
	cursor    int
	answers   map[uuid.UUID]*model.Answer
	drafts    map[uuid.UUID]model.AnswerValue

	// epoch increments on every cursor change. Late code-execution
	// results carry the epoch they were issued under and are discarded
	// when it no longer matches.
	epoch     uint64
	transient *model.ExecutionResult

	limitSeconds int
}

// New creates a Machine in the loading state.
func New(assessmentID uuid.UUID, candidateID int64, loader QuestionLoader, ta *timer.Authority, log zerolog.Logger) *Machine {
	return &Machine{
		log: log.With().
			Str("component", "session_machine").
			Str("assessment_id", assessmentID.String()).
			Int64("candidate_id", candidateID).
			Logger(),
		assessmentID: assessmentID,
		candidateID:  candidateID,
		loader:       loader,
		timer:        ta,
		state:        model.SessionStateLoading,
		answers:      make(map[uuid.UUID]*model.Answer),
		drafts:       make(map[uuid.UUID]model.AnswerValue),
	}
}

// LoadQuestions fetches the question sequence and activates the session.
// A transport failure falls back to the bundled question set so the
// candidate flow is never blocked; the fallback is reported as degraded
// operation, never as a successful load.
func (m *Machine) LoadQuestions(ctx context.Context) (model.QuestionSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.SessionStateLoading {
		return m.source, &model.ValidationError{Reason: "session already loaded"}
	}

	questions, err := m.loader.FetchQuestions(ctx, m.assessmentID)
	switch {
	case err != nil:
		m.log.Warn().Err(err).Msg("Question fetch failed, loading fallback set (degraded)")
		m.questions = FallbackQuestions()
		m.source = model.QuestionSourceFallback
	case len(questions) == 0:
		m.log.Warn().Msg("Question fetch returned empty sequence, loading fallback set (degraded)")
		m.questions = FallbackQuestions()
		m.source = model.QuestionSourceFallback
	default:
		m.questions = questions
		m.source = model.QuestionSourceService
	}

	m.limitSeconds = 0
	for _, q := range m.questions {
		m.limitSeconds += q.TimeLimitSeconds
	}

	m.state = model.SessionStateActive
	m.cursor = 0
	m.timer.StartSession()

	m.log.Info().
		Str("source", string(m.source)).
		Int("questions", len(m.questions)).
		Msg("Session active")

	return m.source, nil
}

// State returns the lifecycle state.
func (m *Machine) State() model.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Cursor returns the current question index.
func (m *Machine) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Epoch returns the current navigation generation.
func (m *Machine) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// CurrentQuestion returns the question under the cursor.
func (m *Machine) CurrentQuestion() (model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == model.SessionStateLoading || len(m.questions) == 0 {
		return model.Question{}, &model.ValidationError{Reason: "session has no questions loaded"}
	}
	return m.questions[m.cursor], nil
}

// SelectQuestion moves the cursor to an explicit index. Out-of-range
// indices are a BoundsError. Moving the cursor re-arms the question timer
// and clears transient per-question output.
func (m *Machine) SelectQuestion(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(m.questions) {
		return &model.BoundsError{Index: index, Count: len(m.questions)}
	}
	m.moveCursorLocked(index)
	return nil
}

// Next advances the cursor by one, clamped at the last question.
func (m *Machine) Next() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireActiveLocked(); err != nil {
		return err
	}
	if next := m.cursor + 1; next < len(m.questions) {
		m.moveCursorLocked(next)
	}
	return nil
}

// Previous moves the cursor back by one, clamped at zero.
func (m *Machine) Previous() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireActiveLocked(); err != nil {
		return err
	}
	if prev := m.cursor - 1; prev >= 0 {
		m.moveCursorLocked(prev)
	}
	return nil
}

// moveCursorLocked performs the cursor change bookkeeping: epoch bump,
// timer re-arm, transient scratch state cleared.
func (m *Machine) moveCursorLocked(index int) {
	if index == m.cursor {
		return
	}
	m.cursor = index
	m.epoch++
	m.transient = nil
	m.timer.ResetForQuestion()
}

// SetAnswerDraft stores a provisional value for the current question.
// The draft must type-match the question; no other validation happens
// until submission.
func (m *Machine) SetAnswerDraft(value model.AnswerValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return err
	}

	q := m.questions[m.cursor]
	if value.Kind() != q.Type {
		return &model.ValidationError{
			Reason: fmt.Sprintf("answer kind %s does not match question type %s", value.Kind(), q.Type),
		}
	}
	if ans, ok := m.answers[q.ID]; ok && ans.Answered {
		return &model.ValidationError{Reason: "question already answered"}
	}

	m.drafts[q.ID] = value
	return nil
}

// Draft returns the current question's provisional value, or nil.
func (m *Machine) Draft() model.AnswerValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.questions) == 0 {
		return nil
	}
	return m.drafts[m.questions[m.cursor].ID]
}

// CurrentCodeDraft returns the source-code draft of the current question
// together with the navigation epoch it was read under. It fails with a
// ValidationError when the current question is not a coding question or
// the draft is empty; the sandbox is never contacted in that case.
func (m *Machine) CurrentCodeDraft() (string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return "", 0, err
	}
	q := m.questions[m.cursor]
	if q.Type != model.QuestionTypeCode {
		return "", 0, &model.ValidationError{Reason: "current question is not a coding question"}
	}
	draft, ok := m.drafts[q.ID].(model.SourceCode)
	if !ok {
		return "", 0, &model.ValidationError{Reason: "write some code first"}
	}
	if err := draft.Validate(); err != nil {
		return "", 0, err
	}
	return string(draft), m.epoch, nil
}

// SubmitAnswer finalizes the current question's draft. The answered flag,
// once set, is never reset while the session is active: a repeat submit
// fails and leaves the stored value untouched. On success the cursor
// auto-advances unless already on the last question; the advanced return
// reports whether it did.
func (m *Machine) SubmitAnswer() (answer model.Answer, advanced bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return model.Answer{}, false, err
	}

	q := m.questions[m.cursor]
	if existing, ok := m.answers[q.ID]; ok && existing.Answered {
		return *existing, false, &model.ValidationError{Reason: "question already answered"}
	}

	draft, ok := m.drafts[q.ID]
	if !ok {
		return model.Answer{}, false, &model.ValidationError{Reason: "please provide an answer"}
	}
	if err := draft.Validate(); err != nil {
		return model.Answer{}, false, err
	}

	final := &model.Answer{
		QuestionID:       q.ID,
		Value:            draft,
		Answered:         true,
		TimeTakenSeconds: m.timer.ElapsedSeconds(),
		SubmittedAt:      time.Now().UTC(),
	}
	m.answers[q.ID] = final
	m.questions[m.cursor].Answered = true

	if next := m.cursor + 1; next < len(m.questions) {
		m.moveCursorLocked(next)
		advanced = true
	}

	m.log.Info().
		Str("question_id", q.ID.String()).
		Int("time_taken_seconds", final.TimeTakenSeconds).
		Bool("advanced", advanced).
		Msg("Answer submitted")

	return *final, advanced, nil
}

// Answer returns the finalized answer for a question, if any.
func (m *Machine) Answer(questionID uuid.UUID) (model.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ans, ok := m.answers[questionID]
	if !ok {
		return model.Answer{}, false
	}
	return *ans, true
}

// UnansweredCount reports how many questions have no finalized answer.
func (m *Machine) UnansweredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unansweredLocked()
}

func (m *Machine) unansweredLocked() int {
	n := 0
	for _, q := range m.questions {
		if ans, ok := m.answers[q.ID]; !ok || !ans.Answered {
			n++
		}
	}
	return n
}

// BeginCompletion transitions active → completing. When unanswered
// questions remain and confirm is false it fails with a
// ConfirmationRequiredError carrying the exact unanswered count; the
// caller prompts and retries with confirm set.
func (m *Machine) BeginCompletion(confirm bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireActiveLocked(); err != nil {
		return err
	}
	if unanswered := m.unansweredLocked(); unanswered > 0 && !confirm {
		return &ConfirmationRequiredError{Unanswered: unanswered}
	}
	m.state = model.SessionStateCompleting
	return nil
}

// FinishCompletion transitions completing → completed after the
// submission pipeline reports success.
func (m *Machine) FinishCompletion() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != model.SessionStateCompleting {
		return &model.ValidationError{Reason: "session is not completing"}
	}
	m.state = model.SessionStateCompleted
	m.log.Info().Msg("Session completed")
	return nil
}

// AbortCompletion returns completing → active when the final submission
// could not be delivered, so the candidate can retry. Local answer state
// remains the durable source of truth.
func (m *Machine) AbortCompletion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == model.SessionStateCompleting {
		m.state = model.SessionStateActive
	}
}

// ApplyExecution stores a code-execution result as transient output for
// the current question. A result issued under an older epoch (the
// candidate navigated away) is discarded and false is returned. The
// stored Answer is never touched.
func (m *Machine) ApplyExecution(epoch uint64, res model.ExecutionResult) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != model.SessionStateActive || epoch != m.epoch {
		m.log.Debug().
			Uint64("result_epoch", epoch).
			Uint64("current_epoch", m.epoch).
			Msg("Discarding stale execution result")
		return false
	}
	m.transient = &res
	return true
}

// TransientOutput returns the current question's scratch execution
// output, or nil. It is not part of the durable Answer.
func (m *Machine) TransientOutput() *model.ExecutionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transient
}

// FinalAnswers returns all finalized answers keyed by question id.
func (m *Machine) FinalAnswers() map[uuid.UUID]model.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]model.Answer, len(m.answers))
	for id, ans := range m.answers {
		out[id] = *ans
	}
	return out
}

// Snapshot builds the reload-safe client view of the session.
func (m *Machine) Snapshot(violations model.ViolationSummary) model.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	answers := make(map[uuid.UUID]model.Answer, len(m.answers))
	for id, ans := range m.answers {
		answers[id] = *ans
	}
	drafts := make(map[uuid.UUID]model.AnswerEnvelope, len(m.drafts))
	for id, d := range m.drafts {
		drafts[id] = model.Envelope(d)
	}
	questions := make([]model.Question, len(m.questions))
	copy(questions, m.questions)

	remaining := m.limitSeconds - m.timer.SessionElapsedSeconds()
	if remaining < 0 {
		remaining = 0
	}

	return model.SessionSnapshot{
		AssessmentID:     m.assessmentID,
		CandidateID:      m.candidateID,
		State:            m.state,
		Source:           m.source,
		Questions:        questions,
		Cursor:           m.cursor,
		Answers:          answers,
		Drafts:           drafts,
		StartedAt:        m.timer.StartedAt(),
		RemainingSeconds: remaining,
		Violations:       violations,
	}
}

func (m *Machine) requireActiveLocked() error {
	if m.state != model.SessionStateActive {
		return &model.ValidationError{Reason: "session is not active (state: " + string(m.state) + ")"}
	}
	return nil
}
