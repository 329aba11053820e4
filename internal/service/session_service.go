package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/codeexec"
	"github.com/hirewise/assessment-backend/internal/config"
	"github.com/hirewise/assessment-backend/internal/gateway"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/pipeline"
	"github.com/hirewise/assessment-backend/internal/proctor"
	"github.com/hirewise/assessment-backend/internal/session"
	"github.com/hirewise/assessment-backend/internal/timer"
	"github.com/hirewise/assessment-backend/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// liveSession bundles the per-candidate components: the state machine,
// the integrity channel and aggregator, and the submission pipeline.
type liveSession struct {
	machine    *session.Machine
	channel    *proctor.Channel
	aggregator *proctor.Aggregator
	sub        *proctor.Subscription
	pipe       *pipeline.Pipeline
}

// SessionService owns all live assessment sessions. Handlers and the
// WebSocket layer never touch a Machine directly; every operation goes
// through here so the Redis mirror and persistence queues stay in sync.
type SessionService struct {
	cfg        *config.Config
	log        zerolog.Logger
	rdb        *redis.Client
	assessment *gateway.AssessmentClient
	sandbox    *gateway.SandboxClient
	bridge     *codeexec.Bridge

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewSessionService creates a SessionService.
func NewSessionService(cfg *config.Config, rdb *redis.Client, assessment *gateway.AssessmentClient, sandbox *gateway.SandboxClient, log zerolog.Logger) *SessionService {
	return &SessionService{
		cfg:        cfg,
		log:        log.With().Str("component", "session_service").Logger(),
		rdb:        rdb,
		assessment: assessment,
		sandbox:    sandbox,
		bridge:     codeexec.NewBridge(sandbox, log),
		sessions:   make(map[string]*liveSession),
	}
}

func sessionKey(assessmentID uuid.UUID, candidateID int64) string {
	return fmt.Sprintf("%s:%d", assessmentID, candidateID)
}

// StartSession activates a session for one candidate, or returns the
// existing one so a page reload resumes instead of restarting. The
// snapshot carries everything the client needs to rebuild its view.
func (s *SessionService) StartSession(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (model.SessionSnapshot, error) {
	s.mu.Lock()
	key := sessionKey(assessmentID, candidateID)
	if live, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return s.snapshotLive(ctx, assessmentID, candidateID, live), nil
	}

	live := &liveSession{
		machine: session.New(assessmentID, candidateID, &cachedLoader{rdb: s.rdb, upstream: s.assessment, log: s.log}, timer.New(nil), s.log),
		pipe:    pipeline.New(s.assessment, pipeline.DefaultConfig(), s.log),
	}
	live.aggregator = proctor.NewAggregator(s.alertFunc(assessmentID), s.log)
	live.channel = proctor.NewChannel(assessmentID, candidateID, &queueCollector{
		rdb:        s.rdb,
		assessment: s.assessment,
	}, s.log)
	s.sessions[key] = live
	s.mu.Unlock()

	sub, err := live.channel.Install()
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	live.sub = sub

	if _, err := live.machine.LoadQuestions(ctx); err != nil {
		return model.SessionSnapshot{}, err
	}

	s.rdb.Set(ctx, config.CacheKey.CandidateActiveAssessmentKey(candidateID), assessmentID.String(), s.cfg.JWTExpiry)

	return s.snapshotLive(ctx, assessmentID, candidateID, live), nil
}

// Snapshot returns the reload-safe view of a live session.
func (s *SessionService) Snapshot(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (model.SessionSnapshot, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	return s.snapshotLive(ctx, assessmentID, candidateID, live), nil
}

// SelectQuestion moves the cursor to an explicit index.
func (s *SessionService) SelectQuestion(ctx context.Context, assessmentID uuid.UUID, candidateID int64, index int) (model.SessionSnapshot, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	if err := live.machine.SelectQuestion(index); err != nil {
		return model.SessionSnapshot{}, err
	}
	return s.snapshotLive(ctx, assessmentID, candidateID, live), nil
}

// NextQuestion advances the cursor, clamped at the last question.
func (s *SessionService) NextQuestion(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (model.SessionSnapshot, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	if err := live.machine.Next(); err != nil {
		return model.SessionSnapshot{}, err
	}
	return s.snapshotLive(ctx, assessmentID, candidateID, live), nil
}

// PreviousQuestion moves the cursor back, clamped at zero.
func (s *SessionService) PreviousQuestion(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (model.SessionSnapshot, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	if err := live.machine.Previous(); err != nil {
		return model.SessionSnapshot{}, err
	}
	return s.snapshotLive(ctx, assessmentID, candidateID, live), nil
}

// SaveDraft stores a provisional answer for the current question and
// mirrors the draft set to Redis for crash recovery.
func (s *SessionService) SaveDraft(ctx context.Context, assessmentID uuid.UUID, candidateID int64, env model.AnswerEnvelope) error {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return err
	}

	value, err := env.Value()
	if err != nil {
		return err
	}
	if err := live.machine.SetAnswerDraft(value); err != nil {
		return err
	}

	snap := live.machine.Snapshot(live.aggregator.Summary())
	if data, err := json.Marshal(snap.Drafts); err == nil {
		s.rdb.Set(ctx, config.CacheKey.CandidateDraftsKey(assessmentID.String(), candidateID), data, s.cfg.JWTExpiry)
	}
	return nil
}

// SubmitResult is the outcome of finalizing one answer.
type SubmitResult struct {
	Answer        model.Answer `json:"answer"`
	Advanced      bool         `json:"advanced"`
	Cursor        int          `json:"cursor"`
	PendingUpload bool         `json:"pending_upload"`
}

// SubmitAnswer finalizes the current question's draft. The answer is
// queued for database persistence and delivered to the evaluation
// service; an undeliverable submission is cached and retried, reported
// to the client as pending, never as a failure.
func (s *SessionService) SubmitAnswer(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (SubmitResult, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return SubmitResult{}, err
	}

	answer, advanced, err := live.machine.SubmitAnswer()
	if err != nil {
		return SubmitResult{}, err
	}

	s.enqueueAnswer(ctx, assessmentID, candidateID, answer)

	pending := false
	if err := live.pipe.SubmitQuestionAnswer(ctx, assessmentID, answer); err != nil {
		if !errors.Is(err, pipeline.ErrQueuedForRetry) {
			return SubmitResult{}, err
		}
		pending = true
	}

	return SubmitResult{
		Answer:        answer,
		Advanced:      advanced,
		Cursor:        live.machine.Cursor(),
		PendingUpload: pending,
	}, nil
}

// RunCode executes the current code draft through the sandbox bridge.
func (s *SessionService) RunCode(ctx context.Context, assessmentID uuid.UUID, candidateID int64, language string) (model.ExecutionResult, bool, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.ExecutionResult{}, false, err
	}
	return s.bridge.Run(ctx, live.machine, language)
}

// RecordEvent appends one integrity event and folds it into the running
// violation summary. Recording is side-effect only and never blocks the
// candidate; any backlog to the collector is retried opportunistically.
func (s *SessionService) RecordEvent(ctx context.Context, assessmentID uuid.UUID, candidateID int64, kind model.EventKind, description string, ts time.Time) (model.ViolationSummary, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.ViolationSummary{}, err
	}
	if st := live.machine.State(); st != model.SessionStateActive {
		return model.ViolationSummary{}, &model.ValidationError{Reason: "session is not active (state: " + string(st) + ")"}
	}
	if !kind.Valid() {
		return model.ViolationSummary{}, &model.ValidationError{Reason: "unknown event kind: " + string(kind)}
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	ev := live.channel.Record(ctx, kind, ts, description, live.machine.Cursor())
	summary := live.aggregator.OnEvent(ev)
	live.channel.FlushPending(ctx)
	return summary, nil
}

// Violations returns the live violation summary.
func (s *SessionService) Violations(assessmentID uuid.UUID, candidateID int64) (model.ViolationSummary, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.ViolationSummary{}, err
	}
	return live.aggregator.Summary(), nil
}

// Complete finishes the session. Without confirm, unanswered questions
// surface as a ConfirmationRequiredError carrying the exact count. A
// delivery failure rolls the lifecycle back to active so the candidate
// can retry; finalized answers are never rolled back.
func (s *SessionService) Complete(ctx context.Context, assessmentID uuid.UUID, candidateID int64, confirm bool) (model.SessionSnapshot, error) {
	live, err := s.lookup(assessmentID, candidateID)
	if err != nil {
		return model.SessionSnapshot{}, err
	}

	if err := live.machine.BeginCompletion(confirm); err != nil {
		return model.SessionSnapshot{}, err
	}

	live.channel.FlushPending(ctx)
	if err := live.pipe.SubmitCompletion(ctx, assessmentID, live.machine.FinalAnswers(), live.aggregator.Summary()); err != nil {
		live.machine.AbortCompletion()
		return model.SessionSnapshot{}, err
	}

	if err := live.machine.FinishCompletion(); err != nil {
		return model.SessionSnapshot{}, err
	}
	live.sub.Close()
	s.rdb.Del(ctx, config.CacheKey.CandidateActiveAssessmentKey(candidateID))

	// The live session is destroyed on completion; the Redis snapshot
	// written below is what survives for post-completion reads.
	s.mu.Lock()
	delete(s.sessions, sessionKey(assessmentID, candidateID))
	s.mu.Unlock()

	return s.snapshotLive(ctx, assessmentID, candidateID, live), nil
}

func (s *SessionService) lookup(assessmentID uuid.UUID, candidateID int64) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.sessions[sessionKey(assessmentID, candidateID)]
	if !ok {
		return nil, &model.ValidationError{Reason: "no session for this assessment"}
	}
	return live, nil
}

// snapshotLive builds the client view and mirrors it to Redis so a
// restarted instance can at least show the last known state.
func (s *SessionService) snapshotLive(ctx context.Context, assessmentID uuid.UUID, candidateID int64, live *liveSession) model.SessionSnapshot {
	snap := live.machine.Snapshot(live.aggregator.Summary())
	if data, err := json.Marshal(snap); err == nil {
		s.rdb.Set(ctx, config.CacheKey.CandidateSessionKey(assessmentID.String(), candidateID), data, s.cfg.JWTExpiry)
	}
	return snap
}

// enqueueAnswer pushes a finalized answer onto the persistence queue
// consumed by the answer worker.
func (s *SessionService) enqueueAnswer(ctx context.Context, assessmentID uuid.UUID, candidateID int64, answer model.Answer) {
	payload := worker.AnswerPayload{
		AssessmentID:     assessmentID.String(),
		CandidateID:      candidateID,
		QuestionID:       answer.QuestionID.String(),
		Answer:           model.Envelope(answer.Value),
		TimeTakenSeconds: answer.TimeTakenSeconds,
		SubmittedAt:      answer.SubmittedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal answer payload failed")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, data).Err(); err != nil {
		s.log.Error().Err(err).Msg("Enqueue answer for persistence failed")
	}
}

// alertFunc publishes per-violation alerts on the assessment's monitor
// channel so recruiter dashboards see them live.
func (s *SessionService) alertFunc(assessmentID uuid.UUID) proctor.AlertFunc {
	channel := config.CacheKey.AssessmentProctorChannel(assessmentID.String())
	return func(kind model.EventKind, message string) {
		payload, _ := json.Marshal(map[string]string{
			"kind":    string(kind),
			"message": message,
		})
		if err := s.rdb.Publish(context.Background(), channel, payload).Err(); err != nil {
			s.log.Debug().Err(err).Msg("Monitor publish failed")
		}
	}
}

// questionCacheTTL bounds how long a fetched question set is shared
// across candidates of the same assessment.
const questionCacheTTL = 10 * time.Minute

// cachedLoader fronts the assessment client with a Redis question cache
// so one upstream fetch serves every candidate of an assessment. Cache
// misses and Redis outages fall through to the upstream client.
type cachedLoader struct {
	rdb      *redis.Client
	upstream *gateway.AssessmentClient
	log      zerolog.Logger
}

func (l *cachedLoader) FetchQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	key := config.CacheKey.AssessmentQuestionsKey(assessmentID.String())

	if raw, err := l.rdb.Get(ctx, key).Bytes(); err == nil {
		var questions []model.Question
		if err := json.Unmarshal(raw, &questions); err == nil && len(questions) > 0 {
			return questions, nil
		}
	}

	questions, err := l.upstream.FetchQuestions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(questions); err == nil {
		if err := l.rdb.Set(ctx, key, data, questionCacheTTL).Err(); err != nil {
			l.log.Debug().Err(err).Msg("Question cache write failed")
		}
	}
	return questions, nil
}

// queueCollector delivers integrity events to the persistence queue and
// forwards them upstream. Failure on either path reports an error so the
// channel retains the event; the event ID dedupes any replays.
type queueCollector struct {
	rdb        *redis.Client
	assessment *gateway.AssessmentClient
}

func (c *queueCollector) Log(ctx context.Context, ev model.ProctoringEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := c.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err(); err != nil {
		return fmt.Errorf("enqueue violation: %w", err)
	}
	return c.assessment.ReportProctoringEvent(ctx, ev)
}
