// Package pipeline packages finalized session state into wire payloads
// for the external evaluation service, with local pending-retry caching
// so an API outage never loses a candidate's answer.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/rs/zerolog"
)

// ErrQueuedForRetry reports that a submission could not be delivered and
// was cached locally. It is a warning, not a failure: the local answer
// state stays authoritative and the candidate is never blocked.
var ErrQueuedForRetry = errors.New("submission queued for retry")

// AnswerSubmission is the wire payload for one finalized answer. The
// attempt marker increases monotonically across the session so the
// receiving service can deduplicate resubmissions of the same question.
type AnswerSubmission struct {
	QuestionID       uuid.UUID            `json:"question_id"`
	Attempt          uint64               `json:"attempt"`
	Answer           model.AnswerEnvelope `json:"answer"`
	TimeTakenSeconds int                  `json:"time_taken_seconds"`
}

// CompletionSubmission is the wire payload for final session completion.
type CompletionSubmission struct {
	Attempt    uint64                 `json:"attempt"`
	Answers    []AnswerSubmission     `json:"answers"`
	Violations model.ViolationSummary `json:"violations"`
}

// Evaluator is the external assessment/evaluation service.
type Evaluator interface {
	SubmitAnswer(ctx context.Context, assessmentID uuid.UUID, sub AnswerSubmission) error
	CompleteAssessment(ctx context.Context, assessmentID uuid.UUID, sub CompletionSubmission) error
}

// Config bounds the retry policy. Three attempts with doubling backoff
// keeps a transient blip invisible without stalling the event flow.
type Config struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

// DefaultConfig returns the production retry policy.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseBackoff: 500 * time.Millisecond}
}

// Pipeline delivers per-question and completion submissions, idempotent
// under retry via question id plus attempt marker.
type Pipeline struct {
	mu        sync.Mutex
	log       zerolog.Logger
	evaluator Evaluator
	cfg       Config
	attempt   atomic.Uint64
	pending   []pendingAnswer
}

type pendingAnswer struct {
	assessmentID uuid.UUID
	sub          AnswerSubmission
}

// New creates a Pipeline.
func New(evaluator Evaluator, cfg Config, log zerolog.Logger) *Pipeline {
	if cfg.MaxRetries <= 0 {
		cfg = DefaultConfig()
	}
	return &Pipeline{
		log:       log.With().Str("component", "submission_pipeline").Logger(),
		evaluator: evaluator,
		cfg:       cfg,
	}
}

// SubmitQuestionAnswer delivers one finalized answer. Transport failure
// never rolls back the local answered state: after bounded retries the
// submission is cached and ErrQueuedForRetry returned so the caller can
// surface a non-fatal warning.
func (p *Pipeline) SubmitQuestionAnswer(ctx context.Context, assessmentID uuid.UUID, ans model.Answer) error {
	sub := AnswerSubmission{
		QuestionID:       ans.QuestionID,
		Attempt:          p.attempt.Add(1),
		Answer:           model.Envelope(ans.Value),
		TimeTakenSeconds: ans.TimeTakenSeconds,
	}

	if err := p.deliverWithBackoff(ctx, func(c context.Context) error {
		return p.evaluator.SubmitAnswer(c, assessmentID, sub)
	}); err != nil {
		p.mu.Lock()
		p.pending = append(p.pending, pendingAnswer{assessmentID: assessmentID, sub: sub})
		queued := len(p.pending)
		p.mu.Unlock()

		p.log.Warn().Err(err).
			Str("question_id", sub.QuestionID.String()).
			Int("queued", queued).
			Msg("Answer submission failed, cached for retry")
		return ErrQueuedForRetry
	}
	return nil
}

// FlushPending redelivers cached submissions in order, stopping at the
// first failure so the attempt sequence the service sees stays causal.
func (p *Pipeline) FlushPending(ctx context.Context) error {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for i, item := range pending {
		item := item
		if err := p.deliverWithBackoff(ctx, func(c context.Context) error {
			return p.evaluator.SubmitAnswer(c, item.assessmentID, item.sub)
		}); err != nil {
			p.mu.Lock()
			p.pending = append(pending[i:], p.pending...)
			p.mu.Unlock()
			return err
		}
	}
	return nil
}

// SubmitCompletion flushes any cached answers and then delivers the
// completion payload with the violation summary. An undeliverable
// completion is returned to the caller, which keeps the session in a
// retriable state; nothing is lost locally.
func (p *Pipeline) SubmitCompletion(ctx context.Context, assessmentID uuid.UUID, answers map[uuid.UUID]model.Answer, violations model.ViolationSummary) error {
	if err := p.FlushPending(ctx); err != nil {
		return &model.TransportError{Op: "flush pending answers", Err: err}
	}

	sub := CompletionSubmission{
		Attempt:    p.attempt.Add(1),
		Answers:    make([]AnswerSubmission, 0, len(answers)),
		Violations: violations,
	}
	for _, ans := range answers {
		sub.Answers = append(sub.Answers, AnswerSubmission{
			QuestionID:       ans.QuestionID,
			Answer:           model.Envelope(ans.Value),
			TimeTakenSeconds: ans.TimeTakenSeconds,
		})
	}

	if err := p.deliverWithBackoff(ctx, func(c context.Context) error {
		return p.evaluator.CompleteAssessment(c, assessmentID, sub)
	}); err != nil {
		return &model.TransportError{Op: "complete assessment", Err: err}
	}

	p.log.Info().
		Int("answers", len(sub.Answers)).
		Int("violations", violations.Count).
		Msg("Completion delivered")
	return nil
}

// PendingCount reports how many answer submissions await redelivery.
func (p *Pipeline) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// deliverWithBackoff runs fn up to MaxRetries times with doubling delay.
func (p *Pipeline) deliverWithBackoff(ctx context.Context, fn func(context.Context) error) error {
	var err error
	delay := p.cfg.BaseBackoff
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
