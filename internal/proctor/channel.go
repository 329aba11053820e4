// Package proctor implements the integrity-monitoring engine: a durable,
// ordered channel of browser integrity events and the aggregator that
// classifies them into a running violation summary.
package proctor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/rs/zerolog"
)

// Collector is the best-effort transport to the external proctoring log.
// Delivery failures are retained locally and retried, never dropped
// silently.
type Collector interface {
	Log(ctx context.Context, ev model.ProctoringEvent) error
}

// Channel is the append-only, ordered log of integrity events for one
// session. Recording never fails; ordering is the sole source of truth.
type Channel struct {
	mu           sync.Mutex
	log          zerolog.Logger
	collector    Collector
	assessmentID uuid.UUID
	candidateID  int64

	events    []model.ProctoringEvent
	pending   []model.ProctoringEvent
	installed bool
	closed    bool
}

// NewChannel creates a channel bound to one candidate's session.
func NewChannel(assessmentID uuid.UUID, candidateID int64, collector Collector, log zerolog.Logger) *Channel {
	return &Channel{
		log:          log.With().Str("component", "event_channel").Logger(),
		collector:    collector,
		assessmentID: assessmentID,
		candidateID:  candidateID,
	}
}

// Subscription is the explicit lifecycle handle for an installed channel.
// Close is safe to call on every exit path; it releases the channel so a
// later session can install a fresh one.
type Subscription struct {
	ch   *Channel
	once sync.Once
}

// Close tears the channel down. Events recorded after Close are dropped
// with a warning rather than silently duplicated across remounts.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.ch.mu.Lock()
		s.ch.installed = false
		s.ch.closed = true
		s.ch.mu.Unlock()
	})
}

// Install registers the channel's event sources. It must be called
// exactly once per session; a second call without an intervening Close
// fails so duplicate listener registration cannot happen.
func (c *Channel) Install() (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.installed {
		return nil, &model.ValidationError{Reason: "event channel already installed"}
	}
	c.installed = true
	c.closed = false
	return &Subscription{ch: c}, nil
}

// Record appends an integrity event and forwards it to the collector.
// Side-effect only; it never fails. If the collector is unavailable the
// event is retained for retry via FlushPending.
func (c *Channel) Record(ctx context.Context, kind model.EventKind, ts time.Time, description string, questionIndex int) model.ProctoringEvent {
	ev := model.ProctoringEvent{
		ID:            uuid.New(),
		AssessmentID:  c.assessmentID,
		CandidateID:   c.candidateID,
		Kind:          kind,
		Severity:      Classify(kind),
		Description:   description,
		QuestionIndex: questionIndex,
		Timestamp:     ts,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Warn().Str("kind", string(kind)).Msg("Event recorded after teardown, dropping")
		return ev
	}
	c.events = append(c.events, ev)
	c.mu.Unlock()

	if err := c.collector.Log(ctx, ev); err != nil {
		c.log.Warn().Err(err).Str("kind", string(kind)).Msg("Collector unavailable, retaining event")
		c.mu.Lock()
		c.pending = append(c.pending, ev)
		c.mu.Unlock()
	}
	return ev
}

// FlushPending retries retained events in recording order. It stops at
// the first failure so causal order is never broken.
func (c *Channel) FlushPending(ctx context.Context) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for i, ev := range pending {
		if err := c.collector.Log(ctx, ev); err != nil {
			c.mu.Lock()
			// Keep the failed event and everything after it, in order.
			c.pending = append(pending[i:], c.pending...)
			c.mu.Unlock()
			c.log.Warn().Err(err).Int("retained", len(pending)-i).Msg("Collector still unavailable")
			return
		}
	}
}

// Events returns a copy of the ordered log.
func (c *Channel) Events() []model.ProctoringEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ProctoringEvent, len(c.events))
	copy(out, c.events)
	return out
}

// PendingCount reports how many events still await collector delivery.
func (c *Channel) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
