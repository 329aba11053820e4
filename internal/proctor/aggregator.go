package proctor

import (
	"fmt"
	"sync"

	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/rs/zerolog"
)

// recentLimit bounds the human-readable entries kept for display.
const recentLimit = 10

// Risk thresholds: a weighted score above riskHigh flags the session as
// high risk, above riskMedium as medium.
const (
	riskMedium = 10
	riskHigh   = 20
)

// Classify maps an event kind to its severity. Clipboard traffic during a
// timed assessment is the strongest signal; a suppressed context menu the
// weakest.
func Classify(kind model.EventKind) model.Severity {
	switch kind {
	case model.EventCopy, model.EventPaste, model.EventFaceAbsent:
		return model.SeverityHigh
	case model.EventTabSwitch:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// AlertFunc delivers an immediate user-visible alert for a violation.
// Implementations must not block; alerts never pause the session or the
// timer.
type AlertFunc func(kind model.EventKind, message string)

// Aggregator consumes event-channel entries and maintains the running
// violation summary. The count never decreases, and once flagged a
// session stays flagged. Aggregation is local arithmetic and cannot fail.
type Aggregator struct {
	mu         sync.Mutex
	log        zerolog.Logger
	alert      AlertFunc
	count      int
	flagged    bool
	riskScore  int
	recent     []string
	byKind     map[model.EventKind]int
	bySeverity map[model.Severity]int
}

// NewAggregator creates an aggregator. alert may be nil.
func NewAggregator(alert AlertFunc, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log:        log.With().Str("component", "violation_aggregator").Logger(),
		alert:      alert,
		byKind:     make(map[model.EventKind]int),
		bySeverity: make(map[model.Severity]int),
	}
}

// OnEvent folds one event into the summary and fires the alert callback.
func (a *Aggregator) OnEvent(ev model.ProctoringEvent) model.ViolationSummary {
	a.mu.Lock()

	a.count++
	a.flagged = true
	a.riskScore += ev.Severity.Weight()
	a.byKind[ev.Kind]++
	a.bySeverity[ev.Severity]++

	entry := fmt.Sprintf("%s detected at %s", ev.Kind, ev.Timestamp.Format("15:04:05"))
	a.recent = append(a.recent, entry)
	if len(a.recent) > recentLimit {
		a.recent = a.recent[len(a.recent)-recentLimit:]
	}

	summary := a.summaryLocked()
	a.mu.Unlock()

	a.log.Info().
		Str("kind", string(ev.Kind)).
		Str("severity", string(ev.Severity)).
		Int("count", summary.Count).
		Msg("Violation recorded")

	if a.alert != nil {
		a.alert(ev.Kind, entry)
	}
	return summary
}

// Summary returns the current violation summary.
func (a *Aggregator) Summary() model.ViolationSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summaryLocked()
}

func (a *Aggregator) summaryLocked() model.ViolationSummary {
	recent := make([]string, len(a.recent))
	copy(recent, a.recent)

	byKind := make(map[model.EventKind]int, len(a.byKind))
	for k, v := range a.byKind {
		byKind[k] = v
	}
	bySeverity := make(map[model.Severity]int, len(a.bySeverity))
	for k, v := range a.bySeverity {
		bySeverity[k] = v
	}

	return model.ViolationSummary{
		Count:            a.count,
		Recent:           recent,
		Flagged:          a.flagged,
		RiskScore:        a.riskScore,
		RiskLevel:        riskLevel(a.riskScore),
		CountsByKind:     byKind,
		CountsBySeverity: bySeverity,
	}
}

func riskLevel(score int) model.Severity {
	switch {
	case score > riskHigh:
		return model.SeverityHigh
	case score > riskMedium:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
