package proctor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/rs/zerolog"
)

func event(kind model.EventKind) model.ProctoringEvent {
	return model.ProctoringEvent{
		ID:           uuid.New(),
		AssessmentID: uuid.New(),
		Kind:         kind,
		Severity:     Classify(kind),
		Timestamp:    time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestCountMonotonicAndFlagIrreversible(t *testing.T) {
	a := NewAggregator(nil, zerolog.Nop())

	if s := a.Summary(); s.Flagged || s.Count != 0 {
		t.Fatalf("fresh aggregator: flagged=%v count=%d, want clean/0", s.Flagged, s.Count)
	}

	kinds := []model.EventKind{
		model.EventTabSwitch, model.EventCopy, model.EventPaste,
		model.EventContextMenu, model.EventTabSwitch,
	}
	prev := 0
	for _, k := range kinds {
		s := a.OnEvent(event(k))
		if s.Count <= prev {
			t.Fatalf("count %d not strictly increasing past %d", s.Count, prev)
		}
		if !s.Flagged {
			t.Fatal("flagged reverted to clean")
		}
		prev = s.Count
	}
	if got := a.Summary().Count; got != len(kinds) {
		t.Fatalf("count = %d, want %d", got, len(kinds))
	}
}

func TestFirstViolationFlags(t *testing.T) {
	a := NewAggregator(nil, zerolog.Nop())
	s := a.OnEvent(event(model.EventContextMenu))
	if !s.Flagged || s.Count != 1 {
		t.Fatalf("after first violation: flagged=%v count=%d", s.Flagged, s.Count)
	}
}

func TestRiskScoreAndLevel(t *testing.T) {
	a := NewAggregator(nil, zerolog.Nop())

	// One medium tab switch: weight 3 → low risk.
	s := a.OnEvent(event(model.EventTabSwitch))
	if s.RiskScore != 3 || s.RiskLevel != model.SeverityLow {
		t.Fatalf("score=%d level=%s, want 3/low", s.RiskScore, s.RiskLevel)
	}

	// Two high copies: 3+5+5=13 → medium.
	a.OnEvent(event(model.EventCopy))
	s = a.OnEvent(event(model.EventCopy))
	if s.RiskScore != 13 || s.RiskLevel != model.SeverityMedium {
		t.Fatalf("score=%d level=%s, want 13/medium", s.RiskScore, s.RiskLevel)
	}

	// Two more highs: 23 → high.
	a.OnEvent(event(model.EventPaste))
	s = a.OnEvent(event(model.EventFaceAbsent))
	if s.RiskScore != 23 || s.RiskLevel != model.SeverityHigh {
		t.Fatalf("score=%d level=%s, want 23/high", s.RiskScore, s.RiskLevel)
	}

	if s.CountsByKind[model.EventCopy] != 2 {
		t.Fatalf("copy count = %d, want 2", s.CountsByKind[model.EventCopy])
	}
	if s.CountsBySeverity[model.SeverityHigh] != 4 {
		t.Fatalf("high count = %d, want 4", s.CountsBySeverity[model.SeverityHigh])
	}
}

func TestRecentListBounded(t *testing.T) {
	a := NewAggregator(nil, zerolog.Nop())
	for i := 0; i < recentLimit+5; i++ {
		a.OnEvent(event(model.EventTabSwitch))
	}
	s := a.Summary()
	if len(s.Recent) != recentLimit {
		t.Fatalf("recent len = %d, want %d", len(s.Recent), recentLimit)
	}
	if s.Count != recentLimit+5 {
		t.Fatalf("count = %d, want %d", s.Count, recentLimit+5)
	}
}

func TestAlertFiredPerViolation(t *testing.T) {
	var alerts []model.EventKind
	a := NewAggregator(func(kind model.EventKind, _ string) {
		alerts = append(alerts, kind)
	}, zerolog.Nop())

	a.OnEvent(event(model.EventCopy))
	a.OnEvent(event(model.EventTabSwitch))

	if len(alerts) != 2 || alerts[0] != model.EventCopy || alerts[1] != model.EventTabSwitch {
		t.Fatalf("alerts = %v", alerts)
	}
}
