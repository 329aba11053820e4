package model

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates integrity-relevant browser events.
type EventKind string

const (
	EventTabSwitch   EventKind = "tab_switch"
	EventCopy        EventKind = "copy"
	EventPaste       EventKind = "paste"
	EventContextMenu EventKind = "context_menu"
	EventFaceAbsent  EventKind = "face_absent"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventTabSwitch, EventCopy, EventPaste, EventContextMenu, EventFaceAbsent:
		return true
	}
	return false
}

// Severity classifies how suspicious an event kind is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Weight returns the risk contribution of one event at this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 3
	default:
		return 1
	}
}

// ProctoringEvent is an immutable, append-only integrity record. Ordering
// in the channel log is the sole source of truth; events are never edited
// or deleted.
type ProctoringEvent struct {
	ID            uuid.UUID `json:"id"`
	AssessmentID  uuid.UUID `json:"assessment_id"`
	CandidateID   int64     `json:"candidate_id"`
	Kind          EventKind `json:"event_type"`
	Severity      Severity  `json:"severity"`
	Description   string    `json:"description"`
	QuestionIndex int       `json:"question_index"`
	Timestamp     time.Time `json:"timestamp"`
}

// ViolationSummary is the aggregator's running view of a session's
// integrity state. Count is monotonically non-decreasing; Flagged never
// reverts to false within a session.
type ViolationSummary struct {
	Count            int               `json:"count"`
	Recent           []string          `json:"recent"`
	Flagged          bool              `json:"flagged"`
	RiskScore        int               `json:"risk_score"`
	RiskLevel        Severity          `json:"risk_level"`
	CountsByKind     map[EventKind]int `json:"counts_by_kind"`
	CountsBySeverity map[Severity]int  `json:"counts_by_severity"`
}
