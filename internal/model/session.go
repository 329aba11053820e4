package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates the session lifecycle. Transitions are strictly
// forward: loading → active → completing → completed. Active is re-entrant
// across navigation; only the explicit complete action leaves it.
type SessionState string

const (
	SessionStateLoading    SessionState = "loading"
	SessionStateActive     SessionState = "active"
	SessionStateCompleting SessionState = "completing"
	SessionStateCompleted  SessionState = "completed"
)

// QuestionSource distinguishes a genuine service load from the bundled
// fallback set used when the question fetch fails. Fallback loads are
// degraded operation, not success, and are logged as such.
type QuestionSource string

const (
	QuestionSourceService  QuestionSource = "service"
	QuestionSourceFallback QuestionSource = "fallback"
)

// SessionSnapshot is the reload-safe view of a live session returned to
// clients. It carries everything the assessment UI needs to rebuild
// itself after a page refresh.
type SessionSnapshot struct {
	AssessmentID     uuid.UUID                    `json:"assessment_id"`
	CandidateID      int64                        `json:"candidate_id"`
	State            SessionState                 `json:"state"`
	Source           QuestionSource               `json:"question_source"`
	Questions        []Question                   `json:"questions"`
	Cursor           int                          `json:"cursor"`
	Answers          map[uuid.UUID]Answer         `json:"answers"`
	Drafts           map[uuid.UUID]AnswerEnvelope `json:"drafts"`
	StartedAt        time.Time                    `json:"started_at"`
	RemainingSeconds int                          `json:"remaining_seconds"`
	Violations       ViolationSummary             `json:"violations"`
}

// SelectQuestionRequest is the navigation payload.
type SelectQuestionRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// DraftRequest stores a provisional answer for the current question.
type DraftRequest struct {
	Answer AnswerEnvelope `json:"answer" binding:"required"`
}

// RunCodeRequest triggers sandbox execution of the current code draft.
type RunCodeRequest struct {
	Language string `json:"language" binding:"omitempty,max=40"`
}

// CompleteRequest finishes the session. Confirm must be true when
// unanswered questions remain.
type CompleteRequest struct {
	Confirm bool `json:"confirm"`
}
