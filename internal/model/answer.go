package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnswerValue is the tagged union over the four question-type payloads.
// Each variant carries its own strongly-typed value; the zero of a numeric
// variant (option index 0, rating 0) is a legitimate answer and must
// survive validation.
type AnswerValue interface {
	Kind() QuestionType
	// Validate reports whether the value is submittable. Empty text and
	// negative indices are rejected; numeric zero is accepted.
	Validate() error
}

// OptionIndex is a selected multiple-choice option (0-based).
type OptionIndex int

func (OptionIndex) Kind() QuestionType { return QuestionTypeMultipleChoice }

func (v OptionIndex) Validate() error {
	if v < 0 {
		return &ValidationError{Reason: "option index must not be negative"}
	}
	return nil
}

// SourceCode is a coding-question answer.
type SourceCode string

func (SourceCode) Kind() QuestionType { return QuestionTypeCode }

func (v SourceCode) Validate() error {
	if strings.TrimSpace(string(v)) == "" {
		return &ValidationError{Reason: "source code is empty"}
	}
	return nil
}

// FreeText is a free-text answer.
type FreeText string

func (FreeText) Kind() QuestionType { return QuestionTypeFreeText }

func (v FreeText) Validate() error {
	if strings.TrimSpace(string(v)) == "" {
		return &ValidationError{Reason: "answer text is empty"}
	}
	return nil
}

// Rating is a rating-scale answer.
type Rating int

func (Rating) Kind() QuestionType { return QuestionTypeRatingScale }

func (v Rating) Validate() error {
	if v < 0 {
		return &ValidationError{Reason: "rating must not be negative"}
	}
	return nil
}

// Answer is the per-question record owned by the session state machine.
// Answered flips to true exactly once, on explicit submission; the value
// is frozen at that point.
type Answer struct {
	QuestionID       uuid.UUID   `json:"question_id"`
	Value            AnswerValue `json:"-"`
	Answered         bool        `json:"answered"`
	TimeTakenSeconds int         `json:"time_taken_seconds"`
	SubmittedAt      time.Time   `json:"submitted_at"`
}

// AnswerEnvelope is the wire form of an AnswerValue. Exactly one payload
// field is expected, matching Kind. Pointers distinguish "absent" from
// zero so that selected=0 and rating=0 round-trip.
type AnswerEnvelope struct {
	Kind     QuestionType `json:"kind" binding:"required"`
	Selected *int         `json:"selected,omitempty"`
	Source   *string      `json:"source,omitempty"`
	Text     *string      `json:"text,omitempty"`
	Rating   *int         `json:"rating,omitempty"`
}

// Value decodes the envelope into the matching AnswerValue variant.
func (e AnswerEnvelope) Value() (AnswerValue, error) {
	switch e.Kind {
	case QuestionTypeMultipleChoice:
		if e.Selected == nil {
			return nil, &ValidationError{Reason: "selected option is required"}
		}
		return OptionIndex(*e.Selected), nil
	case QuestionTypeCode:
		if e.Source == nil {
			return nil, &ValidationError{Reason: "source code is required"}
		}
		return SourceCode(*e.Source), nil
	case QuestionTypeFreeText:
		if e.Text == nil {
			return nil, &ValidationError{Reason: "answer text is required"}
		}
		return FreeText(*e.Text), nil
	case QuestionTypeRatingScale:
		if e.Rating == nil {
			return nil, &ValidationError{Reason: "rating is required"}
		}
		return Rating(*e.Rating), nil
	}
	return nil, &ValidationError{Reason: "unknown answer kind: " + string(e.Kind)}
}

// Envelope encodes an AnswerValue into its wire form.
func Envelope(v AnswerValue) AnswerEnvelope {
	e := AnswerEnvelope{Kind: v.Kind()}
	switch val := v.(type) {
	case OptionIndex:
		n := int(val)
		e.Selected = &n
	case SourceCode:
		s := string(val)
		e.Source = &s
	case FreeText:
		s := string(val)
		e.Text = &s
	case Rating:
		n := int(val)
		e.Rating = &n
	}
	return e
}
