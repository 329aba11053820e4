package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the four supported answer formats.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeCode           QuestionType = "code"
	QuestionTypeFreeText       QuestionType = "free_text"
	QuestionTypeRatingScale    QuestionType = "rating_scale"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeCode, QuestionTypeFreeText, QuestionTypeRatingScale:
		return true
	}
	return false
}

// Question is an immutable assessment question. It is fetched once per
// session and never mutated afterwards.
type Question struct {
	ID               uuid.UUID    `json:"id"`
	Type             QuestionType `json:"question_type"`
	Category         string       `json:"category"`
	Difficulty       string       `json:"difficulty"`
	Prompt           string       `json:"question_text"`
	Options          []string     `json:"options,omitempty"` // multiple_choice only
	MaxScore         float64      `json:"max_score"`
	TimeLimitSeconds int          `json:"time_limit_seconds"`
	SkillTags        []string     `json:"skill_tags,omitempty"`
	Answered         bool         `json:"is_answered"`
}
