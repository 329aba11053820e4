package session

import (
	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
)

// FallbackQuestions returns the bundled question set used when the
// question service is unreachable. It keeps the candidate flow usable in
// degraded mode; loads from it are tagged QuestionSourceFallback so logs
// and telemetry never mistake it for a genuine load.
func FallbackQuestions() []model.Question {
	return []model.Question{
		{
			ID:               uuid.New(),
			Type:             model.QuestionTypeMultipleChoice,
			Category:         "technical",
			Difficulty:       "medium",
			Prompt:           "What is the time complexity of binary search?",
			Options:          []string{"O(1)", "O(n)", "O(log n)", "O(n²)"},
			MaxScore:         10,
			TimeLimitSeconds: 60,
			SkillTags:        []string{"algorithms", "data-structures"},
		},
		{
			ID:               uuid.New(),
			Type:             model.QuestionTypeCode,
			Category:         "technical",
			Difficulty:       "medium",
			Prompt:           "Write a Python function to reverse a string without using built-in reverse methods.",
			MaxScore:         20,
			TimeLimitSeconds: 300,
			SkillTags:        []string{"python", "algorithms"},
		},
		{
			ID:               uuid.New(),
			Type:             model.QuestionTypeFreeText,
			Category:         "soft_skills",
			Difficulty:       "easy",
			Prompt:           "Describe a situation where you had to work under pressure. How did you handle it?",
			MaxScore:         15,
			TimeLimitSeconds: 180,
			SkillTags:        []string{"communication", "problem-solving"},
		},
		{
			ID:               uuid.New(),
			Type:             model.QuestionTypeRatingScale,
			Category:         "psychometric",
			Difficulty:       "easy",
			Prompt:           "On a scale of 1-10, how comfortable are you working in a team environment?",
			MaxScore:         5,
			TimeLimitSeconds: 30,
			SkillTags:        []string{"teamwork"},
		},
		{
			ID:               uuid.New(),
			Type:             model.QuestionTypeMultipleChoice,
			Category:         "technical",
			Difficulty:       "hard",
			Prompt:           "Which design pattern is used when you want to decouple an abstraction from its implementation?",
			Options:          []string{"Factory Pattern", "Bridge Pattern", "Singleton Pattern", "Observer Pattern"},
			MaxScore:         10,
			TimeLimitSeconds: 60,
			SkillTags:        []string{"design-patterns"},
		},
	}
}
