package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ProctoringService backs the recruiter-facing integrity views with
// persisted event data.
type ProctoringService struct {
	log  zerolog.Logger
	repo *repository.ViolationRepository
}

// NewProctoringService creates a ProctoringService.
func NewProctoringService(repo *repository.ViolationRepository, log zerolog.Logger) *ProctoringService {
	return &ProctoringService{
		log:  log.With().Str("component", "proctoring_service").Logger(),
		repo: repo,
	}
}

// ListEvents returns one page of an assessment's persisted proctoring
// events in channel order, optionally scoped to one candidate. The
// second return value is the total event count across all pages.
func (s *ProctoringService) ListEvents(ctx context.Context, assessmentID uuid.UUID, candidateID int64, page, perPage int) ([]model.ProctoringEvent, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 500 {
		perPage = 100
	}

	total, err := s.repo.CountByAssessment(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, 0, err
	}

	events, err := s.repo.ListByAssessment(ctx, assessmentID, candidateID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Summary returns per-candidate risk aggregates for an assessment,
// highest risk first.
func (s *ProctoringService) Summary(ctx context.Context, assessmentID uuid.UUID) ([]repository.CandidateRisk, error) {
	return s.repo.SummarizeByCandidate(ctx, assessmentID)
}
