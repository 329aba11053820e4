package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ReviewService backs the recruiter answer-review views with persisted
// response data.
type ReviewService struct {
	log  zerolog.Logger
	repo *repository.ResponseRepository
}

// NewReviewService creates a ReviewService.
func NewReviewService(repo *repository.ResponseRepository, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		log:  log.With().Str("component", "review_service").Logger(),
		repo: repo,
	}
}

// ListResponses returns one candidate's persisted answers for an
// assessment, in submission order.
func (s *ReviewService) ListResponses(ctx context.Context, assessmentID uuid.UUID, candidateID int64) ([]repository.QuestionResponse, error) {
	return s.repo.ListByCandidate(ctx, assessmentID, candidateID)
}

// Progress reports how many answers a candidate has persisted so far.
func (s *ReviewService) Progress(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (int, error) {
	return s.repo.CountByCandidate(ctx, assessmentID, candidateID)
}
