package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionResponse is the persisted form of a finalized answer. The
// answer payload is stored as the JSON envelope so all question types
// share one table.
type QuestionResponse struct {
	AssessmentID     uuid.UUID `json:"assessment_id"`
	CandidateID      int64     `json:"candidate_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	Answer           []byte    `json:"answer"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// ResponseRepository handles persisted answer data access. Writes happen
// through the answer worker.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert stores a finalized answer. Resubmission of the same question
// overwrites; the session layer guarantees the first finalized value
// is the one that arrives here.
func (r *ResponseRepository) Upsert(ctx context.Context, resp *QuestionResponse) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO question_responses (assessment_id, candidate_id, question_id, answer, time_taken_seconds, submitted_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		 ON CONFLICT (assessment_id, candidate_id, question_id) DO UPDATE
		 SET answer = EXCLUDED.answer,
		     time_taken_seconds = EXCLUDED.time_taken_seconds,
		     submitted_at = EXCLUDED.submitted_at`,
		resp.AssessmentID, resp.CandidateID, resp.QuestionID, resp.Answer, resp.TimeTakenSeconds, resp.SubmittedAt)
	return err
}

// ListByCandidate retrieves all persisted answers for one candidate's
// assessment, in submission order.
func (r *ResponseRepository) ListByCandidate(ctx context.Context, assessmentID uuid.UUID, candidateID int64) ([]QuestionResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT assessment_id, candidate_id, question_id, answer, time_taken_seconds, submitted_at
		 FROM question_responses
		 WHERE assessment_id = $1 AND candidate_id = $2
		 ORDER BY submitted_at ASC`, assessmentID, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []QuestionResponse
	for rows.Next() {
		var resp QuestionResponse
		if err := rows.Scan(&resp.AssessmentID, &resp.CandidateID, &resp.QuestionID, &resp.Answer, &resp.TimeTakenSeconds, &resp.SubmittedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// CountByCandidate returns how many answers a candidate has persisted.
func (r *ResponseRepository) CountByCandidate(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM question_responses
		 WHERE assessment_id = $1 AND candidate_id = $2`, assessmentID, candidateID,
	).Scan(&count)
	return count, err
}
