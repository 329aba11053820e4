package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ViolationRepository handles persisted proctoring event data access.
// Writes happen through the violation worker; these queries back the
// recruiter-facing views.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// Insert stores one proctoring event. The worker's bulk path bypasses
// this; it exists for the worker's row-by-row fallback and for tests.
func (r *ViolationRepository) Insert(ctx context.Context, ev *model.ProctoringEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctoring_events (id, assessment_id, candidate_id, event_type, severity, description, question_index, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.AssessmentID, ev.CandidateID, ev.Kind, ev.Severity, ev.Description, ev.QuestionIndex, ev.Timestamp)
	return err
}

// ListByAssessment retrieves one page of events for an assessment in
// channel order, optionally scoped to one candidate.
func (r *ViolationRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID, candidateID int64, limit, offset int) ([]model.ProctoringEvent, error) {
	query := `SELECT id, assessment_id, candidate_id, event_type, severity, description, question_index, occurred_at
	          FROM proctoring_events
	          WHERE assessment_id = $1`
	args := []interface{}{assessmentID}

	if candidateID > 0 {
		query += ` AND candidate_id = $2`
		args = append(args, candidateID)
	}
	query += ` ORDER BY occurred_at ASC, id ASC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ProctoringEvent
	for rows.Next() {
		var ev model.ProctoringEvent
		if err := rows.Scan(&ev.ID, &ev.AssessmentID, &ev.CandidateID, &ev.Kind, &ev.Severity, &ev.Description, &ev.QuestionIndex, &ev.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountByAssessment counts persisted events for an assessment,
// optionally scoped to one candidate.
func (r *ViolationRepository) CountByAssessment(ctx context.Context, assessmentID uuid.UUID, candidateID int64) (int, error) {
	query := `SELECT COUNT(*) FROM proctoring_events WHERE assessment_id = $1`
	args := []interface{}{assessmentID}
	if candidateID > 0 {
		query += ` AND candidate_id = $2`
		args = append(args, candidateID)
	}

	var total int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

// CandidateRisk is an aggregated per-candidate integrity row for the
// recruiter summary view.
type CandidateRisk struct {
	CandidateID int64          `json:"candidate_id"`
	EventCount  int            `json:"event_count"`
	RiskScore   int            `json:"risk_score"`
	RiskLevel   model.Severity `json:"risk_level"`
	LastEventAt time.Time      `json:"last_event_at"`
}

// SummarizeByCandidate aggregates persisted events per candidate using
// the same severity weights the live aggregator applies.
func (r *ViolationRepository) SummarizeByCandidate(ctx context.Context, assessmentID uuid.UUID) ([]CandidateRisk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT candidate_id,
		        COUNT(*),
		        SUM(CASE severity WHEN 'high' THEN 5 WHEN 'medium' THEN 3 ELSE 1 END),
		        MAX(occurred_at)
		 FROM proctoring_events
		 WHERE assessment_id = $1
		 GROUP BY candidate_id
		 ORDER BY 3 DESC`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []CandidateRisk
	for rows.Next() {
		var s CandidateRisk
		if err := rows.Scan(&s.CandidateID, &s.EventCount, &s.RiskScore, &s.LastEventAt); err != nil {
			return nil, err
		}
		switch {
		case s.RiskScore > 20:
			s.RiskLevel = model.SeverityHigh
		case s.RiskScore > 10:
			s.RiskLevel = model.SeverityMedium
		default:
			s.RiskLevel = model.SeverityLow
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
