package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursegrade/internal/grading"
	"github.com/stemsi/coursegrade/internal/model"
)

// ErrSubmissionChanged is returned when a guarded grade write finds the
// submission resubmitted or already graded.
var ErrSubmissionChanged = errors.New("submission changed since it was graded")

// GradeUpdate is the grading outcome written back to one submission.
type GradeUpdate struct {
	SubmissionID uuid.UUID
	Status       model.SubmissionStatus
	// Score is nil while the grade is provisional.
	Score      *float64
	MaxScore   int
	Feedback   string
	AutoGraded bool
	Result     *grading.GradeResult
	// GradedBy is 0 for grades produced on submission.
	GradedBy int
	GradedAt time.Time
	// SubmittedAt is the answers version that was graded. The write is
	// skipped if the row has been resubmitted since. Zero disables the check.
	SubmittedAt time.Time
	// OnlyUngraded skips rows that already carry a final grade.
	OnlyUngraded bool
}

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `id, assignment_id, student_id, answers, status, is_late, score, max_score,
	feedback, auto_graded, result, graded_by, submitted_at, graded_at`

// Upsert stores a student's submission. A resubmission replaces the answers
// and everything the previous grading wrote.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *model.Submission) error {
	answers, err := json.Marshal(nonNilAnswers(s.Answers))
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	result, err := marshalResult(s.Result)
	if err != nil {
		return err
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO submissions (assignment_id, student_id, answers, status, is_late, score, max_score,
		                          feedback, auto_graded, result, graded_by, submitted_at, graded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (assignment_id, student_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     status = EXCLUDED.status,
		     is_late = EXCLUDED.is_late,
		     score = EXCLUDED.score,
		     max_score = EXCLUDED.max_score,
		     feedback = EXCLUDED.feedback,
		     auto_graded = EXCLUDED.auto_graded,
		     result = EXCLUDED.result,
		     graded_by = EXCLUDED.graded_by,
		     submitted_at = EXCLUDED.submitted_at,
		     graded_at = EXCLUDED.graded_at
		 RETURNING id`,
		s.AssignmentID, s.StudentID, answers, s.Status, s.IsLate, s.Score, s.MaxScore,
		s.Feedback, s.AutoGraded, result, s.GradedBy, s.SubmittedAt, s.GradedAt,
	).Scan(&s.ID)
}

// GetByID retrieves a submission by its UUID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// GetByAssignmentAndStudent retrieves a student's submission for an assignment.
func (r *SubmissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID uuid.UUID, studentID int) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE assignment_id = $1 AND student_id = $2`,
		assignmentID, studentID)
	return scanSubmission(row)
}

// ListByAssignment returns every submission of an assignment, oldest first.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]model.Submission, error) {
	return r.list(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE assignment_id = $1 ORDER BY submitted_at ASC`,
		assignmentID)
}

// ListByStudent returns a student's submissions, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Submission, error) {
	return r.list(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE student_id = $1 ORDER BY submitted_at DESC`,
		studentID)
}

// ListUngraded returns the submissions of an assignment without a final grade.
func (r *SubmissionRepository) ListUngraded(ctx context.Context, assignmentID uuid.UUID) ([]model.Submission, error) {
	return r.list(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE assignment_id = $1 AND status <> $2 ORDER BY submitted_at ASC`,
		assignmentID, model.SubmissionStatusGraded)
}

// ApplyGrade writes one grading outcome. A row that does not match the
// update's guards yields ErrSubmissionChanged; a missing row pgx.ErrNoRows.
func (r *SubmissionRepository) ApplyGrade(ctx context.Context, u GradeUpdate) error {
	result, err := marshalResult(u.Result)
	if err != nil {
		return err
	}

	var gradedAt *time.Time
	if u.Status == model.SubmissionStatusGraded {
		gradedAt = &u.GradedAt
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET status = $1, score = $2, max_score = $3, feedback = $4, auto_graded = $5,
		     result = $6, graded_by = NULLIF($7, 0), graded_at = $8
		 WHERE id = $9
		   AND ($10::timestamptz IS NULL OR submitted_at = $10)
		   AND (NOT $11 OR status <> 'graded')`,
		u.Status, u.Score, u.MaxScore, u.Feedback, u.AutoGraded,
		result, u.GradedBy, gradedAt, u.SubmissionID,
		submittedAtGuard(u), u.OnlyUngraded,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if submittedAtGuard(u) != nil || u.OnlyUngraded {
			return ErrSubmissionChanged
		}
		return pgx.ErrNoRows
	}
	return nil
}

// BulkApplyGrades writes many grading outcomes in one statement and returns
// the ids that were written. Rows failing an update's guards are skipped.
func (r *SubmissionRepository) BulkApplyGrades(ctx context.Context, updates []GradeUpdate) ([]uuid.UUID, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	n := len(updates)
	ids := make([]uuid.UUID, 0, n)
	statuses := make([]string, 0, n)
	scores := make([]*float64, 0, n)
	maxScores := make([]int, 0, n)
	feedbacks := make([]string, 0, n)
	autoGraded := make([]bool, 0, n)
	results := make([]string, 0, n)
	gradedBy := make([]int, 0, n)
	gradedAts := make([]time.Time, 0, n)
	submittedAts := make([]*time.Time, 0, n)
	onlyUngraded := make([]bool, 0, n)

	for _, u := range updates {
		result, err := marshalResult(u.Result)
		if err != nil {
			return nil, err
		}
		ids = append(ids, u.SubmissionID)
		statuses = append(statuses, string(u.Status))
		scores = append(scores, u.Score)
		maxScores = append(maxScores, u.MaxScore)
		feedbacks = append(feedbacks, u.Feedback)
		autoGraded = append(autoGraded, u.AutoGraded)
		results = append(results, string(result))
		gradedBy = append(gradedBy, u.GradedBy)
		gradedAts = append(gradedAts, u.GradedAt)
		submittedAts = append(submittedAts, submittedAtGuard(u))
		onlyUngraded = append(onlyUngraded, u.OnlyUngraded)
	}

	query := `
		UPDATE submissions AS s
		SET status = t.status,
		    score = t.score,
		    max_score = t.max_score,
		    feedback = t.feedback,
		    auto_graded = t.auto_graded,
		    result = NULLIF(t.result, '')::jsonb,
		    graded_by = NULLIF(t.graded_by, 0),
		    graded_at = CASE WHEN t.status = 'graded' THEN t.graded_at ELSE NULL END
		FROM (
			SELECT *
			FROM UNNEST(
				$1::uuid[],
				$2::text[],
				$3::float8[],
				$4::int[],
				$5::text[],
				$6::bool[],
				$7::text[],
				$8::int[],
				$9::timestamptz[],
				$10::timestamptz[],
				$11::bool[]
			) AS u (id, status, score, max_score, feedback, auto_graded, result, graded_by, graded_at,
			        submitted_at, only_ungraded)
		) AS t
		WHERE s.id = t.id
		  AND (t.submitted_at IS NULL OR s.submitted_at = t.submitted_at)
		  AND (NOT t.only_ungraded OR s.status <> 'graded')
		RETURNING s.id
	`

	rows, err := r.pool.Query(ctx, query,
		ids, statuses, scores, maxScores, feedbacks, autoGraded, results, gradedBy, gradedAts,
		submittedAts, onlyUngraded)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func submittedAtGuard(u GradeUpdate) *time.Time {
	if u.SubmittedAt.IsZero() {
		return nil
	}
	return &u.SubmittedAt
}

func (r *SubmissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	s := &model.Submission{}
	var answers, result []byte
	if err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &answers, &s.Status, &s.IsLate, &s.Score,
		&s.MaxScore, &s.Feedback, &s.AutoGraded, &result, &s.GradedBy, &s.SubmittedAt,
		&s.GradedAt); err != nil {
		return nil, err
	}

	s.Answers = []grading.Answer{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of submission %s: %w", s.ID, err)
		}
	}
	if len(result) > 0 {
		s.Result = &grading.GradeResult{}
		if err := json.Unmarshal(result, s.Result); err != nil {
			return nil, fmt.Errorf("decode result of submission %s: %w", s.ID, err)
		}
	}
	return s, nil
}

func marshalResult(res *grading.GradeResult) ([]byte, error) {
	if res == nil {
		return nil, nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode grade result: %w", err)
	}
	return raw, nil
}

func nonNilAnswers(a []grading.Answer) []grading.Answer {
	if a == nil {
		return []grading.Answer{}
	}
	return a
}
