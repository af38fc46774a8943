package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursegrade/internal/grading"
	"github.com/stemsi/coursegrade/internal/model"
)

// AssignmentRepository handles assignment data access.
// The question bank is stored as a JSONB array on the assignment row.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

const assignmentColumns = `id, course_id, lesson_id, author_id, title, description, instructions,
	total_points, questions, due_date, time_limit_minutes, is_published, created_at, updated_at`

// GetByID retrieves an assignment by its UUID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	return scanAssignment(row)
}

// ListByCourse returns the assignments of a course, newest first.
// Unpublished assignments are included only when includeDrafts is set.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID uuid.UUID, includeDrafts bool) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE course_id = $1`
	if !includeDrafts {
		query += ` AND is_published = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	questions, err := marshalQuestions(a.Questions)
	if err != nil {
		return err
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO assignments (course_id, lesson_id, author_id, title, description, instructions,
		                          total_points, questions, due_date, time_limit_minutes, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		a.CourseID, a.LessonID, a.AuthorID, a.Title, a.Description, a.Instructions,
		a.TotalPoints, questions, a.DueDate, a.TimeLimitMinutes, a.IsPublished,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Update writes every mutable column of an assignment.
func (r *AssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	questions, err := marshalQuestions(a.Questions)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE assignments
		 SET title = $1, description = $2, instructions = $3, total_points = $4, questions = $5,
		     due_date = $6, time_limit_minutes = $7, is_published = $8, updated_at = NOW()
		 WHERE id = $9`,
		a.Title, a.Description, a.Instructions, a.TotalPoints, questions,
		a.DueDate, a.TimeLimitMinutes, a.IsPublished, a.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAssignment(row pgx.Row) (*model.Assignment, error) {
	a := &model.Assignment{}
	var questions []byte
	if err := row.Scan(&a.ID, &a.CourseID, &a.LessonID, &a.AuthorID, &a.Title, &a.Description,
		&a.Instructions, &a.TotalPoints, &questions, &a.DueDate, &a.TimeLimitMinutes,
		&a.IsPublished, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	a.Questions = []grading.Question{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &a.Questions); err != nil {
			return nil, fmt.Errorf("decode questions of assignment %s: %w", a.ID, err)
		}
	}
	return a, nil
}

func marshalQuestions(qs []grading.Question) ([]byte, error) {
	if qs == nil {
		qs = []grading.Question{}
	}
	raw, err := json.Marshal(qs)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	return raw, nil
}
