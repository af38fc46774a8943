package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/grading"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/repository"
)

// AssignmentGradingStats is the instructor-facing grading overview.
type AssignmentGradingStats struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	grading.Stats
	FullyAutoGradeable bool `json:"fully_auto_gradeable"`
}

// AssignmentService handles assignment authoring and the definition cache.
type AssignmentService struct {
	cfg            *config.Config
	assignmentRepo *repository.AssignmentRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	cfg *config.Config,
	assignmentRepo *repository.AssignmentRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		cfg:            cfg,
		assignmentRepo: assignmentRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "assignment_service").Logger(),
	}
}

// Create stores a new assignment authored by the actor.
func (s *AssignmentService) Create(ctx context.Context, actor Actor, req *model.CreateAssignmentRequest) (*model.Assignment, error) {
	if !actor.Role.CanInstruct() {
		return nil, ErrNotAssignmentAuthor
	}

	questions, err := BuildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	a := &model.Assignment{
		CourseID:         req.CourseID,
		LessonID:         req.LessonID,
		AuthorID:         actor.ID,
		Title:            req.Title,
		Description:      req.Description,
		Instructions:     req.Instructions,
		TotalPoints:      resolveTotalPoints(req.TotalPoints, questions),
		Questions:        questions,
		DueDate:          req.DueDate,
		TimeLimitMinutes: req.TimeLimitMinutes,
		IsPublished:      req.IsPublished,
	}

	if err := s.assignmentRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	s.log.Info().
		Str("assignment_id", a.ID.String()).
		Int("author_id", actor.ID).
		Int("questions", len(questions)).
		Msg("Assignment created")
	return a, nil
}

// Update applies a partial update. Only the author or an admin may edit.
func (s *AssignmentService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *model.UpdateAssignmentRequest) (*model.Assignment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(a) {
		return nil, ErrNotAssignmentAuthor
	}

	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Instructions != nil {
		a.Instructions = *req.Instructions
	}
	if req.Questions != nil {
		questions, err := BuildQuestions(*req.Questions)
		if err != nil {
			return nil, err
		}
		a.Questions = questions
		if req.TotalPoints == nil {
			a.TotalPoints = resolveTotalPoints(0, questions)
		}
	}
	if req.TotalPoints != nil {
		a.TotalPoints = resolveTotalPoints(*req.TotalPoints, a.Questions)
	}
	if req.DueDate != nil {
		a.DueDate = req.DueDate
	}
	if req.TimeLimitMinutes != nil {
		a.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.IsPublished != nil {
		a.IsPublished = *req.IsPublished
	}

	if err := s.assignmentRepo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}

	s.invalidate(ctx, id)
	return a, nil
}

// GetDefinition returns the full assignment, answer key included. It reads
// through the Redis cache and falls back to PostgreSQL when Redis is down.
func (s *AssignmentService) GetDefinition(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	key := config.CacheKey.AssignmentDefinitionKey(id.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var a model.Assignment
		if jsonErr := json.Unmarshal(data, &a); jsonErr == nil {
			return &a, nil
		}
		s.log.Warn().Str("assignment_id", id.String()).Msg("Corrupt cached definition, reloading")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("assignment_id", id.String()).Msg("Definition cache read failed")
	}

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(a); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.cfg.AssignmentCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("assignment_id", id.String()).Msg("Definition cache write failed")
		}
	}
	return a, nil
}

// GetForInstructor returns the full assignment if the actor may manage it.
func (s *AssignmentService) GetForInstructor(ctx context.Context, actor Actor, id uuid.UUID) (*model.Assignment, error) {
	a, err := s.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(a) {
		return nil, ErrNotAssignmentAuthor
	}
	return a, nil
}

// StudentView returns a published assignment without its answer key.
func (s *AssignmentService) StudentView(ctx context.Context, id uuid.UUID) (*model.StudentAssignment, error) {
	a, err := s.GetDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished {
		return nil, ErrAssignmentNotPublished
	}
	return ToStudentAssignment(a), nil
}

// ListByCourse lists a course's assignments. Instructors also see drafts.
func (s *AssignmentService) ListByCourse(ctx context.Context, actor Actor, courseID uuid.UUID) ([]model.Assignment, error) {
	list, err := s.assignmentRepo.ListByCourse(ctx, courseID, actor.Role.CanInstruct())
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	if list == nil {
		list = []model.Assignment{}
	}
	return list, nil
}

// GradingStats reports how much of the assignment can be scored automatically.
func (s *AssignmentService) GradingStats(ctx context.Context, actor Actor, id uuid.UUID) (*AssignmentGradingStats, error) {
	a, err := s.GetForInstructor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	stats := grading.StatsFor(a.Grading())
	return &AssignmentGradingStats{
		AssignmentID:       a.ID,
		Stats:              stats,
		FullyAutoGradeable: stats.TotalQuestions > 0 && stats.ManualQuestions == 0,
	}, nil
}

func (s *AssignmentService) load(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *AssignmentService) invalidate(ctx context.Context, id uuid.UUID) {
	key := config.CacheKey.AssignmentDefinitionKey(id.String())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("assignment_id", id.String()).Msg("Definition cache invalidation failed")
	}
}

// BuildQuestions converts request questions into engine questions. Empty IDs
// are filled with their 1-based position ("q1", "q2", ...).
func BuildQuestions(reqs []model.QuestionRequest) ([]grading.Question, error) {
	out := make([]grading.Question, 0, len(reqs))
	seen := make(map[string]struct{}, len(reqs))

	for i, r := range reqs {
		id := r.ID
		if id == "" {
			id = "q" + strconv.Itoa(i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateQuestionID, id)
		}
		seen[id] = struct{}{}

		q := grading.Question{
			ID:      id,
			Text:    r.Text,
			Kind:    grading.QuestionKind(r.Kind),
			Options: r.Options,
			Points:  r.Points,
		}
		if r.CorrectAnswer != nil && !r.CorrectAnswer.IsZero() {
			v := *r.CorrectAnswer
			q.CorrectAnswer = &v
		}
		out = append(out, q)
	}
	return out, nil
}

// ToStudentAssignment strips the answer key from an assignment.
func ToStudentAssignment(a *model.Assignment) *model.StudentAssignment {
	questions := make([]model.QuestionForStudent, len(a.Questions))
	for i, q := range a.Questions {
		questions[i] = model.QuestionForStudent{
			ID:      q.ID,
			Text:    q.Text,
			Kind:    q.Kind,
			Options: q.Options,
			Points:  q.Points,
		}
	}
	return &model.StudentAssignment{
		ID:               a.ID,
		CourseID:         a.CourseID,
		LessonID:         a.LessonID,
		Title:            a.Title,
		Description:      a.Description,
		Instructions:     a.Instructions,
		TotalPoints:      a.TotalPoints,
		Questions:        questions,
		DueDate:          a.DueDate,
		TimeLimitMinutes: a.TimeLimitMinutes,
	}
}

// resolveTotalPoints keeps an explicit total and otherwise sums the questions.
func resolveTotalPoints(requested int, questions []grading.Question) int {
	if requested > 0 {
		return requested
	}
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}
