package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/grading"
	"github.com/stemsi/coursegrade/internal/metrics"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/repository"
)

// SubmitResult is what a student gets back after submitting.
// Score and Feedback are only set once the grade is final.
type SubmitResult struct {
	SubmissionID uuid.UUID              `json:"submission_id"`
	Status       model.SubmissionStatus `json:"status"`
	IsLate       bool                   `json:"is_late"`
	AutoGraded   bool                   `json:"auto_graded"`
	Score        *float64               `json:"score,omitempty"`
	MaxScore     int                    `json:"max_score"`
	Feedback     string                 `json:"feedback,omitempty"`
	SubmittedAt  time.Time              `json:"submitted_at"`
}

// EnqueueResult summarizes a batch auto-grade request.
type EnqueueResult struct {
	Queued   int      `json:"queued"`
	Warnings []string `json:"warnings"`
}

// PreviewResult is an engine run that was not stored.
type PreviewResult struct {
	Result     grading.GradeResult `json:"result"`
	Validation grading.Validation  `json:"validation"`
}

// GradeJob is the queue payload consumed by the grading worker.
type GradeJob struct {
	SubmissionID string `json:"submission_id"`
	AssignmentID string `json:"assignment_id"`
	GradedBy     int    `json:"graded_by"`
	Attempts     int    `json:"attempts,omitempty"`
}

// SubmissionService runs every grading path through grading.Grade and
// persists the outcome.
type SubmissionService struct {
	assignments    *AssignmentService
	submissionRepo *repository.SubmissionRepository
	rdb            *redis.Client
	events         *EventPublisher
	log            zerolog.Logger
	now            func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	assignments *AssignmentService,
	submissionRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	events *EventPublisher,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		assignments:    assignments,
		submissionRepo: submissionRepo,
		rdb:            rdb,
		events:         events,
		log:            log.With().Str("component", "submission_service").Logger(),
		now:            time.Now,
	}
}

// Submit stores a student's answers and grades them immediately. The grade is
// final only when every question could be scored automatically.
func (s *SubmissionService) Submit(ctx context.Context, studentID int, assignmentID uuid.UUID, answers []grading.Answer) (*SubmitResult, error) {
	a, err := s.assignments.GetDefinition(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished {
		return nil, ErrAssignmentNotPublished
	}

	now := s.now().Truncate(time.Microsecond)
	late := a.IsPastDue(now)
	status := model.SubmissionStatusSubmitted
	if late {
		status = model.SubmissionStatusLate
	}

	sub := &model.Submission{
		AssignmentID: a.ID,
		StudentID:    studentID,
		Answers:      answers,
		Status:       status,
		IsLate:       late,
		MaxScore:     a.TotalPoints,
		SubmittedAt:  now,
	}

	update := s.evaluate(a, sub, 0, now, metrics.SourceSubmit)
	ApplyGradeUpdate(sub, update)

	if err := s.submissionRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}

	s.events.PublishGraded(ctx, NewGradingEvent(sub, 0, now))

	s.log.Info().
		Str("assignment_id", a.ID.String()).
		Str("submission_id", sub.ID.String()).
		Int("student_id", studentID).
		Str("status", string(sub.Status)).
		Msg("Submission received")

	return &SubmitResult{
		SubmissionID: sub.ID,
		Status:       sub.Status,
		IsLate:       sub.IsLate,
		AutoGraded:   sub.AutoGraded,
		Score:        sub.Score,
		MaxScore:     sub.MaxScore,
		Feedback:     sub.Feedback,
		SubmittedAt:  sub.SubmittedAt,
	}, nil
}

// AutoGrade grades one submission on behalf of an instructor and finalizes it.
func (s *SubmissionService) AutoGrade(ctx context.Context, actor Actor, submissionID uuid.UUID) (*model.Submission, error) {
	sub, a, err := s.loadManaged(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	if grading.StatsFor(a.Grading()).AutoGradeableQuestions == 0 {
		return nil, ErrNotAutoGradeable
	}

	now := s.now()
	update := s.evaluate(a, sub, actor.ID, now, metrics.SourceSingle)
	if err := s.submissionRepo.ApplyGrade(ctx, update); err != nil {
		return nil, fmt.Errorf("apply grade: %w", err)
	}
	ApplyGradeUpdate(sub, update)

	s.events.PublishGraded(ctx, NewGradingEvent(sub, actor.ID, now))
	return sub, nil
}

// EnqueueAutoGradeAll queues every ungraded submission of an assignment for
// the grading worker. Warnings list submissions the engine will score with
// missing answers.
func (s *SubmissionService) EnqueueAutoGradeAll(ctx context.Context, actor Actor, assignmentID uuid.UUID) (*EnqueueResult, error) {
	a, err := s.assignments.GetForInstructor(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}
	if grading.StatsFor(a.Grading()).AutoGradeableQuestions == 0 {
		return nil, ErrNotAutoGradeable
	}

	subs, err := s.submissionRepo.ListUngraded(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list ungraded submissions: %w", err)
	}

	res := &EnqueueResult{Warnings: []string{}}
	if len(subs) == 0 {
		return res, nil
	}

	pipe := s.rdb.Pipeline()
	for i := range subs {
		sub := &subs[i]
		if v := grading.ValidateSubmission(a.Grading(), sub.Answers); !v.IsValid {
			for _, msg := range v.Errors {
				res.Warnings = append(res.Warnings, fmt.Sprintf("submission %s: %s", sub.ID, msg))
			}
		}

		raw, err := json.Marshal(GradeJob{
			SubmissionID: sub.ID.String(),
			AssignmentID: assignmentID.String(),
			GradedBy:     actor.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("encode grade job: %w", err)
		}
		pipe.RPush(ctx, config.WorkerKey.GradeSubmissionsQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue grade jobs: %w", err)
	}

	res.Queued = len(subs)
	s.log.Info().
		Str("assignment_id", assignmentID.String()).
		Int("queued", res.Queued).
		Int("actor_id", actor.ID).
		Msg("Batch auto-grade queued")
	return res, nil
}

// ManualGrade records an instructor's grade. The stored engine breakdown is kept.
func (s *SubmissionService) ManualGrade(ctx context.Context, actor Actor, submissionID uuid.UUID, score float64, feedback string) (*model.Submission, error) {
	if score < 0 {
		return nil, fmt.Errorf("score must not be negative: %v", score)
	}

	sub, a, err := s.loadManaged(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	update := repository.GradeUpdate{
		SubmissionID: sub.ID,
		Status:       model.SubmissionStatusGraded,
		Score:        &score,
		MaxScore:     a.TotalPoints,
		Feedback:     feedback,
		AutoGraded:   false,
		Result:       sub.Result,
		GradedBy:     actor.ID,
		GradedAt:     now,
		SubmittedAt:  sub.SubmittedAt,
	}
	if err := s.submissionRepo.ApplyGrade(ctx, update); err != nil {
		return nil, fmt.Errorf("apply grade: %w", err)
	}
	ApplyGradeUpdate(sub, update)
	metrics.GradingsTotal.WithLabelValues(metrics.SourceManual, "final").Inc()

	s.events.PublishGraded(ctx, NewGradingEvent(sub, actor.ID, now))
	return sub, nil
}

// Preview grades arbitrary answers against an assignment without storing anything.
func (s *SubmissionService) Preview(ctx context.Context, actor Actor, assignmentID uuid.UUID, answers []grading.Answer) (*PreviewResult, error) {
	a, err := s.assignments.GetForInstructor(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := grading.Grade(a.Grading(), answers)
	metrics.ObserveGrading(metrics.SourcePreview, outcomeOf(res, false), time.Since(start),
		grading.Percentage(float64(res.Score), float64(res.MaxScore)), res.AutoGradeable)

	return &PreviewResult{
		Result:     res,
		Validation: grading.ValidateSubmission(a.Grading(), answers),
	}, nil
}

// GetOwn returns a student's submission for an assignment.
func (s *SubmissionService) GetOwn(ctx context.Context, studentID int, assignmentID uuid.UUID) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	view := sub.ForStudent()
	return &view, nil
}

// ListOwn lists a student's submissions.
func (s *SubmissionService) ListOwn(ctx context.Context, studentID int) ([]model.Submission, error) {
	subs, err := s.submissionRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	for i := range subs {
		subs[i] = subs[i].ForStudent()
	}
	return subs, nil
}

// ListForAssignment lists every submission of an assignment the actor manages.
func (s *SubmissionService) ListForAssignment(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]model.Submission, error) {
	if _, err := s.assignments.GetForInstructor(ctx, actor, assignmentID); err != nil {
		return nil, err
	}
	subs, err := s.submissionRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// EvaluateJob grades a queued job without persisting it. Submissions graded
// since the job was queued yield ErrAlreadyGraded.
func (s *SubmissionService) EvaluateJob(ctx context.Context, job GradeJob) (*model.Submission, repository.GradeUpdate, error) {
	id, err := uuid.Parse(job.SubmissionID)
	if err != nil {
		return nil, repository.GradeUpdate{}, fmt.Errorf("parse submission id: %w", err)
	}

	sub, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.GradeUpdate{}, ErrSubmissionNotFound
		}
		return nil, repository.GradeUpdate{}, fmt.Errorf("get submission: %w", err)
	}

	if sub.IsGraded() {
		return nil, repository.GradeUpdate{}, ErrAlreadyGraded
	}

	a, err := s.assignments.GetDefinition(ctx, sub.AssignmentID)
	if err != nil {
		return nil, repository.GradeUpdate{}, err
	}

	update := s.evaluate(a, sub, job.GradedBy, s.now(), metrics.SourceWorker)
	update.OnlyUngraded = true
	return sub, update, nil
}

// PersistGrades writes a batch of outcomes in one statement and returns the
// submissions actually written.
func (s *SubmissionService) PersistGrades(ctx context.Context, updates []repository.GradeUpdate) ([]uuid.UUID, error) {
	return s.submissionRepo.BulkApplyGrades(ctx, updates)
}

// PersistGrade writes a single outcome.
func (s *SubmissionService) PersistGrade(ctx context.Context, update repository.GradeUpdate) error {
	return s.submissionRepo.ApplyGrade(ctx, update)
}

// Events exposes the publisher used for grading events.
func (s *SubmissionService) Events() *EventPublisher {
	return s.events
}

func (s *SubmissionService) evaluate(a *model.Assignment, sub *model.Submission, gradedBy int, now time.Time, source string) repository.GradeUpdate {
	start := time.Now()
	update := BuildGradeUpdate(a, sub, gradedBy, now)

	res := update.Result
	metrics.ObserveGrading(source, outcomeOf(*res, update.Status == model.SubmissionStatusGraded), time.Since(start),
		grading.Percentage(float64(res.Score), float64(res.MaxScore)), res.AutoGradeable)
	return update
}

func (s *SubmissionService) loadManaged(ctx context.Context, actor Actor, submissionID uuid.UUID) (*model.Submission, *model.Assignment, error) {
	sub, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSubmissionNotFound
		}
		return nil, nil, fmt.Errorf("get submission: %w", err)
	}

	a, err := s.assignments.GetForInstructor(ctx, actor, sub.AssignmentID)
	if err != nil {
		return nil, nil, err
	}
	return sub, a, nil
}

// BuildGradeUpdate runs the engine over a submission. gradedBy is the
// instructor who asked for the grade, or 0 for grading on submission. An
// instructor request always finalizes; grading on submission finalizes only
// when every question is auto-gradeable. The update is pinned to the
// submission's SubmittedAt.
func BuildGradeUpdate(a *model.Assignment, sub *model.Submission, gradedBy int, now time.Time) repository.GradeUpdate {
	res := grading.Grade(a.Grading(), sub.Answers)

	update := repository.GradeUpdate{
		SubmissionID: sub.ID,
		Status:       sub.Status,
		MaxScore:     res.MaxScore,
		Result:       &res,
		GradedBy:     gradedBy,
		GradedAt:     now,
		SubmittedAt:  sub.SubmittedAt,
	}

	final := gradedBy != 0 || (res.AutoGradeable && !res.HasManualQuestions())
	if final {
		score := float64(res.Score)
		update.Status = model.SubmissionStatusGraded
		update.Score = &score
		update.Feedback = res.Feedback
		update.AutoGraded = true
	} else if update.Status == model.SubmissionStatusGraded {
		update.Status = model.SubmissionStatusSubmitted
		if sub.IsLate {
			update.Status = model.SubmissionStatusLate
		}
	}
	return update
}

// ApplyGradeUpdate copies a grading outcome onto the in-memory submission.
func ApplyGradeUpdate(sub *model.Submission, u repository.GradeUpdate) {
	sub.Status = u.Status
	sub.Score = u.Score
	sub.MaxScore = u.MaxScore
	sub.Feedback = u.Feedback
	sub.AutoGraded = u.AutoGraded
	sub.Result = u.Result
	sub.GradedBy = nil
	sub.GradedAt = nil
	if u.GradedBy != 0 {
		by := u.GradedBy
		sub.GradedBy = &by
	}
	if u.Status == model.SubmissionStatusGraded {
		at := u.GradedAt
		sub.GradedAt = &at
	}
}

func outcomeOf(res grading.GradeResult, final bool) string {
	switch {
	case !res.AutoGradeable:
		return "not_gradeable"
	case final:
		return "final"
	case res.RequiresManualReview():
		return "needs_review"
	default:
		return "provisional"
	}
}
