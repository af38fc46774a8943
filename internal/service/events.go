package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/model"
	ws "github.com/stemsi/coursegrade/internal/websocket"
)

// EventPublisher fans grading events out over Redis Pub/Sub so every server
// instance can forward them to connected instructors.
type EventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(rdb *redis.Client, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

// NewGradingEvent builds the event for a submission after a grade was applied.
func NewGradingEvent(s *model.Submission, gradedBy int, at time.Time) ws.GradingEvent {
	ev := ws.GradingEvent{
		Event:        ws.EventSubmissionGraded,
		AssignmentID: s.AssignmentID.String(),
		SubmissionID: s.ID.String(),
		StudentID:    s.StudentID,
		Status:       string(s.Status),
		MaxScore:     s.MaxScore,
		GradedBy:     gradedBy,
		At:           at.UTC(),
	}
	if s.Result != nil {
		ev.Score = float64(s.Result.Score)
		ev.NeedsReview = !s.IsGraded() && s.Result.RequiresManualReview()
	}
	if s.Score != nil {
		ev.Score = *s.Score
	}
	return ev
}

// PublishGraded publishes a grading event. Failures are logged, never returned.
func (p *EventPublisher) PublishGraded(ctx context.Context, ev ws.GradingEvent) {
	if p == nil || p.rdb == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to encode grading event")
		return
	}

	channel := config.CacheKey.AssignmentGradingChannel(ev.AssignmentID)
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish grading event")
	}
}
