package websocket

import "time"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError            Event = "error"
	EventSubscribed       Event = "subscribed"
	EventSubmissionGraded Event = "submission_graded"
	EventPong             Event = "pong"
)

// GradingEvent is published on the assignment grading channel whenever a
// submission receives a new grading result.
type GradingEvent struct {
	Event        Event     `json:"event"`
	AssignmentID string    `json:"assignment_id"`
	SubmissionID string    `json:"submission_id"`
	StudentID    int       `json:"student_id"`
	Status       string    `json:"status"`
	Score        float64   `json:"score"`
	MaxScore     int       `json:"max_score"`
	NeedsReview  bool      `json:"needs_review"`
	GradedBy     int       `json:"graded_by,omitempty"`
	At           time.Time `json:"at"`
}

type SubscribedResponse struct {
	Event        Event  `json:"event"`
	AssignmentID string `json:"assignment_id"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
