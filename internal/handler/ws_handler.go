package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/service"
	ws "github.com/stemsi/coursegrade/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// WSHandler streams grading events to instructors.
type WSHandler struct {
	rdb               *redis.Client
	assignmentService *service.AssignmentService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, assignmentService *service.AssignmentService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:               rdb,
		assignmentService: assignmentService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// GradingStream godoc
// WS /ws/v1/instructor/assignments/:id/grading?token=...
// Forwards submission_graded events for one assignment as they happen.
func (h *WSHandler) GradingStream(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	assignmentID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	// Authorize before upgrading so failures still get a JSON envelope.
	if _, err := h.assignmentService.GetForInstructor(c.Request.Context(), actor, assignmentID); err != nil {
		failFromError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", actor.ID).
		Str("assignment_id", assignmentID.String()).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.AssignmentGradingChannel(assignmentID.String()))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Subscribe failed")
		_ = ws.WriteError(conn, "subscription failed")
		return
	}

	if err := ws.WriteTyped(conn, ws.SubscribedResponse{
		Event:        ws.EventSubscribed,
		AssignmentID: assignmentID.String(),
	}); err != nil {
		return
	}

	wsLog.Info().Msg("Instructor attached to grading stream")

	// gorilla allows a single concurrent writer; replies go through the outbox.
	outbox := make(chan interface{}, 4)
	go h.readLoop(ctx, conn, cancel, outbox, wsLog)

	pingTicker := time.NewTicker(ws.PingPeriod)
	defer pingTicker.Stop()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Grading stream closed")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := ws.WriteRaw(conn, []byte(msg.Payload)); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}

		case v := <-outbox:
			if err := ws.WriteTyped(conn, v); err != nil {
				return
			}

		case <-pingTicker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// readLoop handles client pings and detects disconnects.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, outbox chan<- interface{}, wsLog zerolog.Logger) {
	defer cancel()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	})

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		var reply interface{} = ws.PongResponse{Event: ws.EventPong}
		if msg.Action != ws.ActionPing {
			reply = ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)}
		}

		select {
		case outbox <- reply:
		case <-ctx.Done():
			return
		}
	}
}
