package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/courseloop/examroom-backend/internal/config"
	"github.com/courseloop/examroom-backend/internal/middleware"
	"github.com/courseloop/examroom-backend/internal/model"
	"github.com/courseloop/examroom-backend/internal/realtime"
	"github.com/courseloop/examroom-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the per-room event stream. Room events arrive over the
// Redis-backed bus and are forwarded to every attached client; the same
// connection accepts autosave, violation and ping actions from students.
type WSHandler struct {
	rdb         *redis.Client
	bus         *realtime.Bus
	roomService *service.RoomService
	examService *service.ExamService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	rdb *redis.Client,
	bus *realtime.Bus,
	roomService *service.RoomService,
	examService *service.ExamService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		rdb:         rdb,
		bus:         bus,
		roomService: roomService,
		examService: examService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// canAttachStream decides who may hold a room's event stream. The owning
// teacher always may; a student must have joined and not be banned. A ban
// issued mid-exam therefore cuts off the stream on the next attach.
func canAttachStream(room *model.Room, claims *service.Claims, joined bool) bool {
	if claims.Role == model.UserRoleTeacher {
		return room.TeacherID == claims.UserID
	}
	if claims.Role != model.UserRoleStudent {
		return false
	}
	return joined && !room.IsBanned(claims.UserID)
}

// RoomStream godoc
// WS /ws/v1/rooms/:code/stream?token=...
// Attaches the caller to a room's event stream. The owning teacher and
// joined students may attach; anyone else is rejected before the upgrade.
func (h *WSHandler) RoomStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	code := c.Param("code")
	if !model.ValidRoomCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room code"})
		return
	}

	room, err := h.roomService.Get(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	joined := claims.Role == model.UserRoleStudent &&
		h.examService.HasJoined(c.Request.Context(), room, claims.UserID)
	if !canAttachStream(room, claims, joined) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this room"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("room_code", code).
		Int64("user_id", claims.UserID).
		Str("role", string(claims.Role)).
		Logger()

	wsLog.Info().Msg("Client attached to room stream")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gorilla allows one concurrent writer; the forwarder and the reply
	// path share this mutex.
	var writeMu sync.Mutex

	pubsub := h.bus.Subscribe(ctx, code)
	defer pubsub.Close()

	go h.forwardEvents(ctx, pubsub, conn, &writeMu, wsLog)

	h.readLoop(conn, &writeMu, room, claims, wsLog)
}

// forwardEvents copies room events from Redis Pub/Sub to the client until
// either side goes away. A slow client that misses the write deadline is
// disconnected; it can reattach and re-fetch state.
func (h *WSHandler) forwardEvents(ctx context.Context, pubsub *redis.PubSub, conn *websocket.Conn, writeMu *sync.Mutex, wsLog zerolog.Logger) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload))
			writeMu.Unlock()
			if err != nil {
				wsLog.Debug().Err(err).Msg("Event forward failed, dropping client")
				conn.Close()
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, writeMu *sync.Mutex, room *model.Room, claims *service.Claims, wsLog zerolog.Logger) {
	for {
		var msg realtime.RequestPayload
		if err := realtime.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case realtime.ActionPing:
			h.reply(writeMu, conn, realtime.AckResponse{Event: realtime.ReplyPong})
		case realtime.ActionAutosave:
			h.handleAutosave(writeMu, conn, room, claims, &msg)
		case realtime.ActionViolation:
			h.handleViolation(writeMu, conn, room, claims, &msg, wsLog)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			h.replyError(writeMu, conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave buffers one in-flight answer. Students only.
func (h *WSHandler) handleAutosave(writeMu *sync.Mutex, conn *websocket.Conn, room *model.Room, claims *service.Claims, msg *realtime.RequestPayload) {
	if claims.Role != model.UserRoleStudent {
		h.replyError(writeMu, conn, "autosave is a student action")
		return
	}
	if msg.QuestionID == "" {
		h.replyError(writeMu, conn, "question_id is required")
		return
	}

	err := h.examService.Autosave(context.Background(), room.RoomCode, claims.UserID, msg.QuestionID, msg.Answer)
	if err != nil {
		h.replyError(writeMu, conn, "save failed")
		return
	}

	h.reply(writeMu, conn, realtime.AckResponse{Event: realtime.ReplySuccess, Status: "saved"})
}

// handleViolation queues an anti-cheat signal for asynchronous persistence.
// The write path stays off the hot loop; a worker batches these onto the
// submission rows.
func (h *WSHandler) handleViolation(writeMu *sync.Mutex, conn *websocket.Conn, room *model.Room, claims *service.Claims, msg *realtime.RequestPayload, wsLog zerolog.Logger) {
	if claims.Role != model.UserRoleStudent {
		h.replyError(writeMu, conn, "violation is a student action")
		return
	}
	if msg.Kind == "" {
		h.replyError(writeMu, conn, "kind is required")
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"room_id":     room.ID.String(),
		"student_id":  claims.UserID,
		"kind":        msg.Kind,
		"detail":      msg.Detail,
		"recorded_at": time.Now().UTC(),
	})
	if err := h.rdb.RPush(context.Background(), config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		wsLog.Error().Err(err).Msg("Violation enqueue failed")
		h.replyError(writeMu, conn, "record failed")
		return
	}

	h.reply(writeMu, conn, realtime.AckResponse{Event: realtime.ReplySuccess, Status: "recorded"})
}

func (h *WSHandler) reply(writeMu *sync.Mutex, conn *websocket.Conn, v interface{}) {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = realtime.WriteTyped(conn, v)
}

func (h *WSHandler) replyError(writeMu *sync.Mutex, conn *websocket.Conn, msg string) {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = realtime.WriteError(conn, msg)
}
