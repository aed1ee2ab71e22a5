package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"worksafe/internal/app"
)

// QuizWSHandler plays a quiz over a websocket.
type QuizWSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewQuizWSHandler(service *app.QuizService, logger *zap.Logger) *QuizWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizWSHandler{service: service, upgrader: newUpgrader(), log: logger}
}

type selectPayload struct {
	Index *int `json:"index"`
}

// ServeHTTP starts an attempt for userId and answers select, confirm, next
// and finish messages. Every reply carries the current question view.
func (h *QuizWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	p := startPeer(conn, h.log)
	defer p.stop()

	view, err := h.service.Start(ctx, userID, quizID)
	if err != nil {
		p.emitError(err)
		return
	}
	p.emit("question", view)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Index == nil {
				p.emit("error", errorPayload{Message: "invalid select payload"})
				continue
			}
			view, err := h.service.Select(ctx, userID, *payload.Index)
			if err != nil {
				p.emitError(err)
				continue
			}
			p.emit("question", view)
		case "confirm":
			view, err := h.service.Confirm(ctx, userID)
			if err != nil {
				p.emitError(err)
				continue
			}
			p.emit("confirmed", view)
		case "next":
			view, err := h.service.Advance(ctx, userID)
			if err != nil {
				p.emitError(err)
				continue
			}
			p.emit("question", view)
		case "finish":
			result, err := h.service.Finish(ctx, userID)
			if err != nil {
				p.emitError(err)
				continue
			}
			p.emit("finished", result)
		default:
			p.emit("error", errorPayload{Message: "unsupported message type"})
		}
	}
}
