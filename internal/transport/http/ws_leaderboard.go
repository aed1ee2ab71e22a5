package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"worksafe/internal/app"
)

// LeaderboardWSHandler streams the all-time board after every score change.
type LeaderboardWSHandler struct {
	service  *app.LeaderboardService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewLeaderboardWSHandler(service *app.LeaderboardService, logger *zap.Logger) *LeaderboardWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardWSHandler{service: service, upgrader: newUpgrader(), log: logger}
}

func (h *LeaderboardWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	p := startPeer(conn, h.log)
	defer p.stop()

	updates, cancel, err := h.service.Subscribe(r.Context())
	if err != nil {
		p.emitError(err)
		return
	}
	defer cancel()

	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})
	go func() {
		defer close(updatesDone)
		for {
			select {
			case board, ok := <-updates:
				if !ok {
					return
				}
				if !p.emit("leaderboard", board) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Inbound messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(closeSignals)
	<-updatesDone
}
