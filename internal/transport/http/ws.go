package http

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// peer owns the write side of a websocket. All writes go through one
// goroutine; emit is safe from any goroutine and never blocks after stop.
type peer struct {
	conn *websocket.Conn
	log  *zap.Logger

	send       chan outboundMessage[any]
	done       chan struct{}
	writerDone chan struct{}
	stopOnce   sync.Once
}

func startPeer(conn *websocket.Conn, logger *zap.Logger) *peer {
	p := &peer{
		conn:       conn,
		log:        logger,
		send:       make(chan outboundMessage[any], 16),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go p.writeLoop()
	return p
}

func (p *peer) writeLoop() {
	defer close(p.writerDone)
	for {
		select {
		case msg := <-p.send:
			if err := p.conn.WriteJSON(msg); err != nil {
				p.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-p.done:
			p.flush()
			return
		}
	}
}

func (p *peer) flush() {
	for {
		select {
		case msg := <-p.send:
			if err := p.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// emit queues a message. It reports false once the peer is stopped.
func (p *peer) emit(typ string, payload any) bool {
	select {
	case p.send <- outboundMessage[any]{Type: typ, Payload: payload}:
		return true
	case <-p.done:
		return false
	}
}

func (p *peer) emitError(err error) {
	p.emit("error", errorPayload{Message: err.Error()})
}

// stop ends the writer and waits for it.
func (p *peer) stop() {
	p.stopOnce.Do(func() { close(p.done) })
	<-p.writerDone
}
