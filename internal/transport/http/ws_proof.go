package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"worksafe/internal/app"
	"worksafe/internal/domain"
	"worksafe/internal/proof"
)

// ProofWSHandler runs a proof attempt with the client acting as the camera.
//
// Server to client: camera.open, camera.capture, camera.close, state, verdict, error.
// Client to server: camera.ready, camera.denied{reason}, camera.frame{image},
// and the commands start, capture, retry, cancel.
type ProofWSHandler struct {
	service     *app.ProofService
	upgrader    websocket.Upgrader
	log         *zap.Logger
	waitTimeout time.Duration
}

func NewProofWSHandler(service *app.ProofService, logger *zap.Logger) *ProofWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProofWSHandler{
		service:     service,
		upgrader:    newUpgrader(),
		log:         logger,
		waitTimeout: 30 * time.Second,
	}
}

func (h *ProofWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	missionID := r.URL.Query().Get("missionId")
	if userID == "" || missionID == "" {
		http.Error(w, "missing userId or missionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	p := startPeer(conn, h.log)
	defer p.stop()

	s := &proofSession{
		service:   h.service,
		userID:    userID,
		missionID: missionID,
		peer:      p,
		camera:    newWSCamera(p, h.waitTimeout),
		commands:  make(chan string, 4),
		log:       h.log,
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		s.run(ctx)
	}()
	s.commands <- "start"

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "camera.ready", "camera.denied", "camera.frame":
			s.camera.deliver(inbound)
		case "cancel":
			s.cancel()
		case "start", "capture", "retry":
			select {
			case s.commands <- inbound.Type:
			default:
				p.emitError(domain.ErrWorkflowBusy)
			}
		default:
			p.emit("error", errorPayload{Message: "unsupported message type"})
		}
	}

	s.release()
	cancel()
	close(s.commands)
	<-workerDone
}

// proofSession serializes blocking workflow calls on one goroutine while the
// reader keeps routing camera replies and cancellations.
type proofSession struct {
	service   *app.ProofService
	userID    string
	missionID string
	peer      *peer
	camera    *wsCamera
	commands  chan string
	log       *zap.Logger

	mu       sync.Mutex
	workflow *proof.Workflow
	closed   bool
}

func (s *proofSession) run(ctx context.Context) {
	for cmd := range s.commands {
		switch cmd {
		case "start":
			s.start(ctx)
		case "capture":
			s.capture(ctx)
		case "retry":
			s.retry(ctx)
		}
	}
}

func (s *proofSession) current() *proof.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflow
}

func (s *proofSession) start(ctx context.Context) {
	if wf := s.current(); wf != nil && wf.Active() {
		s.peer.emitError(domain.ErrWorkflowBusy)
		return
	}
	wf, err := s.service.Begin(ctx, s.userID, s.missionID, s.camera)
	if err != nil {
		var derr *domain.DeviceError
		if errors.As(err, &derr) {
			s.peer.emit("state", proof.Status{State: proof.StateIdle, MissionID: s.missionID, Reason: domain.CameraUnavailableMessage})
			return
		}
		s.peer.emitError(err)
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.service.Release(s.userID, wf)
		return
	}
	s.workflow = wf
	s.mu.Unlock()
	s.peer.emit("state", wf.Status())
}

func (s *proofSession) capture(ctx context.Context) {
	wf := s.current()
	if wf == nil {
		s.peer.emitError(domain.ErrInvalidTransition)
		return
	}
	verdict, err := wf.Capture(ctx)
	switch {
	case errors.Is(err, proof.ErrCancelled):
	case err != nil:
		var derr *domain.DeviceError
		if !errors.As(err, &derr) {
			s.peer.emitError(err)
		}
	default:
		s.peer.emit("verdict", verdict)
	}
	s.peer.emit("state", wf.Status())
}

func (s *proofSession) retry(ctx context.Context) {
	wf := s.current()
	if wf == nil {
		s.peer.emitError(domain.ErrInvalidTransition)
		return
	}
	if err := wf.Retry(ctx); err != nil {
		var derr *domain.DeviceError
		if !errors.As(err, &derr) {
			s.peer.emitError(err)
		}
	}
	s.peer.emit("state", wf.Status())
}

// cancel runs on the reader goroutine so it can interrupt a blocked capture.
func (s *proofSession) cancel() {
	wf := s.current()
	if wf == nil {
		return
	}
	wf.Cancel()
	s.peer.emit("state", wf.Status())
}

// release runs once the connection is gone. A workflow that start obtains
// afterwards is released there.
func (s *proofSession) release() {
	s.mu.Lock()
	s.closed = true
	wf := s.workflow
	s.mu.Unlock()
	if wf != nil {
		s.service.Release(s.userID, wf)
	}
}

// wsCamera is a proof.Camera backed by the client's device.
type wsCamera struct {
	peer    *peer
	replies chan inboundMessage
	timeout time.Duration
}

func newWSCamera(p *peer, timeout time.Duration) *wsCamera {
	return &wsCamera{peer: p, replies: make(chan inboundMessage, 4), timeout: timeout}
}

// deliver hands a camera reply to a waiting request. Replies nobody waits for
// are dropped once the buffer is full.
func (c *wsCamera) deliver(msg inboundMessage) {
	select {
	case c.replies <- msg:
	default:
	}
}

type deniedPayload struct {
	Reason string `json:"reason"`
}

type framePayload struct {
	Image string `json:"image"`
}

func (c *wsCamera) Open(ctx context.Context) (proof.Feed, error) {
	msg, err := c.request(ctx, "camera.open", "camera.ready", "camera.denied")
	if err != nil {
		return nil, err
	}
	if msg.Type == "camera.denied" {
		return nil, deniedError(msg)
	}
	return &wsFeed{camera: c}, nil
}

func (c *wsCamera) request(ctx context.Context, typ string, want ...string) (inboundMessage, error) {
	for drained := false; !drained; {
		select {
		case <-c.replies:
		default:
			drained = true
		}
	}
	if !c.peer.emit(typ, struct{}{}) {
		return inboundMessage{}, errors.New("connection closed")
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for {
		select {
		case msg := <-c.replies:
			for _, w := range want {
				if msg.Type == w {
					return msg, nil
				}
			}
		case <-timer.C:
			return inboundMessage{}, fmt.Errorf("no reply to %s within %s", typ, c.timeout)
		case <-ctx.Done():
			return inboundMessage{}, ctx.Err()
		}
	}
}

func deniedError(msg inboundMessage) error {
	var payload deniedPayload
	_ = json.Unmarshal(msg.Payload, &payload)
	if payload.Reason == "" {
		payload.Reason = "permission denied"
	}
	return errors.New(payload.Reason)
}

type wsFeed struct {
	camera *wsCamera
	once   sync.Once
}

// Snapshot asks the client for a still frame. The image may be plain base64
// or a data URL.
func (f *wsFeed) Snapshot(ctx context.Context) ([]byte, error) {
	msg, err := f.camera.request(ctx, "camera.capture", "camera.frame", "camera.denied")
	if err != nil {
		return nil, err
	}
	if msg.Type == "camera.denied" {
		return nil, deniedError(msg)
	}
	var payload framePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	data := payload.Image
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if len(image) == 0 {
		return nil, errors.New("empty frame")
	}
	return image, nil
}

func (f *wsFeed) Stop() {
	f.once.Do(func() {
		f.camera.peer.emit("camera.close", struct{}{})
	})
}
