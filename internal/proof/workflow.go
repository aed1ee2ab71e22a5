// Package proof drives a single photographic proof attempt for a mission:
// camera capture, remote verification and, on success, mission completion.
package proof

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"worksafe/internal/domain"
)

// State is the workflow position.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateAwaitingVerification
	StateVerified
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateAwaitingVerification:
		return "awaiting_verification"
	case StateVerified:
		return "verified"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrCancelled is returned by a call whose attempt was cancelled while it ran.
var ErrCancelled = errors.New("proof attempt cancelled")

// Camera acquires a live feed. ctx bounds only the acquisition.
type Camera interface {
	Open(ctx context.Context) (Feed, error)
}

// Feed is an acquired live capture. Stop must release the device and be safe
// to call more than once.
type Feed interface {
	Snapshot(ctx context.Context) ([]byte, error)
	Stop()
}

// Verifier is the remote verification oracle.
type Verifier interface {
	VerifyProof(ctx context.Context, claim domain.ProofClaim) (domain.Verdict, error)
}

// CompleteFunc flips the mission's completed flag and issues its reward.
type CompleteFunc func(ctx context.Context, mission domain.Mission) error

// Status is a point-in-time view of the workflow.
type Status struct {
	State     State  `json:"state"`
	MissionID string `json:"missionId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Config tunes a Workflow.
type Config struct {
	// Timeout bounds a single oracle call.
	Timeout time.Duration
	// ConfirmDelay is how long the verified message stays up before completion.
	ConfirmDelay time.Duration
	// After replaces time.After in tests.
	After  func(time.Duration) <-chan time.Time
	Logger *zap.Logger
}

// Workflow is the proof state machine for one user session. All methods are
// safe for concurrent use; blocking work runs outside the lock so Cancel is
// never stuck behind the oracle.
type Workflow struct {
	camera   Camera
	verifier Verifier
	complete CompleteFunc
	timeout  time.Duration
	delay    time.Duration
	after    func(time.Duration) <-chan time.Time
	log      *zap.Logger

	mu      sync.Mutex
	state   State
	mission domain.Mission
	feed    Feed
	reason  string
	epoch   uint64
	abort   context.CancelFunc
	closed  bool
}

// NewWorkflow builds an idle workflow.
func NewWorkflow(camera Camera, verifier Verifier, complete CompleteFunc, cfg Config) *Workflow {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.After == nil {
		cfg.After = time.After
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Workflow{
		camera:   camera,
		verifier: verifier,
		complete: complete,
		timeout:  cfg.Timeout,
		delay:    cfg.ConfirmDelay,
		after:    cfg.After,
		log:      cfg.Logger,
	}
}

// Status returns the current state.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{State: w.state, MissionID: w.mission.ID, Reason: w.reason}
}

// Active reports whether an attempt is in flight.
func (w *Workflow) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state != StateIdle && w.state != StateRejected
}

// Start opens the camera for mission. Allowed from Idle or Rejected on a
// workflow that was not closed. On a camera failure the workflow is back in
// Idle and a *domain.DeviceError is returned.
func (w *Workflow) Start(ctx context.Context, mission domain.Mission) error {
	if !mission.RequiresProof {
		return fmt.Errorf("%w: mission %s does not take proof", domain.ErrInvalidTransition, mission.ID)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("%w: proof attempt closed", domain.ErrInvalidTransition)
	}
	if w.state != StateIdle && w.state != StateRejected {
		w.mu.Unlock()
		return domain.ErrWorkflowBusy
	}
	w.epoch++
	epoch := w.epoch
	openCtx, cancel := context.WithCancel(ctx)
	w.state = StateCapturing
	w.mission = mission
	w.reason = ""
	w.abort = cancel
	w.mu.Unlock()
	w.log.Debug("proof capture starting", zap.String("mission", mission.ID))

	feed, err := w.camera.Open(openCtx)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.epoch {
		if feed != nil {
			feed.Stop()
		}
		return ErrCancelled
	}
	w.abort = nil
	if err != nil {
		if feed != nil {
			feed.Stop()
		}
		w.resetLocked(domain.CameraUnavailableMessage)
		w.log.Info("camera unavailable", zap.String("mission", mission.ID), zap.Error(err))
		return &domain.DeviceError{Op: "open", Err: err}
	}
	w.feed = feed
	return nil
}

// Retry re-enters Capturing for the rejected mission.
func (w *Workflow) Retry(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateRejected {
		w.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	mission := w.mission
	w.mu.Unlock()
	return w.Start(ctx, mission)
}

// Capture takes a still frame, releases the camera and asks the oracle. A
// rejected or failed verification leaves the workflow in Rejected with the
// reason. A verified proof waits ConfirmDelay, completes the mission and
// returns to Idle.
func (w *Workflow) Capture(ctx context.Context) (domain.Verdict, error) {
	w.mu.Lock()
	if w.state != StateCapturing || w.feed == nil {
		w.mu.Unlock()
		return domain.Verdict{}, domain.ErrInvalidTransition
	}
	feed := w.feed
	w.feed = nil
	epoch := w.epoch
	mission := w.mission
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.abort = cancel
	w.state = StateAwaitingVerification
	w.mu.Unlock()

	image, err := feed.Snapshot(attemptCtx)
	feed.Stop()
	if err != nil {
		w.mu.Lock()
		defer w.mu.Unlock()
		if epoch != w.epoch {
			return domain.Verdict{}, ErrCancelled
		}
		w.resetLocked(domain.CameraUnavailableMessage)
		return domain.Verdict{}, &domain.DeviceError{Op: "capture", Err: err}
	}

	verdict := w.verify(attemptCtx, mission, image)

	w.mu.Lock()
	if epoch != w.epoch {
		w.mu.Unlock()
		return verdict, ErrCancelled
	}
	w.abort = nil
	if !verdict.Verified {
		w.state = StateRejected
		w.reason = verdict.Reason
		w.mu.Unlock()
		w.log.Debug("proof rejected", zap.String("mission", mission.ID), zap.String("reason", verdict.Reason))
		return verdict, nil
	}
	w.state = StateVerified
	w.reason = domain.VerifiedMessage
	w.abort = cancel
	w.mu.Unlock()

	select {
	case <-w.after(w.delay):
	case <-attemptCtx.Done():
	}

	w.mu.Lock()
	if epoch != w.epoch || attemptCtx.Err() != nil {
		if epoch == w.epoch {
			w.resetLocked("")
		}
		w.mu.Unlock()
		return verdict, ErrCancelled
	}
	w.resetLocked("")
	w.mu.Unlock()

	if err := w.complete(context.WithoutCancel(ctx), mission); err != nil {
		w.log.Error("complete verified mission", zap.String("mission", mission.ID), zap.Error(err))
		return verdict, err
	}
	w.log.Debug("proof verified", zap.String("mission", mission.ID))
	return verdict, nil
}

// Cancel returns to Idle from any state, releasing the camera and abandoning
// any pending verification or reward.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.feed != nil {
		w.feed.Stop()
		w.feed = nil
	}
	if w.abort != nil {
		w.abort()
	}
	w.resetLocked("")
}

// Close cancels the attempt for good. Start and Retry fail afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.Cancel()
}

func (w *Workflow) verify(ctx context.Context, mission domain.Mission, image []byte) domain.Verdict {
	if w.verifier == nil {
		return domain.Verdict{Verified: false, Reason: domain.FallbackVerificationReason}
	}
	vctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	verdict, err := w.verifier.VerifyProof(vctx, domain.ProofClaim{
		Title:       mission.Title,
		Description: mission.Description,
		Image:       image,
		MIMEType:    "image/jpeg",
	})
	if err != nil {
		w.log.Warn("proof verification failed", zap.String("mission", mission.ID), zap.Error(err))
		return domain.Verdict{Verified: false, Reason: domain.FallbackVerificationReason}
	}
	if !verdict.Verified && verdict.Reason == "" {
		verdict.Reason = domain.FallbackVerificationReason
	}
	return verdict
}

// resetLocked moves to Idle and invalidates any in-flight attempt.
func (w *Workflow) resetLocked(reason string) {
	w.epoch++
	w.state = StateIdle
	w.mission = domain.Mission{}
	w.reason = reason
	w.abort = nil
}
