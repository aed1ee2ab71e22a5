package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"worksafe/internal/domain"
	"worksafe/internal/proof"
)

// ProofMissions is the mission side of a proof attempt.
type ProofMissions interface {
	Mission(ctx context.Context, userID, missionID string) (domain.Mission, error)
	CompleteVerified(ctx context.Context, userID, missionID string) (domain.Mission, error)
}

// ProofService keeps at most one proof workflow per user.
type ProofService struct {
	missions ProofMissions
	verifier proof.Verifier
	cfg      proof.Config
	log      *zap.Logger

	mu    sync.Mutex
	slots map[string]*proofSlot
}

type proofSlot struct {
	workflow *proof.Workflow
	starting bool
}

func NewProofService(missions ProofMissions, verifier proof.Verifier, cfg proof.Config) *ProofService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ProofService{
		missions: missions,
		verifier: verifier,
		cfg:      cfg,
		log:      cfg.Logger,
		slots:    make(map[string]*proofSlot),
	}
}

// Begin opens camera for missionID and returns the user's workflow in
// Capturing. It fails with domain.ErrWorkflowBusy while another attempt of the
// same user is in flight. A rejected attempt it replaces is closed.
func (s *ProofService) Begin(ctx context.Context, userID, missionID string, camera proof.Camera) (*proof.Workflow, error) {
	mission, err := s.missions.Mission(ctx, userID, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Completed {
		return nil, fmt.Errorf("%w: mission %s already completed", domain.ErrInvalidTransition, missionID)
	}

	s.mu.Lock()
	if prev, ok := s.slots[userID]; ok {
		if prev.starting || prev.workflow.Active() {
			s.mu.Unlock()
			return nil, domain.ErrWorkflowBusy
		}
		// The replaced attempt must not reopen the camera through Retry.
		prev.workflow.Close()
	}
	wf := proof.NewWorkflow(camera, s.verifier, func(ctx context.Context, m domain.Mission) error {
		_, err := s.missions.CompleteVerified(ctx, userID, m.ID)
		return err
	}, s.cfg)
	slot := &proofSlot{workflow: wf, starting: true}
	s.slots[userID] = slot
	s.mu.Unlock()

	err = wf.Start(ctx, mission)

	s.mu.Lock()
	defer s.mu.Unlock()
	slot.starting = false
	if err != nil {
		if s.slots[userID] == slot {
			delete(s.slots, userID)
		}
		return nil, err
	}
	s.log.Debug("proof attempt opened", zap.String("user", userID), zap.String("mission", missionID))
	return wf, nil
}

// Status returns the user's workflow state; Idle when there is none.
func (s *ProofService) Status(userID string) proof.Status {
	s.mu.Lock()
	slot, ok := s.slots[userID]
	s.mu.Unlock()
	if !ok {
		return proof.Status{State: proof.StateIdle}
	}
	return slot.workflow.Status()
}

// Release cancels wf and forgets it if it is still the user's workflow.
func (s *ProofService) Release(userID string, wf *proof.Workflow) {
	wf.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[userID]; ok && slot.workflow == wf {
		delete(s.slots, userID)
	}
}
