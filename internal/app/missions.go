package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"worksafe/internal/domain"
	"worksafe/internal/missions"
)

// MissionRewarder credits a completed mission to a user.
type MissionRewarder interface {
	ApplyMissionReward(ctx context.Context, userID string, points int) (domain.User, error)
}

// MissionConfig tunes a MissionService.
type MissionConfig struct {
	Catalog     []domain.Mission
	Window      time.Duration
	ActiveCount int
	Now         func() time.Time
	Rand        *rand.Rand
	Logger      *zap.Logger
}

// MissionService keeps one rotation document per user.
type MissionService struct {
	state    StateStore
	rewarder MissionRewarder
	catalog  []domain.Mission
	window   time.Duration
	count    int
	now      func() time.Time
	log      *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMissionService(state StateStore, rewarder MissionRewarder, cfg MissionConfig) *MissionService {
	if cfg.Catalog == nil {
		cfg.Catalog = domain.MissionPool()
	}
	if cfg.Window <= 0 {
		cfg.Window = missions.DefaultWindow
	}
	if cfg.ActiveCount <= 0 {
		cfg.ActiveCount = missions.DefaultActiveCount
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &MissionService{
		state:    state,
		rewarder: rewarder,
		catalog:  cfg.Catalog,
		window:   cfg.Window,
		count:    cfg.ActiveCount,
		now:      cfg.Now,
		log:      cfg.Logger,
		rnd:      cfg.Rand,
	}
}

// Board returns the active rotation, redrawing it when the window elapsed.
func (s *MissionService) Board(ctx context.Context, userID string) (domain.MissionBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rotation, rotated, err := s.ensureLocked(ctx, userID, now)
	if err != nil {
		return domain.MissionBoard{}, err
	}
	remaining := missions.Remaining(now, rotation.Anchor, s.window)
	return domain.MissionBoard{
		Missions:         rotation.Missions,
		Anchor:           rotation.Anchor,
		Remaining:        remaining,
		RemainingSeconds: int64(remaining / time.Second),
		Countdown:        missions.FormatRemaining(remaining),
		Rotated:          rotated,
	}, nil
}

// Mission returns one mission of the active rotation.
func (s *MissionService) Mission(ctx context.Context, userID, missionID string) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rotation, _, err := s.ensureLocked(ctx, userID, s.now())
	if err != nil {
		return domain.Mission{}, err
	}
	m, ok := rotation.Find(missionID)
	if !ok {
		return domain.Mission{}, domain.ErrMissionNotFound
	}
	return m, nil
}

// Complete finishes a mission that takes no photographic proof.
func (s *MissionService) Complete(ctx context.Context, userID, missionID string) (domain.Mission, error) {
	return s.complete(ctx, userID, missionID, false)
}

// CompleteVerified finishes a mission whose proof was accepted.
func (s *MissionService) CompleteVerified(ctx context.Context, userID, missionID string) (domain.Mission, error) {
	return s.complete(ctx, userID, missionID, true)
}

func (s *MissionService) complete(ctx context.Context, userID, missionID string, verified bool) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rotation, _, err := s.ensureLocked(ctx, userID, s.now())
	if err != nil {
		return domain.Mission{}, err
	}
	m, ok := rotation.Find(missionID)
	if !ok {
		return domain.Mission{}, domain.ErrMissionNotFound
	}
	if m.RequiresProof && !verified {
		return domain.Mission{}, domain.ErrProofRequired
	}

	updated, completion, err := missions.Complete(rotation, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if !completion.Rewardable() {
		return completion.Mission, nil
	}
	if err := saveJSON(ctx, s.state, MissionsKey(userID), updated); err != nil {
		return domain.Mission{}, err
	}
	// A mission without its points stays open so the reward can be retried.
	if _, err := s.rewarder.ApplyMissionReward(ctx, userID, completion.Mission.Points); err != nil {
		if rerr := saveJSON(ctx, s.state, MissionsKey(userID), rotation); rerr != nil {
			s.log.Error("restore rotation after failed reward", zap.String("user", userID), zap.Error(rerr))
		}
		return domain.Mission{}, err
	}
	s.log.Info("mission completed",
		zap.String("user", userID),
		zap.String("mission", missionID),
		zap.Int("points", completion.Mission.Points),
	)
	return completion.Mission, nil
}

func (s *MissionService) ensureLocked(ctx context.Context, userID string, now time.Time) (missions.Rotation, bool, error) {
	var current missions.Rotation
	if _, err := loadJSON(ctx, s.state, MissionsKey(userID), &current); err != nil {
		return missions.Rotation{}, false, err
	}
	next, rotated := missions.Ensure(now, s.catalog, current, s.window, s.count, s.rnd)
	if !rotated {
		return next, false, nil
	}
	if err := saveJSON(ctx, s.state, MissionsKey(userID), next); err != nil {
		return missions.Rotation{}, false, err
	}
	s.log.Debug("mission rotation drawn", zap.String("user", userID), zap.Time("anchor", next.Anchor))
	return next, true, nil
}
