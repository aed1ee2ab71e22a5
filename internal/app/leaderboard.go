package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"worksafe/internal/domain"
	"worksafe/internal/ranking"
)

// UserLister reads the user collection.
type UserLister interface {
	List(ctx context.Context) ([]domain.User, error)
}

// LeaderboardService derives rankings from the user collection and streams
// the all-time board to live subscribers.
type LeaderboardService struct {
	users UserLister
	state StateStore
	now   func() time.Time
	log   *zap.Logger

	snapMu sync.Mutex

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardService(users UserLister, state StateStore, now func() time.Time, logger *zap.Logger) *LeaderboardService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{
		users:       users,
		state:       state,
		now:         now,
		log:         logger,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Individual ranks every user for filter. With a viewer, each entry carries
// its movement since that viewer's previous look and the viewer's snapshot is
// replaced by the current ranks.
func (s *LeaderboardService) Individual(ctx context.Context, viewerID string, filter domain.TimeFilter) (domain.Leaderboard, error) {
	board, err := s.build(ctx, filter)
	if err != nil || viewerID == "" {
		return board, err
	}

	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	previous := map[string]int{}
	if _, err := loadJSON(ctx, s.state, RankHistoryKey(viewerID), &previous); err != nil {
		return domain.Leaderboard{}, err
	}
	next := ranking.Annotate(board.Entries, previous)
	if err := saveJSON(ctx, s.state, RankHistoryKey(viewerID), next); err != nil {
		return domain.Leaderboard{}, err
	}
	if e, ok := ranking.Find(board.Entries, viewerID); ok {
		board.ViewerRank = e.Rank
	}
	return board, nil
}

// Sectors aggregates the board per sector.
func (s *LeaderboardService) Sectors(ctx context.Context, filter domain.TimeFilter) ([]domain.SectorEntry, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.Sectors(users, filter, domain.Sectors()), nil
}

// Subscribe returns a channel that receives the all-time board after every
// score change. The caller must invoke the returned cancel function to avoid
// leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.build(ctx, domain.FilterAll)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// Publish pushes the current board to every subscriber. Registered as a
// score listener.
func (s *LeaderboardService) Publish(ctx context.Context) {
	board, err := s.build(ctx, domain.FilterAll)
	if err != nil {
		s.log.Warn("build leaderboard for subscribers", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- board:
		default:
			// Slow subscriber: replace its oldest pending board.
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
}

func (s *LeaderboardService) build(ctx context.Context, filter domain.TimeFilter) (domain.Leaderboard, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		Filter:    filter,
		Entries:   ranking.Individual(users, filter),
		UpdatedAt: s.now(),
	}, nil
}
