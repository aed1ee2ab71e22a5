package memory

import (
	"context"
	"encoding/json"
	"sync"

	"worksafe/internal/domain"
	"worksafe/internal/quiz"
)

// PlayStore is an in-memory implementation of app.PlayRepository. Sessions
// are kept encoded so callers never share a live *quiz.Session.
type PlayStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewPlayStore() *PlayStore {
	return &PlayStore{sessions: make(map[string][]byte)}
}

func (s *PlayStore) Save(_ context.Context, userID string, session *quiz.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = raw
	return nil
}

func (s *PlayStore) Load(_ context.Context, userID string) (*quiz.Session, error) {
	s.mu.RLock()
	raw, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	var session quiz.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *PlayStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
