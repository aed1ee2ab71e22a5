package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"worksafe/internal/domain"
	"worksafe/internal/quiz"
)

// PlayStore keeps in-progress quiz sessions in Redis. Every save refreshes
// the TTL, so an abandoned attempt expires on its own.
type PlayStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPlayStore(client *redis.Client, ttl time.Duration) *PlayStore {
	return &PlayStore{client: client, ttl: ttl}
}

func (s *PlayStore) Save(ctx context.Context, userID string, session *quiz.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save play session: %w", err)
	}
	return nil
}

func (s *PlayStore) Load(ctx context.Context, userID string) (*quiz.Session, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load play session: %w", err)
	}
	var session quiz.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode play session: %w", err)
	}
	return &session, nil
}

func (s *PlayStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *PlayStore) key(userID string) string {
	return keyPrefix + "play:" + userID
}
