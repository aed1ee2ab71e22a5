package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"worksafe/internal/domain"
	"worksafe/internal/quiz"
)

// StateStore is the device-wide key-value state (users, session, missions,
// rank snapshots, preferences). Get returns domain.ErrNotFound for a missing key.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
}

// PlayRepository holds the in-progress quiz session of each user.
type PlayRepository interface {
	Save(ctx context.Context, userID string, session *quiz.Session) error
	Load(ctx context.Context, userID string) (*quiz.Session, error)
	Delete(ctx context.Context, userID string) error
}

const keyPrefix = "worksafe:"

// State keys.
const (
	KeyUsers           = keyPrefix + "users"
	KeyCredentials     = keyPrefix + "credentials"
	KeySession         = keyPrefix + "session"
	KeyIncidents       = keyPrefix + "incidents"
	KeyNormClicks      = keyPrefix + "norm_clicks"
	KeyRememberedEmail = keyPrefix + "pref:remembered_email"
	KeyTheme           = keyPrefix + "pref:theme"
)

// MissionsKey is the rotation document of a user.
func MissionsKey(userID string) string {
	return keyPrefix + "missions:" + userID
}

// RankHistoryKey is the rank snapshot seen last by a viewer.
func RankHistoryKey(viewerID string) string {
	return keyPrefix + "rank_history:" + viewerID
}

// loadJSON decodes key into dst. found is false when the key is absent.
func loadJSON(ctx context.Context, store StateStore, key string, dst any) (found bool, err error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func saveJSON(ctx context.Context, store StateStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
