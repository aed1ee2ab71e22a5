package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"worksafe/internal/domain"
)

// Theme is the UI color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// PreferenceService stores device preferences and norm click counters.
type PreferenceService struct {
	state StateStore
	mu    sync.Mutex
}

func NewPreferenceService(state StateStore) *PreferenceService {
	return &PreferenceService{state: state}
}

// Theme returns the stored theme, light when unset.
func (s *PreferenceService) Theme(ctx context.Context) (Theme, error) {
	raw, err := s.state.Get(ctx, KeyTheme)
	if errors.Is(err, domain.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", err
	}
	return Theme(raw), nil
}

func (s *PreferenceService) SetTheme(ctx context.Context, theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return domain.Invalid("theme", "Tema inválido.")
	}
	return s.state.Set(ctx, KeyTheme, []byte(theme))
}

// RememberedEmail returns the email saved by a "remember me" login, if any.
func (s *PreferenceService) RememberedEmail(ctx context.Context) (string, error) {
	raw, err := s.state.Get(ctx, KeyRememberedEmail)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	return string(raw), err
}

// RecordNormClick increments the counter of a regulation and returns it.
func (s *PreferenceService) RecordNormClick(ctx context.Context, normID string) (int, error) {
	normID = strings.TrimSpace(normID)
	if normID == "" {
		return 0, domain.Invalid("norm", "Norma inválida.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clicks := map[string]int{}
	if _, err := loadJSON(ctx, s.state, KeyNormClicks, &clicks); err != nil {
		return 0, err
	}
	clicks[normID]++
	if err := saveJSON(ctx, s.state, KeyNormClicks, clicks); err != nil {
		return 0, err
	}
	return clicks[normID], nil
}

// NormClicks returns every counter.
func (s *PreferenceService) NormClicks(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clicks := map[string]int{}
	if _, err := loadJSON(ctx, s.state, KeyNormClicks, &clicks); err != nil {
		return nil, err
	}
	return clicks, nil
}
