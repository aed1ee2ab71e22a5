package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"worksafe/internal/domain"
)

// IncidentAnalyzer produces a free-text risk assessment for a report.
type IncidentAnalyzer interface {
	AnalyzeIncident(ctx context.Context, description string, image []byte) (string, error)
}

// UserGetter loads a single user.
type UserGetter interface {
	Get(ctx context.Context, userID string) (domain.User, error)
}

// IncidentInput is the safety report form.
type IncidentInput struct {
	Type        domain.IncidentType `json:"type"`
	Severity    domain.Severity     `json:"severity"`
	Description string              `json:"description"`
	Location    string              `json:"location"`
	Image       []byte              `json:"image,omitempty"`
}

// IncidentService stores safety reports, newest first.
type IncidentService struct {
	state    StateStore
	users    UserGetter
	analyzer IncidentAnalyzer
	now      func() time.Time
	log      *zap.Logger

	mu sync.Mutex
}

func NewIncidentService(state StateStore, users UserGetter, analyzer IncidentAnalyzer, now func() time.Time, logger *zap.Logger) *IncidentService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentService{state: state, users: users, analyzer: analyzer, now: now, log: logger}
}

// Report validates and stores a report with its analysis. A failed analysis
// stores the fallback text instead.
func (s *IncidentService) Report(ctx context.Context, reporterID string, in IncidentInput) (domain.Incident, error) {
	switch in.Type {
	case domain.IncidentNearMiss, domain.IncidentHazard, domain.IncidentAccident, domain.IncidentErgonomics:
	default:
		return domain.Incident{}, domain.Invalid("type", "Tipo de ocorrência inválido.")
	}
	switch in.Severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
	default:
		return domain.Incident{}, domain.Invalid("severity", "Gravidade inválida.")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return domain.Incident{}, domain.Invalid("description", "Descreva a ocorrência.")
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return domain.Incident{}, domain.Invalid("location", "Informe o local da ocorrência.")
	}

	analysis := domain.FallbackAnalysis
	if s.analyzer != nil {
		text, err := s.analyzer.AnalyzeIncident(ctx, description, in.Image)
		if err != nil {
			s.log.Warn("incident analysis failed", zap.Error(err))
		} else {
			analysis = text
		}
	}

	incident := domain.Incident{
		ID:          uuid.NewString(),
		ReporterID:  reporterID,
		Type:        in.Type,
		Severity:    in.Severity,
		Description: description,
		Location:    location,
		Timestamp:   s.now().UTC(),
		Status:      domain.StatusOpen,
		Image:       in.Image,
		AIAnalysis:  analysis,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	incidents, err := s.loadLocked(ctx)
	if err != nil {
		return domain.Incident{}, err
	}
	incidents = append([]domain.Incident{incident}, incidents...)
	if err := saveJSON(ctx, s.state, KeyIncidents, incidents); err != nil {
		return domain.Incident{}, err
	}
	s.log.Info("incident reported",
		zap.String("incident", incident.ID),
		zap.String("type", string(incident.Type)),
		zap.String("severity", string(incident.Severity)),
	)
	return incident, nil
}

// List returns every report, newest first.
func (s *IncidentService) List(ctx context.Context) ([]domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// UpdateStatus moves a report through investigation. Only admins and
// supervisors may do it.
func (s *IncidentService) UpdateStatus(ctx context.Context, actorID, incidentID string, status domain.IncidentStatus) (domain.Incident, error) {
	switch status {
	case domain.StatusOpen, domain.StatusInvestigating, domain.StatusResolved:
	default:
		return domain.Incident{}, domain.Invalid("status", "Status inválido.")
	}
	actor, err := s.users.Get(ctx, actorID)
	if err != nil {
		return domain.Incident{}, err
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSupervisor {
		return domain.Incident{}, domain.ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	incidents, err := s.loadLocked(ctx)
	if err != nil {
		return domain.Incident{}, err
	}
	for i := range incidents {
		if incidents[i].ID != incidentID {
			continue
		}
		incidents[i].Status = status
		if err := saveJSON(ctx, s.state, KeyIncidents, incidents); err != nil {
			return domain.Incident{}, err
		}
		return incidents[i], nil
	}
	return domain.Incident{}, domain.ErrIncidentNotFound
}

func (s *IncidentService) loadLocked(ctx context.Context) ([]domain.Incident, error) {
	incidents := []domain.Incident{}
	if _, err := loadJSON(ctx, s.state, KeyIncidents, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}
