package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"worksafe/internal/domain"
)

type analyzerFunc func(ctx context.Context, description string, image []byte) (string, error)

func (f analyzerFunc) AnalyzeIncident(ctx context.Context, description string, image []byte) (string, error) {
	return f(ctx, description, image)
}

func validIncident() IncidentInput {
	return IncidentInput{
		Type:        domain.IncidentHazard,
		Severity:    domain.SeverityHigh,
		Description: "Fio solto no corredor",
		Location:    "Bloco B",
	}
}

func newIncidentFixture(t *testing.T, analyzer IncidentAnalyzer) (*IncidentService, *clock) {
	t.Helper()
	accounts, state := seededAccounts(t)
	clk := newClock()
	return NewIncidentService(state, accounts, analyzer, clk.Now, zap.NewNop()), clk
}

func TestReportStoresAnalysisNewestFirst(t *testing.T) {
	ctx := context.Background()
	var gotImage []byte
	svc, clk := newIncidentFixture(t, analyzerFunc(func(_ context.Context, description string, image []byte) (string, error) {
		gotImage = image
		return "Risco de queda: " + description, nil
	}))

	first, err := svc.Report(ctx, "worker1", validIncident())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, first.Status)
	assert.Equal(t, "Risco de queda: Fio solto no corredor", first.AIAnalysis)
	assert.Equal(t, clk.Now(), first.Timestamp)

	clk.Advance(time.Minute)
	in := validIncident()
	in.Description = "  Piso molhado  "
	in.Image = []byte{0xff, 0xd8}
	second, err := svc.Report(ctx, "worker1", in)
	require.NoError(t, err)
	assert.Equal(t, "Piso molhado", second.Description)
	assert.Equal(t, []byte{0xff, 0xd8}, gotImage)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestReportFallsBackWhenAnalysisFails(t *testing.T) {
	svc, _ := newIncidentFixture(t, analyzerFunc(func(context.Context, string, []byte) (string, error) {
		return "", errors.New("quota exceeded")
	}))
	incident, err := svc.Report(context.Background(), "worker1", validIncident())
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnalysis, incident.AIAnalysis)
}

func TestReportValidation(t *testing.T) {
	svc, _ := newIncidentFixture(t, nil)

	cases := map[string]func(*IncidentInput){
		"type":        func(in *IncidentInput) { in.Type = "fire" },
		"severity":    func(in *IncidentInput) { in.Severity = "" },
		"description": func(in *IncidentInput) { in.Description = "   " },
		"location":    func(in *IncidentInput) { in.Location = "" },
	}
	for field, mutate := range cases {
		in := validIncident()
		mutate(&in)
		_, err := svc.Report(context.Background(), "worker1", in)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr), field)
		assert.Equal(t, field, verr.Field)
	}

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateStatusRequiresSupervisor(t *testing.T) {
	ctx := context.Background()
	svc, _ := newIncidentFixture(t, nil)

	incident, err := svc.Report(ctx, "worker1", validIncident())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "worker1", incident.ID, domain.StatusInvestigating)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.UpdateStatus(ctx, "admin123", incident.ID, domain.StatusInvestigating)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvestigating, updated.Status)

	_, err = svc.UpdateStatus(ctx, "admin123", "nope", domain.StatusResolved)
	assert.ErrorIs(t, err, domain.ErrIncidentNotFound)

	_, err = svc.UpdateStatus(ctx, "admin123", incident.ID, "closed")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvestigating, list[0].Status)
}
