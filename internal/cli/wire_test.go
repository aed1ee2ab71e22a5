package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"worksafe/internal/config"
)

func defaults(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Oracle.APIKey = ""
	return cfg
}

func TestBuildAppMemory(t *testing.T) {
	ctx := context.Background()
	a, err := buildApp(ctx, defaults(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	users, err := a.services.Accounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	quizzes, err := a.services.Quizzes.ListQuizzes(ctx)
	require.NoError(t, err)
	assert.Len(t, quizzes, 2)

	board, err := a.services.Missions.Board(ctx, "worker1")
	require.NoError(t, err)
	assert.Len(t, board.Missions, 4)
}

func TestBuildAppSQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := defaults(t)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "state", "worksafe.db")

	a, err := buildApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	_, err = a.services.Accounts.ApplyMissionReward(ctx, "worker1", 150)
	require.NoError(t, err)
	a.Close()

	b, err := buildApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()
	u, err := b.services.Accounts.Get(ctx, "worker1")
	require.NoError(t, err)
	assert.Equal(t, 1350, u.Score)
}

func TestBuildAppRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := defaults(t)
	cfg.Storage.Driver = config.DriverRedis
	cfg.Redis.Addr = mr.Addr()

	a, err := buildApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	view, err := a.services.Quizzes.Start(ctx, "worker1", "q2")
	require.NoError(t, err)
	assert.Equal(t, "q2", view.QuizID)
	assert.True(t, mr.Exists("worksafe:play:worker1"))
	assert.True(t, mr.Exists("worksafe:users"))
}

func TestBuildAppDriverErrors(t *testing.T) {
	ctx := context.Background()

	cfg := defaults(t)
	cfg.Storage.Driver = "floppy"
	_, err := buildApp(ctx, cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown storage driver")

	cfg = defaults(t)
	cfg.Storage.Driver = config.DriverRedis
	_, err = buildApp(ctx, cfg, zap.NewNop())
	assert.ErrorContains(t, err, "needs redis.addr")

	cfg = defaults(t)
	cfg.Storage.Driver = config.DriverPostgres
	_, err = buildApp(ctx, cfg, zap.NewNop())
	assert.ErrorContains(t, err, "needs postgres.url")
}
