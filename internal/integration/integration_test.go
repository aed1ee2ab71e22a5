package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"worksafe/internal/app"
	"worksafe/internal/domain"
	"worksafe/internal/infra/postgres"
	infraredis "worksafe/internal/infra/redis"
	"worksafe/internal/scoring"
)

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL := startPostgres(t, ctx)
	redisClient := startRedis(t, ctx)

	seedQuizzes(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	logger := zap.NewNop()
	state := postgres.NewStateStore(pool)
	accounts := app.NewAccountService(state, logger, app.WithBcryptCost(bcrypt.MinCost))
	if _, err := accounts.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute, logger)
	plays := infraredis.NewPlayStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(plays, quizRepo, accounts, app.QuizConfig{Logger: logger})

	view, err := service.Start(ctx, "worker1", "q1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Total != 3 {
		t.Fatalf("expected 3 questions, got %d", view.Total)
	}

	for i := 0; i < view.Total; i++ {
		session, err := plays.Load(ctx, "worker1")
		if err != nil {
			t.Fatalf("load session: %v", err)
		}
		q, ok := session.Question()
		if !ok {
			t.Fatalf("no question at %d", i)
		}
		if _, err := service.Select(ctx, "worker1", q.CorrectIndex); err != nil {
			t.Fatalf("select: %v", err)
		}
		confirmed, err := service.Confirm(ctx, "worker1")
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if confirmed.Correct == nil || !*confirmed.Correct {
			t.Fatalf("expected correct answer at %d", i)
		}
		if _, err := service.Advance(ctx, "worker1"); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	res, err := service.Finish(ctx, "worker1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if res.Result.Points != 500 || res.User.Score != 1700 {
		t.Fatalf("expected 500 points and score 1700, got %+v", res)
	}
	if !res.User.HasBadge(scoring.MasterBadge) {
		t.Fatalf("expected master badge, got %v", res.User.Badges)
	}

	// The score survives in Postgres and the session is gone from Redis.
	stored, err := accounts.Get(ctx, "worker1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Score != 1700 {
		t.Fatalf("expected persisted score 1700, got %d", stored.Score)
	}
	if _, err := service.Finish(ctx, "worker1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session not found on second finish, got %v", err)
	}
}

// startContainer runs req and returns host:port of the exposed port. It
// skips the test when no Docker daemon answers.
func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) string {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, nat.Port(req.ExposedPorts[0]), "")
	if err != nil {
		t.Fatalf("%s endpoint: %v", req.Image, err)
	}
	return endpoint
}

func startPostgres(t *testing.T, ctx context.Context) string {
	addr := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "worksafe", "POSTGRES_PASSWORD": "worksafe", "POSTGRES_DB": "worksafe"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	})
	return fmt.Sprintf("postgres://worksafe:worksafe@%s/worksafe?sslmode=disable", addr)
}

func startRedis(t *testing.T, ctx context.Context) *goredis.Client {
	addr := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedQuizzes(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	db := postgres.OpenBun(dsn)
	defer db.Close()

	// Postgres accepts connections a moment after the port opens.
	var err error
	for attempt := 0; attempt < 10; attempt++ {
		if _, err = postgres.Migrate(ctx, db); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	banks := domain.QuizCatalog()
	quizzes := make([]domain.Quiz, 0, len(banks))
	for _, q := range banks {
		quizzes = append(quizzes, q)
	}
	if err := postgres.SeedQuizzes(ctx, db, quizzes); err != nil {
		t.Fatalf("seed quizzes: %v", err)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
