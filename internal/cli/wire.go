package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"worksafe/internal/app"
	"worksafe/internal/config"
	"worksafe/internal/domain"
	"worksafe/internal/infra/memory"
	"worksafe/internal/infra/postgres"
	redisstore "worksafe/internal/infra/redis"
	"worksafe/internal/infra/sqlite"
	"worksafe/internal/missions"
	"worksafe/internal/oracle"
	"worksafe/internal/proof"
	transport "worksafe/internal/transport/http"
)

// oracleService is everything the services ask the remote model for.
type oracleService interface {
	proof.Verifier
	app.IncidentAnalyzer
	app.ChecklistGenerator
}

// quizLoader is satisfied by the catalog and the Postgres loader.
type quizLoader interface {
	memory.QuizLoader
	redisstore.QuizLoader
}

// application is the wired process: services plus whatever must be closed.
type application struct {
	services transport.Services
	closers  []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*application, error) {
	a := &application{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := migrateAndSeed(ctx, cfg.Postgres.URL, false, logger); err != nil {
			return nil, err
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
	}

	state, err := openStateStore(ctx, cfg, redisClient, pool, a)
	if err != nil {
		return nil, err
	}
	logger.Info("state store ready", zap.String("driver", cfg.Storage.Driver))

	var loader quizLoader = memory.NewCatalogLoader()
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var plays app.PlayRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL, logger)
		plays = redisstore.NewPlayStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		plays = memory.NewPlayStore()
	}

	var model oracleService = oracle.Unavailable{}
	if cfg.Oracle.APIKey != "" {
		client, err := oracle.New(ctx, oracle.Config{
			APIKey:  cfg.Oracle.APIKey,
			Model:   cfg.Oracle.Model,
			BaseURL: cfg.Oracle.BaseURL,
		}, logger.Named("oracle"))
		if err != nil {
			return nil, err
		}
		model = client
	} else {
		logger.Warn("no oracle api key configured, proofs will fail verification")
	}

	accounts := app.NewAccountService(state, logger.Named("accounts"))
	leaderboard := app.NewLeaderboardService(accounts, state, time.Now, logger.Named("leaderboard"))
	accounts.OnScoreChange(leaderboard.Publish)

	missionSvc := app.NewMissionService(state, accounts, app.MissionConfig{
		Window:      config.TTLDuration(cfg.Missions.Window, missions.DefaultWindow),
		ActiveCount: cfg.Missions.ActiveCount,
		Logger:      logger.Named("missions"),
	})
	proofs := app.NewProofService(missionSvc, model, proof.Config{
		Timeout:      config.TTLDuration(cfg.Oracle.Timeout, 30*time.Second),
		ConfirmDelay: config.TTLDuration(cfg.Missions.ConfirmDelay, 1500*time.Millisecond),
		Logger:       logger.Named("proof"),
	})
	quizzes := app.NewQuizService(plays, quizRepo, accounts, app.QuizConfig{
		DefaultQuiz: cfg.Quiz.DefaultQuiz,
		Logger:      logger.Named("quiz"),
	})

	seeded, err := accounts.Seed(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed accounts: %w", err)
	}
	if seeded {
		logger.Info("demo accounts seeded", zap.Int("count", len(domain.SeedAccounts())))
	}

	a.services = transport.Services{
		Accounts:    accounts,
		Quizzes:     quizzes,
		Missions:    missionSvc,
		Proofs:      proofs,
		Leaderboard: leaderboard,
		Incidents:   app.NewIncidentService(state, accounts, model, time.Now, logger.Named("incidents")),
		Checklists:  app.NewChecklistService(model, logger.Named("checklists")),
		Preferences: app.NewPreferenceService(state),
	}
	ok = true
	return a, nil
}

func openStateStore(ctx context.Context, cfg config.Config, client *redis.Client, pool *pgxpool.Pool, a *application) (app.StateStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return memory.NewStateStore(), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case config.DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("storage driver %q needs redis.addr", cfg.Storage.Driver)
		}
		return redisstore.NewStateStore(client), nil
	case config.DriverPostgres:
		if pool == nil {
			return nil, fmt.Errorf("storage driver %q needs postgres.url", cfg.Storage.Driver)
		}
		return postgres.NewStateStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
