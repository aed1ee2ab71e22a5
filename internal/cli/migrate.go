package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"worksafe/internal/config"
	"worksafe/internal/domain"
	"worksafe/internal/infra/postgres"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			return migrateAndSeed(cmd.Context(), cfg.Postgres.URL, false, log())
		},
	}
}

// migrateAndSeed applies pending migrations. The built-in quiz banks are
// upserted when force is set or the quizzes table is empty.
func migrateAndSeed(ctx context.Context, dsn string, force bool, logger *zap.Logger) error {
	db := postgres.OpenBun(dsn)
	defer db.Close()

	group, err := postgres.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
	} else {
		logger.Info("migrations applied", zap.String("group", group.String()))
	}

	if !force {
		count, err := db.NewSelect().Table("quizzes").Count(ctx)
		if err != nil {
			return fmt.Errorf("count quizzes: %w", err)
		}
		if count > 0 {
			return nil
		}
	}
	banks := domain.QuizCatalog()
	quizzes := make([]domain.Quiz, 0, len(banks))
	for _, q := range banks {
		quizzes = append(quizzes, q)
	}
	if err := postgres.SeedQuizzes(ctx, db, quizzes); err != nil {
		return err
	}
	logger.Info("quiz banks seeded", zap.Int("count", len(quizzes)))
	return nil
}
