package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"worksafe/internal/config"
)

// NewSeedCmd writes the demo accounts and, with Postgres configured, the
// built-in quiz banks.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo accounts and quiz banks",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL != "" {
				if err := migrateAndSeed(cmd.Context(), cfg.Postgres.URL, true, logger); err != nil {
					return err
				}
			}
			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			users, err := a.services.Accounts.List(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("accounts ready", zap.Int("users", len(users)))
			return nil
		},
	}
}
