package cli

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"quizrush/internal/domain"
	"quizrush/internal/infra/memory"
	"quizrush/internal/infra/postgres"
	rediscache "quizrush/internal/infra/redis"
	"quizrush/internal/infra/source"
)

// NewSeedCmd copies a catalog into the questions table.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions into Postgres from the bundled catalog or a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}

			var catalog domain.Catalog
			if file != "" {
				catalog, err = source.NewFileLoader(file).LoadCatalog(ctx)
			} else {
				catalog, err = memory.NewEmbeddedCatalogLoader().LoadCatalog(ctx)
			}
			if err != nil {
				return err
			}

			db := openBun(cfg.Postgres.URL)
			defer db.Close()
			n, err := postgres.Seed(ctx, db, catalog)
			if err != nil {
				return err
			}
			log.Info("catalog seeded", zap.Int("questions", n), zap.Int("subjects", len(catalog)))

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer client.Close()
				if err := rediscache.InvalidateCatalog(ctx, client); err != nil {
					return fmt.Errorf("clear shared catalog: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON or YAML catalog to load instead of the bundled one")
	return cmd
}
