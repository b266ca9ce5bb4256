package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"quizrush/internal/app"
	"quizrush/internal/config"
	"quizrush/internal/infra/memory"
	pgloader "quizrush/internal/infra/postgres"
	rediscache "quizrush/internal/infra/redis"
	"quizrush/internal/infra/source"
	"quizrush/internal/logger"
	"quizrush/internal/metrics"
	transport "quizrush/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if portFlag != "" {
		cfg.Server.Port = portFlag
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	loader, closeLoader, err := newCatalogLoader(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLoader()

	catalogSource := cfg.Catalog.Source
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 0)
	var catalogRepo app.CatalogRepository
	var store app.SessionRepository
	if redisClient != nil {
		// a restart always rereads the configured source
		if err := rediscache.InvalidateCatalog(ctx, redisClient); err != nil {
			log.Warn("shared catalog not cleared", zap.Error(err))
		}
		catalogRepo = rediscache.NewCatalogRepository(redisClient, loader, catalogSource, catalogTTL)
		sessions := rediscache.NewSessionStore(redisClient, redisTTL)
		refreshCtx, stopRefresh := context.WithCancel(ctx)
		defer stopRefresh()
		go sessions.Run(refreshCtx, redisTTL/2)
		store = sessions
	} else {
		catalogRepo = memory.NewCatalogRepository(loader, catalogSource, catalogTTL)
		store = memory.NewSessionStore()
	}

	recorder := metrics.New("quizrush")
	service := app.NewGameService(store, catalogRepo,
		app.WithLogger(log),
		app.WithMetrics(recorder),
	)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Bind, cfg.Server.Port),
		Handler:           transport.NewRouter(service, log, recorder),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	go func() {
		log.Info("starting quizrush", zap.String("addr", server.Addr), zap.String("catalog", catalogSource))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newCatalogLoader picks the question source named in the config.
func newCatalogLoader(ctx context.Context, cfg config.Config, log *zap.Logger) (memory.CatalogLoader, func(), error) {
	noop := func() {}
	switch cfg.Catalog.Source {
	case config.SourceFile:
		return source.NewFileLoader(cfg.Catalog.Path), noop, nil
	case config.SourceHTTP:
		return source.NewHTTPLoader(cfg.Catalog.URL, nil), noop, nil
	case config.SourcePostgres:
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, noop, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, err
		}
		return pgloader.NewCatalogLoader(pool), pool.Close, nil
	default:
		return memory.NewEmbeddedCatalogLoader(), noop, nil
	}
}
