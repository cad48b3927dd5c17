package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/api"
	"github.com/EvoluTechs/riftcollect/internal/app"
	"github.com/EvoluTechs/riftcollect/internal/app/maintenance"
	"github.com/EvoluTechs/riftcollect/internal/catalog"
	"github.com/EvoluTechs/riftcollect/internal/database"
	"github.com/EvoluTechs/riftcollect/internal/hashstore"
	"github.com/EvoluTechs/riftcollect/internal/imagehash"
	"github.com/EvoluTechs/riftcollect/internal/match"
	"github.com/EvoluTechs/riftcollect/internal/translate"
	"github.com/EvoluTechs/riftcollect/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("riftcollect-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	hasher := imagehash.New(cfg.Matching.HashSize)

	store, err := hashstore.NewStore(db, hasher, cfg.Assets.Root, cfg.Assets.Filename, logger.WithModule("hashstore"))
	if err != nil {
		return fmt.Errorf("initialise hash store: %w", err)
	}

	catalogOpts := []catalog.Option{catalog.WithLogger(logger.WithModule("catalog"))}
	if strings.TrimSpace(cfg.Origin.BaseURL) != "" {
		catalogOpts = append(catalogOpts, catalog.WithOrigin(catalog.NewOriginClient(cfg.Origin.BaseURL, cfg.Origin.Timeout)))
	}
	if cfg.Translation.Enabled {
		memo, memoErr := translate.NewMemo(db,
			translate.NewClient(translate.ClientConfig{
				BaseURL: cfg.Translation.BaseURL,
				APIKey:  cfg.Translation.APIKey,
				Model:   cfg.Translation.Model,
				Timeout: cfg.Translation.Timeout,
			}),
			translate.MemoConfig{
				Enabled:    true,
				TargetLang: cfg.Translation.TargetLang,
				Timeout:    cfg.Translation.Timeout,
				HotTTL:     cfg.Translation.CacheTTL,
			},
			logger.WithModule("translate"),
		)
		if memoErr != nil {
			return fmt.Errorf("initialise translation memo: %w", memoErr)
		}
		catalogOpts = append(catalogOpts, catalog.WithTranslator(memo))
	}

	cat, err := catalog.NewService(db, catalogOpts...)
	if err != nil {
		return fmt.Errorf("initialise catalog service: %w", err)
	}

	matcher, err := match.NewService(db, store, hasher, cfg.Matching.ConfidentMaxDistance, logger.WithModule("match"))
	if err != nil {
		return fmt.Errorf("initialise match service: %w", err)
	}

	if cfg.Jobs.Enabled {
		scheduler := maintenance.NewScheduler(cat, store,
			maintenance.WithSyncSchedule(cfg.Jobs.SyncSchedule),
			maintenance.WithRefreshSchedule(cfg.Jobs.HashRefreshSchedule),
		)
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}

	router, err := api.NewRouter(db, cat, matcher, cfg)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

// initialiseDatabase connects to the configured primary store, falling back
// to the embedded store when the primary is unreachable.
func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	log := logger.WithModule("database")

	policy := &database.FallbackPolicy{
		Primary: database.NewDriverConnector(cfg.DatabaseSettings()),
		Log:     log,
	}

	if fallbackCfg, ok := cfg.FallbackSettings(); ok {
		policy.Secondary = database.NewDriverConnector(fallbackCfg)
	}

	db, err := policy.Connect()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Database.Driver))))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database close skipped", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
