package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/picup/picup/internal/category"
	"github.com/picup/picup/internal/config"
	"github.com/picup/picup/internal/handlers"
	"github.com/picup/picup/internal/logger"
	"github.com/picup/picup/internal/server"
	"github.com/picup/picup/internal/store"
	"github.com/picup/picup/internal/upload"
	"github.com/picup/picup/internal/version"
)

func provideConfig() (config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideCategoryTable(cfg config.Config) *category.Table {
	policies := make(map[string]category.Policy, len(cfg.Categories))
	for name, cc := range cfg.Categories {
		policies[name] = category.Policy{AllowAllFiles: cc.AllowAllFiles}
	}
	return category.NewTable(policies)
}

func provideStore(log *slog.Logger, cfg config.Config) *store.Store {
	return store.New(log, cfg.Storage.Directory)
}

func provideUploadService(log *slog.Logger, cfg config.Config, table *category.Table, st *store.Store) *upload.Service {
	return upload.NewService(log, cfg.Server.Token, table, st, cfg.Server.PublicURL())
}

func provideServer(log *slog.Logger, cfg config.Config, table *category.Table, st *store.Store, uploadService *upload.Service) *server.Server {
	return server.NewServer(
		log,
		cfg.Server.Addr,
		cfg.Server.BodyLimit,
		time.Duration(cfg.Server.TimeoutSeconds)*time.Second,
		handlers.NewUploadHandler(log, uploadService),
		handlers.NewAssetHandler(log, table, st),
		handlers.NewCategoryHandler(log),
		handlers.NewPingHandler(log),
	)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, table *category.Table, st *store.Store, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("PicUp server %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := st.Init(table.Names()); err != nil {
				return err
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			log.Info("picup server listening",
				slog.String("addr", cfg.Server.Addr),
				slog.String("url", cfg.Server.PublicURL()),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideCategoryTable,
			provideStore,
			provideUploadService,
			provideServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),
		fx.Invoke(startServer),
	).Run()
}
