package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postpilot/content-system/internal/api"
	"github.com/postpilot/content-system/internal/core/ports"
	"github.com/postpilot/content-system/internal/core/service"
	"github.com/postpilot/content-system/internal/infrastructure/config"
	mongodb "github.com/postpilot/content-system/internal/infrastructure/db/mongo"
	redisdb "github.com/postpilot/content-system/internal/infrastructure/db/redis"
	"github.com/postpilot/content-system/internal/infrastructure/generation"
	"github.com/postpilot/content-system/internal/infrastructure/notify"
	"github.com/postpilot/content-system/internal/infrastructure/queue"
	"github.com/postpilot/content-system/internal/infrastructure/transport"
	"github.com/postpilot/content-system/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting content system")

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	// --- Repositories ---
	users := mongodb.NewUserRepository(db)
	posts := mongodb.NewPostRepository(db)
	catalog := mongodb.NewContentRepository(db)
	operators := mongodb.NewOperatorRepository(db)
	allowList := mongodb.NewAllowListRepository(db)
	quota := mongodb.NewQuotaStore(db, cfg.Quota.WeeklyPostLimit)

	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}
	if err := posts.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("post index creation failed")
	}
	if err := catalog.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("content index creation failed")
	}

	// --- Outbound adapters ---
	sender := transport.NewTelegramSender(cfg.Telegram.BotToken, log)
	stages := generation.NewClient(generation.Endpoints{
		Niche: cfg.Pipeline.NicheURL,
		Topic: cfg.Pipeline.TopicURL,
		Post:  cfg.Pipeline.PostURL,
	}, cfg.Pipeline.Language, log)

	// --- Services ---
	var notifier ports.NotificationSink = notify.NopNotifier{}
	if cfg.Telegram.AdminChatID != 0 {
		notifier = notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, log)
	}

	pipeline := service.NewPipelineService(stages, users, notifier, service.StagePolicy{
		Timeout: cfg.Pipeline.StageTimeout,
		Retries: cfg.Pipeline.StageRetries,
	}, log)

	guard := redisdb.NewRunGuard(rdb)
	session := service.NewSessionService(users, allowList, catalog, quota, posts, pipeline, guard, sender, log)
	auth := service.NewAuthService(operators, cfg.JWTSecret, 24*time.Hour)

	// --- Workers ---
	dispatcher := queue.NewDispatcher(cfg.Workers, session, log)
	dispatcher.Start(ctx)

	scheduler := service.NewSchedulerService(users, catalog, session, cfg.Scheduler.Hour, cfg.Scheduler.Minute, log)
	go scheduler.Run(ctx)

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		Mongo:       db,
		Redis:       rdb,
		Queue:       dispatcher,
		Users:       users,
		Posts:       posts,
		Catalog:     catalog,
		Session:     session,
		Auth:        auth,
		JWTSecret:   cfg.JWTSecret,
		WeeklyLimit: cfg.Quota.WeeklyPostLimit,
		Log:         log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
