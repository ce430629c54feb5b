package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robbine75/chat/internal/api"
	"github.com/robbine75/chat/internal/bot"
	"github.com/robbine75/chat/internal/broadcast"
	"github.com/robbine75/chat/internal/chat"
	"github.com/robbine75/chat/internal/config"
	"github.com/robbine75/chat/internal/database"
	"github.com/robbine75/chat/internal/lang"
	"github.com/robbine75/chat/internal/presence"
	"github.com/robbine75/chat/internal/server"
	"github.com/robbine75/chat/internal/stats"
	"github.com/robbine75/chat/internal/tasks"
)

var configPath string

func main() {
	flag.StringVar(&configPath, "config", "", "path to config file (optional, environment overrides apply)")
	flag.Parse()

	logger := log.New(os.Stderr, "[chat] ", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	db, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Println("db close: ", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("db migrate: ", err)
	}

	// The bot account must exist before any direct thread can include it.
	botAcct, err := db.EnsureAccount(cfg.Bot.Username)
	if err != nil {
		logger.Fatal("ensure bot account: ", err)
	}
	logger.Printf("bot account %q (id %d) ready", botAcct.Username, botAcct.Id)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	tracker := presence.NewRedisTracker(redisClient, cfg.Presence.TTL)

	classifier, err := lang.NewLinguaClassifier(cfg.Language.Supported, cfg.Language.Default)
	if err != nil {
		logger.Fatal("language classifier: ", err)
	}

	statsUpdater := stats.NewStatsUpdater()
	statsUpdater.Run()
	defer statsUpdater.Stop()

	broadcaster := broadcast.NewBroadcaster(logger, statsUpdater)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	taskClient := tasks.NewClient(logger, redisOpt, statsUpdater)
	defer taskClient.Close()

	messenger := chat.NewMessenger(logger, db, broadcaster, classifier, taskClient,
		cfg.Bot.Username, statsUpdater)

	chatServer := server.NewChatServer(logger, broadcaster, tracker, messenger,
		statsUpdater, cfg.WebSocket)
	go chatServer.Run()

	responder := bot.NewBestMatchResponder(bot.DefaultCorpus())
	taskHandler := tasks.NewHandler(logger, db, messenger, responder, tracker,
		broadcaster, cfg.Bot.Username)

	worker := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 4})
	go func() {
		if err := worker.Run(taskHandler.Mux()); err != nil {
			logger.Fatal("task worker: ", err)
		}
	}()

	scheduler, err := tasks.NewScheduler(redisOpt, cfg.Presence.SweepInterval.String(), logger)
	if err != nil {
		logger.Fatal("scheduler: ", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Fatal("scheduler: ", err)
		}
	}()

	app := api.NewChatApp(logger, chatServer, db, messenger, tracker, statsUpdater, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server: ", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Println("HTTP server shutdown: ", err)
	}

	scheduler.Shutdown()
	worker.Shutdown()

	logger.Println("shutting down chat server...")
	chatServer.Shutdown()

	logger.Println("shutdown complete")
}
