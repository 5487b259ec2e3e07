package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faeln1/go-onebot-guard/internal/app/controllers"
	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/app/services"
	"github.com/faeln1/go-onebot-guard/internal/config"
	"github.com/faeln1/go-onebot-guard/internal/platform/database"
	httpPlatform "github.com/faeln1/go-onebot-guard/internal/platform/http"
	"github.com/faeln1/go-onebot-guard/internal/platform/onebot"
	"github.com/faeln1/go-onebot-guard/pkg/eventlog"
	"github.com/faeln1/go-onebot-guard/pkg/logger"
	storagepkg "github.com/faeln1/go-onebot-guard/pkg/storage"
	minioStorage "github.com/faeln1/go-onebot-guard/pkg/storage/minio"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	waLog "go.mau.fi/whatsmeow/util/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()
	loggers := logger.New(cfg.LogLevel)
	appLog := loggers.App
	clock := clockwork.NewRealClock()

	appLog.Infof("configuration: driver=%s onebot=%s env=%s", cfg.DBDriver, cfg.OneBot.APIURL, cfg.Env)

	var objectStorage storagepkg.Service
	if cfg.Storage.Enabled() {
		store, err := minioStorage.New(context.Background(), minioStorage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
			Prefix:    "onebot-events",
		})
		if err != nil {
			log.Fatalf("storage initialization error: %v", err)
		}
		objectStorage = store
		appLog.Infof("event archive storage enabled bucket=%s endpoint=%s", cfg.Storage.Bucket, cfg.Storage.Endpoint)
	}

	blacklistRepo, welcomeRepo, closeDB := openRepositories(cfg, appLog.Sub("DB"))
	defer func() {
		if err := closeDB(); err != nil {
			appLog.Warnf("error closing database: %v", err)
		}
	}()

	client, err := onebot.New(onebot.Config{
		BaseURL:         cfg.OneBot.APIURL,
		AccessToken:     cfg.OneBot.AccessToken,
		Timeout:         cfg.OneBot.Timeout,
		MaxConns:        cfg.OneBot.MaxConns,
		MaxConnsPerHost: cfg.OneBot.MaxConnsPerHost,
		Retry: onebot.RetryPolicy{
			MaxRetries: cfg.OneBot.MaxRetries,
			Delay:      cfg.OneBot.RetryDelay,
			Retryable:  onebot.Retryable,
			Sleep:      onebot.ClockSleep(clock),
		},
	}, appLog.Sub("OneBot"))
	if err != nil {
		log.Fatalf("onebot client error: %v", err)
	}
	defer client.Close()
	platform := onebot.NewPlatform(client, appLog.Sub("Platform"))

	throttle := newThrottle(cfg, clock, appLog.Sub("Throttle"))
	dispatcher := services.NewModerationEventsDispatcher(
		cfg.ModerationWebhookURL,
		cfg.ModerationWebhookToken,
		services.NewModerationWebhookClient(3, appLog.Sub("ModerationWebhook")),
		appLog.Sub("ModerationWebhook"),
	)
	pipeline := services.NewModerationPipeline(blacklistRepo, welcomeRepo, platform, throttle, dispatcher, clock, appLog.Sub("Pipeline"))

	resolver := services.NewLivePermissionResolver(platform, services.PermissionCacheOptions{
		TTL:   cfg.PermissionCacheTTL,
		Clock: clock,
	}, appLog.Sub("Permissions"))
	blacklistSvc := services.NewBlacklistService(blacklistRepo, platform)
	welcomeSvc := services.NewWelcomeService(welcomeRepo)
	commandSvc := services.NewCommandService(
		blacklistSvc,
		welcomeSvc,
		services.NewCommandGate(resolver),
		cfg.SuperAdmins,
		cfg.CommandPrefixes,
		appLog.Sub("Commands"),
	)

	onebotCfg := controllers.OneBotControllerConfig{
		Pipeline:  pipeline,
		Commands:  commandSvc,
		Messenger: platform,
		Self:      platform,
		Logger:    appLog.Sub("Events"),
	}
	if archive := eventlog.NewWriter(cfg.EventLogDir, objectStorage, appLog.Sub("EventLog")); archive.Enabled() {
		onebotCfg.Archive = archive
	}
	var archivePing controllers.Pinger
	if objectStorage != nil {
		archivePing = objectStorage
	}

	router := httpPlatform.NewRouter(httpPlatform.RouterConfig{
		OneBotCtrl:    controllers.NewOneBotController(onebotCfg),
		BlacklistCtrl: controllers.NewBlacklistController(blacklistSvc),
		WelcomeCtrl:   controllers.NewWelcomeController(welcomeSvc),
		StatusCtrl:    controllers.NewStatusController(platform, archivePing),
		Logger:        loggers.HTTP,
		MasterToken:   cfg.MasterToken,
		EventSecret:   cfg.OneBot.EventSecret,
	})
	if cfg.MasterToken == "" {
		appLog.Warnf("API_MASTER_TOKEN is empty, the admin API will reject every request")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLog.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	appLog.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// openRepositories picks the storage backend named by DB_DRIVER.
func openRepositories(cfg *config.AppConfig, log waLog.Logger) (repositories.BlacklistRepository, repositories.WelcomeRepository, func() error) {
	switch cfg.DBDriver {
	case "postgres":
		log.Infof("initializing postgres repositories with GORM")
		db, err := database.OpenPostgres(cfg.DatabaseDSN)
		if err != nil {
			log.Errorf("database connection error: %v", err)
			os.Exit(1)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Errorf("database handle retrieval error: %v", err)
			os.Exit(1)
		}
		blacklistRepo, err := repositories.NewGormBlacklistRepo(db)
		if err != nil {
			log.Errorf("blacklist repository initialization error: %v", err)
			os.Exit(1)
		}
		welcomeRepo, err := repositories.NewGormWelcomeRepo(db)
		if err != nil {
			log.Errorf("welcome repository initialization error: %v", err)
			os.Exit(1)
		}
		return blacklistRepo, welcomeRepo, sqlDB.Close

	case "sqlite":
		log.Infof("initializing sqlite repositories at %s", database.SQLiteDSN(cfg.DatabaseDSN))
		db, err := database.OpenSQLite(cfg.DatabaseDSN)
		if err != nil {
			log.Errorf("database connection error: %v", err)
			os.Exit(1)
		}
		blacklistRepo, welcomeRepo, err := sqliteRepositories(db)
		if err != nil {
			log.Errorf("repository initialization error: %v", err)
			os.Exit(1)
		}
		return blacklistRepo, welcomeRepo, db.Close

	default:
		log.Warnf("using in-memory repositories, blacklist data is lost on restart")
		return repositories.NewInMemoryBlacklistRepo(), repositories.NewInMemoryWelcomeRepo(), func() error { return nil }
	}
}

func sqliteRepositories(db *sql.DB) (repositories.BlacklistRepository, repositories.WelcomeRepository, error) {
	blacklistRepo, err := repositories.NewSQLiteBlacklistRepo(db)
	if err != nil {
		return nil, nil, err
	}
	welcomeRepo, err := repositories.NewSQLiteWelcomeRepo(db)
	if err != nil {
		return nil, nil, err
	}
	return blacklistRepo, welcomeRepo, nil
}

func newThrottle(cfg *config.AppConfig, clock clockwork.Clock, log waLog.Logger) services.NotificationThrottle {
	if cfg.RedisURL == "" {
		return services.NewNotificationThrottle(cfg.NotifyCooldown, clock)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := services.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warnf("redis unavailable (%v), using in-process notification cooldowns", err)
		return services.NewNotificationThrottle(cfg.NotifyCooldown, clock)
	}
	log.Infof("notification cooldowns shared through redis")
	return services.NewRedisThrottle(client, cfg.NotifyCooldown, log)
}
