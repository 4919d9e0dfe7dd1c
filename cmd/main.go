package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/stocks_tracker_bot/config"
	"github.com/KotFed0t/stocks_tracker_bot/data"
	"github.com/KotFed0t/stocks_tracker_bot/data/cache"
	"github.com/KotFed0t/stocks_tracker_bot/data/repository/postgres"
	"github.com/KotFed0t/stocks_tracker_bot/data/session"
	"github.com/KotFed0t/stocks_tracker_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/stocks_tracker_bot/internal/externalApi/quoteApi"
	"github.com/KotFed0t/stocks_tracker_bot/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/stocks_tracker_bot/internal/scheduler"
	"github.com/KotFed0t/stocks_tracker_bot/internal/service/stockListService"
	"github.com/KotFed0t/stocks_tracker_bot/internal/service/trackerService"
	"github.com/KotFed0t/stocks_tracker_bot/internal/tgbot"
	"github.com/KotFed0t/stocks_tracker_bot/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg.Cache.MoversExpiration)
	redisSession := session.NewRedisSession(redisClient, cfg.Session.Expiration)

	quoteApiClient := quoteApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	sched, err := scheduler.New()
	if err != nil {
		slog.Error("failed on scheduler.New", slog.String("err", err.Error()))
		panic(err)
	}

	// без облака большие выгрузки просто отправляются файлом
	var cloudStorage trackerService.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		googleCloudStorage, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			panic(err)
		}
		cloudStorage = googleCloudStorage
		mustAddJob(sched.NewCrontabJob("delete old reports", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DeleteOldReportsCrontab, false))
	} else {
		slog.Warn("google drive credentials are not set, large reports will not be uploaded")
	}

	stockListSrv := stockListService.New(pgRepo, quoteApiClient)
	trackerSrv := trackerService.New(cfg, stockListSrv, quoteApiClient, redisCache, reportGenerator, cloudStorage)

	mustAddJob(sched.NewIntervalJob("refresh prices", trackerSrv.RefreshPrices, cfg.Jobs.RefreshPricesInterval, true))
	mustAddJob(sched.NewIntervalJob("fill movers cache", trackerSrv.FillMoversCache, cfg.Jobs.FillMoversCacheInterval, true))
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(trackerSrv, redisSession)

	tgBot, err := tgbot.New(cfg, tgController, redisSession)
	if err != nil {
		panic(err)
	}
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func mustAddJob(err error) {
	if err != nil {
		panic(err)
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
