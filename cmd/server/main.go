package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/commission"
	"github.com/mamadbah2/maleta/internal/config"
	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/internal/repository/memory"
	"github.com/mamadbah2/maleta/internal/repository/mongodb"
	redisrepo "github.com/mamadbah2/maleta/internal/repository/redis"
	"github.com/mamadbah2/maleta/internal/repository/sheets"
	"github.com/mamadbah2/maleta/internal/scheduler"
	"github.com/mamadbah2/maleta/internal/server/handlers"
	"github.com/mamadbah2/maleta/internal/server/router"
	commandsvc "github.com/mamadbah2/maleta/internal/service/commands"
	"github.com/mamadbah2/maleta/internal/service/consignment"
	"github.com/mamadbah2/maleta/internal/service/cycles"
	"github.com/mamadbah2/maleta/internal/service/recognition"
	reportingsvc "github.com/mamadbah2/maleta/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/maleta/internal/service/whatsapp"
	"github.com/mamadbah2/maleta/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/maleta/pkg/clients/whatsapp"
	"github.com/mamadbah2/maleta/pkg/logger"
)

type rankingStore interface {
	cycles.RankingRecorder
	handlers.RankingReader
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx := context.Background()

	var (
		datasetRepo consignment.DatasetStore
		ranking     rankingStore
	)
	if cfg.MongoDB.URI != "" {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		datasetRepo, ranking = mongoRepo, mongoRepo
	} else {
		baseLogger.Warn("MONGODB_URI not set, dataset kept in memory")
		datasetRepo, ranking = memory.NewDatasetRepository(models.Dataset{}), memory.NewRankingRepository()
	}

	var guard cycles.IdempotencyGuard
	if cfg.Redis.Addr != "" {
		client, err := redisrepo.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, baseLogger.Named("repo.redis"))
		if err != nil {
			baseLogger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = client.Close() }()
		guard = redisrepo.NewIdempotencyGuard(client, "maleta:", cfg.Redis.IdempotencyTTL)
	} else {
		guard = memory.NewIdempotencyGuard(cfg.Redis.IdempotencyTTL)
	}

	var (
		exporter cycles.SettlementExporter
		reporter scheduler.WeeklyReporter
	)
	if cfg.Sheets.Enabled() {
		sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets client", zap.Error(err))
		}
		settlementSheet := sheets.NewSettlementSheet(sheetsClient, cfg.Sheets.SettlementRange, baseLogger.Named("repo.sheets"))
		exporter = settlementSheet
		reporter = reportingsvc.NewService(settlementSheet, baseLogger.Named("svc.reporting"))
	} else {
		baseLogger.Warn("google sheets not configured, settlement export and weekly report disabled")
	}

	policy := commission.Policy{
		Threshold:   cfg.Commission.Threshold,
		BaseRate:    cfg.Commission.BaseRate,
		PremiumRate: cfg.Commission.PremiumRate,
	}

	cycleSvc := cycles.NewService(policy, cfg.Business.OrganizationID, ranking, guard, exporter, baseLogger.Named("svc.cycles"))
	store, err := consignment.NewStore(ctx, datasetRepo, cycleSvc, policy, baseLogger.Named("svc.consignment"))
	if err != nil {
		baseLogger.Fatal("failed to load dataset", zap.Error(err))
	}

	commandDispatcher := commandsvc.NewService(store, baseLogger.Named("svc.commands"))

	var (
		whatsClient whatsappclient.Client
		notifier    scheduler.Notifier
	)
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
	} else {
		baseLogger.Warn("whatsapp credentials missing, outbound messaging disabled")
	}
	messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
	if whatsClient != nil {
		notifier = messagingSvc
	}

	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey, anthropic.WithModel(cfg.AI.Model))
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, image recognition disabled")
	}
	recognitionSvc := recognition.NewService(aiClient, baseLogger.Named("svc.recognition"))

	engine := router.New(router.Handlers{
		Messaging:   handlers.NewMessagingHandler(messagingSvc, store, baseLogger.Named("handlers.messaging")),
		Consignment: handlers.NewConsignmentHandler(store, baseLogger.Named("handlers.consignment")),
		Recognition: handlers.NewRecognitionHandler(recognitionSvc, store, baseLogger.Named("handlers.recognition")),
		Ranking:     handlers.NewRankingHandler(ranking, cfg.Business.OrganizationID, baseLogger.Named("handlers.ranking")),
	}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, store, reporter, notifier, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
