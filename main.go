package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/username/cachin/backend/src/config"
	"github.com/username/cachin/backend/src/database"
	"github.com/username/cachin/backend/src/ingest"
	"github.com/username/cachin/backend/src/logger"
	"github.com/username/cachin/backend/src/services"
	"github.com/username/cachin/backend/src/storage"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Starting ingest worker...")

	database.InitDB(config.Cfg.DatabasePath)
	defer database.DB.Close()

	messageStore := storage.NewMessageStore(database.DB)
	ledgerStore := storage.NewLedgerStore(database.DB)
	ingestService := ingest.NewService(messageStore, ledgerStore)

	var forwardingService *services.ForwardingService
	if config.Cfg.ConfirmForwardingLinks {
		forwardingService = services.NewForwardingService(
			messageStore,
			config.Cfg.ForwardingFetchTimeout,
			config.Cfg.ForwardingFetchInterval,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runBatch(ctx, ingestService, forwardingService)

	ticker := time.NewTicker(config.Cfg.IngestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.L.Info("Shutdown signal received, stopping worker.")
			return
		case <-ticker.C:
			runBatch(ctx, ingestService, forwardingService)
		}
	}
}

func runBatch(ctx context.Context, ingestService *ingest.Service, forwardingService *services.ForwardingService) {
	runID := uuid.NewString()
	log := logger.L.With("runID", runID)

	log.Info("Ingest run starting")
	sum, err := ingestService.ProcessBatch(ctx)
	if err != nil {
		log.Error("Ingest run failed", "error", err)
		return
	}
	log.Info("Ingest run finished",
		"processed", sum.Processed, "records", sum.Records, "failed", sum.Failed)

	if forwardingService != nil {
		confirmed, err := forwardingService.ConfirmPendingLinks(ctx)
		if err != nil {
			log.Error("Forwarding confirmation pass failed", "error", err)
			return
		}
		if confirmed > 0 {
			log.Info("Forwarding confirmations fetched", "confirmed", confirmed)
		}
	}
}
