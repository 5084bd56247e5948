package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/carevault/medreports/internal/config"
	"github.com/carevault/medreports/internal/extract"
	"github.com/carevault/medreports/internal/ingest"
	"github.com/carevault/medreports/internal/notify"
	"github.com/carevault/medreports/internal/ocr"
	"github.com/carevault/medreports/internal/server"
	"github.com/carevault/medreports/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	var (
		coordinator *ingest.Coordinator
		queueClient *asynq.Client
	)
	if cfg.QueueEnabled {
		queueClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer queueClient.Close()
	} else {
		extractor := extract.New(ocr.NewTesseractEngine())
		coordinator = ingest.New(st, extractor, notify.NewLogNotifier(), cfg.Workers, cfg.Language)
	}

	srv := server.New(cfg, st, coordinator, queueClient)
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
