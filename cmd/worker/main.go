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
	"github.com/carevault/medreports/internal/notify"
	"github.com/carevault/medreports/internal/ocr"
	"github.com/carevault/medreports/internal/store"
	"github.com/carevault/medreports/internal/worker"
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

	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Workers,
	})
	extractor := extract.New(ocr.NewTesseractEngine())
	processor := worker.NewProcessor(st, extractor, notify.NewLogNotifier())
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	if err := srv.Run(mux); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
