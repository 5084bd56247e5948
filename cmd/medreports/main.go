package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/carevault/medreports/internal/config"
	"github.com/carevault/medreports/internal/extract"
	"github.com/carevault/medreports/internal/ingest"
	"github.com/carevault/medreports/internal/notify"
	"github.com/carevault/medreports/internal/ocr"
	"github.com/carevault/medreports/internal/server"
	"github.com/carevault/medreports/internal/store"
	"github.com/carevault/medreports/internal/view"
	"github.com/carevault/medreports/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "medreports: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medreports",
		Short: "Medical report OCR ingestion service",
		Long: `medreports ingests medical document uploads, extracts their text through
Tesseract OCR, and keeps a durable record of each document's processing outcome.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newIngestCmd(),
		newListCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, closeStore, err := store.Open(ctx, cfg)
			if err != nil {
				return err
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
			return server.New(cfg, st, coordinator, queueClient).Run(ctx)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the OCR task queue worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, closeStore, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			srv := asynq.NewServer(asynq.RedisClientOpt{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, asynq.Config{Concurrency: cfg.Workers})
			extractor := extract.New(ocr.NewTesseractEngine())
			processor := worker.NewProcessor(st, extractor, notify.NewLogNotifier())
			go func() {
				<-ctx.Done()
				srv.Shutdown()
			}()
			return srv.Run(processor.Handler())
		},
	}
}

func newIngestCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a single document and wait for the OCR outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if language != "" {
				cfg.Language = language
			}
			st, closeStore, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			sniff := data
			if len(sniff) > 512 {
				sniff = sniff[:512]
			}
			up := &ingest.Upload{
				Name:        filepath.Base(path),
				ContentType: http.DetectContentType(sniff),
				Size:        int64(len(data)),
				Open:        fileOpener(path),
			}

			extractor := extract.New(ocr.NewTesseractEngine())
			coordinator := ingest.New(st, extractor, notify.NewLogNotifier(), 1, cfg.Language)
			coordinator.Start(ctx)

			_, done := coordinator.Ingest(ctx, up)
			outcome, ok := <-done
			if !ok {
				return fmt.Errorf("upload was not accepted")
			}
			printJSON(outcome.Report)
			return outcome.Err
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "OCR language (defaults to configured value)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the stored report collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, closeStore, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			col, err := st.Load(ctx)
			if err != nil {
				return err
			}
			printJSON(view.BuildPage(col))
			return nil
		},
	}
}

func fileOpener(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

func printJSON(payload interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
