// Package server exposes the HTTP surface: report uploads and collection
// visibility.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/carevault/medreports/internal/config"
	"github.com/carevault/medreports/internal/ingest"
	"github.com/carevault/medreports/internal/model"
	"github.com/carevault/medreports/internal/queue"
	"github.com/carevault/medreports/internal/store"
	"github.com/carevault/medreports/internal/view"
)

// Server stitches together config, the record store, and one of the two
// processing paths: the in-process coordinator pool or the Redis task queue.
type Server struct {
	cfg         *config.Config
	store       store.RecordStore
	coordinator *ingest.Coordinator
	queue       *asynq.Client
	server      *http.Server
	once        sync.Once
}

// New constructs a Server. Exactly one of coordinator and queueClient should
// be non-nil, matching cfg.QueueEnabled.
func New(cfg *config.Config, st store.RecordStore, coordinator *ingest.Coordinator, queueClient *asynq.Client) *Server {
	return &Server{
		cfg:         cfg,
		store:       st,
		coordinator: coordinator,
		queue:       queueClient,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		if s.coordinator != nil {
			s.coordinator.Start(ctx)
		}
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.routes(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("medreports listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/reports", s.handleReports)
	mux.HandleFunc("/reports/", s.handleReportRoute)
	return corsMiddleware(loggingMiddleware(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleList(w, r)
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleReportRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/reports/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	if len(parts) == 1 {
		s.handleReport(w, r, id)
		return
	}
	if parts[1] == "text" {
		s.handleReportText(w, r, id)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	col, err := s.store.Load(r.Context())
	if err != nil {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, view.BuildPage(col))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	col, err := s.store.Load(r.Context())
	if err != nil {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	rec, ok := col.FindByID(id)
	if !ok {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReportText(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	col, err := s.store.Load(r.Context())
	if err != nil {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	rec, ok := col.FindByID(id)
	if !ok {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	if rec.Status != model.StatusProcessed || rec.ExtractedText == "" {
		http.Error(w, "report not processed", http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, rec.ExtractedText)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expecting multipart form", http.StatusBadRequest)
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		http.Error(w, "missing file part", http.StatusBadRequest)
		return
	}
	defer part.Close()
	data, contentType, err := s.readPart(part)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.allowedType(contentType) {
		http.Error(w, "file type not allowed", http.StatusBadRequest)
		return
	}
	name := part.FileName()
	if name == "" {
		name = "upload"
	}

	if s.queue != nil {
		s.uploadViaQueue(ctx, w, name, contentType, data)
		return
	}

	up := &ingest.Upload{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
	rec, done := s.coordinator.Ingest(ctx, up)
	// Synchronous failures (store errors, pool overflow) settle before Ingest
	// returns, so a non-blocking receive is enough to surface them.
	select {
	case out, ok := <-done:
		if ok && out.Err != nil {
			if errors.Is(out.Err, ingest.ErrQueueFull) {
				http.Error(w, "processing queue full", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "failed to store record", http.StatusInternalServerError)
			return
		}
	default:
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     rec.ID,
		"status": string(rec.Status),
	})
}

func (s *Server) uploadViaQueue(ctx context.Context, w http.ResponseWriter, name, contentType string, data []byte) {
	rec := model.NewReport(name, contentType, int64(len(data)), time.Now())
	rec.Status = model.StatusQueued
	col, err := s.store.Load(ctx)
	if err != nil {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(ctx, col.Prepend(rec)); err != nil {
		http.Error(w, "failed to store record", http.StatusInternalServerError)
		return
	}
	payload := queue.RecognizePayload{
		ReportID:    rec.ID,
		FileName:    name,
		ContentType: contentType,
		Image:       data,
		Language:    s.cfg.Language,
	}
	if err := queue.EnqueueRecognize(ctx, s.queue, payload); err != nil {
		log.Printf("enqueue recognize for %s: %v", rec.ID, err)
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     rec.ID,
		"status": string(rec.Status),
	})
}

// readPart buffers the part while enforcing the size limit and sniffing the
// content type from the first 512 bytes.
func (s *Server) readPart(part *multipart.Part) ([]byte, string, error) {
	var data []byte
	buf := make([]byte, 32*1024)
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			if int64(len(data)) > s.cfg.MaxFileSize {
				return nil, "", fmt.Errorf("file exceeds limit (%d bytes)", s.cfg.MaxFileSize)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, "", fmt.Errorf("read file: %w", readErr)
		}
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty file")
	}
	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	return data, http.DetectContentType(sniff), nil
}

func (s *Server) allowedType(contentType string) bool {
	for _, allowed := range s.cfg.AllowedTypes {
		if allowed == contentType {
			return true
		}
	}
	return false
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
