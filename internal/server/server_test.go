package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carevault/medreports/internal/config"
	"github.com/carevault/medreports/internal/extract"
	"github.com/carevault/medreports/internal/ingest"
	"github.com/carevault/medreports/internal/model"
	"github.com/carevault/medreports/internal/notify"
	"github.com/carevault/medreports/internal/ocr"
	"github.com/carevault/medreports/internal/store"
	"github.com/carevault/medreports/internal/view"
)

type fakeEngine struct {
	text string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{Text: f.text}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Address:      ":0",
		MaxFileSize:  1 << 20,
		AllowedTypes: []string{"image/png", "image/jpeg", "application/pdf"},
		Workers:      1,
		Language:     "eng",
	}
}

func newTestServer(t *testing.T, engineText string) (*Server, store.RecordStore) {
	t.Helper()
	cfg := testConfig()
	st := store.NewMemoryStore()
	coordinator := ingest.New(st, extract.New(&fakeEngine{text: engineText}), notify.NewRecorder(), cfg.Workers, cfg.Language)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	coordinator.Start(ctx)
	return New(cfg, st, coordinator, nil), st
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// pngBytes carries a real PNG signature so content sniffing yields image/png.
func pngBytes() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
}

func TestListEmptyCollection(t *testing.T) {
	srv, _ := newTestServer(t, "text")
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page view.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if !page.Empty {
		t.Fatalf("empty collection must render the empty state")
	}
	if len(page.Reports) != 0 {
		t.Fatalf("empty collection must render no cards, got %d", len(page.Reports))
	}
}

func TestUploadProcessesReport(t *testing.T) {
	srv, st := newTestServer(t, "Patient: Jane Doe")
	body, contentType := multipartBody(t, "file", "scan.png", pngBytes())
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] == "" {
		t.Fatalf("response must carry the record id")
	}
	if resp["status"] != string(model.StatusProcessing) {
		t.Fatalf("upload must be visible as processing, got %q", resp["status"])
	}

	settled := waitForTerminal(t, st, resp["id"], 2*time.Second)
	if settled.Status != model.StatusProcessed {
		t.Fatalf("expected processed, got %q", settled.Status)
	}
	if settled.ExtractedText != "Patient: Jane Doe" {
		t.Fatalf("unexpected text %q", settled.ExtractedText)
	}
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	srv, st := newTestServer(t, "text")
	body, contentType := multipartBody(t, "file", "notes.txt", []byte("plain text notes"))
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	col, _ := st.Load(context.Background())
	if len(col) != 0 {
		t.Fatalf("rejected upload must not create a record")
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	srv, _ := newTestServer(t, "text")
	body, contentType := multipartBody(t, "document", "scan.png", pngBytes())
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReportText(t *testing.T) {
	srv, st := newTestServer(t, "text")
	rec := model.NewReport("scan.png", "image/png", 1, time.Now())
	rec.Status = model.StatusProcessed
	rec.ExtractedText = "hello world"
	if err := st.Save(context.Background(), model.Collection{rec}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/"+rec.ID+"/text", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "hello world" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestReportTextNotProcessed(t *testing.T) {
	srv, st := newTestServer(t, "text")
	rec := model.NewReport("scan.png", "image/png", 1, time.Now())
	if err := st.Save(context.Background(), model.Collection{rec}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/"+rec.ID+"/text", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 while processing, got %d", w.Code)
	}
}

func TestReportNotFound(t *testing.T) {
	srv, _ := newTestServer(t, "text")
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func waitForTerminal(t *testing.T, st store.RecordStore, id string, timeout time.Duration) model.MedicalReport {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		col, err := st.Load(context.Background())
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if rec, ok := col.FindByID(id); ok && rec.Status.Terminal() {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("report %s did not settle within %s", id, timeout)
	return model.MedicalReport{}
}
