// Package ingest orchestrates one upload end to end: validate, persist a
// provisional record, extract text in the background, and reconcile the
// outcome into the record store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/carevault/medreports/internal/extract"
	"github.com/carevault/medreports/internal/model"
	"github.com/carevault/medreports/internal/notify"
	"github.com/carevault/medreports/internal/store"
)

// ErrQueueFull is reported when the worker pool cannot accept another upload.
var ErrQueueFull = errors.New("processing queue full")

// Upload describes one accepted file. Open is called once, from a worker
// goroutine, to read the file bytes.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Outcome carries the settled record for one upload. Err is non-nil when the
// record settled as failed.
type Outcome struct {
	Report model.MedicalReport
	Err    error
}

type job struct {
	upload *Upload
	record model.MedicalReport
	done   chan Outcome
}

// Coordinator runs the ingestion pipeline over a channel-fed worker pool.
// Uploads interleave only at the file-read and recognition boundaries; store
// writes are whole-collection replacements computed from a fresh load.
type Coordinator struct {
	store     store.RecordStore
	extractor *extract.Extractor
	notifier  notify.Notifier
	language  string
	queue     chan job
	workers   int
}

// New builds a Coordinator with queue capacity tied to worker count.
func New(st store.RecordStore, ex *extract.Extractor, n notify.Notifier, workers int, language string) *Coordinator {
	if workers <= 0 {
		workers = 1
	}
	return &Coordinator{
		store:     st,
		extractor: ex,
		notifier:  n,
		language:  language,
		queue:     make(chan job, workers*4),
		workers:   workers,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		go c.worker(ctx)
	}
}

// Ingest accepts one upload and returns the provisional record along with a
// channel that delivers the settled outcome and is then closed. The record is
// persisted with status processing before Ingest returns, so progress is
// visible immediately.
//
// A nil upload is silently ignored: the channel comes back already closed and
// nothing is persisted or notified.
func (c *Coordinator) Ingest(ctx context.Context, up *Upload) (model.MedicalReport, <-chan Outcome) {
	done := make(chan Outcome, 1)
	if up == nil {
		close(done)
		return model.MedicalReport{}, done
	}
	rec := model.NewReport(up.Name, up.ContentType, up.Size, time.Now())
	if err := c.insertProvisional(ctx, rec); err != nil {
		log.Printf("insert provisional record %s: %v", rec.ID, err)
		done <- Outcome{Report: rec, Err: err}
		close(done)
		return rec, done
	}
	select {
	case c.queue <- job{upload: up, record: rec, done: done}:
	default:
		log.Printf("ingest queue full, failing upload %s", rec.ID)
		rec.Status = model.StatusFailed
		if err := c.reconcile(context.WithoutCancel(ctx), rec); err != nil {
			log.Printf("reconcile overflow failure for %s: %v", rec.ID, err)
		}
		c.notifier.Failure(notify.TitleUploadFailure, notify.DetailUploadFailure)
		done <- Outcome{Report: rec, Err: ErrQueueFull}
		close(done)
	}
	return rec, done
}

func (c *Coordinator) insertProvisional(ctx context.Context, rec model.MedicalReport) error {
	col, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if err := c.store.Save(ctx, col.Prepend(rec)); err != nil {
		return fmt.Errorf("save provisional record: %w", err)
	}
	return nil
}

func (c *Coordinator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-c.queue:
			c.process(ctx, j)
		}
	}
}

func (c *Coordinator) process(ctx context.Context, j job) {
	rec := j.record
	text, err := c.extractText(ctx, j.upload)
	if err != nil {
		// Read and recognition failures both settle as failed; the
		// provisional record stays in the collection with empty text.
		rec.Status = model.StatusFailed
	} else {
		if text == "" {
			text = model.NoTextFound
		}
		rec.ExtractedText = text
		rec.Status = model.StatusProcessed
	}
	if serr := c.reconcile(ctx, rec); serr != nil {
		log.Printf("reconcile %s: %v", rec.ID, serr)
		if err == nil {
			err = serr
		}
	}
	if err != nil {
		log.Printf("upload %s failed: %v", rec.ID, err)
		c.notifier.Failure(notify.TitleUploadFailure, notify.DetailUploadFailure)
	} else {
		c.notifier.Success(notify.TitleUploadSuccess, notify.DetailUploadSuccess)
	}
	j.done <- Outcome{Report: rec, Err: err}
	close(j.done)
}

func (c *Coordinator) extractText(ctx context.Context, up *Upload) (string, error) {
	rc, err := up.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return c.extractor.Text(ctx, data, up.ContentType, c.language)
}

// reconcile folds the settled record into the durable collection. The
// collection is re-loaded here rather than reusing the snapshot captured at
// ingest time; a stale snapshot would drop the optimistic insert of any upload
// that started in between.
func (c *Coordinator) reconcile(ctx context.Context, rec model.MedicalReport) error {
	col, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if err := c.store.Save(ctx, col.ReplaceByID(rec)); err != nil {
		return fmt.Errorf("save settled record: %w", err)
	}
	return nil
}
