package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/carevault/medreports/internal/extract"
	"github.com/carevault/medreports/internal/model"
	"github.com/carevault/medreports/internal/notify"
	"github.com/carevault/medreports/internal/queue"
	"github.com/carevault/medreports/internal/store"
)

// Processor is plugged into the asynq worker loop. It mirrors the in-process
// coordinator's settle semantics: one terminal status write, one notification.
type Processor struct {
	store     store.RecordStore
	extractor *extract.Extractor
	notifier  notify.Notifier
}

// NewProcessor constructs a worker processor.
func NewProcessor(st store.RecordStore, ex *extract.Extractor, n notify.Notifier) *Processor {
	return &Processor{store: st, extractor: ex, notifier: n}
}

// Handler registers the recognize job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.RecognizeReportTask, p.handleRecognize)
	return mux
}

func (p *Processor) handleRecognize(ctx context.Context, task *asynq.Task) error {
	var payload queue.RecognizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	col, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	rec, ok := col.FindByID(payload.ReportID)
	if !ok {
		return fmt.Errorf("report %s not found in slot", payload.ReportID)
	}
	rec.Status = model.StatusProcessing
	if err := p.store.Save(ctx, col.ReplaceByID(rec)); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	text, extractErr := p.extractor.Text(ctx, payload.Image, payload.ContentType, payload.Language)
	if extractErr != nil {
		rec.Status = model.StatusFailed
	} else {
		if text == "" {
			text = model.NoTextFound
		}
		rec.ExtractedText = text
		rec.Status = model.StatusProcessed
	}
	if err := p.reconcile(ctx, rec); err != nil {
		return err
	}
	if extractErr != nil {
		log.Printf("recognize failed for %s: %v", rec.ID, extractErr)
		p.notifier.Failure(notify.TitleUploadFailure, notify.DetailUploadFailure)
		// The failed status is the settled outcome; returning nil keeps
		// asynq from treating it as a retryable task error.
		return nil
	}
	log.Printf("report %s processed (%d bytes of text)", rec.ID, len(text))
	p.notifier.Success(notify.TitleUploadSuccess, notify.DetailUploadSuccess)
	return nil
}

// reconcile re-loads the collection before folding in the settled record so a
// concurrent upload's optimistic insert is never dropped.
func (p *Processor) reconcile(ctx context.Context, rec model.MedicalReport) error {
	col, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if err := p.store.Save(ctx, col.ReplaceByID(rec)); err != nil {
		return fmt.Errorf("save settled record: %w", err)
	}
	return nil
}
