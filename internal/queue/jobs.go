package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// RecognizeReportTask is scheduled each time a report is uploaded in
	// queue mode.
	RecognizeReportTask = "report:ocr"
)

// RecognizePayload is serialized into the task. The image bytes travel inside
// the payload; uploaded files are not retained anywhere else.
type RecognizePayload struct {
	ReportID    string `json:"report_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Image       []byte `json:"image"`
	Language    string `json:"language"`
}

// EnqueueRecognize enqueues an OCR job. MaxRetry is zero: a failed recognition
// settles the record as failed and is never retried.
func EnqueueRecognize(ctx context.Context, client *asynq.Client, payload RecognizePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(RecognizeReportTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue recognize task: %w", err)
	}
	return nil
}
