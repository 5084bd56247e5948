// Package notify is the boundary to the user-facing toast/alert collaborator.
// The coordinator emits exactly one success or failure notification per
// settled upload.
package notify

import (
	"log"
	"sync"
)

// Standard titles and descriptions emitted when an upload settles.
const (
	TitleUploadSuccess  = "Upload successful"
	TitleUploadFailure  = "Upload failed"
	DetailUploadSuccess = "OCR completed and report saved."
	DetailUploadFailure = "OCR processing failed."
)

// Notifier receives a short title and description per settled upload.
type Notifier interface {
	Success(title, detail string)
	Failure(title, detail string)
}

// LogNotifier writes notifications to the process log. The real toast UI lives
// outside this core.
type LogNotifier struct{}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Success(title, detail string) {
	log.Printf("notify success: %s: %s", title, detail)
}

func (n *LogNotifier) Failure(title, detail string) {
	log.Printf("notify failure: %s: %s", title, detail)
}

// Event is one recorded notification.
type Event struct {
	Title  string
	Detail string
}

// Recorder captures notifications for inspection in tests.
type Recorder struct {
	mu        sync.Mutex
	successes []Event
	failures  []Event
}

// NewRecorder constructs a Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Success(title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, Event{Title: title, Detail: detail})
}

func (r *Recorder) Failure(title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, Event{Title: title, Detail: detail})
}

// Successes returns a copy of recorded success events.
func (r *Recorder) Successes() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.successes...)
}

// Failures returns a copy of recorded failure events.
func (r *Recorder) Failures() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.failures...)
}
