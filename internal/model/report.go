// Package model contains the report record types shared across packages.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportStatus describes the processing lifecycle of an uploaded report. The
// status only ever moves forward: queued -> processing -> processed|failed.
type ReportStatus string

const (
	StatusQueued     ReportStatus = "queued"
	StatusProcessing ReportStatus = "processing"
	StatusProcessed  ReportStatus = "processed"
	StatusFailed     ReportStatus = "failed"
)

// Rank orders statuses along the lifecycle so callers can assert that a
// transition never moves backwards. Unknown statuses rank below queued.
func (s ReportStatus) Rank() int {
	switch s {
	case StatusQueued:
		return 1
	case StatusProcessing:
		return 2
	case StatusProcessed, StatusFailed:
		return 3
	default:
		return 0
	}
}

// Terminal reports whether the status is a settled outcome.
func (s ReportStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

const (
	// PlaceholderDoctor is assigned at creation; a separate assignment
	// workflow owns this field afterwards.
	PlaceholderDoctor = "Dr. Pending Assignment"

	// NoTextFound is stored when the OCR engine succeeds but recognizes
	// nothing. An empty result is not a failure.
	NoTextFound = "No text found"

	// UnknownType is used when the content type carries no subtype.
	UnknownType = "UNKNOWN"
)

// MedicalReport is the persisted representation of one uploaded document and
// its processing outcome. JSON tags define the durable shape of the slot.
type MedicalReport struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	UploadDate    string       `json:"uploadDate"`
	Doctor        string       `json:"doctor"`
	ExtractedText string       `json:"extractedText,omitempty"`
	FileSize      string       `json:"fileSize"`
	Status        ReportStatus `json:"status"`
}

// NewReport builds a provisional record for a freshly accepted upload. The id
// comes from a random UUID rather than a timestamp so uploads started within
// the same clock tick cannot collide.
func NewReport(name, contentType string, size int64, now time.Time) MedicalReport {
	return MedicalReport{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       TypeFromContentType(contentType),
		UploadDate: now.UTC().Format("2006-01-02"),
		Doctor:     PlaceholderDoctor,
		FileSize:   FormatFileSize(size),
		Status:     StatusProcessing,
	}
}

// TypeFromContentType derives the uppercase file subtype token from a MIME
// string, e.g. "image/png" -> "PNG".
func TypeFromContentType(contentType string) string {
	parts := strings.SplitN(contentType, "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return UnknownType
	}
	sub := parts[1]
	// DetectContentType may append parameters like "; charset=utf-8".
	if i := strings.IndexByte(sub, ';'); i >= 0 {
		sub = sub[:i]
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return UnknownType
	}
	return strings.ToUpper(sub)
}

// FormatFileSize renders a byte count as megabytes with one decimal.
func FormatFileSize(size int64) string {
	return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
}

// Collection is the ordered report set, newest first. Every mutation produces
// the full next collection; the store replaces the slot wholesale.
type Collection []MedicalReport

// Prepend returns a new collection with the record in front.
func (c Collection) Prepend(rec MedicalReport) Collection {
	out := make(Collection, 0, len(c)+1)
	out = append(out, rec)
	out = append(out, c...)
	return out
}

// ReplaceByID removes any entry sharing the record's id and prepends the
// record, which is how a settled outcome supersedes the provisional entry.
func (c Collection) ReplaceByID(rec MedicalReport) Collection {
	out := make(Collection, 0, len(c)+1)
	out = append(out, rec)
	for _, r := range c {
		if r.ID != rec.ID {
			out = append(out, r)
		}
	}
	return out
}

// FindByID returns the record and whether it exists.
func (c Collection) FindByID(id string) (MedicalReport, bool) {
	for _, r := range c {
		if r.ID == id {
			return r, true
		}
	}
	return MedicalReport{}, false
}
