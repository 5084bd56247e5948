// Package view derives presentational state from the data model. Pure
// functions only; no side effects.
package view

import (
	"github.com/carevault/medreports/internal/model"
)

// Badge classes rendered next to a report's status.
const (
	BadgePositive = "positive"
	BadgePending  = "pending"
	BadgeNegative = "negative"
	BadgeDefault  = "default"
)

// BadgeClass maps a status to its badge class. Total over all inputs;
// unrecognized statuses fall back to the default badge.
func BadgeClass(status model.ReportStatus) string {
	switch status {
	case model.StatusProcessed:
		return BadgePositive
	case model.StatusProcessing, model.StatusQueued:
		return BadgePending
	case model.StatusFailed:
		return BadgeNegative
	default:
		return BadgeDefault
	}
}

// Card is one report prepared for rendering.
type Card struct {
	model.MedicalReport
	Badge string `json:"badge"`
}

// Page is the reports view. Empty is set when there are no records so the
// client shows a single empty-state indicator instead of cards.
type Page struct {
	Reports []Card `json:"reports"`
	Empty   bool   `json:"empty"`
}

// BuildPage projects a collection into its rendered page.
func BuildPage(col model.Collection) Page {
	if len(col) == 0 {
		return Page{Reports: []Card{}, Empty: true}
	}
	cards := make([]Card, 0, len(col))
	for _, rec := range col {
		cards = append(cards, Card{MedicalReport: rec, Badge: BadgeClass(rec.Status)})
	}
	return Page{Reports: cards}
}
