package view

import (
	"testing"
	"time"

	"github.com/carevault/medreports/internal/model"
)

func TestBadgeClass(t *testing.T) {
	cases := []struct {
		status model.ReportStatus
		want   string
	}{
		{model.StatusProcessed, BadgePositive},
		{model.StatusProcessing, BadgePending},
		{model.StatusQueued, BadgePending},
		{model.StatusFailed, BadgeNegative},
		{model.ReportStatus("garbage"), BadgeDefault},
		{model.ReportStatus(""), BadgeDefault},
	}
	for _, tc := range cases {
		if got := BadgeClass(tc.status); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.status, tc.want, got)
		}
	}
}

func TestBuildPageEmpty(t *testing.T) {
	page := BuildPage(nil)
	if !page.Empty {
		t.Fatalf("empty collection must set the empty-state flag")
	}
	if len(page.Reports) != 0 {
		t.Fatalf("empty collection must render no cards, got %d", len(page.Reports))
	}
}

func TestBuildPage(t *testing.T) {
	rec := model.NewReport("scan.png", "image/png", 500000, time.Now())
	rec.Status = model.StatusProcessed
	page := BuildPage(model.Collection{rec})
	if page.Empty {
		t.Fatalf("non-empty collection must not set the empty-state flag")
	}
	if len(page.Reports) != 1 {
		t.Fatalf("expected 1 card, got %d", len(page.Reports))
	}
	if page.Reports[0].Badge != BadgePositive {
		t.Fatalf("expected positive badge, got %q", page.Reports[0].Badge)
	}
	if page.Reports[0].ID != rec.ID {
		t.Fatalf("card does not carry the record")
	}
}
