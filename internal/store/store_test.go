package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carevault/medreports/internal/model"
)

func testStores(t *testing.T) map[string]RecordStore {
	t.Helper()
	return map[string]RecordStore{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "reports.json")),
	}
}

func TestLoadEmpty(t *testing.T) {
	ctx := context.Background()
	for name, st := range testStores(t) {
		col, err := st.Load(ctx)
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if len(col) != 0 {
			t.Fatalf("%s: expected empty collection, got %d records", name, len(col))
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	rec := model.NewReport("scan.png", "image/png", 1048576, time.Now())
	rec.ExtractedText = "Patient: Jane Doe"
	rec.Status = model.StatusProcessed
	for name, st := range testStores(t) {
		if err := st.Save(ctx, model.Collection{rec}); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		col, err := st.Load(ctx)
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if len(col) != 1 {
			t.Fatalf("%s: expected 1 record, got %d", name, len(col))
		}
		if col[0] != rec {
			t.Fatalf("%s: record changed across round trip: %+v", name, col[0])
		}
	}
}

// Saving what was just loaded must leave the persisted payload unchanged.
func TestSaveLoadIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.json")
	st := NewFileStore(path)

	col := model.Collection{}.
		Prepend(model.NewReport("a.png", "image/png", 500000, time.Now())).
		Prepend(model.NewReport("b.jpg", "image/jpeg", 1048576, time.Now()))
	if err := st.Save(ctx, col); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read slot: %v", err)
	}

	loaded, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := st.Save(ctx, loaded); err != nil {
		t.Fatalf("save loaded: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read slot: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("save(load()) changed the persisted payload:\n%s\nvs\n%s", before, after)
	}
}

func TestLoadCorruptFailsSoft(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "reports.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o640); err != nil {
		t.Fatalf("write corrupt slot: %v", err)
	}
	col, err := NewFileStore(path).Load(ctx)
	if err != nil {
		t.Fatalf("corrupt slot must not error: %v", err)
	}
	if len(col) != 0 {
		t.Fatalf("corrupt slot must load as empty, got %d records", len(col))
	}

	mem := NewMemoryStore()
	mem.Corrupt([]byte("]]]"))
	col, err = mem.Load(ctx)
	if err != nil {
		t.Fatalf("corrupt slot must not error: %v", err)
	}
	if len(col) != 0 {
		t.Fatalf("corrupt slot must load as empty, got %d records", len(col))
	}
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "reports.json")
	st := NewFileStore(path)
	if err := st.Save(ctx, model.Collection{}); err != nil {
		t.Fatalf("save into missing directory: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("slot file not created: %v", err)
	}
}

func TestSaveReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	first := model.NewReport("first.png", "image/png", 1, time.Now())
	second := model.NewReport("second.png", "image/png", 1, time.Now())
	if err := st.Save(ctx, model.Collection{first}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Save(ctx, model.Collection{second}); err != nil {
		t.Fatalf("save: %v", err)
	}
	col, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(col) != 1 || col[0].ID != second.ID {
		t.Fatalf("save must replace the slot wholesale, got %+v", col)
	}
}
