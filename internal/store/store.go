// Package store persists the report collection as a single serialized slot.
// Every Save replaces the slot wholesale; the caller supplies the full desired
// collection. The store is injected into the coordinator rather than accessed
// ambiently so any durable backend can stand in.
package store

import (
	"context"
	"encoding/json"

	"github.com/carevault/medreports/internal/model"
)

// SlotKey names the single storage slot. It is fixed for the lifetime of the
// application; there is no versioning or migration.
const SlotKey = "medical_reports"

// RecordStore owns the durable copy of the collection.
//
// Load returns the previously saved collection. A missing or unparseable
// payload yields an empty collection with a nil error; only backend transport
// failures surface as errors. Save serializes and overwrites the entire slot.
type RecordStore interface {
	Load(ctx context.Context) (model.Collection, error)
	Save(ctx context.Context, col model.Collection) error
}

func encode(col model.Collection) ([]byte, error) {
	if col == nil {
		col = model.Collection{}
	}
	return json.Marshal(col)
}

// decode fails soft: corrupt payloads are treated as an empty collection so a
// bad slot never wedges the application.
func decode(data []byte) model.Collection {
	if len(data) == 0 {
		return model.Collection{}
	}
	var col model.Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return model.Collection{}
	}
	return col
}
