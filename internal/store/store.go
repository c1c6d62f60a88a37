// Package store persists query records: per-query image collections merged
// on every successful search.
package store

import (
	"context"

	"github.com/sells-group/geowave/internal/model"
)

// Store persists QueryRecords in the words table, keyed by the raw query
// string.
type Store interface {
	// Merge atomically folds fresh into the record at key and returns the
	// committed record. Merges on the same key are serialized by the store;
	// merges on different keys are independent.
	Merge(ctx context.Context, key string, fresh []model.ImageRef) (*model.QueryRecord, error)

	// Get returns the record at key, or nil if none exists.
	Get(ctx context.Context, key string) (*model.QueryRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

// MergeImages computes the record that results from merging fresh into
// existing. A nil existing record starts a new one with count 1. Images whose
// link is already present are dropped; survivors are appended in fetch order.
// The count grows by one even when nothing new survives.
func MergeImages(existing *model.QueryRecord, fresh []model.ImageRef) model.QueryRecord {
	var rec model.QueryRecord
	if existing != nil {
		rec.Count = existing.Count
		rec.Images = make([]model.ImageRef, 0, len(existing.Images)+len(fresh))
		rec.Images = append(rec.Images, existing.Images...)
	} else {
		rec.Images = make([]model.ImageRef, 0, len(fresh))
	}
	rec.Count++

	seen := make(map[string]struct{}, len(rec.Images)+len(fresh))
	for _, img := range rec.Images {
		seen[img.Link] = struct{}{}
	}
	for _, img := range fresh {
		if _, ok := seen[img.Link]; ok {
			continue
		}
		seen[img.Link] = struct{}{}
		rec.Images = append(rec.Images, img)
	}
	return rec
}
