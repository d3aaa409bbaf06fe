package service

import (
	"alcyxob/exercise-curator/internal/domain"
)

// RemovedRecord identifies a record dropped by deduplication.
type RemovedRecord struct {
	ID       string `json:"id"`
	Position int    `json:"position"` // index in the input dataset
}

// DedupResult is the outcome of a deduplication pass.
type DedupResult struct {
	Dataset *domain.Dataset
	Removed []RemovedRecord
}

// Deduplicate keeps the first record for every id and drops every later
// record with the same id in full. Fields are never merged between
// duplicates; repairing the survivor is a separate patch step.
//
// Records without an id cannot be matched to anything and are all kept.
// The relative order of kept records is unchanged.
func Deduplicate(ds *domain.Dataset) DedupResult {
	seen := make(map[string]bool, ds.Len())
	out := &domain.Dataset{Exercises: make([]*domain.Exercise, 0, ds.Len())}
	var removed []RemovedRecord

	for i, ex := range ds.Exercises {
		id := ex.ID()
		if id == "" {
			out.Append(ex)
			continue
		}
		if seen[id] {
			removed = append(removed, RemovedRecord{ID: id, Position: i})
			continue
		}
		seen[id] = true
		out.Append(ex)
	}
	return DedupResult{Dataset: out, Removed: removed}
}
