package service

import (
	"alcyxob/exercise-curator/internal/domain"
	"strings"
)

// TargetsMuscle reports whether the record trains muscle, either as its
// primary muscle (substring match, so "tricep" finds "triceps") or as one of
// its secondary muscles (exact match).
func TargetsMuscle(ex *domain.Exercise, muscle string) bool {
	muscle = strings.ToLower(strings.TrimSpace(muscle))
	if muscle == "" {
		return false
	}
	if primary, ok := ex.String(domain.FieldPrimaryMuscle); ok && strings.Contains(strings.ToLower(primary), muscle) {
		return true
	}
	secondary, _ := ex.Strings(domain.FieldSecondaryMuscles)
	for _, m := range secondary {
		if strings.ToLower(m) == muscle {
			return true
		}
	}
	return false
}

// ExerciseFilter selects records for listings. Empty fields match everything.
type ExerciseFilter struct {
	Muscle string
	Tier   string
}

// Filter returns the records accepted by f, in dataset order.
func Filter(ds *domain.Dataset, f ExerciseFilter) []*domain.Exercise {
	var out []*domain.Exercise
	for _, ex := range ds.Exercises {
		if f.Muscle != "" && !TargetsMuscle(ex, f.Muscle) {
			continue
		}
		if f.Tier != "" && TierBucket(ex) != f.Tier {
			continue
		}
		out = append(out, ex)
	}
	return out
}

// Presence reports how often a target id occurs.
type Presence struct {
	ID    string
	Count int
}

// Found reports whether the id occurs at least once.
func (p Presence) Found() bool { return p.Count > 0 }

// CheckPresence looks up every target id in the dataset.
func CheckPresence(ds *domain.Dataset, ids []string) []Presence {
	ix := domain.BuildIndex(ds)
	out := make([]Presence, len(ids))
	for i, id := range ids {
		out[i] = Presence{ID: id, Count: len(ix.Positions(id))}
	}
	return out
}
