package domain

// Index is a derived view of a Dataset keyed by record id. It is rebuilt for
// every operation and never persisted.
type Index struct {
	// First maps each id to the position of its first occurrence.
	First map[string]int
	// Collisions lists ids seen more than once, in order of first occurrence.
	Collisions []string

	positions map[string][]int
	// Unidentified holds positions of records without a string id.
	Unidentified []int
}

// BuildIndex scans the dataset once and records every id position.
func BuildIndex(ds *Dataset) *Index {
	ix := &Index{
		First:     make(map[string]int),
		positions: make(map[string][]int),
	}
	for i, ex := range ds.Exercises {
		id := ex.ID()
		if id == "" {
			ix.Unidentified = append(ix.Unidentified, i)
			continue
		}
		pos := ix.positions[id]
		if len(pos) == 0 {
			ix.First[id] = i
		} else if len(pos) == 1 {
			ix.Collisions = append(ix.Collisions, id)
		}
		ix.positions[id] = append(pos, i)
	}
	return ix
}

// Has reports whether at least one record carries id.
func (ix *Index) Has(id string) bool {
	_, ok := ix.First[id]
	return ok
}

// Positions returns every index carrying id, in dataset order.
func (ix *Index) Positions(id string) []int {
	return append([]int(nil), ix.positions[id]...)
}

// HasCollisions reports whether any id is duplicated.
func (ix *Index) HasCollisions() bool {
	return len(ix.Collisions) > 0
}

// Lookup returns the position of the single record carrying id.
func (ix *Index) Lookup(id string) (int, error) {
	pos := ix.positions[id]
	switch len(pos) {
	case 0:
		return -1, &LookupError{ID: id, Kind: ErrNotFound}
	case 1:
		return pos[0], nil
	default:
		return -1, &LookupError{ID: id, Kind: ErrAmbiguous, Positions: ix.Positions(id)}
	}
}
