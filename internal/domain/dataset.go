package domain

// Dataset is the ordered collection of exercise records persisted as one file.
type Dataset struct {
	Exercises []*Exercise
}

// NewDataset wraps records in a Dataset.
func NewDataset(exercises ...*Exercise) *Dataset {
	return &Dataset{Exercises: exercises}
}

// Len returns the number of records, duplicates included.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Exercises)
}

// Append adds a record at the end of the dataset.
func (d *Dataset) Append(ex *Exercise) {
	d.Exercises = append(d.Exercises, ex)
}

// IDs returns every record id in dataset order, including duplicates and
// empty ids for records without one.
func (d *Dataset) IDs() []string {
	ids := make([]string, len(d.Exercises))
	for i, ex := range d.Exercises {
		ids[i] = ex.ID()
	}
	return ids
}
