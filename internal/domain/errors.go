package domain

import "fmt"

var (
	ErrNotFound  = DomainError("exercise not found")
	ErrAmbiguous = DomainError("exercise id is not unique")
)

// DomainError is the kind of a lookup failure.
type DomainError string

func (e DomainError) Error() string {
	return string(e)
}

// LookupError is returned when a targeted lookup by id cannot pick exactly one
// record. Kind is ErrNotFound or ErrAmbiguous; Positions holds every index
// carrying the id (empty when not found).
type LookupError struct {
	ID        string
	Kind      DomainError
	Positions []int
}

func (e *LookupError) Error() string {
	if e.Kind == ErrAmbiguous {
		return fmt.Sprintf("%s: %q appears %d times (positions %v); run dedup first", e.Kind, e.ID, len(e.Positions), e.Positions)
	}
	return fmt.Sprintf("%s: %q", e.Kind, e.ID)
}

// Is lets callers match with errors.Is(err, domain.ErrNotFound).
func (e *LookupError) Is(target error) bool {
	return target == e.Kind
}
