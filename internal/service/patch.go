package service

import (
	"alcyxob/exercise-curator/internal/domain"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// --- Error Definitions ---
var (
	ErrMissingID      = errors.New("exercise has no id")
	ErrImmutableField = errors.New("field cannot be patched")
	ErrUnknownWhen    = errors.New("unknown patch condition")
)

// UpsertOutcome tells whether upsert appended the record.
type UpsertOutcome string

const (
	UpsertAdded   UpsertOutcome = "added"
	UpsertSkipped UpsertOutcome = "skipped"
)

// UpsertResult reports one upsert call.
type UpsertResult struct {
	ID       string
	Outcome  UpsertOutcome
	Position int // index of the appended record, or of the existing one
}

// Upsert appends a copy of ex when its id is not in the dataset. An existing id is never
// overwritten; the call is reported as skipped instead.
func Upsert(ds *domain.Dataset, ex *domain.Exercise) (UpsertResult, error) {
	id := ex.ID()
	if id == "" {
		return UpsertResult{}, ErrMissingID
	}
	ix := domain.BuildIndex(ds)
	if pos, ok := ix.First[id]; ok {
		return UpsertResult{ID: id, Outcome: UpsertSkipped, Position: pos}, nil
	}
	ds.Append(ex.Clone())
	return UpsertResult{ID: id, Outcome: UpsertAdded, Position: ds.Len() - 1}, nil
}

// Predicate decides whether a patch may replace the current value. present is
// false when the key is missing from the record.
type Predicate func(current json.RawMessage, present bool) bool

// IsMissing holds when the field key is absent.
func IsMissing(_ json.RawMessage, present bool) bool {
	return !present
}

// IsEmpty holds for a missing key, null, "", [] or {}.
func IsEmpty(current json.RawMessage, present bool) bool {
	if !present {
		return true
	}
	switch string(compactJSON(current)) {
	case "null", `""`, "[]", "{}":
		return true
	}
	return false
}

// Always holds unconditionally. Use only for deliberate corrections.
func Always(json.RawMessage, bool) bool {
	return true
}

// Equals holds when the field is present and equal (as JSON) to expected.
func Equals(expected any) (Predicate, error) {
	want, err := domain.MarshalValue(expected)
	if err != nil {
		return nil, err
	}
	want = compactJSON(want)
	return func(current json.RawMessage, present bool) bool {
		return present && bytes.Equal(compactJSON(current), want)
	}, nil
}

// ParsePredicate maps a condition name to a predicate. expected is only used
// by "equals".
func ParsePredicate(when string, expected any) (Predicate, error) {
	switch strings.ToLower(strings.TrimSpace(when)) {
	case "", "empty":
		return IsEmpty, nil
	case "missing":
		return IsMissing, nil
	case "always", "force":
		return Always, nil
	case "equals":
		return Equals(expected)
	default:
		return nil, fmt.Errorf("%w %q (want empty, missing, always or equals)", ErrUnknownWhen, when)
	}
}

func compactJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return bytes.TrimSpace(raw)
	}
	return buf.Bytes()
}

// PatchResult reports one patch_field call.
type PatchResult struct {
	ID       string
	Field    string
	Position int
	Applied  bool // predicate held
	Changed  bool // stored value differs from the previous one
}

// PatchField sets field on the single record carrying id, but only when pred
// accepts the current value. It fails with a *domain.LookupError when id is
// missing (domain.ErrNotFound) or duplicated (domain.ErrAmbiguous).
func PatchField(ds *domain.Dataset, id, field string, value any, pred Predicate) (PatchResult, error) {
	res := PatchResult{ID: id, Field: field, Position: -1}
	if field == domain.FieldID {
		return res, fmt.Errorf("%w: %s", ErrImmutableField, field)
	}
	if pred == nil {
		pred = IsEmpty
	}
	raw, err := domain.MarshalValue(value)
	if err != nil {
		return res, fmt.Errorf("encode value for %s: %w", field, err)
	}

	pos, err := domain.BuildIndex(ds).Lookup(id)
	if err != nil {
		return res, err
	}
	res.Position = pos

	ex := ds.Exercises[pos]
	current, present := ex.Raw(field)
	if !pred(current, present) {
		return res, nil
	}
	res.Applied = true
	res.Changed = !present || !bytes.Equal(compactJSON(current), compactJSON(raw))
	if res.Changed {
		ex.SetRaw(field, raw)
	}
	return res, nil
}
