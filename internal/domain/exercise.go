// internal/domain/exercise.go
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Field names of an exercise record as they appear in the dataset file.
const (
	FieldID               = "id"
	FieldName             = "name"
	FieldMechanic         = "mechanic"
	FieldEquipmentTier    = "equipment_tier"
	FieldPrimaryMuscle    = "primary_muscle"
	FieldSecondaryMuscles = "secondary_muscles"
	FieldBodyPart         = "body_part"
	FieldDifficulty       = "difficulty"
	FieldGif              = "gif"
)

// RequiredFields lists the keys every record must carry.
// secondary_muscles is optional (missing == empty list).
var RequiredFields = []string{
	FieldID,
	FieldName,
	FieldMechanic,
	FieldEquipmentTier,
	FieldPrimaryMuscle,
	FieldBodyPart,
	FieldDifficulty,
	FieldGif,
}

// Mechanic classifies how many joints an exercise moves.
type Mechanic string

const (
	MechanicCompound  Mechanic = "compound"
	MechanicIsolation Mechanic = "isolation"
)

// EquipmentTier classifies the equipment an exercise needs.
type EquipmentTier string

const (
	TierHome     EquipmentTier = "home"
	TierDumbbell EquipmentTier = "dumbbell"
	TierGym      EquipmentTier = "gym"

	// TierUnknown is the bucket used for records without a usable tier.
	TierUnknown EquipmentTier = "UNKNOWN"
)

// Field is one key/value pair of a record. Value holds the raw JSON text.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Exercise is a single exercise record from the dataset.
//
// Records are kept as an ordered list of raw JSON fields rather than a typed
// struct: hand-edited entries often carry wrong types or extra keys, and the
// curator must report those instead of dropping them. Key order is preserved
// so that a load/save cycle does not reshuffle the file.
type Exercise struct {
	fields        []Field
	duplicateKeys []string
	dropped       []Field
}

// NewExercise builds a record from fields in the given order. A repeated key
// overwrites the earlier value and is remembered as a duplicate.
func NewExercise(fields ...Field) *Exercise {
	ex := &Exercise{}
	for _, f := range fields {
		ex.put(f.Key, f.Value, true)
	}
	return ex
}

// ParseExercise decodes one JSON object into a record, preserving key order.
func ParseExercise(data []byte) (*Exercise, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	ex, err := DecodeExercise(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after exercise object")
	}
	return ex, nil
}

// DecodeExercise reads the next JSON object from dec as a record.
func DecodeExercise(dec *json.Decoder) (*Exercise, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected exercise object, found %v", describeToken(tok))
	}

	ex := &Exercise{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, found %v", describeToken(tok))
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		ex.put(key, raw, true)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return ex, nil
}

func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		return fmt.Sprintf("%q", v.String())
	case string:
		return fmt.Sprintf("string %q", v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T %v", v, v)
	}
}

func (e *Exercise) put(key string, value json.RawMessage, trackDuplicates bool) {
	v := append(json.RawMessage(nil), value...)
	for i := range e.fields {
		if e.fields[i].Key == key {
			if trackDuplicates {
				e.duplicateKeys = append(e.duplicateKeys, key)
				if !sameJSON(e.fields[i].Value, v) {
					e.dropped = append(e.dropped, Field{Key: key, Value: e.fields[i].Value})
				}
			}
			e.fields[i].Value = v
			return
		}
	}
	e.fields = append(e.fields, Field{Key: key, Value: v})
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// ID returns the record identifier, or "" when id is missing or not a string.
func (e *Exercise) ID() string {
	id, _ := e.String(FieldID)
	return id
}

// Has reports whether the key is present, whatever its value.
func (e *Exercise) Has(key string) bool {
	_, ok := e.Raw(key)
	return ok
}

// Raw returns the raw JSON value of key.
func (e *Exercise) Raw(key string) (json.RawMessage, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value of key if it is present and a JSON string.
func (e *Exercise) String(key string) (string, bool) {
	raw, ok := e.Raw(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	return s, true
}

// Strings returns the value of key if it is a JSON array of strings.
func (e *Exercise) Strings(key string) ([]string, bool) {
	raw, ok := e.Raw(key)
	if !ok {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// Gif returns the media filename and whether the gif key exists at all.
// A present but empty or non-string value returns ("", true).
func (e *Exercise) Gif() (string, bool) {
	if !e.Has(FieldGif) {
		return "", false
	}
	gif, _ := e.String(FieldGif)
	return gif, true
}

// Set encodes value as JSON and stores it under key. An existing key keeps
// its position; a new key is appended.
func (e *Exercise) Set(key string, value any) error {
	raw, err := MarshalValue(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	e.SetRaw(key, raw)
	return nil
}

// SetRaw stores raw JSON under key without re-encoding.
func (e *Exercise) SetRaw(key string, raw json.RawMessage) {
	e.put(key, raw, false)
}

// Keys returns the record keys in file order.
func (e *Exercise) Keys() []string {
	keys := make([]string, len(e.fields))
	for i, f := range e.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the ordered fields.
func (e *Exercise) Fields() []Field {
	return cloneFields(e.fields)
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Key: f.Key, Value: append(json.RawMessage(nil), f.Value...)}
	}
	return out
}

// DuplicateKeys lists keys that appeared more than once when the record was
// decoded. The last occurrence is the one kept.
func (e *Exercise) DuplicateKeys() []string {
	return append([]string(nil), e.duplicateKeys...)
}

// DroppedValues returns the earlier occurrences of repeated keys whose value
// differs from the one kept. They are not part of the record, so saving it
// loses them.
func (e *Exercise) DroppedValues() []Field {
	return cloneFields(e.dropped)
}

// Clone returns a deep copy of the record.
func (e *Exercise) Clone() *Exercise {
	return &Exercise{
		fields:        e.Fields(),
		duplicateKeys: e.DuplicateKeys(),
		dropped:       e.DroppedValues(),
	}
}

// MarshalJSON renders the record as a compact JSON object in key order.
func (e *Exercise) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := MarshalValue(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.Value); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalValue encodes v as JSON without HTML escaping and without the
// trailing newline json.Encoder adds.
func MarshalValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
