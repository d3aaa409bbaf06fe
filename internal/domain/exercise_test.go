package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExercise_PreservesKeyOrder(t *testing.T) {
	ex, err := ParseExercise([]byte(`{"name":"Squat","id":"squat","difficulty":2,"extra":{"a":1}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "id", "difficulty", "extra"}, ex.Keys())
	assert.Equal(t, "squat", ex.ID())

	raw, err := ex.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Squat","id":"squat","difficulty":2,"extra":{"a":1}}`, string(raw))
}

func TestParseExercise_DuplicateKeyLastWins(t *testing.T) {
	ex, err := ParseExercise([]byte(`{"id":"dumbbell_fly","gif":"","gif":"dumbbell_fly.gif"}`))
	require.NoError(t, err)

	gif, present := ex.Gif()
	assert.True(t, present)
	assert.Equal(t, "dumbbell_fly.gif", gif)
	assert.Equal(t, []string{"id", "gif"}, ex.Keys())
	assert.Equal(t, []string{"gif"}, ex.DuplicateKeys())
}

func TestParseExercise_Rejects(t *testing.T) {
	for name, input := range map[string]string{
		"array":    `[1,2]`,
		"string":   `"squat"`,
		"trailing": `{"id":"a"} {}`,
		"broken":   `{"id":`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseExercise([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestExercise_TolerantAccessors(t *testing.T) {
	ex, err := ParseExercise([]byte(`{"id":42,"name":null,"secondary_muscles":["biceps"],"gif":7}`))
	require.NoError(t, err)

	assert.Equal(t, "", ex.ID(), "non-string id is treated as missing")
	_, ok := ex.String(FieldName)
	assert.False(t, ok, "null is not a string")
	assert.True(t, ex.Has(FieldName))

	muscles, ok := ex.Strings(FieldSecondaryMuscles)
	assert.True(t, ok)
	assert.Equal(t, []string{"biceps"}, muscles)

	gif, present := ex.Gif()
	assert.True(t, present)
	assert.Empty(t, gif)
}

func TestExercise_SetKeepsPosition(t *testing.T) {
	ex := NewExercise(
		Field{Key: "id", Value: json.RawMessage(`"row"`)},
		Field{Key: "gif", Value: json.RawMessage(`""`)},
		Field{Key: "difficulty", Value: json.RawMessage(`2`)},
	)
	require.NoError(t, ex.Set(FieldGif, "Row<1>.gif"))
	require.NoError(t, ex.Set("new", true))

	raw, err := ex.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":"row","gif":"Row<1>.gif","difficulty":2,"new":true}`, string(raw))
	assert.Empty(t, ex.DuplicateKeys(), "Set is not a duplicate key")
}

func TestExercise_CloneIsDeep(t *testing.T) {
	ex := NewExercise(Field{Key: "id", Value: json.RawMessage(`"a"`)})
	clone := ex.Clone()
	require.NoError(t, clone.Set(FieldID, "b"))

	assert.Equal(t, "a", ex.ID())
	assert.Equal(t, "b", clone.ID())
}

func TestIndex(t *testing.T) {
	ds := NewDataset(
		mustParse(t, `{"id":"a"}`),
		mustParse(t, `{"id":"b"}`),
		mustParse(t, `{"name":"no id"}`),
		mustParse(t, `{"id":"a"}`),
		mustParse(t, `{"id":"a"}`),
	)
	ix := BuildIndex(ds)

	assert.Equal(t, map[string]int{"a": 0, "b": 1}, ix.First)
	assert.Equal(t, []string{"a"}, ix.Collisions)
	assert.Equal(t, []int{0, 3, 4}, ix.Positions("a"))
	assert.Equal(t, []int{2}, ix.Unidentified)
	assert.True(t, ix.HasCollisions())

	pos, err := ix.Lookup("b")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, err = ix.Lookup("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = ix.Lookup("a")
	assert.True(t, errors.Is(err, ErrAmbiguous))
	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, []int{0, 3, 4}, lookupErr.Positions)
}

func TestDataset_IDs(t *testing.T) {
	ds := NewDataset(mustParse(t, `{"id":"a"}`), mustParse(t, `{}`))
	assert.Equal(t, []string{"a", ""}, ds.IDs())
	assert.Equal(t, 0, (*Dataset)(nil).Len())
}

func mustParse(t *testing.T, s string) *Exercise {
	t.Helper()
	ex, err := ParseExercise([]byte(s))
	require.NoError(t, err)
	return ex
}

func TestExercise_DroppedValues(t *testing.T) {
	ex, err := ParseExercise([]byte(`{"id":"dumbbell_fly","equipment_tier":"dumbbell","gif":"a.gif","equipment_tier":"","gif": "a.gif"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"equipment_tier", "gif"}, ex.DuplicateKeys())
	assert.Equal(t, []Field{{Key: "equipment_tier", Value: json.RawMessage(`"dumbbell"`)}}, ex.DroppedValues(),
		"an identical repeat loses nothing")
	assert.Equal(t, ex.DroppedValues(), ex.Clone().DroppedValues())

	require.NoError(t, ex.Set(FieldEquipmentTier, "gym"))
	assert.Len(t, ex.DroppedValues(), 1, "Set never records a dropped value")
}
