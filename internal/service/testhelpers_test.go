package service

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/repository/file"
	"alcyxob/exercise-curator/internal/schema"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func record(t *testing.T, s string) *domain.Exercise {
	t.Helper()
	ex, err := domain.ParseExercise([]byte(s))
	require.NoError(t, err)
	return ex
}

func dataset(t *testing.T, records ...string) *domain.Dataset {
	t.Helper()
	ds := domain.NewDataset()
	for _, r := range records {
		ds.Append(record(t, r))
	}
	return ds
}

// fullRecord returns a record that passes every schema rule.
func fullRecord(id, tier string) string {
	return fmt.Sprintf(`{"id":%q,"name":"Exercise %s","mechanic":"compound","equipment_tier":%q,"primary_muscle":"quadriceps","secondary_muscles":["glutes"],"body_part":"legs","difficulty":2,"gif":"%s.gif"}`,
		id, id, tier, id)
}

func encode(t *testing.T, ds *domain.Dataset) string {
	t.Helper()
	out, err := file.Encode(ds)
	require.NoError(t, err)
	return string(out)
}

func newTestValidator() *Validator {
	return NewValidator(schema.MustNew(schema.DefaultOptions()))
}
