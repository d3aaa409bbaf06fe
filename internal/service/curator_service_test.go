package service

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/repository"
	"alcyxob/exercise-curator/internal/repository/file"
	"alcyxob/exercise-curator/internal/storage"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingStore records how often the wrapped store is saved.
type countingStore struct {
	repository.DatasetStore
	saves int
}

func (s *countingStore) Save(ctx context.Context, ds *domain.Dataset) error {
	s.saves++
	return s.DatasetStore.Save(ctx, ds)
}

func newTestCurator(t *testing.T, content string) (CuratorService, *countingStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exercises.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	store := &countingStore{DatasetStore: file.NewFileDatasetStore(path)}
	return NewCuratorService(store, newTestValidator(), zap.NewNop()), store, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// Hand-edited file: compact layout that the serializer would rewrite.
const handEdited = `[{"id":"dumbbell_fly","gif":""},{"id":"squat","gif":"squat.gif"},{"id":"dumbbell_fly","gif":"dumbbell_fly.gif"}]`

func TestCuratorService_NoOpLeavesFileUntouched(t *testing.T) {
	const unique = `[{"id":"squat","gif":"squat.gif"}]`
	svc, store, path := newTestCurator(t, unique)

	out, err := svc.Run(context.Background(), DedupOperation(), RunOptions{})
	require.NoError(t, err)

	assert.False(t, out.Saved)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, unique, readFile(t, path), "no mutation means no rewrite, even of a non-canonical layout")
	assert.NotEmpty(t, out.RunID)
}

func TestCuratorService_DedupSaves(t *testing.T) {
	svc, store, path := newTestCurator(t, handEdited)

	out, err := svc.Run(context.Background(), DedupOperation(), RunOptions{})
	require.NoError(t, err)

	assert.True(t, out.Saved)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 3, out.Before)
	assert.Equal(t, 2, out.After)
	assert.Equal(t, 1, out.Summary.Removed)
	assert.Empty(t, out.Report.Collisions)

	ds, err := file.Decode([]byte(readFile(t, path)), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dumbbell_fly", "squat"}, ds.IDs())
}

func TestCuratorService_DryRun(t *testing.T) {
	svc, store, path := newTestCurator(t, handEdited)

	out, err := svc.Run(context.Background(), DedupOperation(), RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.False(t, out.Saved)
	assert.Equal(t, 1, out.Summary.Removed)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, handEdited, readFile(t, path))
}

func TestCuratorService_ParseErrorIsFatal(t *testing.T) {
	svc, store, path := newTestCurator(t, `[{"id":"a",}]`)

	_, err := svc.Run(context.Background(), DedupOperation(), RunOptions{})
	assert.ErrorIs(t, err, repository.ErrMalformedDataset)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, `[{"id":"a",}]`, readFile(t, path))
}

func TestCuratorService_ChangesScenario(t *testing.T) {
	svc, _, path := newTestCurator(t, handEdited)
	ctx := context.Background()

	_, err := svc.Run(ctx, DedupOperation(), RunOptions{})
	require.NoError(t, err)

	out, err := svc.Run(ctx, ChangesOperation("apply", Changes{
		Add: []*domain.Exercise{record(t, `{"id":"squat","gif":"stale.gif"}`), record(t, `{"id":"lunge"}`)},
		Patch: []PatchSpec{
			{ID: "dumbbell_fly", Field: domain.FieldGif, Value: "dumbbell_fly.gif"},
			{ID: "squat", Field: domain.FieldGif, Value: "ignored.gif"},
		},
	}), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Summary.Added)
	assert.Equal(t, 1, out.Summary.Fixed)
	assert.Equal(t, 2, out.Summary.Skipped)
	assert.True(t, out.Saved)

	ds, err := file.Decode([]byte(readFile(t, path)), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dumbbell_fly", "squat", "lunge"}, ds.IDs())
	gif, _ := ds.Exercises[0].Gif()
	assert.Equal(t, "dumbbell_fly.gif", gif)
	gif, _ = ds.Exercises[1].Gif()
	assert.Equal(t, "squat.gif", gif)
}

func TestCuratorService_AmbiguousPatchAbortsRun(t *testing.T) {
	svc, store, path := newTestCurator(t, handEdited)

	_, err := svc.Run(context.Background(), ChangesOperation("patch", Changes{
		Add:   []*domain.Exercise{record(t, `{"id":"lunge"}`)},
		Patch: []PatchSpec{{ID: "dumbbell_fly", Field: domain.FieldGif, Value: "x.gif", When: "always"}},
	}), RunOptions{})

	assert.ErrorIs(t, err, domain.ErrAmbiguous)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, handEdited, readFile(t, path))
}

func TestCuratorService_ResolveIdempotent(t *testing.T) {
	svc, store, path := newTestCurator(t, `[{"id":"bicycle_crunch","gif":""},{"id":"plank","gif":""}]`)
	op := ResolveOperation(storage.StaticSource{Names: []string{"Bicycle_Crunches.GIF", "notes.txt"}}, nil)

	out, err := svc.Run(context.Background(), op, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Fixed)
	assert.Equal(t, 1, out.Summary.Unresolved)
	first := readFile(t, path)

	out, err = svc.Run(context.Background(), op, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Summary.Fixed)
	assert.False(t, out.Saved)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, first, readFile(t, path))
}

type failingSource struct{}

func (failingSource) List(context.Context) ([]string, error) { return nil, errors.New("bucket unreachable") }
func (failingSource) Describe() string { return "failing" }

func TestCuratorService_ResolveListingFailure(t *testing.T) {
	svc, store, _ := newTestCurator(t, `[{"id":"plank","gif":""}]`)

	_, err := svc.Run(context.Background(), ResolveOperation(failingSource{}, zap.NewNop()), RunOptions{})
	assert.EqualError(t, err, "bucket unreachable")
	assert.Equal(t, 0, store.saves)
}

func TestCuratorService_Inspect(t *testing.T) {
	svc, store, _ := newTestCurator(t, handEdited)

	ds, report, err := svc.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Len(t, report.Collisions, 1)
	assert.Equal(t, 0, store.saves)
}

const repeatedKey = `[{"id":"dumbbell_fly","equipment_tier":"dumbbell","equipment_tier":""}]`

func TestCuratorService_RepeatedKeyBlocksUnrelatedSave(t *testing.T) {
	svc, store, path := newTestCurator(t, repeatedKey)
	add := ChangesOperation("add", Changes{Add: []*domain.Exercise{record(t, `{"id":"squat"}`)}})

	_, err := svc.Run(context.Background(), add, RunOptions{})
	require.ErrorIs(t, err, ErrDroppedValues)
	assert.Contains(t, err.Error(), `dumbbell_fly.equipment_tier="dumbbell"`)
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, repeatedKey, readFile(t, path))

	out, err := svc.Run(context.Background(), add, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Contains(t, out.Summary.Notes, `repeated key dumbbell_fly.equipment_tier: saving drops earlier value "dumbbell"`)
	assert.Equal(t, repeatedKey, readFile(t, path))
}

func TestCuratorService_RepeatedKeyDroppedOnRequest(t *testing.T) {
	svc, _, path := newTestCurator(t, repeatedKey)
	add := ChangesOperation("add", Changes{Add: []*domain.Exercise{record(t, `{"id":"squat"}`)}})

	out, err := svc.Run(context.Background(), add, RunOptions{DropDuplicateKeys: true})
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.Equal(t, []string{
		"added squat",
		`repeated key dumbbell_fly.equipment_tier: saving drops earlier value "dumbbell"`,
	}, out.Summary.Notes)
	assert.NotContains(t, readFile(t, path), `"dumbbell"`)
}

func TestCuratorService_IdenticalRepeatedKeyLosesNothing(t *testing.T) {
	svc, _, path := newTestCurator(t, `[{"id":"row","gif":"row.gif","gif":"row.gif"}]`)
	add := ChangesOperation("add", Changes{Add: []*domain.Exercise{record(t, `{"id":"squat"}`)}})

	out, err := svc.Run(context.Background(), add, RunOptions{})
	require.NoError(t, err)
	assert.True(t, out.Saved)
	ds, err := file.Decode([]byte(readFile(t, path)), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"row", "squat"}, ds.IDs())
}

func TestCuratorService_DedupRemovesRepeatedKeyRecord(t *testing.T) {
	svc, _, _ := newTestCurator(t, `[{"id":"a"},{"id":"a","gif":"x.gif","gif":""}]`)

	out, err := svc.Run(context.Background(), DedupOperation(), RunOptions{})
	require.NoError(t, err, "the record repeating a key is removed, nothing else is lost")
	assert.True(t, out.Saved)
}

func TestCuratorService_ResolveReportsLooseMatches(t *testing.T) {
	svc, _, _ := newTestCurator(t, `[{"id":"hip_thrust","gif":"hip_thrust_old.gif"},{"id":"calf_raise","gif":""}]`)
	op := ResolveOperation(storage.StaticSource{Names: []string{"Hip_Thrusts.gif", "calf_raises.gif"}}, nil)

	out, err := svc.Run(context.Background(), op, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Fixed)
	assert.Contains(t, out.Summary.Notes, "loose match calf_raise -> calf_raises.gif")
	assert.Contains(t, out.Summary.Notes, "loose match hip_thrust -> Hip_Thrusts.gif ignored; gif already set")
}
