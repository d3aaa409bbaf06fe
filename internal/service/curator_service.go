package service

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/media"
	"alcyxob/exercise-curator/internal/repository"
	"alcyxob/exercise-curator/internal/storage"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Summary counts what an operation did. Only Added, Fixed and Removed are
// mutations; Skipped and Unresolved are informational.
type Summary struct {
	Added      int
	Fixed      int
	Removed    int
	Skipped    int
	Unresolved int
	Notes      []string
}

// Mutations returns the number of changes that require a save.
func (s Summary) Mutations() int {
	return s.Added + s.Fixed + s.Removed
}

func (s *Summary) note(format string, args ...any) {
	s.Notes = append(s.Notes, fmt.Sprintf(format, args...))
}

// Operation is one maintenance transform. Apply may modify ds in place or
// return a new dataset; the returned dataset is the one validated and saved.
type Operation struct {
	Name  string
	Apply func(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, Summary, error)
}

// Outcome reports one pipeline run.
type Outcome struct {
	RunID   string
	Before  int
	After   int
	Summary Summary
	Report  *Report
	Saved   bool
}

// RunOptions tweaks a pipeline run.
type RunOptions struct {
	// DryRun runs the transform and validation but never saves.
	DryRun bool
	// DropDuplicateKeys allows a save that loses the earlier values of
	// repeated keys. Without it such a run fails with ErrDroppedValues.
	DropDuplicateKeys bool
}

// ErrDroppedValues is returned when saving would lose the earlier value of a
// key that a record repeats.
var ErrDroppedValues = errors.New("saving would drop values of repeated keys")

// DroppedValue is an earlier occurrence of a repeated key that is not kept in
// the record.
type DroppedValue struct {
	Position int
	ID       string
	Key      string
	Value    string
}

func (d DroppedValue) label() string {
	if d.ID == "" {
		return fmt.Sprintf("record #%d", d.Position)
	}
	return d.ID
}

func (d DroppedValue) String() string {
	return fmt.Sprintf("%s.%s=%s", d.label(), d.Key, d.Value)
}

// DroppedValues lists, in dataset order, every repeated-key value that a
// save of ds would lose.
func DroppedValues(ds *domain.Dataset) []DroppedValue {
	var out []DroppedValue
	for i, ex := range ds.Exercises {
		for _, f := range ex.DroppedValues() {
			value := string(f.Value)
			var buf bytes.Buffer
			if json.Compact(&buf, f.Value) == nil {
				value = buf.String()
			}
			out = append(out, DroppedValue{Position: i, ID: ex.ID(), Key: f.Key, Value: value})
		}
	}
	return out
}

// --- Service Interface ---
type CuratorService interface {
	// Run performs load → transform → validate → save. The dataset is saved
	// only when the operation reports at least one mutation.
	Run(ctx context.Context, op Operation, opts RunOptions) (*Outcome, error)
	// Inspect loads and validates without any transform.
	Inspect(ctx context.Context) (*domain.Dataset, *Report, error)
}

// curatorService implements the CuratorService interface.
type curatorService struct {
	store     repository.DatasetStore
	validator *Validator
	logger    *zap.Logger
}

// NewCuratorService creates a new instance of curatorService.
func NewCuratorService(store repository.DatasetStore, validator *Validator, logger *zap.Logger) CuratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &curatorService{store: store, validator: validator, logger: logger}
}

func (s *curatorService) Run(ctx context.Context, op Operation, opts RunOptions) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	log := s.logger.With(
		zap.String("run_id", out.RunID),
		zap.String("operation", op.Name),
		zap.String("dataset", s.store.Location()),
	)

	ds, err := s.store.Load(ctx)
	if err != nil {
		log.Error("failed to load dataset", zap.Error(err))
		return nil, err
	}
	out.Before = ds.Len()
	log.Debug("dataset loaded", zap.Int("records", out.Before))

	result, summary, err := op.Apply(ctx, ds)
	if err != nil {
		log.Error("operation failed; dataset left unchanged", zap.Error(err))
		return nil, err
	}
	if result == nil {
		result = ds
	}
	out.After = result.Len()
	out.Summary = summary

	out.Report = s.validator.Validate(result)
	log.Info("operation finished",
		zap.Int("added", summary.Added),
		zap.Int("fixed", summary.Fixed),
		zap.Int("removed", summary.Removed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("unresolved", summary.Unresolved),
		zap.Int("validation_errors", out.Report.ErrorCount),
		zap.Int("collisions", len(out.Report.Collisions)),
	)

	if summary.Mutations() == 0 {
		log.Info("no changes needed; dataset not written")
		return out, nil
	}

	dropped := DroppedValues(result)
	for _, d := range dropped {
		out.Summary.note("repeated key %s.%s: saving drops earlier value %s", d.label(), d.Key, d.Value)
	}
	if opts.DryRun {
		log.Info("dry run; dataset not written")
		return out, nil
	}
	if len(dropped) > 0 && !opts.DropDuplicateKeys {
		descs := make([]string, len(dropped))
		for i, d := range dropped {
			descs[i] = d.String()
		}
		log.Error("refusing to save; repeated keys would lose values", zap.Strings("dropped", descs))
		return nil, fmt.Errorf("%w: %s", ErrDroppedValues, strings.Join(descs, ", "))
	}
	if err := s.store.Save(ctx, result); err != nil {
		log.Error("failed to save dataset", zap.Error(err))
		return nil, err
	}
	out.Saved = true
	log.Info("dataset saved", zap.Int("records", out.After))
	return out, nil
}

func (s *curatorService) Inspect(ctx context.Context) (*domain.Dataset, *Report, error) {
	ds, err := s.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ds, s.validator.Validate(ds), nil
}

// --- Operations ---

// DedupOperation collapses duplicate ids, first occurrence wins.
func DedupOperation() Operation {
	return Operation{
		Name: "dedup",
		Apply: func(_ context.Context, ds *domain.Dataset) (*domain.Dataset, Summary, error) {
			res := Deduplicate(ds)
			var sum Summary
			sum.Removed = len(res.Removed)
			for _, rm := range res.Removed {
				sum.note("removed duplicate %s (position %d)", rm.ID, rm.Position)
			}
			return res.Dataset, sum, nil
		},
	}
}

// PatchSpec is one conditional field correction.
type PatchSpec struct {
	ID     string
	Field  string
	Value  any
	When   string // empty, missing, always, equals
	Expect any    // compared value for When == "equals"
}

// Changes is a batch of additions followed by patches.
type Changes struct {
	Add   []*domain.Exercise
	Patch []PatchSpec
}

// ChangesOperation upserts every record of c.Add, then applies every patch of
// c.Patch. A patch whose id is missing or duplicated aborts the whole run.
func ChangesOperation(name string, c Changes) Operation {
	return Operation{
		Name: name,
		Apply: func(_ context.Context, ds *domain.Dataset) (*domain.Dataset, Summary, error) {
			var sum Summary
			for _, ex := range c.Add {
				res, err := Upsert(ds, ex)
				if err != nil {
					return nil, sum, fmt.Errorf("add record: %w", err)
				}
				switch res.Outcome {
				case UpsertAdded:
					sum.Added++
					sum.note("added %s", res.ID)
				case UpsertSkipped:
					sum.Skipped++
					sum.note("skipped %s (already exists)", res.ID)
				}
			}

			for _, p := range c.Patch {
				pred, err := ParsePredicate(p.When, p.Expect)
				if err != nil {
					return nil, sum, err
				}
				res, err := PatchField(ds, p.ID, p.Field, p.Value, pred)
				if err != nil {
					return nil, sum, fmt.Errorf("patch %s.%s: %w", p.ID, p.Field, err)
				}
				switch {
				case res.Changed:
					sum.Fixed++
					sum.note("fixed %s.%s", res.ID, res.Field)
				case res.Applied:
					sum.Skipped++
					sum.note("skipped %s.%s (already set to that value)", res.ID, res.Field)
				default:
					sum.Skipped++
					sum.note("skipped %s.%s (condition %q not met)", res.ID, res.Field, whenLabel(p.When))
				}
			}
			return ds, sum, nil
		},
	}
}

func whenLabel(when string) string {
	if when == "" {
		return "empty"
	}
	return when
}

// ResolveOperation lists the media source, builds the asset index and fills
// gif fields from it.
func ResolveOperation(source storage.MediaSource, logger *zap.Logger) Operation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Operation{
		Name: "resolve",
		Apply: func(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, Summary, error) {
			var sum Summary
			names, err := source.List(ctx)
			if err != nil {
				return nil, sum, err
			}
			assets := media.BuildAssetIndex(names)
			logger.Debug("media listing indexed",
				zap.String("source", source.Describe()),
				zap.Int("files", len(names)),
				zap.Strings("assets", assets.Filenames()))
			for _, shadowed := range assets.Shadowed {
				logger.Debug("media file shadowed by a preferred file", zap.String("file", shadowed))
			}

			res, err := ResolveMedia(ds, assets)
			if err != nil {
				return nil, sum, err
			}
			sum.Fixed = res.Changed
			sum.Unresolved = len(res.Unresolved)
			sum.Skipped = res.Skipped
			sum.note("matched %d of %d records against %d media files (%s)", res.Matched, ds.Len(), assets.Len(), source.Describe())
			for _, id := range res.Unresolved {
				sum.note("unresolved %s", id)
			}
			for _, m := range res.Loose {
				if m.Applied {
					sum.note("loose match %s -> %s", m.ID, m.Filename)
				} else {
					sum.note("loose match %s -> %s ignored; gif already set", m.ID, m.Filename)
				}
			}
			return ds, sum, nil
		},
	}
}
