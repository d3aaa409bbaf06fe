package mongo

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/repository"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const exerciseCollectionName = "exercises"

// mongoExerciseCatalog implements repository.ExerciseCatalog
type mongoExerciseCatalog struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoExerciseCatalog creates a catalog backed by a MongoDB collection.
// An empty collection name falls back to "exercises".
func NewMongoExerciseCatalog(db *mongo.Database, collection string, logger *zap.Logger) repository.ExerciseCatalog {
	if collection == "" {
		collection = exerciseCollectionName
	}
	return &mongoExerciseCatalog{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

// Publish replaces one document per record, keyed by the exercise id. The
// dataset must be free of duplicate ids; records without an id are skipped.
func (r *mongoExerciseCatalog) Publish(ctx context.Context, ds *domain.Dataset, prune bool) (repository.PublishStats, error) {
	var stats repository.PublishStats
	if ix := domain.BuildIndex(ds); ix.HasCollisions() {
		return stats, fmt.Errorf("%w: %v", repository.ErrCollisions, ix.Collisions)
	}

	models := make([]mongo.WriteModel, 0, ds.Len())
	ids := make([]string, 0, ds.Len())
	for _, ex := range ds.Exercises {
		doc, err := ExerciseDocument(ex)
		if err != nil {
			return stats, err
		}
		if doc == nil {
			stats.Skipped++
			continue
		}
		ids = append(ids, ex.ID())
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": ex.ID()}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	if len(models) > 0 {
		result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return stats, fmt.Errorf("publish exercises: %w", err)
		}
		stats.Upserted = result.UpsertedCount
		stats.Modified = result.ModifiedCount
	}

	if prune {
		result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}})
		if err != nil {
			return stats, fmt.Errorf("prune exercises: %w", err)
		}
		stats.Deleted = result.DeletedCount
	}

	r.logger.Info("exercise catalog published",
		zap.String("collection", r.collection.Name()),
		zap.Int64("upserted", stats.Upserted),
		zap.Int64("modified", stats.Modified),
		zap.Int64("deleted", stats.Deleted),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// Count returns the number of documents in the catalog collection.
func (r *mongoExerciseCatalog) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.D{})
}

// ExerciseDocument converts a record into a BSON document with _id set to the
// exercise id and the remaining fields in record order. It returns nil for a
// record without an id.
func ExerciseDocument(ex *domain.Exercise) (bson.D, error) {
	id := ex.ID()
	if id == "" {
		return nil, nil
	}
	doc := bson.D{{Key: "_id", Value: id}}
	for _, f := range ex.Fields() {
		if f.Key == domain.FieldID || f.Key == "_id" {
			continue
		}
		var wrapped bson.D
		if err := bson.UnmarshalExtJSON(wrapValue(f.Value), false, &wrapped); err != nil {
			return nil, fmt.Errorf("exercise %s field %s: %w", id, f.Key, err)
		}
		if len(wrapped) != 1 {
			return nil, fmt.Errorf("exercise %s field %s: unexpected document shape", id, f.Key)
		}
		doc = append(doc, bson.E{Key: f.Key, Value: wrapped[0].Value})
	}
	return doc, nil
}

// wrapValue embeds a raw JSON value in {"v": ...} because extended JSON can
// only be decoded as a document.
func wrapValue(raw []byte) []byte {
	out := make([]byte, 0, len(raw)+6)
	out = append(out, `{"v":`...)
	out = append(out, raw...)
	return append(out, '}')
}

// EnsureExerciseIndexes creates necessary indexes for the exercises collection.
func EnsureExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: domain.FieldEquipmentTier, Value: 1}},
			Options: options.Index().SetName("exercise_equipment_tier"),
		},
		{
			Keys:    bson.D{{Key: domain.FieldPrimaryMuscle, Value: 1}},
			Options: options.Index().SetName("exercise_primary_muscle"),
		},
		{
			Keys:    bson.D{{Key: domain.FieldName, Value: "text"}},
			Options: options.Index().SetName("exercise_text_search"),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
