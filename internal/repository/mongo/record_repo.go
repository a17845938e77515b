package mongo

import (
	"context"
	"errors"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordCollectionName = "personal_records"

// mongoRecordRepository implements repository.PersonalRecordRepository.
type mongoRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoRecordRepository creates a new personal-record repository
// backed by MongoDB.
func NewMongoRecordRepository(db *mongo.Database) repository.PersonalRecordRepository {
	return &mongoRecordRepository{
		collection: db.Collection(recordCollectionName),
	}
}

// GetBest returns the athlete's standing record for one exercise.
func (r *mongoRecordRepository) GetBest(ctx context.Context, athleteID primitive.ObjectID, exerciseName string) (*domain.PersonalRecord, error) {
	var record domain.PersonalRecord
	filter := bson.M{"athleteId": athleteID, "exerciseName": exerciseName}
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Upsert replaces the athlete's record for the exercise, or creates it.
// One document per (athlete, exercise): the standing best.
func (r *mongoRecordRepository) Upsert(ctx context.Context, record *domain.PersonalRecord) error {
	filter := bson.M{"athleteId": record.AthleteID, "exerciseName": record.ExerciseName}
	update := bson.M{"$set": bson.M{
		"weight":       record.Weight,
		"reps":         record.Reps,
		"estimated1RM": record.Estimated1RM,
		"volume":       record.Volume,
		"achievedAt":   record.AchievedAt,
	}}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetByAthleteID lists every standing record for one athlete.
func (r *mongoRecordRepository) GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.PersonalRecord, error) {
	var records []domain.PersonalRecord
	findOptions := options.Find().SetSort(bson.D{{Key: "exerciseName", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"athleteId": athleteID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, cursor.Err()
}

// EnsureRecordIndexes creates necessary indexes for the personal
// records collection.
func EnsureRecordIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "exerciseName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
