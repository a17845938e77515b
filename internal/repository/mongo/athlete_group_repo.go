package mongo

import (
	"context"
	"errors"
	"time"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const athleteGroupCollectionName = "athlete_groups"

// mongoAthleteGroupRepository implements repository.AthleteGroupRepository.
type mongoAthleteGroupRepository struct {
	collection *mongo.Collection
}

// NewMongoAthleteGroupRepository creates a new athlete-group repository
// backed by MongoDB.
func NewMongoAthleteGroupRepository(db *mongo.Database) repository.AthleteGroupRepository {
	return &mongoAthleteGroupRepository{
		collection: db.Collection(athleteGroupCollectionName),
	}
}

// Create inserts a new athlete group.
func (r *mongoAthleteGroupRepository) Create(ctx context.Context, group *domain.AthleteGroup) (primitive.ObjectID, error) {
	if group.Name == "" || group.CoachID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("group name and coach ID are required")
	}
	group.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, group)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves an athlete group by its ID.
func (r *mongoAthleteGroupRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AthleteGroup, error) {
	var group domain.AthleteGroup
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// GetByCoachID retrieves every roster a coach maintains.
func (r *mongoAthleteGroupRepository) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.AthleteGroup, error) {
	var groups []domain.AthleteGroup
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"coachId": coachID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, cursor.Err()
}

// Update replaces the group document whole.
func (r *mongoAthleteGroupRepository) Update(ctx context.Context, group *domain.AthleteGroup) error {
	if group.ID == primitive.NilObjectID {
		return errors.New("group ID is required for update")
	}
	group.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": group.ID, "coachId": group.CoachID}
	result, err := r.collection.ReplaceOne(ctx, filter, group)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an athlete group, ensuring the coach owns it.
func (r *mongoAthleteGroupRepository) Delete(ctx context.Context, id, coachID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "coachId": coachID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureAthleteGroupIndexes creates necessary indexes for the athlete
// groups collection.
func EnsureAthleteGroupIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
