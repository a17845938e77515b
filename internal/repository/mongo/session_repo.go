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

const (
	sessionCollectionName   = "sessions"
	setRecordCollectionName = "session_set_records"
)

// mongoSessionRepository implements repository.SessionRepository.
type mongoSessionRepository struct {
	collection *mongo.Collection
	records    *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository backed by
// MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
		records:    db.Collection(setRecordCollectionName),
	}
}

// Create inserts a new session.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.AthleteID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("athlete ID is required")
	}
	session.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetActiveByAthleteID finds the athlete's in-flight session, if any.
// Paused counts as in-flight; only one session may be live per athlete.
func (r *mongoSessionRepository) GetActiveByAthleteID(ctx context.Context, athleteID primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	filter := bson.M{
		"athleteId": athleteID,
		"status":    bson.M{"$in": []domain.SessionStatus{domain.SessionActive, domain.SessionPaused}},
	}
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByAthleteID retrieves an athlete's session history, newest first.
func (r *mongoSessionRepository) GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Session, error) {
	var sessions []domain.Session
	findOptions := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"athleteId": athleteID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, cursor.Err()
}

// Update replaces the session document whole. Every state-machine
// transition persists through here, in the order the athlete issued it,
// which is what keeps advancement replayable.
func (r *mongoSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for update")
	}
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// setRecordDoc wraps an emitted set record with its session for the
// durable record stream.
type setRecordDoc struct {
	SessionID primitive.ObjectID `bson:"sessionId"`
	domain.SetRecord `bson:",inline"`
}

// AppendSetRecord writes one emitted set record into the append-only
// stream. Circuit rounds wipe the working copies on the session
// document; this collection keeps the full history.
func (r *mongoSessionRepository) AppendSetRecord(ctx context.Context, sessionID primitive.ObjectID, record domain.SetRecord) error {
	_, err := r.records.InsertOne(ctx, setRecordDoc{SessionID: sessionID, SetRecord: record})
	return err
}

// EnsureSessionIndexes creates necessary indexes for the sessions and
// set-record collections.
func EnsureSessionIndexes(ctx context.Context, db *mongo.Database) {
	_, _ = db.Collection(sessionCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "athleteId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}},
			Options: options.Index(),
		},
	})
	_, _ = db.Collection(setRecordCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "completed_at", Value: 1}},
			Options: options.Index(),
		},
	})
}
