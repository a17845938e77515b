package repository

import (
	"context"
	"time"

	"forgefit/coaching-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddAthleteToCoach(ctx context.Context, coachID, athleteID primitive.ObjectID) error
	GetAthletesByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	SetCoachForAthlete(ctx context.Context, athleteID, coachID primitive.ObjectID) error
}

// AthleteGroupRepository stores coach-defined athlete rosters.
type AthleteGroupRepository interface {
	Create(ctx context.Context, group *domain.AthleteGroup) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AthleteGroup, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.AthleteGroup, error)
	Update(ctx context.Context, group *domain.AthleteGroup) error
	Delete(ctx context.Context, id, coachID primitive.ObjectID) error
}

// PlanRepository stores training plans. Plans are saved whole: the
// exercise/group/instance lists live inside the plan document, so a
// mutation loads the plan, applies the change in memory and replaces
// the document. A failed save leaves the stored plan exactly as it was.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	Delete(ctx context.Context, id, coachID primitive.ObjectID) error
}

// BlockTemplateRepository stores the reusable block library.
type BlockTemplateRepository interface {
	Create(ctx context.Context, tpl *domain.BlockTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.BlockTemplate, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.BlockTemplate, error)
	Update(ctx context.Context, tpl *domain.BlockTemplate) error
	Delete(ctx context.Context, id, coachID primitive.ObjectID) error
	// RecordUsage bumps usageCount and lastUsed when a template is
	// inserted into a plan.
	RecordUsage(ctx context.Context, id primitive.ObjectID) error
	SetFavorite(ctx context.Context, id, coachID primitive.ObjectID, favorite bool) error
}

// AssignmentRepository stores plan assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Assignment, error)
	GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Assignment, error)
	Update(ctx context.Context, assignment *domain.Assignment) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.AssignmentStatus) error
	// MarkMissed flips still-assigned assignments scheduled before the
	// cutoff to missed, returning how many changed. Used by the
	// periodic sweeper.
	MarkMissed(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionRepository stores live and finished sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	GetActiveByAthleteID(ctx context.Context, athleteID primitive.ObjectID) (*domain.Session, error)
	GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	// AppendSetRecord mirrors one emitted set record into the durable
	// record stream. Circuit rounds wipe a session exercise's working
	// set_records; this stream is the canonical history.
	AppendSetRecord(ctx context.Context, sessionID primitive.ObjectID, record domain.SetRecord) error
}

// PersonalRecordRepository backs the PR comparison collaborator.
type PersonalRecordRepository interface {
	GetBest(ctx context.Context, athleteID primitive.ObjectID, exerciseName string) (*domain.PersonalRecord, error)
	Upsert(ctx context.Context, record *domain.PersonalRecord) error
	GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.PersonalRecord, error)
}
