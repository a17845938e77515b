package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentTarget says whether a plan was scheduled to one athlete or
// to a whole athlete group.
type AssignmentTarget string

const (
	TargetIndividual AssignmentTarget = "individual"
	TargetGroup      AssignmentTarget = "group"
)

// AssignmentStatus tracks the assignment lifecycle.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentCompleted AssignmentStatus = "completed"
	// AssignmentMissed is stamped by the scheduled sweeper on
	// assignments whose time passed without a completed session.
	AssignmentMissed AssignmentStatus = "missed"
)

// ModificationType names the override a coach applied for one athlete.
type ModificationType string

const (
	ModifySets     ModificationType = "sets"
	ModifyReps     ModificationType = "reps"
	ModifyWeight   ModificationType = "weight"
	ModifyExercise ModificationType = "exercise"
)

// Modification is a per-athlete override of one exercise in the
// assigned plan. It never mutates the plan itself; it is applied when
// the athlete's session is built. Values travel as strings because the
// original/new pair can be a count, a weight or an exercise name
// depending on Type.
type Modification struct {
	ID            string             `bson:"id" json:"id"`
	AthleteID     primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	ExerciseID    string             `bson:"exerciseId" json:"exerciseId"`
	Type          ModificationType   `bson:"type" json:"type"`
	OriginalValue string             `bson:"originalValue" json:"originalValue"`
	NewValue      string             `bson:"newValue" json:"newValue"`
	Reason        string             `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Assignment binds one plan to one athlete or one athlete group, with
// scheduling metadata and per-athlete modifications.
type Assignment struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID  primitive.ObjectID `bson:"planId" json:"planId"`
	CoachID primitive.ObjectID `bson:"coachId" json:"coachId"`

	TargetType     AssignmentTarget    `bson:"targetType" json:"targetType"`
	AthleteID      *primitive.ObjectID `bson:"athleteId,omitempty" json:"athleteId,omitempty"`
	AthleteGroupID *primitive.ObjectID `bson:"athleteGroupId,omitempty" json:"athleteGroupId,omitempty"`

	ScheduledAt time.Time        `bson:"scheduledAt" json:"scheduledAt"`
	Location    string           `bson:"location,omitempty" json:"location,omitempty"`
	Notes       string           `bson:"notes,omitempty" json:"notes,omitempty"`
	Status      AssignmentStatus `bson:"status" json:"status"`

	Modifications []Modification `bson:"modifications" json:"modifications"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ModificationsFor filters the assignment's modifications down to one
// athlete.
func (a *Assignment) ModificationsFor(athleteID primitive.ObjectID) []Modification {
	var out []Modification
	for _, m := range a.Modifications {
		if m.AthleteID == athleteID {
			out = append(out, m)
		}
	}
	return out
}
