package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PersonalRecord is an athlete's best recorded effort on one exercise,
// kept by the PR comparison collaborator. Keyed by exercise name rather
// than plan-local exercise id: names are what survive across plans.
type PersonalRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID    primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	ExerciseName string             `bson:"exerciseName" json:"exerciseName"`
	Weight       float64            `bson:"weight" json:"weight"`
	Reps         int                `bson:"reps" json:"reps"`
	Estimated1RM float64            `bson:"estimated1RM" json:"estimated1RM"`
	Volume       float64            `bson:"volume" json:"volume"`
	AchievedAt   time.Time          `bson:"achievedAt" json:"achievedAt"`
}

// PRResult is what the comparison hands back to whoever surfaces it.
// A positive result never alters session state.
type PRResult struct {
	IsPR         bool            `json:"isPR"`
	Estimated1RM float64         `json:"estimated1RM"`
	Volume       float64         `json:"volume"`
	PreviousBest *PersonalRecord `json:"previousBest,omitempty"`
}

// EstimateOneRepMax applies the Epley formula: w × (1 + reps/30).
// A single rep is already the lift itself.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if reps <= 1 {
		return weight
	}
	return weight * (1 + float64(reps)/30)
}
