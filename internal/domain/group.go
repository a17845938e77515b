package domain

// GroupType classifies how a cluster of exercises is executed.
type GroupType string

const (
	GroupSuperset GroupType = "superset" // alternate exercises, minimal rest
	GroupCircuit  GroupType = "circuit"  // repeat the whole cluster for rounds
	GroupSection  GroupType = "section"  // a labelled heading, no special execution
)

// ExerciseGroup is a named cluster of exercises within a Plan or a
// BlockTemplate. Membership is derived by back-reference from
// Exercise.GroupID; a group never embeds its member list.
type ExerciseGroup struct {
	ID   string    `bson:"id" json:"id"`
	Name string    `bson:"name" json:"name"`
	Type GroupType `bson:"type" json:"type"`

	// RestBetweenExercises applies to supersets and circuits.
	RestBetweenExercises int `bson:"restBetweenExercises,omitempty" json:"restBetweenExercises,omitempty"`
	// Rounds and RestBetweenRounds apply to circuits only. Rounds < 2
	// means a single pass, identical to a non-circuit group.
	Rounds            int `bson:"rounds,omitempty" json:"rounds,omitempty"`
	RestBetweenRounds int `bson:"restBetweenRounds,omitempty" json:"restBetweenRounds,omitempty"`

	Order int `bson:"order" json:"order"`

	BlockInstanceID *string `bson:"blockInstanceId,omitempty" json:"blockInstanceId,omitempty"`
	// SourceID: template group this one was cloned from, see Exercise.SourceID.
	SourceID *string `bson:"sourceId,omitempty" json:"sourceId,omitempty"`
}

// Normalize zeroes fields the group's type makes irrelevant.
func (g *ExerciseGroup) Normalize() {
	switch g.Type {
	case GroupCircuit:
		if g.Rounds < 1 {
			g.Rounds = 1
		}
	case GroupSuperset:
		g.Rounds = 0
		g.RestBetweenRounds = 0
	default:
		g.Rounds = 0
		g.RestBetweenRounds = 0
		g.RestBetweenExercises = 0
	}
}

// EffectiveRounds is the number of passes a session makes over this
// group. Anything below 2 collapses to a single pass.
func (g ExerciseGroup) EffectiveRounds() int {
	if g.Type == GroupCircuit && g.Rounds > 1 {
		return g.Rounds
	}
	return 1
}

// SettingsEqual compares the athlete-visible settings of two groups,
// field by field. Identity, ordering and ownership are excluded for the
// same reason as Exercise.PrescriptionEquals.
func (g ExerciseGroup) SettingsEqual(o ExerciseGroup) bool {
	return g.Name == o.Name &&
		g.Type == o.Type &&
		g.RestBetweenExercises == o.RestBetweenExercises &&
		g.Rounds == o.Rounds &&
		g.RestBetweenRounds == o.RestBetweenRounds
}
