package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeightType selects how an exercise's load is prescribed.
type WeightType string

const (
	WeightFixed      WeightType = "fixed"      // absolute weight
	WeightPercentage WeightType = "percentage" // percent of a reference max
	WeightBodyweight WeightType = "bodyweight" // no external load
)

// Exercise is one prescribed exercise inside a Plan or a BlockTemplate.
// It is embedded in its parent document; ID is a UUID string so identity
// survives JSON round-trips without depending on array position.
//
// LibraryID optionally links the free-text Name back to an entry in the
// coach's exercise library. Names are freely editable, so resolution
// happens by id, never by name.
type Exercise struct {
	ID        string              `bson:"id" json:"id"`
	LibraryID *primitive.ObjectID `bson:"libraryId,omitempty" json:"libraryId,omitempty"`
	Name      string              `bson:"name" json:"name"`

	Sets       int        `bson:"sets" json:"sets"`
	Reps       int        `bson:"reps" json:"reps"`
	WeightType WeightType `bson:"weightType" json:"weightType"`
	// Exactly one of Weight/Percentage is meaningful, selected by WeightType.
	Weight      *float64 `bson:"weight,omitempty" json:"weight,omitempty"`
	Percentage  *float64 `bson:"percentage,omitempty" json:"percentage,omitempty"`
	Tempo       string   `bson:"tempo,omitempty" json:"tempo,omitempty"`
	RestSeconds int      `bson:"restSeconds" json:"restSeconds"`
	EachSide    bool     `bson:"eachSide,omitempty" json:"eachSide,omitempty"`
	Notes       string   `bson:"notes,omitempty" json:"notes,omitempty"`

	// Order is a strictly positive position, dense 1..N within the
	// exercise's scope (its group, its block instance, or the plan's
	// top level).
	Order int `bson:"order" json:"order"`

	// GroupID and BlockInstanceID are back-references; membership is
	// always derived from these, never from lists embedded in the owner.
	GroupID         *string `bson:"groupId,omitempty" json:"groupId,omitempty"`
	BlockInstanceID *string `bson:"blockInstanceId,omitempty" json:"blockInstanceId,omitempty"`

	// SourceID is set on exercises cloned from a block template: the id
	// of the template exercise this one descends from. It is what lets
	// the customization diff match clones to template originals after
	// the clone received a fresh ID.
	SourceID *string `bson:"sourceId,omitempty" json:"sourceId,omitempty"`
}

// NormalizeLoad clears whichever of Weight/Percentage the current
// WeightType makes irrelevant. Called on every create/update so the
// exclusivity invariant can never drift.
func (e *Exercise) NormalizeLoad() {
	switch e.WeightType {
	case WeightFixed:
		e.Percentage = nil
	case WeightPercentage:
		e.Weight = nil
	default:
		e.Weight = nil
		e.Percentage = nil
	}
}

// PrescriptionEquals reports whether two exercises prescribe the same
// work. It compares field by field rather than serialized bytes, so key
// ordering can never produce a false positive. Identity, ordering and
// ownership fields are deliberately excluded: the customization diff
// cares about what the athlete is asked to do, not where the row sits.
func (e Exercise) PrescriptionEquals(o Exercise) bool {
	return e.Name == o.Name &&
		e.Sets == o.Sets &&
		e.Reps == o.Reps &&
		e.WeightType == o.WeightType &&
		floatPtrEqual(e.Weight, o.Weight) &&
		floatPtrEqual(e.Percentage, o.Percentage) &&
		e.Tempo == o.Tempo &&
		e.RestSeconds == o.RestSeconds &&
		e.EachSide == o.EachSide &&
		e.Notes == o.Notes
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
