package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Plan-level validation and consistency errors ---
var (
	ErrExerciseNotFound = errors.New("exercise not found in plan")
	ErrGroupNotFound    = errors.New("group not found in plan")
	ErrInstanceNotFound = errors.New("block instance not found in plan")
	ErrCrossScopeMove   = errors.New("exercise cannot be reordered across scopes")
	ErrPlanValidation   = errors.New("plan validation failed")
	ErrInconsistentPlan = errors.New("plan references are inconsistent")
	ErrEmptyGroup       = errors.New("a group needs at least one exercise")
)

// MoveDirection selects the neighbour an exercise swaps with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// Plan is a coach-authored training template: a flat exercise list, a
// flat group list and a flat block-instance list, each independently
// ordered. Exercises point at their group/instance by back-reference;
// nothing embeds child exercise lists, so there is a single source of
// truth for membership.
type Plan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	Exercises      []Exercise      `bson:"exercises" json:"exercises"`
	Groups         []ExerciseGroup `bson:"groups" json:"groups"`
	BlockInstances []BlockInstance `bson:"blockInstances" json:"blockInstances"`

	// EstimatedDuration in minutes; either authored by the coach or
	// derived via EstimateDuration.
	EstimatedDuration int `bson:"estimatedDuration,omitempty" json:"estimatedDuration,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// scopeKey identifies the ordering scope an exercise belongs to: its
// group, its block instance, or the plan's top level when both are nil.
type scopeKey struct {
	group    string
	instance string
}

func exerciseScope(e Exercise) scopeKey {
	k := scopeKey{}
	if e.GroupID != nil {
		k.group = *e.GroupID
	}
	if e.BlockInstanceID != nil {
		k.instance = *e.BlockInstanceID
	}
	return k
}

func (p *Plan) findExercise(id string) int {
	for i := range p.Exercises {
		if p.Exercises[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Plan) findGroup(id string) int {
	for i := range p.Groups {
		if p.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Plan) findInstance(id string) int {
	for i := range p.BlockInstances {
		if p.BlockInstances[i].ID == id {
			return i
		}
	}
	return -1
}

// scopeMembers returns the indexes of all exercises in the given scope,
// sorted ascending by Order.
func (p *Plan) scopeMembers(k scopeKey) []int {
	var idx []int
	for i := range p.Exercises {
		if exerciseScope(p.Exercises[i]) == k {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		return p.Exercises[idx[a]].Order < p.Exercises[idx[b]].Order
	})
	return idx
}

// renumberScope rewrites Order as a dense 1..N sequence within a scope,
// preserving the current relative ordering.
func (p *Plan) renumberScope(k scopeKey) {
	for n, i := range p.scopeMembers(k) {
		p.Exercises[i].Order = n + 1
	}
}

// MaxExerciseOrder returns the highest Order across every exercise in
// the plan, regardless of scope. Used when cloned rows must slot in
// after everything that already exists.
func (p *Plan) MaxExerciseOrder() int {
	max := 0
	for i := range p.Exercises {
		if p.Exercises[i].Order > max {
			max = p.Exercises[i].Order
		}
	}
	return max
}

// validateRefs checks that an exercise's back-references point at rows
// that actually exist. A miss here is a programming or data error, not
// user input, so callers should treat it as fatal.
func (p *Plan) validateRefs(e Exercise) error {
	if e.GroupID != nil && p.findGroup(*e.GroupID) < 0 {
		return fmt.Errorf("%w: exercise %s references group %s", ErrInconsistentPlan, e.ID, *e.GroupID)
	}
	if e.BlockInstanceID != nil && p.findInstance(*e.BlockInstanceID) < 0 {
		return fmt.Errorf("%w: exercise %s references block instance %s", ErrInconsistentPlan, e.ID, *e.BlockInstanceID)
	}
	return nil
}

// AddExercise appends an exercise to its scope, assigning identity and
// the next dense Order. The load fields are normalized before insert.
func (p *Plan) AddExercise(e Exercise) (*Exercise, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("%w: exercise name is required", ErrPlanValidation)
	}
	if e.Sets < 1 || e.Reps < 1 {
		return nil, fmt.Errorf("%w: sets and reps must be at least 1", ErrPlanValidation)
	}
	if err := p.validateRefs(e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.NormalizeLoad()
	e.Order = len(p.scopeMembers(exerciseScope(e))) + 1
	p.Exercises = append(p.Exercises, e)
	return &p.Exercises[len(p.Exercises)-1], nil
}

// UpdateExercise replaces an exercise's prescription. Ordering and
// ownership are untouched; moving between scopes goes through
// MoveExerciseToGroup.
func (p *Plan) UpdateExercise(e Exercise) (*Exercise, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("%w: exercise name is required", ErrPlanValidation)
	}
	if e.Sets < 1 || e.Reps < 1 {
		return nil, fmt.Errorf("%w: sets and reps must be at least 1", ErrPlanValidation)
	}
	i := p.findExercise(e.ID)
	if i < 0 {
		return nil, ErrExerciseNotFound
	}
	cur := &p.Exercises[i]
	cur.Name = e.Name
	cur.LibraryID = e.LibraryID
	cur.Sets = e.Sets
	cur.Reps = e.Reps
	cur.WeightType = e.WeightType
	cur.Weight = e.Weight
	cur.Percentage = e.Percentage
	cur.Tempo = e.Tempo
	cur.RestSeconds = e.RestSeconds
	cur.EachSide = e.EachSide
	cur.Notes = e.Notes
	cur.NormalizeLoad()
	return cur, nil
}

// DeleteExercise removes an exercise and closes the gap it leaves in
// its scope's ordering.
func (p *Plan) DeleteExercise(id string) error {
	i := p.findExercise(id)
	if i < 0 {
		return ErrExerciseNotFound
	}
	scope := exerciseScope(p.Exercises[i])
	p.Exercises = append(p.Exercises[:i], p.Exercises[i+1:]...)
	p.renumberScope(scope)
	return nil
}

// MoveExercise swaps an exercise with its neighbour within its own
// scope. An exercise at the scope boundary stays put. Reordering never
// crosses scopes: the swap partner is always a member of the same
// group/instance/top-level set, so dense numbering is preserved.
func (p *Plan) MoveExercise(id string, dir MoveDirection) error {
	if dir != MoveUp && dir != MoveDown {
		return fmt.Errorf("%w: unknown direction %q", ErrPlanValidation, dir)
	}
	i := p.findExercise(id)
	if i < 0 {
		return ErrExerciseNotFound
	}
	scope := exerciseScope(p.Exercises[i])
	members := p.scopeMembers(scope)
	pos := -1
	for n, m := range members {
		if m == i {
			pos = n
			break
		}
	}
	other := -1
	switch dir {
	case MoveUp:
		if pos > 0 {
			other = members[pos-1]
		}
	case MoveDown:
		if pos < len(members)-1 {
			other = members[pos+1]
		}
	}
	if other < 0 {
		return nil // already at the boundary
	}
	p.Exercises[i].Order, p.Exercises[other].Order = p.Exercises[other].Order, p.Exercises[i].Order
	p.renumberScope(scope)
	return nil
}

// GroupSettings carries the optional prescription of a new group.
type GroupSettings struct {
	Name                 string
	Rounds               int
	RestBetweenExercises int
	RestBetweenRounds    int
}

// CreateGroup clusters existing exercises into a new group. All members
// must live in the same block scope (all in the same instance, or all
// outside any instance); mixing would make the group's own ordering
// ambiguous. Members are numbered 1..N in the order given, and every
// scope they left is renumbered.
func (p *Plan) CreateGroup(exerciseIDs []string, typ GroupType, settings GroupSettings) (*ExerciseGroup, error) {
	if len(exerciseIDs) == 0 {
		return nil, ErrEmptyGroup
	}
	idx := make([]int, 0, len(exerciseIDs))
	var instance *string
	for n, id := range exerciseIDs {
		i := p.findExercise(id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrExerciseNotFound, id)
		}
		if n == 0 {
			instance = p.Exercises[i].BlockInstanceID
		} else if !strPtrEqual(instance, p.Exercises[i].BlockInstanceID) {
			return nil, fmt.Errorf("%w: members span block scopes", ErrPlanValidation)
		}
		idx = append(idx, i)
	}

	g := ExerciseGroup{
		ID:                   uuid.NewString(),
		Name:                 settings.Name,
		Type:                 typ,
		Rounds:               settings.Rounds,
		RestBetweenExercises: settings.RestBetweenExercises,
		RestBetweenRounds:    settings.RestBetweenRounds,
		Order:                p.nextGroupOrder(),
		BlockInstanceID:      instance,
	}
	g.Normalize()
	p.Groups = append(p.Groups, g)

	// Remember the scopes the members are leaving so they can be
	// compacted after the move.
	left := map[scopeKey]bool{}
	for n, i := range idx {
		left[exerciseScope(p.Exercises[i])] = true
		gid := g.ID
		p.Exercises[i].GroupID = &gid
		p.Exercises[i].Order = n + 1
	}
	for k := range left {
		p.renumberScope(k)
	}
	return &p.Groups[len(p.Groups)-1], nil
}

// UpdateGroup rewrites a group's settings; membership is untouched.
func (p *Plan) UpdateGroup(g ExerciseGroup) (*ExerciseGroup, error) {
	i := p.findGroup(g.ID)
	if i < 0 {
		return nil, ErrGroupNotFound
	}
	cur := &p.Groups[i]
	cur.Name = g.Name
	cur.Type = g.Type
	cur.Rounds = g.Rounds
	cur.RestBetweenExercises = g.RestBetweenExercises
	cur.RestBetweenRounds = g.RestBetweenRounds
	cur.Normalize()
	return cur, nil
}

// DeleteGroup dissolves a group. Member exercises survive: their
// GroupID is cleared and they are appended, in their group order, after
// the existing exercises of the scope they fall back into. No exercise
// is ever left pointing at a group that no longer exists.
func (p *Plan) DeleteGroup(id string) error {
	gi := p.findGroup(id)
	if gi < 0 {
		return ErrGroupNotFound
	}
	members := p.scopeMembers(scopeKey{group: id, instance: deref(p.Groups[gi].BlockInstanceID)})
	target := scopeKey{instance: deref(p.Groups[gi].BlockInstanceID)}
	base := len(p.scopeMembers(target))
	for n, i := range members {
		p.Exercises[i].GroupID = nil
		p.Exercises[i].Order = base + n + 1
	}
	p.Groups = append(p.Groups[:gi], p.Groups[gi+1:]...)
	p.renumberGroups()
	p.renumberScope(target)
	return nil
}

// MoveExerciseToGroup reassigns an exercise to another group, or out of
// any group when target is nil. This is the only legal way to change an
// exercise's scope. The target must exist and share the exercise's
// block scope. The exercise goes to the end of the target; both the old
// and the new scope come out densely numbered.
func (p *Plan) MoveExerciseToGroup(exerciseID string, targetGroupID *string) error {
	i := p.findExercise(exerciseID)
	if i < 0 {
		return ErrExerciseNotFound
	}
	if targetGroupID != nil {
		gi := p.findGroup(*targetGroupID)
		if gi < 0 {
			return ErrGroupNotFound
		}
		if !strPtrEqual(p.Groups[gi].BlockInstanceID, p.Exercises[i].BlockInstanceID) {
			return fmt.Errorf("%w: group lives in a different block scope", ErrCrossScopeMove)
		}
	}
	from := exerciseScope(p.Exercises[i])
	p.Exercises[i].GroupID = targetGroupID
	to := exerciseScope(p.Exercises[i])
	if from == to {
		return nil
	}
	p.Exercises[i].Order = len(p.scopeMembers(to)) // self included, lands last
	p.renumberScope(from)
	p.renumberScope(to)
	return nil
}

// GroupMembers returns the exercises of a group in execution order.
func (p *Plan) GroupMembers(groupID string) []Exercise {
	gi := p.findGroup(groupID)
	if gi < 0 {
		return nil
	}
	var out []Exercise
	for _, i := range p.scopeMembers(scopeKey{group: groupID, instance: deref(p.Groups[gi].BlockInstanceID)}) {
		out = append(out, p.Exercises[i])
	}
	return out
}

// Validate runs the referential-consistency sweep over the whole plan.
// Meant for development assertions and pre-save checks; a failure here
// is a bug, not bad user input.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: plan name is required", ErrPlanValidation)
	}
	for i := range p.Exercises {
		if err := p.validateRefs(p.Exercises[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) nextGroupOrder() int {
	max := 0
	for i := range p.Groups {
		if p.Groups[i].Order > max {
			max = p.Groups[i].Order
		}
	}
	return max + 1
}

func (p *Plan) renumberGroups() {
	idx := make([]int, len(p.Groups))
	for i := range p.Groups {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p.Groups[idx[a]].Order < p.Groups[idx[b]].Order })
	for n, i := range idx {
		p.Groups[i].Order = n + 1
	}
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
