package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus is the live-session state machine's state.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

var (
	ErrSessionNotActive   = errors.New("session is not active")
	ErrInvalidTransition  = errors.New("invalid session transition")
	ErrInvalidReps        = errors.New("reps must be greater than zero")
	ErrInvalidRPE         = errors.New("rpe must be between 1 and 10")
	ErrNoCurrentExercise  = errors.New("no current exercise")
	ErrSetRecordNotFound  = errors.New("set record not found")
	ErrSessionIncomplete  = errors.New("session has uncompleted exercises")
	ErrSessionExerciseGone = errors.New("session exercise not found")
)

// SetRecord is one completed set. Immutable once written except for
// Weight and Reps, which stay editable as pure corrections. Deleting a
// record never renumbers the survivors' SetNumber.
//
// The wire field names are load-bearing: other consumers read these
// exact snake_case keys.
type SetRecord struct {
	SessionExerciseID string    `bson:"session_exercise_id" json:"session_exercise_id"`
	SetNumber         int       `bson:"set_number" json:"set_number"`
	Weight            *float64  `bson:"weight" json:"weight"`
	Reps              int       `bson:"reps" json:"reps"`
	RPE               *int      `bson:"rpe" json:"rpe"`
	CompletedAt       time.Time `bson:"completed_at" json:"completed_at"`
}

// SessionExercise is the execution snapshot of one plan exercise, with
// the athlete's per-assignment modifications already applied.
type SessionExercise struct {
	SessionExerciseID string      `bson:"session_exercise_id" json:"session_exercise_id"`
	ExerciseID        string      `bson:"exercise_id" json:"exercise_id"`
	ExerciseName      string      `bson:"exercise_name" json:"exercise_name"`
	GroupID           *string     `bson:"group_id" json:"group_id"`
	SetsTarget        int         `bson:"sets_target" json:"sets_target"`
	RepsTarget        int         `bson:"reps_target" json:"reps_target"`
	WeightTarget      *float64    `bson:"weight_target" json:"weight_target"`
	RestSeconds       int         `bson:"rest_seconds" json:"rest_seconds"`
	SetsCompleted     int         `bson:"sets_completed" json:"sets_completed"`
	Completed         bool        `bson:"completed" json:"completed"`
	Notes             string      `bson:"notes,omitempty" json:"notes,omitempty"`
	SetRecords        []SetRecord `bson:"set_records" json:"set_records"`
}

// SessionGroup snapshots the prescription of a plan group that the
// advancement logic needs at run time: type, rounds, rests. Snapshotted
// so a session keeps working even if the plan is edited mid-workout.
type SessionGroup struct {
	GroupID              string    `bson:"group_id" json:"group_id"`
	Name                 string    `bson:"name" json:"name"`
	Type                 GroupType `bson:"type" json:"type"`
	Rounds               int       `bson:"rounds" json:"rounds"`
	RestBetweenExercises int       `bson:"rest_between_exercises" json:"rest_between_exercises"`
	RestBetweenRounds    int       `bson:"rest_between_rounds" json:"rest_between_rounds"`
}

// Session is one athlete's live execution of an assignment. Transitions
// mutate the receiver in place but are written so each one either fully
// applies or fully rejects; the orchestrating service persists the
// whole document after every transition, which is what makes
// advancement replayable — the decision is keyed off the persisted
// sets_completed / group_rounds, never off anything in-memory only.
type Session struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssignmentID primitive.ObjectID `bson:"assignmentId" json:"assignmentId"`
	PlanID       primitive.ObjectID `bson:"planId" json:"planId"`
	AthleteID    primitive.ObjectID `bson:"athleteId" json:"athleteId"`

	Status      SessionStatus `bson:"status" json:"status"`
	StartedAt   time.Time     `bson:"startedAt" json:"startedAt"`
	CompletedAt *time.Time    `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	// DurationSeconds is the wall-clock span from start to the
	// completed transition.
	DurationSeconds int `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`

	Exercises []SessionExercise `bson:"exercises" json:"exercises"`
	Groups    []SessionGroup    `bson:"groups" json:"groups"`

	CurrentExerciseIndex int            `bson:"current_exercise_index" json:"current_exercise_index"`
	GroupRounds          map[string]int `bson:"group_rounds" json:"group_rounds"`

	// TotalSetsLogged counts every set ever recorded in this session.
	// Unlike a member's set_records it survives circuit-round resets:
	// each recorded set is also emitted to the persistence collaborator,
	// and this mirrors how many such emissions happened.
	TotalSetsLogged int `bson:"totalSetsLogged" json:"totalSetsLogged"`

	// Prefill for the next set-entry form after a partial completion.
	// Presentation convenience, never consulted by advancement.
	NextWeight *float64 `bson:"nextWeight,omitempty" json:"nextWeight,omitempty"`
	NextReps   *int     `bson:"nextReps,omitempty" json:"nextReps,omitempty"`
}

// NewSession projects a plan (as scheduled by an assignment) into a
// session for one athlete, applying that athlete's modifications.
//
// Flattening order: top-level exercises first, then plan-level groups,
// then block instances (each instance: its loose exercises, then its
// groups), everything by the authored Order fields. Groups with no
// members contribute nothing — they simply do not appear, which is how
// an empty group gets skipped instead of wedging advancement.
func NewSession(plan *Plan, assignment *Assignment, athleteID primitive.ObjectID) (*Session, error) {
	if plan == nil || assignment == nil {
		return nil, fmt.Errorf("%w: plan and assignment are required", ErrPlanValidation)
	}
	mods := assignment.ModificationsFor(athleteID)

	s := &Session{
		AssignmentID:         assignment.ID,
		PlanID:               plan.ID,
		AthleteID:            athleteID,
		Status:               SessionActive,
		StartedAt:            time.Now().UTC(),
		CurrentExerciseIndex: 0,
		GroupRounds:          map[string]int{},
	}

	appendGroup := func(g ExerciseGroup) {
		members := plan.GroupMembers(g.ID)
		if len(members) == 0 {
			return
		}
		s.Groups = append(s.Groups, SessionGroup{
			GroupID:              g.ID,
			Name:                 g.Name,
			Type:                 g.Type,
			Rounds:               g.EffectiveRounds(),
			RestBetweenExercises: g.RestBetweenExercises,
			RestBetweenRounds:    g.RestBetweenRounds,
		})
		s.GroupRounds[g.ID] = 1
		for _, e := range members {
			s.Exercises = append(s.Exercises, buildSessionExercise(e, mods))
		}
	}

	// Top-level exercises.
	for _, i := range plan.scopeMembers(scopeKey{}) {
		s.Exercises = append(s.Exercises, buildSessionExercise(plan.Exercises[i], mods))
	}
	// Plan-level groups.
	for _, g := range sortedGroups(plan.Groups, nil) {
		appendGroup(g)
	}
	// Block instances.
	instances := append([]BlockInstance(nil), plan.BlockInstances...)
	sort.Slice(instances, func(a, b int) bool { return instances[a].Order < instances[b].Order })
	for _, inst := range instances {
		for _, i := range plan.scopeMembers(scopeKey{instance: inst.ID}) {
			s.Exercises = append(s.Exercises, buildSessionExercise(plan.Exercises[i], mods))
		}
		for _, g := range sortedGroups(plan.Groups, &inst.ID) {
			appendGroup(g)
		}
	}

	if len(s.Exercises) == 0 {
		return nil, fmt.Errorf("%w: plan has no exercises", ErrPlanValidation)
	}
	return s, nil
}

func sortedGroups(groups []ExerciseGroup, instanceID *string) []ExerciseGroup {
	var out []ExerciseGroup
	for _, g := range groups {
		if strPtrEqual(g.BlockInstanceID, instanceID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Order < out[b].Order })
	return out
}

// buildSessionExercise snapshots one plan exercise with an athlete's
// overrides folded in. Override values that fail to parse are ignored
// rather than corrupting the target; the coach-entered original stays.
func buildSessionExercise(e Exercise, mods []Modification) SessionExercise {
	se := SessionExercise{
		SessionExerciseID: uuid.NewString(),
		ExerciseID:        e.ID,
		ExerciseName:      e.Name,
		GroupID:           e.GroupID,
		SetsTarget:        e.Sets,
		RepsTarget:        e.Reps,
		RestSeconds:       e.RestSeconds,
		Notes:             e.Notes,
		SetRecords:        []SetRecord{},
	}
	if e.WeightType == WeightFixed {
		se.WeightTarget = e.Weight
	}
	for _, m := range mods {
		if m.ExerciseID != e.ID {
			continue
		}
		switch m.Type {
		case ModifySets:
			if v, err := strconv.Atoi(m.NewValue); err == nil && v > 0 {
				se.SetsTarget = v
			}
		case ModifyReps:
			if v, err := strconv.Atoi(m.NewValue); err == nil && v > 0 {
				se.RepsTarget = v
			}
		case ModifyWeight:
			if v, err := strconv.ParseFloat(m.NewValue, 64); err == nil {
				se.WeightTarget = &v
			}
		case ModifyExercise:
			if m.NewValue != "" {
				se.ExerciseName = m.NewValue
			}
		}
	}
	return se
}

// SetCompletion reports what a CompleteSet transition did, so the
// orchestrating layer knows whether to fire the PR check and what the
// UI should show next.
type SetCompletion struct {
	Record            SetRecord
	ExerciseCompleted bool
	Advanced          bool
	NewRoundStarted   bool
	Round             int
	NextIndex         int
	// CheckPR is true when a weight was supplied; the PR comparison is
	// an external, fire-and-forget concern and never part of this
	// transition.
	CheckPR bool
}

// CompleteSet records one set against the current exercise and applies
// the advancement policy.
//
// When the exercise hits its target:
//   - last member of a multi-round circuit with rounds remaining: bump
//     the round, wipe every member's progress, pointer to the group's
//     first member;
//   - last member, rounds exhausted: pointer to the first exercise
//     after the group, if any;
//   - non-last member of such a group: pointer to the next member;
//   - anything else: pointer to the next exercise, if any.
//
// Below target the pointer stays and the just-entered weight/reps are
// kept as prefill for rapid re-entry.
func (s *Session) CompleteSet(weight *float64, reps int, rpe *int) (*SetCompletion, error) {
	if s.Status != SessionActive {
		return nil, fmt.Errorf("%w: status is %s", ErrSessionNotActive, s.Status)
	}
	if reps <= 0 {
		return nil, ErrInvalidReps
	}
	if rpe != nil && (*rpe < 1 || *rpe > 10) {
		return nil, ErrInvalidRPE
	}
	if s.CurrentExerciseIndex < 0 || s.CurrentExerciseIndex >= len(s.Exercises) {
		return nil, ErrNoCurrentExercise
	}

	ex := &s.Exercises[s.CurrentExerciseIndex]
	rec := SetRecord{
		SessionExerciseID: ex.SessionExerciseID,
		SetNumber:         nextSetNumber(ex.SetRecords),
		Weight:            weight,
		Reps:              reps,
		RPE:               rpe,
		CompletedAt:       time.Now().UTC(),
	}
	ex.SetRecords = append(ex.SetRecords, rec)
	ex.SetsCompleted = len(ex.SetRecords)
	s.TotalSetsLogged++

	res := &SetCompletion{
		Record:    rec,
		NextIndex: s.CurrentExerciseIndex,
		CheckPR:   weight != nil,
	}

	if ex.SetsCompleted < ex.SetsTarget {
		s.NextWeight = weight
		r := reps
		s.NextReps = &r
		return res, nil
	}

	ex.Completed = true
	res.ExerciseCompleted = true
	s.NextWeight = nil
	s.NextReps = nil
	s.advance(res)
	res.NextIndex = s.CurrentExerciseIndex
	if gid := s.Exercises[s.CurrentExerciseIndex].GroupID; gid != nil {
		res.Round = s.GroupRounds[*gid]
	}
	return res, nil
}

// advance applies the pointer-movement policy after the current
// exercise completed. Computed at completion time; any delay before the
// UI shows the next exercise is presentation only.
func (s *Session) advance(res *SetCompletion) {
	i := s.CurrentExerciseIndex
	ex := s.Exercises[i]

	if ex.GroupID != nil {
		g := s.group(*ex.GroupID)
		if g != nil && g.Rounds > 1 {
			members := s.groupMemberIndexes(*ex.GroupID)
			last := members[len(members)-1]
			if i == last {
				if s.GroupRounds[g.GroupID] < g.Rounds {
					// New round: wipe every member and restart the group.
					s.GroupRounds[g.GroupID]++
					for _, m := range members {
						s.Exercises[m].Completed = false
						s.Exercises[m].SetsCompleted = 0
						s.Exercises[m].SetRecords = []SetRecord{}
					}
					s.CurrentExerciseIndex = members[0]
					res.Advanced = true
					res.NewRoundStarted = true
					return
				}
				// Rounds exhausted: move past the group.
				if next := last + 1; next < len(s.Exercises) {
					s.CurrentExerciseIndex = next
					res.Advanced = true
				}
				return
			}
			// Mid-group: next member. Members are contiguous in session
			// order, but walk the index list rather than assuming it.
			for n, m := range members {
				if m == i && n+1 < len(members) {
					s.CurrentExerciseIndex = members[n+1]
					res.Advanced = true
					return
				}
			}
			return
		}
	}
	// Ungrouped, or single-round group: simple linear advance.
	if i+1 < len(s.Exercises) {
		s.CurrentExerciseIndex = i + 1
		res.Advanced = true
	}
}

func (s *Session) group(id string) *SessionGroup {
	for i := range s.Groups {
		if s.Groups[i].GroupID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// groupMemberIndexes returns the session-exercise indexes belonging to
// a group, in session order. "Last in group" is decided purely by this
// order, never by which member the athlete happened to start on.
func (s *Session) groupMemberIndexes(groupID string) []int {
	var out []int
	for i := range s.Exercises {
		if s.Exercises[i].GroupID != nil && *s.Exercises[i].GroupID == groupID {
			out = append(out, i)
		}
	}
	return out
}

func nextSetNumber(records []SetRecord) int {
	max := 0
	for _, r := range records {
		if r.SetNumber > max {
			max = r.SetNumber
		}
	}
	return max + 1
}

// EditSetRecord corrects the weight/reps of an already-recorded set.
// A pure data fix: it never re-triggers advancement and never
// re-evaluates the exercise's completion.
func (s *Session) EditSetRecord(sessionExerciseID string, setNumber int, weight *float64, reps int) error {
	if reps <= 0 {
		return ErrInvalidReps
	}
	ex := s.findExercise(sessionExerciseID)
	if ex == nil {
		return ErrSessionExerciseGone
	}
	for i := range ex.SetRecords {
		if ex.SetRecords[i].SetNumber == setNumber {
			ex.SetRecords[i].Weight = weight
			ex.SetRecords[i].Reps = reps
			return nil
		}
	}
	return ErrSetRecordNotFound
}

// DeleteSetRecord removes one record. Surviving records keep their
// SetNumber; sets_completed is recomputed from what remains, and the
// exercise's completion flag follows it.
func (s *Session) DeleteSetRecord(sessionExerciseID string, setNumber int) error {
	ex := s.findExercise(sessionExerciseID)
	if ex == nil {
		return ErrSessionExerciseGone
	}
	for i := range ex.SetRecords {
		if ex.SetRecords[i].SetNumber == setNumber {
			ex.SetRecords = append(ex.SetRecords[:i], ex.SetRecords[i+1:]...)
			ex.SetsCompleted = len(ex.SetRecords)
			ex.Completed = ex.SetsCompleted >= ex.SetsTarget
			return nil
		}
	}
	return ErrSetRecordNotFound
}

func (s *Session) findExercise(sessionExerciseID string) *SessionExercise {
	for i := range s.Exercises {
		if s.Exercises[i].SessionExerciseID == sessionExerciseID {
			return &s.Exercises[i]
		}
	}
	return nil
}

// Pause suspends an active session.
func (s *Session) Pause() error {
	if s.Status != SessionActive {
		return fmt.Errorf("%w: %s -> paused", ErrInvalidTransition, s.Status)
	}
	s.Status = SessionPaused
	return nil
}

// Resume reactivates a paused session.
func (s *Session) Resume() error {
	if s.Status != SessionPaused {
		return fmt.Errorf("%w: %s -> active", ErrInvalidTransition, s.Status)
	}
	s.Status = SessionActive
	return nil
}

// AllExercisesCompleted reports whether every session exercise hit its
// target.
func (s *Session) AllExercisesCompleted() bool {
	for i := range s.Exercises {
		if !s.Exercises[i].Completed {
			return false
		}
	}
	return true
}

// Complete finishes the workout. Only an active session completes, and
// a partially-done one completes only when the caller passes the
// athlete's explicit confirmation. Duration is wall clock from start.
func (s *Session) Complete(confirmPartial bool) error {
	if s.Status != SessionActive {
		return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, s.Status)
	}
	if !s.AllExercisesCompleted() && !confirmPartial {
		return ErrSessionIncomplete
	}
	now := time.Now().UTC()
	s.Status = SessionCompleted
	s.CompletedAt = &now
	s.DurationSeconds = int(now.Sub(s.StartedAt).Seconds())
	return nil
}

// Abandon discards the session. Terminal: an abandoned session is never
// resumable, which is why callers confirm before invoking it.
func (s *Session) Abandon() error {
	if s.Status != SessionActive && s.Status != SessionPaused {
		return fmt.Errorf("%w: %s -> abandoned", ErrInvalidTransition, s.Status)
	}
	now := time.Now().UTC()
	s.Status = SessionAbandoned
	s.CompletedAt = &now
	s.DurationSeconds = int(now.Sub(s.StartedAt).Seconds())
	return nil
}

// CurrentExercise returns the exercise under the pointer, or nil when
// the pointer has nothing left to point at.
func (s *Session) CurrentExercise() *SessionExercise {
	if s.CurrentExerciseIndex < 0 || s.CurrentExerciseIndex >= len(s.Exercises) {
		return nil
	}
	return &s.Exercises[s.CurrentExerciseIndex]
}

// TotalSetRecords counts every recorded set across the session.
func (s *Session) TotalSetRecords() int {
	count := 0
	for i := range s.Exercises {
		count += len(s.Exercises[i].SetRecords)
	}
	return count
}
