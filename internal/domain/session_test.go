package domain

import (
	"errors"
	"strconv"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAssignment(planID primitive.ObjectID, athleteID primitive.ObjectID) *Assignment {
	return &Assignment{
		ID:         primitive.NewObjectID(),
		PlanID:     planID,
		TargetType: TargetIndividual,
		AthleteID:  &athleteID,
		Status:     AssignmentAssigned,
	}
}

// startSession builds a session from a plan with no modifications.
func startSession(t *testing.T, p *Plan) *Session {
	t.Helper()
	athleteID := primitive.NewObjectID()
	s, err := NewSession(p, newAssignment(p.ID, athleteID), athleteID)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

// completeSets records n sets of the given reps against the current
// exercise, failing the test on any error.
func completeSets(t *testing.T, s *Session, n, reps int) *SetCompletion {
	t.Helper()
	var last *SetCompletion
	for i := 0; i < n; i++ {
		res, err := s.CompleteSet(nil, reps, nil)
		if err != nil {
			t.Fatalf("CompleteSet: %v", err)
		}
		last = res
	}
	return last
}

// TestNewSession_FlattensInAuthoredOrder verifies the projection order:
// top-level exercises, then plan groups, then block instances.
func TestNewSession_FlattensInAuthoredOrder(t *testing.T) {
	p := newTestPlan()
	addExercise(t, p, "Warmup Row")
	a := addExercise(t, p, "A")
	b := addExercise(t, p, "B")
	if _, err := p.CreateGroup([]string{a.ID, b.ID}, GroupSuperset, GroupSettings{}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	tpl := strengthTemplate()
	if _, err := p.InsertBlockInstance(tpl); err != nil {
		t.Fatalf("InsertBlockInstance: %v", err)
	}

	s := startSession(t, p)

	want := []string{"Warmup Row", "A", "B", "Plank", "Back Squat", "Romanian Deadlift"}
	if len(s.Exercises) != len(want) {
		t.Fatalf("session has %d exercises, want %d", len(s.Exercises), len(want))
	}
	for i, name := range want {
		if s.Exercises[i].ExerciseName != name {
			t.Errorf("exercise %d = %q, want %q", i, s.Exercises[i].ExerciseName, name)
		}
	}
	if s.Status != SessionActive || s.CurrentExerciseIndex != 0 {
		t.Errorf("session not positioned at start: status=%s index=%d", s.Status, s.CurrentExerciseIndex)
	}
}

// TestNewSession_SkipsEmptyGroup verifies that a group with no members
// contributes nothing instead of wedging advancement.
func TestNewSession_SkipsEmptyGroup(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "A")
	g, err := p.CreateGroup([]string{a.ID}, GroupCircuit, GroupSettings{Rounds: 3})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	addExercise(t, p, "B")
	// Empty the group but keep its shell.
	if err := p.MoveExerciseToGroup(a.ID, nil); err != nil {
		t.Fatalf("MoveExerciseToGroup: %v", err)
	}

	s := startSession(t, p)
	if len(s.Exercises) != 2 {
		t.Fatalf("session has %d exercises, want 2", len(s.Exercises))
	}
	for _, sg := range s.Groups {
		if sg.GroupID == g.ID {
			t.Error("empty group projected into session")
		}
	}
}

// TestNewSession_AppliesModifications verifies that per-athlete
// overrides replace the coached targets, and that an unparsable value
// leaves the original target intact.
func TestNewSession_AppliesModifications(t *testing.T) {
	p := newTestPlan()
	w := 60.0
	e, err := p.AddExercise(Exercise{Name: "Bench", Sets: 3, Reps: 10, WeightType: WeightFixed, Weight: &w})
	if err != nil {
		t.Fatalf("AddExercise: %v", err)
	}

	athleteID := primitive.NewObjectID()
	other := primitive.NewObjectID()
	asg := newAssignment(p.ID, athleteID)
	asg.Modifications = []Modification{
		{ID: "m1", AthleteID: athleteID, ExerciseID: e.ID, Type: ModifySets, NewValue: "5"},
		{ID: "m2", AthleteID: athleteID, ExerciseID: e.ID, Type: ModifyWeight, NewValue: "42.5"},
		{ID: "m3", AthleteID: athleteID, ExerciseID: e.ID, Type: ModifyReps, NewValue: "not-a-number"},
		// Someone else's modification must not leak in.
		{ID: "m4", AthleteID: other, ExerciseID: e.ID, Type: ModifySets, NewValue: "1"},
	}

	s, err := NewSession(p, asg, athleteID)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	se := s.Exercises[0]
	if se.SetsTarget != 5 {
		t.Errorf("SetsTarget = %d, want 5", se.SetsTarget)
	}
	if se.WeightTarget == nil || *se.WeightTarget != 42.5 {
		t.Errorf("WeightTarget = %v, want 42.5", se.WeightTarget)
	}
	if se.RepsTarget != 10 {
		t.Errorf("RepsTarget = %d, want the coached 10 (bad override ignored)", se.RepsTarget)
	}
}

// TestCompleteSet_PrefillBelowTarget verifies that a set below target
// keeps the pointer and stores the entered values as prefill.
func TestCompleteSet_PrefillBelowTarget(t *testing.T) {
	p := newTestPlan()
	addExercise(t, p, "Squat")
	s := startSession(t, p)

	w := 80.0
	res, err := s.CompleteSet(&w, 5, nil)
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if res.ExerciseCompleted || res.Advanced {
		t.Errorf("first of three sets advanced: %+v", res)
	}
	if s.NextWeight == nil || *s.NextWeight != 80.0 {
		t.Errorf("NextWeight = %v, want 80", s.NextWeight)
	}
	if s.NextReps == nil || *s.NextReps != 5 {
		t.Errorf("NextReps = %v, want 5", s.NextReps)
	}
	if !res.CheckPR {
		t.Error("CheckPR = false for a weighted set")
	}
}

// TestCompleteSet_ValidatesInput verifies reps and RPE bounds and the
// active-status requirement.
func TestCompleteSet_ValidatesInput(t *testing.T) {
	p := newTestPlan()
	addExercise(t, p, "Squat")
	s := startSession(t, p)

	if _, err := s.CompleteSet(nil, 0, nil); !errors.Is(err, ErrInvalidReps) {
		t.Errorf("reps=0: err = %v, want ErrInvalidReps", err)
	}
	bad := 11
	if _, err := s.CompleteSet(nil, 5, &bad); !errors.Is(err, ErrInvalidRPE) {
		t.Errorf("rpe=11: err = %v, want ErrInvalidRPE", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := s.CompleteSet(nil, 5, nil); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("paused: err = %v, want ErrSessionNotActive", err)
	}
}

// circuitPlan builds: one circuit of two single-set exercises with the
// given rounds, followed by a second group holding one single-set
// cooldown exercise. Both clusters are groups, so they project into the
// session in group order.
func circuitPlan(t *testing.T, rounds int) *Plan {
	t.Helper()
	p := newTestPlan()
	add := func(name string) *Exercise {
		e, err := p.AddExercise(Exercise{Name: name, Sets: 1, Reps: 15, WeightType: WeightBodyweight})
		if err != nil {
			t.Fatalf("AddExercise(%q): %v", name, err)
		}
		return e
	}
	a := add("Kettlebell Swing")
	b := add("Burpee")
	if _, err := p.CreateGroup([]string{a.ID, b.ID}, GroupCircuit, GroupSettings{Rounds: rounds}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	c := add("Cooldown Walk")
	if _, err := p.CreateGroup([]string{c.ID}, GroupSection, GroupSettings{}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return p
}

// TestCompleteSet_CircuitRounds drives a 2-exercise, 3-round circuit
// end to end: finishing the last member with rounds remaining must wipe
// member progress and restart the circuit; exhausting the rounds must
// move past the group.
func TestCompleteSet_CircuitRounds(t *testing.T) {
	s := startSession(t, circuitPlan(t, 3))
	gid := *s.Exercises[0].GroupID

	for round := 1; round <= 3; round++ {
		if got := s.GroupRounds[gid]; got != round {
			t.Fatalf("round counter = %d, want %d", got, round)
		}
		// First member completes: pointer to second member.
		res := completeSets(t, s, 1, 15)
		if !res.Advanced || res.NextIndex != 1 {
			t.Fatalf("round %d: after first member, res = %+v", round, res)
		}
		// Second (last) member completes.
		res = completeSets(t, s, 1, 15)
		if round < 3 {
			if !res.NewRoundStarted {
				t.Fatalf("round %d: NewRoundStarted = false", round)
			}
			if res.NextIndex != 0 {
				t.Fatalf("round %d: pointer at %d, want circuit start", round, res.NextIndex)
			}
			if res.Round != round+1 {
				t.Fatalf("round %d: res.Round = %d, want %d", round, res.Round, round+1)
			}
			// The new round starts from a clean slate.
			for _, m := range []int{0, 1} {
				if s.Exercises[m].Completed || s.Exercises[m].SetsCompleted != 0 || len(s.Exercises[m].SetRecords) != 0 {
					t.Fatalf("round %d: member %d not wiped: %+v", round, m, s.Exercises[m])
				}
			}
		} else {
			if res.NewRoundStarted {
				t.Fatal("final round restarted the circuit")
			}
			if res.NextIndex != 2 {
				t.Fatalf("after final round, pointer at %d, want the exercise after the group", res.NextIndex)
			}
		}
	}

	// 2 members x 3 rounds = 6 sets logged in total, even though the
	// wipes left only the final round's records on the members.
	if s.TotalSetsLogged != 6 {
		t.Errorf("TotalSetsLogged = %d, want 6", s.TotalSetsLogged)
	}
	if s.TotalSetRecords() != 2 {
		t.Errorf("TotalSetRecords = %d, want 2 (final round only)", s.TotalSetRecords())
	}
}

// TestCompleteSet_SingleRoundCircuitIsLinear verifies that a circuit
// with rounds <= 1 behaves like a plain sequence, one pass.
func TestCompleteSet_SingleRoundCircuitIsLinear(t *testing.T) {
	s := startSession(t, circuitPlan(t, 1))

	res := completeSets(t, s, 1, 15)
	if res.NewRoundStarted || res.NextIndex != 1 {
		t.Fatalf("after first member: %+v", res)
	}
	res = completeSets(t, s, 1, 15)
	if res.NewRoundStarted {
		t.Fatal("single-round circuit restarted")
	}
	if res.NextIndex != 2 {
		t.Fatalf("pointer at %d, want past the group", res.NextIndex)
	}
}

// TestEditSetRecord_PureCorrection verifies that editing a record fixes
// the data without touching completion or the pointer.
func TestEditSetRecord_PureCorrection(t *testing.T) {
	p := newTestPlan()
	addExercise(t, p, "Squat")
	addExercise(t, p, "Bench")
	s := startSession(t, p)

	completeSets(t, s, 3, 10) // finishes Squat, advances to Bench
	squat := &s.Exercises[0]
	if !squat.Completed || s.CurrentExerciseIndex != 1 {
		t.Fatalf("setup: squat not completed or pointer wrong")
	}

	w := 120.0
	if err := s.EditSetRecord(squat.SessionExerciseID, 2, &w, 8); err != nil {
		t.Fatalf("EditSetRecord: %v", err)
	}
	if squat.SetRecords[1].Reps != 8 || *squat.SetRecords[1].Weight != 120.0 {
		t.Errorf("record not updated: %+v", squat.SetRecords[1])
	}
	if !squat.Completed || s.CurrentExerciseIndex != 1 {
		t.Error("edit disturbed completion state or the pointer")
	}

	if err := s.EditSetRecord(squat.SessionExerciseID, 99, &w, 8); !errors.Is(err, ErrSetRecordNotFound) {
		t.Errorf("missing set: err = %v, want ErrSetRecordNotFound", err)
	}
}

// TestDeleteSetRecord_Consistency logs 3 sets against a 3-set exercise,
// deletes the second record, and verifies the documented outcome:
// sets_completed drops to 2, completion reverts, and the survivors keep
// their original set numbers.
func TestDeleteSetRecord_Consistency(t *testing.T) {
	p := newTestPlan()
	addExercise(t, p, "Squat")
	addExercise(t, p, "Bench")
	s := startSession(t, p)

	completeSets(t, s, 3, 10)
	squat := &s.Exercises[0]

	if err := s.DeleteSetRecord(squat.SessionExerciseID, 2); err != nil {
		t.Fatalf("DeleteSetRecord: %v", err)
	}
	if squat.SetsCompleted != 2 {
		t.Errorf("SetsCompleted = %d, want 2", squat.SetsCompleted)
	}
	if squat.Completed {
		t.Error("Completed still true after dropping below target")
	}
	var nums []string
	for _, r := range squat.SetRecords {
		nums = append(nums, strconv.Itoa(r.SetNumber))
	}
	if len(nums) != 2 || nums[0] != "1" || nums[1] != "3" {
		t.Errorf("surviving set numbers = %v, want [1 3]", nums)
	}

	// The next set recorded against this exercise continues numbering
	// after the highest survivor.
	if next := nextSetNumber(squat.SetRecords); next != 4 {
		t.Errorf("nextSetNumber = %d, want 4", next)
	}
}

// TestSessionLifecycle_Transitions verifies the legal and illegal
// status transitions of the state machine.
func TestSessionLifecycle_Transitions(t *testing.T) {
	p := newTestPlan()
	addExercise(t, p, "Squat")
	s := startSession(t, p)

	if err := s.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume active: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause paused: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.Complete(true); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Complete paused: err = %v, want ErrInvalidTransition", err)
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	// Partial completion needs explicit confirmation.
	if err := s.Complete(false); !errors.Is(err, ErrSessionIncomplete) {
		t.Errorf("Complete partial: err = %v, want ErrSessionIncomplete", err)
	}
	if err := s.Complete(true); err != nil {
		t.Fatalf("Complete confirmed: %v", err)
	}
	if s.CompletedAt == nil || s.Status != SessionCompleted {
		t.Errorf("completed session not stamped: %+v", s.Status)
	}
	if err := s.Abandon(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Abandon completed: err = %v, want ErrInvalidTransition", err)
	}
}

// TestSessionAbandon_FromPaused verifies that a paused session can be
// abandoned and that the result is terminal.
func TestSessionAbandon_FromPaused(t *testing.T) {
	p := newTestPlan()
	addExercise(t, p, "Squat")
	s := startSession(t, p)

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := s.Abandon(); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if s.Status != SessionAbandoned {
		t.Errorf("Status = %s, want abandoned", s.Status)
	}
	if err := s.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume abandoned: err = %v, want ErrInvalidTransition", err)
	}
}

// TestSession_FullWorkoutRecordsEverySet walks a small but complete
// workout — one loose 2-set exercise, then a 2-round circuit of one
// 2-set exercise, then one loose 1-set exercise — and verifies that
// every one of the 7 recorded sets is accounted for by the session's
// monotonic counter even though the circuit wipe discarded member
// records.
func TestSession_FullWorkoutRecordsEverySet(t *testing.T) {
	p := newTestPlan()
	if _, err := p.AddExercise(Exercise{Name: "Row", Sets: 2, Reps: 10, WeightType: WeightBodyweight}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	ci, err := p.AddExercise(Exercise{Name: "Thruster", Sets: 2, Reps: 10, WeightType: WeightBodyweight})
	if err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	if _, err := p.CreateGroup([]string{ci.ID}, GroupCircuit, GroupSettings{Rounds: 2}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	cool, err := p.AddExercise(Exercise{Name: "Stretch", Sets: 1, Reps: 1, WeightType: WeightBodyweight})
	if err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	if _, err := p.CreateGroup([]string{cool.ID}, GroupSection, GroupSettings{}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	s := startSession(t, p)

	completeSets(t, s, 2, 10) // Row
	completeSets(t, s, 2, 10) // Thruster round 1 (wiped by the round reset)
	completeSets(t, s, 2, 10) // Thruster round 2
	completeSets(t, s, 1, 10) // Stretch

	if !s.AllExercisesCompleted() {
		t.Fatal("workout not fully completed")
	}
	if s.TotalSetsLogged != 7 {
		t.Errorf("TotalSetsLogged = %d, want 7", s.TotalSetsLogged)
	}
	if err := s.Complete(false); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}
