package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func newTestPlan() *Plan {
	return &Plan{Name: "Push Day"}
}

func addExercise(t *testing.T, p *Plan, name string) *Exercise {
	t.Helper()
	e, err := p.AddExercise(Exercise{Name: name, Sets: 3, Reps: 10, WeightType: WeightBodyweight})
	if err != nil {
		t.Fatalf("AddExercise(%q): %v", name, err)
	}
	return e
}

// assertDenseOrder verifies that the given exercise ids appear in the
// plan with Order values 1..N in exactly the given sequence.
func assertDenseOrder(t *testing.T, p *Plan, ids []string) {
	t.Helper()
	for n, id := range ids {
		i := p.findExercise(id)
		if i < 0 {
			t.Fatalf("exercise %s missing from plan", id)
		}
		if got, want := p.Exercises[i].Order, n+1; got != want {
			t.Errorf("exercise %s: Order = %d, want %d", id, got, want)
		}
	}
}

// TestAddExercise_AssignsDenseOrder verifies that appended exercises
// receive identities and consecutive 1..N orders.
func TestAddExercise_AssignsDenseOrder(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "Bench Press")
	b := addExercise(t, p, "Overhead Press")
	c := addExercise(t, p, "Dips")

	if a.ID == "" || b.ID == "" || c.ID == "" {
		t.Fatal("expected generated exercise ids")
	}
	assertDenseOrder(t, p, []string{a.ID, b.ID, c.ID})
}

// TestAddExercise_RejectsInvalidPrescription verifies that a missing
// name or non-positive sets/reps is rejected up front.
func TestAddExercise_RejectsInvalidPrescription(t *testing.T) {
	p := newTestPlan()
	cases := []Exercise{
		{Name: "", Sets: 3, Reps: 10},
		{Name: "Squat", Sets: 0, Reps: 10},
		{Name: "Squat", Sets: 3, Reps: 0},
	}
	for _, e := range cases {
		if _, err := p.AddExercise(e); !errors.Is(err, ErrPlanValidation) {
			t.Errorf("AddExercise(%+v): err = %v, want ErrPlanValidation", e, err)
		}
	}
}

// TestNormalizeLoad_Exclusivity verifies that exactly the load field
// selected by WeightType survives normalization.
func TestNormalizeLoad_Exclusivity(t *testing.T) {
	w := 100.0
	pct := 80.0

	e := Exercise{WeightType: WeightFixed, Weight: &w, Percentage: &pct}
	e.NormalizeLoad()
	if e.Weight == nil || e.Percentage != nil {
		t.Errorf("fixed: Weight=%v Percentage=%v, want weight only", e.Weight, e.Percentage)
	}

	e = Exercise{WeightType: WeightPercentage, Weight: &w, Percentage: &pct}
	e.NormalizeLoad()
	if e.Weight != nil || e.Percentage == nil {
		t.Errorf("percentage: Weight=%v Percentage=%v, want percentage only", e.Weight, e.Percentage)
	}

	e = Exercise{WeightType: WeightBodyweight, Weight: &w, Percentage: &pct}
	e.NormalizeLoad()
	if e.Weight != nil || e.Percentage != nil {
		t.Errorf("bodyweight: Weight=%v Percentage=%v, want neither", e.Weight, e.Percentage)
	}
}

// TestDeleteExercise_ClosesOrderGap verifies that deleting from the
// middle renumbers the survivors densely.
func TestDeleteExercise_ClosesOrderGap(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "A")
	b := addExercise(t, p, "B")
	c := addExercise(t, p, "C")

	if err := p.DeleteExercise(b.ID); err != nil {
		t.Fatalf("DeleteExercise: %v", err)
	}
	assertDenseOrder(t, p, []string{a.ID, c.ID})
}

// TestMoveExercise_SwapsNeighbours verifies up/down swaps and that a
// move at the boundary is a silent no-op.
func TestMoveExercise_SwapsNeighbours(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "A")
	b := addExercise(t, p, "B")
	c := addExercise(t, p, "C")

	if err := p.MoveExercise(b.ID, MoveUp); err != nil {
		t.Fatalf("MoveExercise up: %v", err)
	}
	assertDenseOrder(t, p, []string{b.ID, a.ID, c.ID})

	// b is now first; up again must not move anything.
	if err := p.MoveExercise(b.ID, MoveUp); err != nil {
		t.Fatalf("MoveExercise at boundary: %v", err)
	}
	assertDenseOrder(t, p, []string{b.ID, a.ID, c.ID})

	if err := p.MoveExercise(a.ID, MoveDown); err != nil {
		t.Fatalf("MoveExercise down: %v", err)
	}
	assertDenseOrder(t, p, []string{b.ID, c.ID, a.ID})
}

// TestCreateGroup_MembersRenumbered verifies that grouped exercises get
// orders 1..N in the nominated sequence and the scope they left is
// compacted.
func TestCreateGroup_MembersRenumbered(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "A")
	b := addExercise(t, p, "B")
	c := addExercise(t, p, "C")
	d := addExercise(t, p, "D")

	g, err := p.CreateGroup([]string{c.ID, a.ID}, GroupSuperset, GroupSettings{Name: "AC"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	assertDenseOrder(t, p, []string{c.ID, a.ID})
	assertDenseOrder(t, p, []string{b.ID, d.ID})

	members := p.GroupMembers(g.ID)
	if len(members) != 2 || members[0].ID != c.ID || members[1].ID != a.ID {
		t.Fatalf("GroupMembers = %v, want [C A]", members)
	}
}

// TestCreateGroup_RejectsCrossBlockMembers verifies that exercises from
// different block scopes cannot be clustered into one group.
func TestCreateGroup_RejectsCrossBlockMembers(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "Loose")

	tpl := &BlockTemplate{
		Name:      "Warmup",
		Exercises: []Exercise{{ID: "t1", Name: "Jumping Jacks", Sets: 1, Reps: 20, WeightType: WeightBodyweight, Order: 1}},
	}
	inst, err := p.InsertBlockInstance(tpl)
	if err != nil {
		t.Fatalf("InsertBlockInstance: %v", err)
	}
	inBlock := p.InstanceExercises(inst.ID)[0]

	_, err = p.CreateGroup([]string{a.ID, inBlock.ID}, GroupSuperset, GroupSettings{})
	if !errors.Is(err, ErrPlanValidation) {
		t.Fatalf("CreateGroup across scopes: err = %v, want ErrPlanValidation", err)
	}
}

// TestDeleteGroup_MembersSurviveUngrouped verifies that dissolving a
// group appends its members after the target scope's existing rows and
// leaves no dangling GroupID.
func TestDeleteGroup_MembersSurviveUngrouped(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "A")
	b := addExercise(t, p, "B")
	c := addExercise(t, p, "C")

	g, err := p.CreateGroup([]string{b.ID, c.ID}, GroupCircuit, GroupSettings{Rounds: 3})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := p.DeleteGroup(g.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	// Former members land after A, in their group order.
	assertDenseOrder(t, p, []string{a.ID, b.ID, c.ID})
	for i := range p.Exercises {
		if p.Exercises[i].GroupID != nil {
			t.Errorf("exercise %s still references deleted group", p.Exercises[i].ID)
		}
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate after DeleteGroup: %v", err)
	}
}

// TestMoveExerciseToGroup_LandsLast verifies that a moved exercise is
// appended at the end of the target group and both scopes stay dense.
func TestMoveExerciseToGroup_LandsLast(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "A")
	b := addExercise(t, p, "B")
	c := addExercise(t, p, "C")

	g, err := p.CreateGroup([]string{a.ID}, GroupSuperset, GroupSettings{})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := p.MoveExerciseToGroup(c.ID, &g.ID); err != nil {
		t.Fatalf("MoveExerciseToGroup: %v", err)
	}

	assertDenseOrder(t, p, []string{a.ID, c.ID})
	assertDenseOrder(t, p, []string{b.ID})

	// And back out again: ungrouping appends after the top-level rows.
	if err := p.MoveExerciseToGroup(c.ID, nil); err != nil {
		t.Fatalf("MoveExerciseToGroup(nil): %v", err)
	}
	assertDenseOrder(t, p, []string{b.ID, c.ID})
}

// TestMoveExerciseToGroup_RejectsCrossScope verifies that a group
// inside a block instance cannot adopt a top-level exercise.
func TestMoveExerciseToGroup_RejectsCrossScope(t *testing.T) {
	p := newTestPlan()
	loose := addExercise(t, p, "Loose")

	gid := "tg"
	tpl := &BlockTemplate{
		Name:   "Block",
		Groups: []ExerciseGroup{{ID: gid, Type: GroupSuperset, Order: 1}},
		Exercises: []Exercise{
			{ID: "t1", Name: "Row", Sets: 3, Reps: 8, WeightType: WeightBodyweight, GroupID: &gid, Order: 1},
		},
	}
	inst, err := p.InsertBlockInstance(tpl)
	if err != nil {
		t.Fatalf("InsertBlockInstance: %v", err)
	}
	cloned := p.InstanceGroups(inst.ID)[0]

	err = p.MoveExerciseToGroup(loose.ID, &cloned.ID)
	if !errors.Is(err, ErrCrossScopeMove) {
		t.Fatalf("MoveExerciseToGroup: err = %v, want ErrCrossScopeMove", err)
	}
}

// TestPlan_JSONRoundTrip verifies that serializing and re-parsing a
// plan with groups and a block instance reproduces the same structure,
// since membership lives in back-references rather than nesting.
func TestPlan_JSONRoundTrip(t *testing.T) {
	p := newTestPlan()
	a := addExercise(t, p, "A")
	b := addExercise(t, p, "B")
	if _, err := p.CreateGroup([]string{a.ID, b.ID}, GroupCircuit, GroupSettings{Rounds: 2}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Plan
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(back.Exercises) != len(p.Exercises) || len(back.Groups) != len(p.Groups) {
		t.Fatalf("round trip changed shape: %d/%d exercises, %d/%d groups",
			len(back.Exercises), len(p.Exercises), len(back.Groups), len(p.Groups))
	}
	for i := range p.Exercises {
		if !back.Exercises[i].PrescriptionEquals(p.Exercises[i]) {
			t.Errorf("exercise %d changed across round trip", i)
		}
		if !strPtrEqual(back.Exercises[i].GroupID, p.Exercises[i].GroupID) {
			t.Errorf("exercise %d lost its group reference", i)
		}
	}
	if err := back.Validate(); err != nil {
		t.Errorf("Validate after round trip: %v", err)
	}
}
