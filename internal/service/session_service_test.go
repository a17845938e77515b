package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- In-memory fakes ---

type fakeSessionRepo struct {
	sessions map[primitive.ObjectID]*domain.Session
	stream   []domain.SetRecord
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[primitive.ObjectID]*domain.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, s *domain.Session) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	cp := *s
	cp.ID = id
	r.sessions[id] = &cp
	return id, nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) GetActiveByAthleteID(_ context.Context, athleteID primitive.ObjectID) (*domain.Session, error) {
	for _, s := range r.sessions {
		if s.AthleteID == athleteID && (s.Status == domain.SessionActive || s.Status == domain.SessionPaused) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSessionRepo) GetByAthleteID(_ context.Context, athleteID primitive.ObjectID) ([]domain.Session, error) {
	var out []domain.Session
	for _, s := range r.sessions {
		if s.AthleteID == athleteID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *domain.Session) error {
	if _, ok := r.sessions[s.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) AppendSetRecord(_ context.Context, _ primitive.ObjectID, rec domain.SetRecord) error {
	r.stream = append(r.stream, rec)
	return nil
}

type fakeAssignmentRepo struct {
	assignments map[primitive.ObjectID]*domain.Assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: map[primitive.ObjectID]*domain.Assignment{}}
}

func (r *fakeAssignmentRepo) Create(_ context.Context, a *domain.Assignment) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	cp := *a
	cp.ID = id
	r.assignments[id] = &cp
	return id, nil
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAssignmentRepo) GetByCoachID(context.Context, primitive.ObjectID) ([]domain.Assignment, error) {
	return nil, nil
}

func (r *fakeAssignmentRepo) GetByAthleteID(context.Context, primitive.ObjectID) ([]domain.Assignment, error) {
	return nil, nil
}

func (r *fakeAssignmentRepo) Update(_ context.Context, a *domain.Assignment) error {
	if _, ok := r.assignments[a.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	r.assignments[a.ID] = &cp
	return nil
}

func (r *fakeAssignmentRepo) SetStatus(_ context.Context, id primitive.ObjectID, status domain.AssignmentStatus) error {
	a, ok := r.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	return nil
}

func (r *fakeAssignmentRepo) MarkMissed(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakePlanRepo struct {
	plans map[primitive.ObjectID]*domain.Plan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: map[primitive.ObjectID]*domain.Plan{}}
}

func (r *fakePlanRepo) Create(_ context.Context, p *domain.Plan) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	cp := *p
	cp.ID = id
	r.plans[id] = &cp
	return id, nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePlanRepo) GetByCoachID(context.Context, primitive.ObjectID) ([]domain.Plan, error) {
	return nil, nil
}

func (r *fakePlanRepo) Update(_ context.Context, p *domain.Plan) error {
	if _, ok := r.plans[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	r.plans[p.ID] = &cp
	return nil
}

func (r *fakePlanRepo) Delete(_ context.Context, id, _ primitive.ObjectID) error {
	delete(r.plans, id)
	return nil
}

type fakeRecordRepo struct {
	best map[string]*domain.PersonalRecord // athlete+name
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{best: map[string]*domain.PersonalRecord{}}
}

func recordKey(athleteID primitive.ObjectID, name string) string {
	return athleteID.Hex() + "/" + name
}

func (r *fakeRecordRepo) GetBest(_ context.Context, athleteID primitive.ObjectID, name string) (*domain.PersonalRecord, error) {
	rec, ok := r.best[recordKey(athleteID, name)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRecordRepo) Upsert(_ context.Context, rec *domain.PersonalRecord) error {
	cp := *rec
	r.best[recordKey(rec.AthleteID, rec.ExerciseName)] = &cp
	return nil
}

func (r *fakeRecordRepo) GetByAthleteID(_ context.Context, athleteID primitive.ObjectID) ([]domain.PersonalRecord, error) {
	var out []domain.PersonalRecord
	for _, rec := range r.best {
		if rec.AthleteID == athleteID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// fakeArchive records archived keys; PutArchive signals done so tests
// can wait for the background goroutine.
type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	done chan struct{}
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{done: make(chan struct{}, 4)}
}

func (a *fakeArchive) PutArchive(_ context.Context, key string, _ []byte) error {
	a.mu.Lock()
	a.keys = append(a.keys, key)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeArchive) GetArchive(context.Context, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (a *fakeArchive) DeleteArchive(context.Context, string) error { return nil }

// --- Fixtures ---

type sessionFixture struct {
	svc          SessionService
	sessionRepo  *fakeSessionRepo
	assignRepo   *fakeAssignmentRepo
	archive      *fakeArchive
	athleteID    primitive.ObjectID
	assignmentID primitive.ObjectID
}

// newSessionFixture stores a three-set bench plan assigned to one
// athlete and wires a session service over in-memory repositories.
func newSessionFixture(t *testing.T, mods []domain.Modification) *sessionFixture {
	t.Helper()
	ctx := context.Background()

	planRepo := newFakePlanRepo()
	plan := &domain.Plan{Name: "Bench Day", CoachID: primitive.NewObjectID()}
	w := 60.0
	if _, err := plan.AddExercise(domain.Exercise{
		Name: "Bench Press", Sets: 3, Reps: 10,
		WeightType: domain.WeightFixed, Weight: &w,
	}); err != nil {
		t.Fatalf("AddExercise: %v", err)
	}
	planID, err := planRepo.Create(ctx, plan)
	if err != nil {
		t.Fatalf("plan Create: %v", err)
	}

	athleteID := primitive.NewObjectID()
	assignRepo := newFakeAssignmentRepo()
	assignmentID, err := assignRepo.Create(ctx, &domain.Assignment{
		PlanID:        planID,
		CoachID:       plan.CoachID,
		TargetType:    domain.TargetIndividual,
		AthleteID:     &athleteID,
		Status:        domain.AssignmentAssigned,
		Modifications: mods,
	})
	if err != nil {
		t.Fatalf("assignment Create: %v", err)
	}

	sessionRepo := newFakeSessionRepo()
	archive := newFakeArchive()
	records := NewRecordService(newFakeRecordRepo())
	svc := NewSessionService(sessionRepo, assignRepo, planRepo, records, archive)

	return &sessionFixture{
		svc:          svc,
		sessionRepo:  sessionRepo,
		assignRepo:   assignRepo,
		archive:      archive,
		athleteID:    athleteID,
		assignmentID: assignmentID,
	}
}

// --- Tests ---

// TestStartSession_AppliesAssignmentModifications verifies that the
// projected session reflects the athlete's overrides.
func TestStartSession_AppliesAssignmentModifications(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, nil)

	// The fixture needs the exercise id for the modification, so fetch
	// the plan back through a first projection.
	session, err := f.svc.StartSession(ctx, f.athleteID, f.assignmentID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	exerciseID := session.Exercises[0].ExerciseID
	if _, err := f.svc.AbandonSession(ctx, f.athleteID, session.ID); err != nil {
		t.Fatalf("AbandonSession: %v", err)
	}

	a, _ := f.assignRepo.GetByID(ctx, f.assignmentID)
	a.Modifications = []domain.Modification{
		{ID: "m1", AthleteID: f.athleteID, ExerciseID: exerciseID, Type: domain.ModifySets, NewValue: "5"},
	}
	if err := f.assignRepo.Update(ctx, a); err != nil {
		t.Fatalf("assignment Update: %v", err)
	}

	session, err = f.svc.StartSession(ctx, f.athleteID, f.assignmentID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if got := session.Exercises[0].SetsTarget; got != 5 {
		t.Errorf("SetsTarget = %d, want the overridden 5", got)
	}
}

// TestStartSession_OneActiveSessionPerAthlete verifies that a second
// start while one session is live is rejected, and allowed again after
// the first finishes.
func TestStartSession_OneActiveSessionPerAthlete(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, nil)

	first, err := f.svc.StartSession(ctx, f.athleteID, f.assignmentID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := f.svc.StartSession(ctx, f.athleteID, f.assignmentID); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("second start: err = %v, want ErrSessionAlreadyActive", err)
	}

	// A paused session still counts as live.
	if _, err := f.svc.PauseSession(ctx, f.athleteID, first.ID); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}
	if _, err := f.svc.StartSession(ctx, f.athleteID, f.assignmentID); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("start while paused: err = %v, want ErrSessionAlreadyActive", err)
	}

	if _, err := f.svc.AbandonSession(ctx, f.athleteID, first.ID); err != nil {
		t.Fatalf("AbandonSession: %v", err)
	}
	if _, err := f.svc.StartSession(ctx, f.athleteID, f.assignmentID); err != nil {
		t.Fatalf("start after abandon: %v", err)
	}
}

// TestStartSession_RejectsForeignAssignment verifies that an athlete
// cannot start someone else's assignment.
func TestStartSession_RejectsForeignAssignment(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, nil)

	stranger := primitive.NewObjectID()
	if _, err := f.svc.StartSession(ctx, stranger, f.assignmentID); !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("err = %v, want ErrNotAssigned", err)
	}
}

// TestCompleteSet_PersistsAndMirrorsRecords verifies that each set is
// durably applied to the stored session, mirrored into the record
// stream, and that a weighted first effort comes back flagged as a PR.
func TestCompleteSet_PersistsAndMirrorsRecords(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, nil)

	session, err := f.svc.StartSession(ctx, f.athleteID, f.assignmentID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	w := 60.0
	res, err := f.svc.CompleteSet(ctx, f.athleteID, session.ID, &w, 10, nil)
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if res.PR == nil || !res.PR.IsPR {
		t.Errorf("first weighted effort not flagged as PR: %+v", res.PR)
	}

	stored, err := f.svc.GetSession(ctx, f.athleteID, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Exercises[0].SetsCompleted != 1 || stored.TotalSetsLogged != 1 {
		t.Errorf("stored session not updated: completed=%d logged=%d",
			stored.Exercises[0].SetsCompleted, stored.TotalSetsLogged)
	}
	if len(f.sessionRepo.stream) != 1 {
		t.Errorf("record stream holds %d records, want 1", len(f.sessionRepo.stream))
	}

	// Matching the standing best is not a PR; only beating it is.
	res, err = f.svc.CompleteSet(ctx, f.athleteID, session.ID, &w, 10, nil)
	if err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if res.PR == nil || res.PR.IsPR {
		t.Errorf("equal effort flagged as PR: %+v", res.PR)
	}
}

// TestCompleteSession_FlipsAssignmentAndArchives verifies the finish
// path: assignment flips to completed and the session lands in the
// archive under the athlete's prefix.
func TestCompleteSession_FlipsAssignmentAndArchives(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, nil)

	session, err := f.svc.StartSession(ctx, f.athleteID, f.assignmentID)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.svc.CompleteSet(ctx, f.athleteID, session.ID, nil, 10, nil); err != nil {
			t.Fatalf("CompleteSet %d: %v", i, err)
		}
	}

	done, err := f.svc.CompleteSession(ctx, f.athleteID, session.ID, false)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if done.Status != domain.SessionCompleted {
		t.Errorf("Status = %s, want completed", done.Status)
	}

	a, _ := f.assignRepo.GetByID(ctx, f.assignmentID)
	if a.Status != domain.AssignmentCompleted {
		t.Errorf("assignment status = %s, want completed", a.Status)
	}

	<-f.archive.done
	f.archive.mu.Lock()
	defer f.archive.mu.Unlock()
	want := "sessions/" + f.athleteID.Hex() + "/" + session.ID.Hex() + ".json"
	if len(f.archive.keys) != 1 || f.archive.keys[0] != want {
		t.Errorf("archive keys = %v, want [%s]", f.archive.keys, want)
	}
}

// TestRecordService_CheckAndRecord verifies the PR lifecycle: first
// effort, improvement, and a regression that leaves the best standing.
func TestRecordService_CheckAndRecord(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRecordRepo()
	svc := NewRecordService(repo)
	athleteID := primitive.NewObjectID()

	res, err := svc.CheckAndRecord(ctx, athleteID, "Deadlift", 100, 5)
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if !res.IsPR || res.PreviousBest != nil {
		t.Errorf("first effort: %+v, want fresh PR", res)
	}

	// Higher estimated 1RM beats it, even at lower absolute weight.
	res, err = svc.CheckAndRecord(ctx, athleteID, "Deadlift", 95, 10)
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if !res.IsPR {
		t.Errorf("improvement not flagged: %+v", res)
	}
	if res.PreviousBest == nil || res.PreviousBest.Weight != 100 {
		t.Errorf("PreviousBest = %+v, want the 100x5 effort", res.PreviousBest)
	}

	// A weaker effort leaves the record alone.
	res, err = svc.CheckAndRecord(ctx, athleteID, "Deadlift", 80, 5)
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if res.IsPR {
		t.Errorf("regression flagged as PR: %+v", res)
	}
	best, err := repo.GetBest(ctx, athleteID, "Deadlift")
	if err != nil {
		t.Fatalf("GetBest: %v", err)
	}
	if best.Weight != 95 || best.Reps != 10 {
		t.Errorf("standing best = %+v, want 95x10", best)
	}
}
