package service

import (
	"context"
	"errors"
	"log"
	"time"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAssignmentNotFound     = errors.New("assignment not found")
	ErrAssignmentAccessDenied = errors.New("access denied to modify this assignment")
	ErrAthleteGroupNotFound   = errors.New("athlete group not found")
	ErrModificationNotFound   = errors.New("modification not found")
)

// AssignmentService schedules plans to athletes and carries the
// per-athlete modification layer. Modifications never touch the plan;
// they ride on the assignment and are folded in at session start.
type AssignmentService interface {
	AssignToAthlete(ctx context.Context, coachID, planID, athleteID primitive.ObjectID, scheduledAt time.Time, location, notes string) (*domain.Assignment, error)
	// AssignToGroup fans one plan out to every member of an athlete
	// group, producing one assignment per athlete plus a group-level
	// marker assignment for the coach's calendar.
	AssignToGroup(ctx context.Context, coachID, planID, groupID primitive.ObjectID, scheduledAt time.Time, location, notes string) ([]domain.Assignment, error)
	GetAssignment(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error)
	GetAssignmentsByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Assignment, error)
	GetAssignmentsByAthlete(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Assignment, error)

	AddModification(ctx context.Context, coachID, assignmentID primitive.ObjectID, m domain.Modification) (*domain.Assignment, error)
	RemoveModification(ctx context.Context, coachID, assignmentID primitive.ObjectID, modificationID string) (*domain.Assignment, error)

	// SweepMissed marks overdue assignments; wired to the cron job.
	SweepMissed(ctx context.Context, grace time.Duration) (int64, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	planRepo       repository.PlanRepository
	userRepo       repository.UserRepository
	groupRepo      repository.AthleteGroupRepository
}

// NewAssignmentService creates a new instance of assignmentService.
func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	groupRepo repository.AthleteGroupRepository,
) AssignmentService {
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		planRepo:       planRepo,
		userRepo:       userRepo,
		groupRepo:      groupRepo,
	}
}

// AssignToAthlete schedules one plan for one athlete.
func (s *assignmentService) AssignToAthlete(ctx context.Context, coachID, planID, athleteID primitive.ObjectID, scheduledAt time.Time, location, notes string) (*domain.Assignment, error) {
	if err := s.checkPlanOwnership(ctx, coachID, planID); err != nil {
		return nil, err
	}
	a := &domain.Assignment{
		PlanID:      planID,
		CoachID:     coachID,
		TargetType:  domain.TargetIndividual,
		AthleteID:   &athleteID,
		ScheduledAt: scheduledAt.UTC(),
		Location:    location,
		Notes:       notes,
		Status:      domain.AssignmentAssigned,
	}
	id, err := s.assignmentRepo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	a.ID = id
	return a, nil
}

// AssignToGroup fans a plan out to a roster.
func (s *assignmentService) AssignToGroup(ctx context.Context, coachID, planID, groupID primitive.ObjectID, scheduledAt time.Time, location, notes string) ([]domain.Assignment, error) {
	if err := s.checkPlanOwnership(ctx, coachID, planID); err != nil {
		return nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteGroupNotFound
		}
		return nil, err
	}
	if group.CoachID != coachID {
		return nil, ErrAssignmentAccessDenied
	}

	var created []domain.Assignment
	for _, athleteID := range group.AthleteIDs {
		aid := athleteID
		a := &domain.Assignment{
			PlanID:         planID,
			CoachID:        coachID,
			TargetType:     domain.TargetGroup,
			AthleteID:      &aid,
			AthleteGroupID: &groupID,
			ScheduledAt:    scheduledAt.UTC(),
			Location:       location,
			Notes:          notes,
			Status:         domain.AssignmentAssigned,
		}
		id, err := s.assignmentRepo.Create(ctx, a)
		if err != nil {
			// Partial fan-out: report, keep what was created. The
			// coach retries; creation is idempotent per athlete from
			// their point of view.
			log.Printf("WARN: group assignment fan-out failed for athlete %s: %v", aid.Hex(), err)
			return created, err
		}
		a.ID = id
		created = append(created, *a)
	}
	return created, nil
}

// GetAssignment retrieves one assignment.
func (s *assignmentService) GetAssignment(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// GetAssignmentsByCoach lists a coach's assignments.
func (s *assignmentService) GetAssignmentsByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Assignment, error) {
	return s.assignmentRepo.GetByCoachID(ctx, coachID)
}

// GetAssignmentsByAthlete lists an athlete's assignments.
func (s *assignmentService) GetAssignmentsByAthlete(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Assignment, error) {
	return s.assignmentRepo.GetByAthleteID(ctx, athleteID)
}

// AddModification attaches a per-athlete override to an assignment.
func (s *assignmentService) AddModification(ctx context.Context, coachID, assignmentID primitive.ObjectID, m domain.Modification) (*domain.Assignment, error) {
	a, err := s.loadOwnedAssignment(ctx, coachID, assignmentID)
	if err != nil {
		return nil, err
	}
	if m.ExerciseID == "" || m.NewValue == "" {
		return nil, errors.New("modification exercise ID and new value are required")
	}
	switch m.Type {
	case domain.ModifySets, domain.ModifyReps, domain.ModifyWeight, domain.ModifyExercise:
	default:
		return nil, errors.New("unknown modification type")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	a.Modifications = append(a.Modifications, m)
	if err := s.assignmentRepo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RemoveModification deletes one override.
func (s *assignmentService) RemoveModification(ctx context.Context, coachID, assignmentID primitive.ObjectID, modificationID string) (*domain.Assignment, error) {
	a, err := s.loadOwnedAssignment(ctx, coachID, assignmentID)
	if err != nil {
		return nil, err
	}
	found := false
	kept := a.Modifications[:0]
	for _, m := range a.Modifications {
		if m.ID == modificationID {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return nil, ErrModificationNotFound
	}
	a.Modifications = kept
	if err := s.assignmentRepo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SweepMissed marks assignments whose scheduled time is more than the
// grace period in the past and that never produced a completed session.
func (s *assignmentService) SweepMissed(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-grace)
	return s.assignmentRepo.MarkMissed(ctx, cutoff)
}

func (s *assignmentService) checkPlanOwnership(ctx context.Context, coachID, planID primitive.ObjectID) error {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	if plan.CoachID != coachID {
		return ErrPlanAccessDenied
	}
	return nil
}

func (s *assignmentService) loadOwnedAssignment(ctx context.Context, coachID, assignmentID primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if a.CoachID != coachID {
		return nil, ErrAssignmentAccessDenied
	}
	return a, nil
}
