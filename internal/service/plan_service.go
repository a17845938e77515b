package service

import (
	"context"
	"errors"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound     = errors.New("plan not found")
	ErrPlanAccessDenied = errors.New("access denied to modify this plan")
)

// PlanService orchestrates plan authoring. Every mutation follows the
// same shape: load the plan, apply the in-memory domain operation,
// replace the document. The domain operation either fully applies or
// fully rejects, and a failed save leaves the stored plan untouched, so
// there is never a half-written state to roll back.
type PlanService interface {
	CreatePlan(ctx context.Context, coachID primitive.ObjectID, name, description string) (*domain.Plan, error)
	GetPlan(ctx context.Context, planID primitive.ObjectID) (*domain.Plan, error)
	GetPlansByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Plan, error)
	UpdatePlanMeta(ctx context.Context, coachID, planID primitive.ObjectID, name, description string, estimatedDuration int) (*domain.Plan, error)
	DeletePlan(ctx context.Context, coachID, planID primitive.ObjectID) error

	AddExercise(ctx context.Context, coachID, planID primitive.ObjectID, e domain.Exercise) (*domain.Plan, error)
	UpdateExercise(ctx context.Context, coachID, planID primitive.ObjectID, e domain.Exercise) (*domain.Plan, error)
	DeleteExercise(ctx context.Context, coachID, planID primitive.ObjectID, exerciseID string) (*domain.Plan, error)
	MoveExercise(ctx context.Context, coachID, planID primitive.ObjectID, exerciseID string, dir domain.MoveDirection) (*domain.Plan, error)
	CreateGroup(ctx context.Context, coachID, planID primitive.ObjectID, exerciseIDs []string, typ domain.GroupType, settings domain.GroupSettings) (*domain.Plan, error)
	UpdateGroup(ctx context.Context, coachID, planID primitive.ObjectID, g domain.ExerciseGroup) (*domain.Plan, error)
	DeleteGroup(ctx context.Context, coachID, planID primitive.ObjectID, groupID string) (*domain.Plan, error)
	MoveExerciseToGroup(ctx context.Context, coachID, planID primitive.ObjectID, exerciseID string, targetGroupID *string) (*domain.Plan, error)
}

type planService struct {
	planRepo repository.PlanRepository
	estimate domain.DurationEstimator
}

// NewPlanService creates a new instance of planService.
func NewPlanService(planRepo repository.PlanRepository) PlanService {
	return &planService{
		planRepo: planRepo,
		estimate: domain.EstimateDuration,
	}
}

// CreatePlan creates an empty plan shell for a coach to fill.
func (s *planService) CreatePlan(ctx context.Context, coachID primitive.ObjectID, name, description string) (*domain.Plan, error) {
	if name == "" {
		return nil, domain.ErrPlanValidation
	}
	plan := &domain.Plan{
		CoachID:        coachID,
		Name:           name,
		Description:    description,
		Exercises:      []domain.Exercise{},
		Groups:         []domain.ExerciseGroup{},
		BlockInstances: []domain.BlockInstance{},
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	return s.planRepo.GetByID(ctx, planID)
}

// GetPlan retrieves a single plan.
func (s *planService) GetPlan(ctx context.Context, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return plan, nil
}

// GetPlansByCoach lists a coach's plans.
func (s *planService) GetPlansByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.Plan, error) {
	return s.planRepo.GetByCoachID(ctx, coachID)
}

// UpdatePlanMeta edits name/description and the authored duration. A
// zero estimatedDuration re-derives it from the exercise list.
func (s *planService) UpdatePlanMeta(ctx context.Context, coachID, planID primitive.ObjectID, name, description string, estimatedDuration int) (*domain.Plan, error) {
	if name == "" {
		return nil, domain.ErrPlanValidation
	}
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		plan.Name = name
		plan.Description = description
		if estimatedDuration > 0 {
			plan.EstimatedDuration = estimatedDuration
		} else {
			plan.EstimatedDuration = s.estimate(plan.Exercises)
		}
		return nil
	})
}

// DeletePlan removes a plan, ensuring the coach owns it.
func (s *planService) DeletePlan(ctx context.Context, coachID, planID primitive.ObjectID) error {
	err := s.planRepo.Delete(ctx, planID, coachID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPlanNotFound
	}
	return err
}

// mutate is the load-apply-save backbone of every plan operation.
func (s *planService) mutate(ctx context.Context, coachID, planID primitive.ObjectID, op func(*domain.Plan) error) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.CoachID != coachID {
		return nil, ErrPlanAccessDenied
	}
	if err := op(plan); err != nil {
		return nil, err
	}
	plan.EstimatedDuration = s.estimate(plan.Exercises)
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *planService) AddExercise(ctx context.Context, coachID, planID primitive.ObjectID, e domain.Exercise) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		_, err := plan.AddExercise(e)
		return err
	})
}

func (s *planService) UpdateExercise(ctx context.Context, coachID, planID primitive.ObjectID, e domain.Exercise) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		_, err := plan.UpdateExercise(e)
		return err
	})
}

func (s *planService) DeleteExercise(ctx context.Context, coachID, planID primitive.ObjectID, exerciseID string) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		return plan.DeleteExercise(exerciseID)
	})
}

func (s *planService) MoveExercise(ctx context.Context, coachID, planID primitive.ObjectID, exerciseID string, dir domain.MoveDirection) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		return plan.MoveExercise(exerciseID, dir)
	})
}

func (s *planService) CreateGroup(ctx context.Context, coachID, planID primitive.ObjectID, exerciseIDs []string, typ domain.GroupType, settings domain.GroupSettings) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		_, err := plan.CreateGroup(exerciseIDs, typ, settings)
		return err
	})
}

func (s *planService) UpdateGroup(ctx context.Context, coachID, planID primitive.ObjectID, g domain.ExerciseGroup) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		_, err := plan.UpdateGroup(g)
		return err
	})
}

func (s *planService) DeleteGroup(ctx context.Context, coachID, planID primitive.ObjectID, groupID string) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		return plan.DeleteGroup(groupID)
	})
}

func (s *planService) MoveExerciseToGroup(ctx context.Context, coachID, planID primitive.ObjectID, exerciseID string, targetGroupID *string) (*domain.Plan, error) {
	return s.mutate(ctx, coachID, planID, func(plan *domain.Plan) error {
		return plan.MoveExerciseToGroup(exerciseID, targetGroupID)
	})
}
