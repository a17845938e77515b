package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrTemplateNotFound     = errors.New("block template not found")
	ErrTemplateAccessDenied = errors.New("access denied to modify this template")
	ErrInstanceNotInPlan    = errors.New("block instance not found in plan")
)

// TemplateService owns the block template library and everything that
// happens where templates meet plans: inserting an instance, saving an
// instance (which recomputes its customization record), and resetting
// an instance back to its template.
type TemplateService interface {
	CreateTemplate(ctx context.Context, tpl domain.BlockTemplate) (*domain.BlockTemplate, error)
	GetTemplate(ctx context.Context, templateID primitive.ObjectID) (*domain.BlockTemplate, error)
	GetTemplatesByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.BlockTemplate, error)
	UpdateTemplate(ctx context.Context, tpl domain.BlockTemplate) (*domain.BlockTemplate, error)
	DeleteTemplate(ctx context.Context, coachID, templateID primitive.ObjectID) error
	SetFavorite(ctx context.Context, coachID, templateID primitive.ObjectID, favorite bool) error

	InsertIntoPlan(ctx context.Context, coachID, planID, templateID primitive.ObjectID) (*domain.Plan, error)
	// SaveInstance recomputes the instance's customizations and the
	// plan's estimated duration after the coach edited instance content.
	SaveInstance(ctx context.Context, coachID, planID primitive.ObjectID, instanceID string, notes, instanceName string) (*domain.Plan, error)
	// ResetInstance is the destructive reset-to-template. Callers must
	// have collected explicit user confirmation; there is no undo.
	ResetInstance(ctx context.Context, coachID, planID primitive.ObjectID, instanceID string) (*domain.Plan, error)
	// DescribeInstanceDiff renders a human-readable summary of how an
	// instance diverged from its template.
	DescribeInstanceDiff(ctx context.Context, planID primitive.ObjectID, instanceID string) (string, error)
}

type templateService struct {
	templateRepo repository.BlockTemplateRepository
	planRepo     repository.PlanRepository
}

// NewTemplateService creates a new instance of templateService.
func NewTemplateService(templateRepo repository.BlockTemplateRepository, planRepo repository.PlanRepository) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		planRepo:     planRepo,
	}
}

// CreateTemplate validates and stores a new library block.
func (s *templateService) CreateTemplate(ctx context.Context, tpl domain.BlockTemplate) (*domain.BlockTemplate, error) {
	if tpl.Name == "" {
		return nil, errors.New("template name is required")
	}
	if len(tpl.Exercises) == 0 {
		return nil, errors.New("a block template needs at least one exercise")
	}
	for i := range tpl.Exercises {
		tpl.Exercises[i].NormalizeLoad()
	}
	for i := range tpl.Groups {
		tpl.Groups[i].Normalize()
	}
	if tpl.Category == "" {
		tpl.Category = domain.BlockCustom
	}
	id, err := s.templateRepo.Create(ctx, &tpl)
	if err != nil {
		return nil, err
	}
	return s.templateRepo.GetByID(ctx, id)
}

// GetTemplate fetches one template; this is also the template-fetch
// collaborator used by reset-to-template.
func (s *templateService) GetTemplate(ctx context.Context, templateID primitive.ObjectID) (*domain.BlockTemplate, error) {
	tpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// GetTemplatesByCoach lists the coach's library for the browser.
func (s *templateService) GetTemplatesByCoach(ctx context.Context, coachID primitive.ObjectID) ([]domain.BlockTemplate, error) {
	return s.templateRepo.GetByCoachID(ctx, coachID)
}

// UpdateTemplate applies an explicit authoring edit. Existing plan
// instances are untouched; their divergence shows up as customizations
// the next time each instance is saved.
func (s *templateService) UpdateTemplate(ctx context.Context, tpl domain.BlockTemplate) (*domain.BlockTemplate, error) {
	existing, err := s.templateRepo.GetByID(ctx, tpl.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if existing.CoachID != tpl.CoachID {
		return nil, ErrTemplateAccessDenied
	}
	if tpl.Name == "" || len(tpl.Exercises) == 0 {
		return nil, errors.New("template name and at least one exercise are required")
	}
	for i := range tpl.Exercises {
		tpl.Exercises[i].NormalizeLoad()
	}
	for i := range tpl.Groups {
		tpl.Groups[i].Normalize()
	}
	tpl.UsageCount = existing.UsageCount
	tpl.LastUsed = existing.LastUsed
	tpl.CreatedAt = existing.CreatedAt
	if err := s.templateRepo.Update(ctx, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// DeleteTemplate removes a template from the library.
func (s *templateService) DeleteTemplate(ctx context.Context, coachID, templateID primitive.ObjectID) error {
	err := s.templateRepo.Delete(ctx, templateID, coachID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

// SetFavorite toggles the favorite flag.
func (s *templateService) SetFavorite(ctx context.Context, coachID, templateID primitive.ObjectID, favorite bool) error {
	err := s.templateRepo.SetFavorite(ctx, templateID, coachID, favorite)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

// InsertIntoPlan places a template into a plan as a fresh block
// instance. Usage stats are best effort: a failed bump is logged, not
// surfaced, because the insert itself already succeeded.
func (s *templateService) InsertIntoPlan(ctx context.Context, coachID, planID, templateID primitive.ObjectID) (*domain.Plan, error) {
	tpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadOwnedPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	if _, err := plan.InsertBlockInstance(tpl); err != nil {
		return nil, err
	}
	plan.EstimatedDuration = domain.EstimateDuration(plan.Exercises)
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	if err := s.templateRepo.RecordUsage(ctx, templateID); err != nil {
		log.Printf("WARN: failed to record usage for template %s: %v", templateID.Hex(), err)
	}
	return plan, nil
}

// SaveInstance stamps the instance's current divergence from its
// template and refreshes the plan's estimated duration.
func (s *templateService) SaveInstance(ctx context.Context, coachID, planID primitive.ObjectID, instanceID string, notes, instanceName string) (*domain.Plan, error) {
	plan, err := s.loadOwnedPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	inst := findInstance(plan, instanceID)
	if inst == nil {
		return nil, ErrInstanceNotInPlan
	}
	inst.Notes = notes
	inst.InstanceName = instanceName

	tpl, err := s.templateRepo.GetByID(ctx, inst.SourceBlockID)
	switch {
	case err == nil:
		cust, derr := domain.ComputeCustomizations(plan, instanceID, tpl)
		if derr != nil {
			return nil, derr
		}
		inst.Customizations = cust
	case errors.Is(err, repository.ErrNotFound):
		// Template deleted since the insert. The instance keeps its
		// cloned content and whatever customizations were last stamped.
		log.Printf("WARN: template %s for instance %s no longer exists; keeping last customizations", inst.SourceBlockID.Hex(), instanceID)
	default:
		return nil, err
	}

	plan.EstimatedDuration = domain.EstimateDuration(plan.Exercises)
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ResetInstance throws away instance content and re-clones the
// template. Destructive, not reversible.
func (s *templateService) ResetInstance(ctx context.Context, coachID, planID primitive.ObjectID, instanceID string) (*domain.Plan, error) {
	plan, err := s.loadOwnedPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	inst := findInstance(plan, instanceID)
	if inst == nil {
		return nil, ErrInstanceNotInPlan
	}
	tpl, err := s.GetTemplate(ctx, inst.SourceBlockID)
	if err != nil {
		return nil, err
	}
	if err := plan.ResetInstanceToTemplate(instanceID, tpl); err != nil {
		return nil, err
	}
	plan.EstimatedDuration = domain.EstimateDuration(plan.Exercises)
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// DescribeInstanceDiff renders a textual diff between the template's
// content and the instance's, for coach review. The structural
// customization record is authoritative; this is presentation.
func (s *templateService) DescribeInstanceDiff(ctx context.Context, planID primitive.ObjectID, instanceID string) (string, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrPlanNotFound
		}
		return "", err
	}
	inst := findInstance(plan, instanceID)
	if inst == nil {
		return "", ErrInstanceNotInPlan
	}
	tpl, err := s.GetTemplate(ctx, inst.SourceBlockID)
	if err != nil {
		return "", err
	}

	before := renderBlockContent(tpl.Exercises, tpl.Groups)
	after := renderBlockContent(plan.InstanceExercises(instanceID), plan.InstanceGroups(instanceID))

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs), nil
}

// renderBlockContent produces a stable line-per-row text form of a
// block's content for the textual diff.
func renderBlockContent(exercises []domain.Exercise, groups []domain.ExerciseGroup) string {
	type row struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
		Body any    `json:"body"`
	}
	out := ""
	for _, g := range groups {
		b, _ := json.Marshal(row{Kind: "group", Name: g.Name, Body: g})
		out += string(b) + "\n"
	}
	for _, e := range exercises {
		b, _ := json.Marshal(row{Kind: "exercise", Name: e.Name, Body: e})
		out += string(b) + "\n"
	}
	return out
}

func (s *templateService) loadOwnedPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.Plan, error) {
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
	return plan, nil
}

func findInstance(plan *domain.Plan, instanceID string) *domain.BlockInstance {
	for i := range plan.BlockInstances {
		if plan.BlockInstances[i].ID == instanceID {
			return &plan.BlockInstances[i]
		}
	}
	return nil
}
