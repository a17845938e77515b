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
	ErrAthleteNotFound       = errors.New("athlete not found with provided email")
	ErrAthleteNotRole        = errors.New("user found but is not an athlete")
	ErrAthleteAlreadyCoached = errors.New("athlete is already assigned to another coach")
	ErrRosterAccessDenied    = errors.New("access denied to modify this athlete group")
	ErrAthleteNotOnRoster    = errors.New("athlete is not on this coach's roster")
)

// RosterService manages a coach's athletes and athlete groups.
type RosterService interface {
	AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error)
	GetAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)

	CreateAthleteGroup(ctx context.Context, coachID primitive.ObjectID, name string, athleteIDs []primitive.ObjectID) (*domain.AthleteGroup, error)
	GetAthleteGroups(ctx context.Context, coachID primitive.ObjectID) ([]domain.AthleteGroup, error)
	UpdateAthleteGroup(ctx context.Context, coachID, groupID primitive.ObjectID, name string, athleteIDs []primitive.ObjectID) (*domain.AthleteGroup, error)
	DeleteAthleteGroup(ctx context.Context, coachID, groupID primitive.ObjectID) error
}

type rosterService struct {
	userRepo  repository.UserRepository
	groupRepo repository.AthleteGroupRepository
}

// NewRosterService creates a new instance of rosterService.
func NewRosterService(userRepo repository.UserRepository, groupRepo repository.AthleteGroupRepository) RosterService {
	return &rosterService{
		userRepo:  userRepo,
		groupRepo: groupRepo,
	}
}

// AddAthleteByEmail finds an athlete by email and puts them on the
// coach's roster. Both records are updated; an athlete already coached
// by this coach is a no-op, by another coach an error.
func (s *rosterService) AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error) {
	if coachID == primitive.NilObjectID || athleteEmail == "" {
		return nil, errors.New("coach ID and athlete email are required")
	}

	athlete, err := s.userRepo.GetByEmail(ctx, athleteEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}
	if athlete.Role != domain.RoleAthlete {
		return nil, ErrAthleteNotRole
	}
	if athlete.CoachID != nil && *athlete.CoachID != primitive.NilObjectID {
		if *athlete.CoachID == coachID {
			return athlete, nil
		}
		return nil, ErrAthleteAlreadyCoached
	}

	if err := s.userRepo.AddAthleteToCoach(ctx, coachID, athlete.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetCoachForAthlete(ctx, athlete.ID, coachID); err != nil {
		return nil, err
	}

	athlete.CoachID = &coachID
	return athlete, nil
}

// GetAthletes lists the coach's roster, hashes stripped.
func (s *rosterService) GetAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	athletes, err := s.userRepo.GetAthletesByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	for i := range athletes {
		athletes[i].PasswordHash = ""
	}
	return athletes, nil
}

// CreateAthleteGroup creates a named roster subset used for group
// assignments. Every member must already be coached by this coach.
func (s *rosterService) CreateAthleteGroup(ctx context.Context, coachID primitive.ObjectID, name string, athleteIDs []primitive.ObjectID) (*domain.AthleteGroup, error) {
	if name == "" {
		return nil, errors.New("group name is required")
	}
	if err := s.checkRoster(ctx, coachID, athleteIDs); err != nil {
		return nil, err
	}

	group := domain.AthleteGroup{
		CoachID:    coachID,
		Name:       name,
		AthleteIDs: athleteIDs,
	}
	id, err := s.groupRepo.Create(ctx, &group)
	if err != nil {
		return nil, err
	}
	return s.groupRepo.GetByID(ctx, id)
}

// GetAthleteGroups lists the coach's athlete groups.
func (s *rosterService) GetAthleteGroups(ctx context.Context, coachID primitive.ObjectID) ([]domain.AthleteGroup, error) {
	return s.groupRepo.GetByCoachID(ctx, coachID)
}

// UpdateAthleteGroup renames a group and/or replaces its membership.
func (s *rosterService) UpdateAthleteGroup(ctx context.Context, coachID, groupID primitive.ObjectID, name string, athleteIDs []primitive.ObjectID) (*domain.AthleteGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteGroupNotFound
		}
		return nil, err
	}
	if group.CoachID != coachID {
		return nil, ErrRosterAccessDenied
	}
	if name == "" {
		return nil, errors.New("group name is required")
	}
	if err := s.checkRoster(ctx, coachID, athleteIDs); err != nil {
		return nil, err
	}

	group.Name = name
	group.AthleteIDs = athleteIDs
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteAthleteGroup removes a group. Assignments already fanned out
// from it are untouched.
func (s *rosterService) DeleteAthleteGroup(ctx context.Context, coachID, groupID primitive.ObjectID) error {
	err := s.groupRepo.Delete(ctx, groupID, coachID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAthleteGroupNotFound
	}
	return err
}

// checkRoster verifies every id belongs to the coach's roster.
func (s *rosterService) checkRoster(ctx context.Context, coachID primitive.ObjectID, athleteIDs []primitive.ObjectID) error {
	roster, err := s.userRepo.GetAthletesByCoachID(ctx, coachID)
	if err != nil {
		return err
	}
	onRoster := make(map[primitive.ObjectID]bool, len(roster))
	for _, a := range roster {
		onRoster[a.ID] = true
	}
	for _, id := range athleteIDs {
		if !onRoster[id] {
			return ErrAthleteNotOnRoster
		}
	}
	return nil
}
