package service

import (
	"context"
	"errors"
	"time"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordService is the PR comparison collaborator: given what the
// athlete just lifted, it says whether that beats their standing best
// and records it if so. Invoked fire-and-forget after set completion;
// it never blocks or alters session state.
type RecordService interface {
	CheckAndRecord(ctx context.Context, athleteID primitive.ObjectID, exerciseName string, weight float64, reps int) (*domain.PRResult, error)
	GetRecordsByAthlete(ctx context.Context, athleteID primitive.ObjectID) ([]domain.PersonalRecord, error)
}

type recordService struct {
	recordRepo repository.PersonalRecordRepository
}

// NewRecordService creates a new instance of recordService.
func NewRecordService(recordRepo repository.PersonalRecordRepository) RecordService {
	return &recordService{recordRepo: recordRepo}
}

// CheckAndRecord compares by estimated one-rep max: a heavier single
// and a lighter high-rep set become comparable on the same scale.
func (s *recordService) CheckAndRecord(ctx context.Context, athleteID primitive.ObjectID, exerciseName string, weight float64, reps int) (*domain.PRResult, error) {
	if exerciseName == "" || weight <= 0 || reps <= 0 {
		return nil, errors.New("exercise name, positive weight and positive reps are required")
	}

	oneRM := domain.EstimateOneRepMax(weight, reps)
	volume := weight * float64(reps)
	result := &domain.PRResult{
		Estimated1RM: oneRM,
		Volume:       volume,
	}

	best, err := s.recordRepo.GetBest(ctx, athleteID, exerciseName)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// First recorded effort is a PR by definition.
		result.IsPR = true
	case err != nil:
		return nil, err
	default:
		result.PreviousBest = best
		result.IsPR = oneRM > best.Estimated1RM
	}

	if result.IsPR {
		record := &domain.PersonalRecord{
			AthleteID:    athleteID,
			ExerciseName: exerciseName,
			Weight:       weight,
			Reps:         reps,
			Estimated1RM: oneRM,
			Volume:       volume,
			AchievedAt:   time.Now().UTC(),
		}
		if err := s.recordRepo.Upsert(ctx, record); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetRecordsByAthlete lists an athlete's standing records.
func (s *recordService) GetRecordsByAthlete(ctx context.Context, athleteID primitive.ObjectID) ([]domain.PersonalRecord, error) {
	return s.recordRepo.GetByAthleteID(ctx, athleteID)
}
