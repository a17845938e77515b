package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"forgefit/coaching-app/internal/domain"
	"forgefit/coaching-app/internal/repository"
	"forgefit/coaching-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAccessDenied  = errors.New("access denied to this session")
	ErrSessionAlreadyActive = errors.New("athlete already has an active session")
	ErrNotAssigned          = errors.New("assignment does not belong to this athlete")
)

// CompleteSetResult is what the API layer hands back after a completed
// set: the state-machine outcome plus the PR verdict when one was
// available in time. PR is nil when no weight was supplied or the check
// has not finished; it is informational either way.
type CompleteSetResult struct {
	Completion *domain.SetCompletion `json:"completion"`
	PR         *domain.PRResult      `json:"pr,omitempty"`
}

// SessionService drives live workout sessions. One session is live per
// athlete at a time; every transition is persisted before the call
// returns, in the order the athlete issued it, so a reconnect replays
// from the stored sets_completed/group_rounds and lands in the same
// state.
type SessionService interface {
	StartSession(ctx context.Context, athleteID, assignmentID primitive.ObjectID) (*domain.Session, error)
	GetSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error)
	GetActiveSession(ctx context.Context, athleteID primitive.ObjectID) (*domain.Session, error)

	CompleteSet(ctx context.Context, athleteID, sessionID primitive.ObjectID, weight *float64, reps int, rpe *int) (*CompleteSetResult, error)
	EditSetRecord(ctx context.Context, athleteID, sessionID primitive.ObjectID, sessionExerciseID string, setNumber int, weight *float64, reps int) (*domain.Session, error)
	DeleteSetRecord(ctx context.Context, athleteID, sessionID primitive.ObjectID, sessionExerciseID string, setNumber int) (*domain.Session, error)

	PauseSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error)
	ResumeSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error)
	CompleteSession(ctx context.Context, athleteID, sessionID primitive.ObjectID, confirmPartial bool) (*domain.Session, error)
	AbandonSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error)
}

type sessionService struct {
	sessionRepo    repository.SessionRepository
	assignmentRepo repository.AssignmentRepository
	planRepo       repository.PlanRepository
	records        RecordService
	archive        storage.ArchiveStore
}

// NewSessionService creates a new instance of sessionService. archive
// may be nil; finished sessions are then simply not archived.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	assignmentRepo repository.AssignmentRepository,
	planRepo repository.PlanRepository,
	records RecordService,
	archive storage.ArchiveStore,
) SessionService {
	return &sessionService{
		sessionRepo:    sessionRepo,
		assignmentRepo: assignmentRepo,
		planRepo:       planRepo,
		records:        records,
		archive:        archive,
	}
}

// StartSession projects the assigned plan into a new live session for
// the athlete, applying their modifications.
func (s *sessionService) StartSession(ctx context.Context, athleteID, assignmentID primitive.ObjectID) (*domain.Session, error) {
	if _, err := s.sessionRepo.GetActiveByAthleteID(ctx, athleteID); err == nil {
		return nil, ErrSessionAlreadyActive
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if assignment.AthleteID == nil || *assignment.AthleteID != athleteID {
		return nil, ErrNotAssigned
	}

	plan, err := s.planRepo.GetByID(ctx, assignment.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	session, err := domain.NewSession(plan, assignment, athleteID)
	if err != nil {
		return nil, err
	}
	id, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.ID = id
	return session, nil
}

// GetSession fetches one of the athlete's sessions.
func (s *sessionService) GetSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error) {
	return s.loadOwnedSession(ctx, athleteID, sessionID)
}

// GetActiveSession returns the athlete's in-flight session, if any.
func (s *sessionService) GetActiveSession(ctx context.Context, athleteID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.GetActiveByAthleteID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// CompleteSet applies the set-completion transition, persists the
// session, mirrors the record into the durable stream, and fires the
// PR check when a weight was supplied.
//
// Ordering matters: the session document is saved before anything
// else, so the advancement decision is durable; the record mirror and
// the PR check are after-effects whose failure is logged, never rolled
// back into session state.
func (s *sessionService) CompleteSet(ctx context.Context, athleteID, sessionID primitive.ObjectID, weight *float64, reps int, rpe *int) (*CompleteSetResult, error) {
	session, err := s.loadOwnedSession(ctx, athleteID, sessionID)
	if err != nil {
		return nil, err
	}
	completion, err := session.CompleteSet(weight, reps, rpe)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		// The transition did not durably happen; the caller retries.
		return nil, err
	}

	if err := s.sessionRepo.AppendSetRecord(ctx, session.ID, completion.Record); err != nil {
		log.Printf("WARN: failed to append set record for session %s: %v", session.ID.Hex(), err)
	}

	result := &CompleteSetResult{Completion: completion}
	if completion.CheckPR && weight != nil {
		name := currentExerciseName(session, completion.Record.SessionExerciseID)
		pr, err := s.records.CheckAndRecord(ctx, athleteID, name, *weight, reps)
		if err != nil {
			// Non-fatal: the set is recorded; the athlete just misses
			// the confetti this once.
			log.Printf("WARN: PR check failed for athlete %s on %q: %v", athleteID.Hex(), name, err)
		} else {
			result.PR = pr
		}
	}
	return result, nil
}

func currentExerciseName(session *domain.Session, sessionExerciseID string) string {
	for i := range session.Exercises {
		if session.Exercises[i].SessionExerciseID == sessionExerciseID {
			return session.Exercises[i].ExerciseName
		}
	}
	return ""
}

// EditSetRecord corrects a past set's weight/reps.
func (s *sessionService) EditSetRecord(ctx context.Context, athleteID, sessionID primitive.ObjectID, sessionExerciseID string, setNumber int, weight *float64, reps int) (*domain.Session, error) {
	return s.transition(ctx, athleteID, sessionID, func(session *domain.Session) error {
		return session.EditSetRecord(sessionExerciseID, setNumber, weight, reps)
	})
}

// DeleteSetRecord removes a past set.
func (s *sessionService) DeleteSetRecord(ctx context.Context, athleteID, sessionID primitive.ObjectID, sessionExerciseID string, setNumber int) (*domain.Session, error) {
	return s.transition(ctx, athleteID, sessionID, func(session *domain.Session) error {
		return session.DeleteSetRecord(sessionExerciseID, setNumber)
	})
}

// PauseSession suspends the live session.
func (s *sessionService) PauseSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error) {
	return s.transition(ctx, athleteID, sessionID, func(session *domain.Session) error {
		return session.Pause()
	})
}

// ResumeSession reactivates a paused session.
func (s *sessionService) ResumeSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error) {
	return s.transition(ctx, athleteID, sessionID, func(session *domain.Session) error {
		return session.Resume()
	})
}

// CompleteSession finishes the workout. confirmPartial must carry the
// athlete's explicit confirmation when exercises remain. On success the
// assignment flips to completed and the session is archived.
func (s *sessionService) CompleteSession(ctx context.Context, athleteID, sessionID primitive.ObjectID, confirmPartial bool) (*domain.Session, error) {
	session, err := s.transition(ctx, athleteID, sessionID, func(session *domain.Session) error {
		return session.Complete(confirmPartial)
	})
	if err != nil {
		return nil, err
	}
	if err := s.assignmentRepo.SetStatus(ctx, session.AssignmentID, domain.AssignmentCompleted); err != nil {
		log.Printf("WARN: failed to mark assignment %s completed: %v", session.AssignmentID.Hex(), err)
	}
	s.archiveSession(session)
	return session, nil
}

// AbandonSession discards the workout. Terminal; the handler collects
// confirmation before calling.
func (s *sessionService) AbandonSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.transition(ctx, athleteID, sessionID, func(session *domain.Session) error {
		return session.Abandon()
	})
	if err != nil {
		return nil, err
	}
	s.archiveSession(session)
	return session, nil
}

// archiveSession writes the finished session to the archive store in
// the background. Best effort: the session document itself remains the
// source of truth, the archive is for long-term review.
func (s *sessionService) archiveSession(session *domain.Session) {
	if s.archive == nil {
		return
	}
	body, err := json.Marshal(session)
	if err != nil {
		log.Printf("WARN: failed to serialize session %s for archive: %v", session.ID.Hex(), err)
		return
	}
	key := fmt.Sprintf("sessions/%s/%s.json", session.AthleteID.Hex(), session.ID.Hex())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.archive.PutArchive(ctx, key, body); err != nil {
			log.Printf("WARN: failed to archive session %s: %v", session.ID.Hex(), err)
		}
	}()
}

// transition is the load-apply-save backbone shared by the simple
// state-machine operations.
func (s *sessionService) transition(ctx context.Context, athleteID, sessionID primitive.ObjectID, op func(*domain.Session) error) (*domain.Session, error) {
	session, err := s.loadOwnedSession(ctx, athleteID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := op(session); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) loadOwnedSession(ctx context.Context, athleteID, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.AthleteID != athleteID {
		return nil, ErrSessionAccessDenied
	}
	return session, nil
}
