package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/metrics"
	"reclaimAPI/internal/types/progress"
)

// ProgressionService owns the phase state machine and the streak of users/{uid}.
type ProgressionService struct {
	store docstore.Store
	loc   *time.Location
	now   func() time.Time
	log   *logger.Logger
}

func NewProgressionService(store docstore.Store, loc *time.Location, log *logger.Logger) *ProgressionService {
	return &ProgressionService{
		store: store,
		loc:   loc,
		now:   time.Now,
		log:   log,
	}
}

// SetClock replaces the time source.
func (s *ProgressionService) SetClock(now func() time.Time) {
	s.now = now
}

// SelectPhase starts (or restarts) a phase. XP and the longest streak survive
// re-selection; the current streak and dates do not.
func (s *ProgressionService) SelectPhase(ctx context.Context, userID string, req progress.SelectPhaseRequest) (*progress.UserProgress, error) {
	const op = "progression.SelectPhase"
	if err := requireID(op, "userId", userID); err != nil {
		return nil, err
	}
	if err := validateSelection(op, req); err != nil {
		return nil, err
	}

	loc := s.loc
	if req.Timezone != "" {
		tz, err := time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, apperr.Wrap(op, apperr.ErrInvalidSelection, fmt.Sprintf("unknown timezone %q", req.Timezone), err)
		}
		loc = tz
	}

	now := s.now()
	start := calendarDay(now, loc)
	next := progress.UserProgress{
		UserID:     userID,
		Phase:      req.Choice,
		StartDate:  start,
		StreakDate: start,
		Streak:     0,
		Timezone:   req.Timezone,
		UpdatedAt:  now.UTC(),
	}
	if req.Choice == progress.PhaseReduction {
		days := *req.ReductionDurationDays
		end := start.AddDays(days)
		next.ReductionDurationDays = &days
		next.EndDate = &end
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		next.XP, next.LongestStreak = 0, 0
		prev, err := readProgress(tx, op, userID)
		switch {
		case err == nil:
			next.XP = prev.XP
			next.LongestStreak = prev.LongestStreak
		case !isNotFound(err):
			return err
		}
		return tx.Set(UsersCollection, userID, next.ToRecord())
	})
	if err != nil {
		s.log.Error("select phase failed", "userId", userID, "error", err)
		return nil, storeErr(op, err)
	}

	metrics.PhaseSelections.WithLabelValues(string(next.Phase)).Inc()
	s.log.Info("phase selected", "userId", userID, "phase", next.Phase, "startDate", next.StartDate.String())
	return &next, nil
}

func validateSelection(op string, req progress.SelectPhaseRequest) error {
	switch req.Choice {
	case progress.PhaseReduction:
		if req.ReductionDurationDays == nil {
			return apperr.New(op, apperr.ErrInvalidSelection, "reduction phase requires reductionDurationDays")
		}
		if !progress.IsAllowedReductionDuration(*req.ReductionDurationDays) {
			return apperr.New(op, apperr.ErrInvalidSelection,
				fmt.Sprintf("reductionDurationDays must be one of %v", progress.ReductionDurations))
		}
	case progress.PhaseCommitment:
		if req.ReductionDurationDays != nil {
			return apperr.New(op, apperr.ErrInvalidSelection, "commitment phase takes no duration")
		}
	default:
		return apperr.New(op, apperr.ErrInvalidSelection, "choice must be reduction or commitment")
	}
	return nil
}

func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*progress.UserProgress, error) {
	const op = "progression.GetProgress"
	if err := requireID(op, "userId", userID); err != nil {
		return nil, err
	}

	snap, err := s.store.Get(ctx, UsersCollection, userID)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, apperr.New(op, apperr.ErrNotFound, "no phase selected yet")
		}
		return nil, storeErr(op, err)
	}
	p, err := decodeProgress(snap, op, userID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &p, nil
}

// RecordRelapse resets the streak and restarts streak counting from today.
// Phase, XP and dates are untouched; repeating it is harmless.
func (s *ProgressionService) RecordRelapse(ctx context.Context, userID string) (*progress.UserProgress, error) {
	const op = "progression.RecordRelapse"
	p, _, err := s.mutate(ctx, op, userID, func(p *progress.UserProgress, today civil.Date) bool {
		p.Streak = 0
		p.StreakDate = today
		return true
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("relapse recorded", "userId", userID)
	return p, nil
}

// AdvanceStreak adds one to the streak at most once per elapsed calendar day.
// The returned flag is false when today was already counted.
func (s *ProgressionService) AdvanceStreak(ctx context.Context, userID string) (*progress.UserProgress, bool, error) {
	const op = "progression.AdvanceStreak"
	p, advanced, err := s.mutate(ctx, op, userID, func(p *progress.UserProgress, today civil.Date) bool {
		if p.Phase == progress.PhaseUnselected || !today.After(p.StreakDate) {
			return false
		}
		p.Streak++
		p.LongestStreak = max(p.LongestStreak, p.Streak)
		p.StreakDate = today
		return true
	})
	if err != nil {
		metrics.StreakAdvances.WithLabelValues("error").Inc()
		return nil, false, err
	}
	if advanced {
		metrics.StreakAdvances.WithLabelValues("advanced").Inc()
	} else {
		metrics.StreakAdvances.WithLabelValues("skipped").Inc()
	}
	return p, advanced, nil
}

// ListActiveUsers returns the ids of users currently in a phase.
func (s *ProgressionService) ListActiveUsers(ctx context.Context) ([]string, error) {
	const op = "progression.ListActiveUsers"
	var ids []string
	for _, phase := range []progress.Phase{progress.PhaseReduction, progress.PhaseCommitment} {
		snaps, err := s.store.Query(ctx, UsersCollection, docstore.Eq("phase", string(phase)))
		if err != nil {
			return nil, storeErr(op, err)
		}
		for _, snap := range snaps {
			ids = append(ids, snap.ID())
		}
	}
	return ids, nil
}

// mutate runs fn against the stored record in one transaction and persists
// the result when fn reports a change.
func (s *ProgressionService) mutate(ctx context.Context, op, userID string, fn func(p *progress.UserProgress, today civil.Date) bool) (*progress.UserProgress, bool, error) {
	if err := requireID(op, "userId", userID); err != nil {
		return nil, false, err
	}

	var (
		result  progress.UserProgress
		changed bool
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		p, err := readProgress(tx, op, userID)
		if err != nil {
			return err
		}
		now := s.now()
		changed = fn(&p, calendarDay(now, s.locationOf(p)))
		if changed {
			p.UpdatedAt = now.UTC()
			if err := tx.Set(UsersCollection, userID, p.ToRecord()); err != nil {
				return err
			}
		}
		result = p
		return nil
	})
	if err != nil {
		if !isNotFound(err) {
			s.log.Error("progress update failed", "op", op, "userId", userID, "error", err)
		}
		return nil, false, storeErr(op, err)
	}
	return &result, changed, nil
}

// locationOf is the zone the user's calendar days are counted in: the one
// chosen at phase selection, else the service default.
func (s *ProgressionService) locationOf(p progress.UserProgress) *time.Location {
	if p.Timezone == "" {
		return s.loc
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		s.log.Warn("stored timezone unusable, using default", "userId", p.UserID, "timezone", p.Timezone, "error", err)
		return s.loc
	}
	return loc
}
