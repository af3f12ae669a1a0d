package services

import (
	"context"
	"slices"
	"time"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/metrics"
	"reclaimAPI/internal/types/challenge"
)

// LedgerService records challenge completions and credits their XP. A
// completion and its XP are written in the same transaction.
type LedgerService struct {
	store   docstore.Store
	catalog *CatalogService
	now     func() time.Time
	log     *logger.Logger
}

func NewLedgerService(store docstore.Store, catalog *CatalogService, log *logger.Logger) *LedgerService {
	return &LedgerService{
		store:   store,
		catalog: catalog,
		now:     time.Now,
		log:     log,
	}
}

// SetClock replaces the time source.
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// CompleteChallenge awards the challenge's reward once per (user, challenge).
// Every later or concurrently losing attempt gets ErrAlreadyCompleted.
func (s *LedgerService) CompleteChallenge(ctx context.Context, userID, challengeID string) (int, error) {
	const op = "ledger.CompleteChallenge"
	if err := requireID(op, "userId", userID); err != nil {
		return 0, err
	}

	def, err := s.catalog.GetChallenge(ctx, challengeID)
	if err != nil {
		metrics.ChallengeCompletions.WithLabelValues("unknown").Inc()
		return 0, err
	}

	key := challenge.CompletionKey(userID, challengeID)
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		_, err := tx.Get(challenge.CompletionsCollection, key)
		switch {
		case err == nil:
			return apperr.New(op, apperr.ErrAlreadyCompleted, "challenge already completed")
		case !docstore.IsNotFound(err):
			return err
		}

		p, err := readProgress(tx, op, userID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		completion := challenge.Completion{
			ChallengeID: def.ID,
			UserID:      userID,
			Task:        def.Task,
			Cadence:     def.Cadence,
			AwardedXP:   def.Reward,
			CompletedAt: now,
		}
		if err := tx.Create(challenge.CompletionsCollection, key, completion); err != nil {
			return err
		}

		p.XP += def.Reward
		p.UpdatedAt = now
		return tx.Set(UsersCollection, userID, p.ToRecord())
	})
	if err != nil {
		if docstore.IsAlreadyExists(err) {
			err = apperr.Wrap(op, apperr.ErrAlreadyCompleted, "challenge already completed", err)
		}
		switch {
		case isAlreadyCompleted(err):
			metrics.ChallengeCompletions.WithLabelValues("duplicate").Inc()
		case isNotFound(err):
			metrics.ChallengeCompletions.WithLabelValues("no_progress").Inc()
		default:
			metrics.ChallengeCompletions.WithLabelValues("error").Inc()
			s.log.Error("complete challenge failed", "userId", userID, "challengeId", challengeID, "error", err)
		}
		return 0, storeErr(op, err)
	}

	metrics.ChallengeCompletions.WithLabelValues("awarded").Inc()
	metrics.XPAwarded.Add(float64(def.Reward))
	s.log.Info("challenge completed", "userId", userID, "challengeId", challengeID, "awardedXp", def.Reward)
	return def.Reward, nil
}

// ListCompletions returns a user's completions, oldest first.
func (s *LedgerService) ListCompletions(ctx context.Context, userID string) ([]challenge.Completion, error) {
	const op = "ledger.ListCompletions"
	if err := requireID(op, "userId", userID); err != nil {
		return nil, err
	}

	snaps, err := s.store.Query(ctx, challenge.CompletionsCollection, docstore.Eq("userId", userID))
	if err != nil {
		return nil, storeErr(op, err)
	}

	completions := make([]challenge.Completion, 0, len(snaps))
	for _, snap := range snaps {
		var c challenge.Completion
		if err := snap.DataTo(&c); err != nil {
			return nil, storeErr(op, err)
		}
		completions = append(completions, c)
	}
	slices.SortStableFunc(completions, func(a, b challenge.Completion) int {
		return a.CompletedAt.Compare(b.CompletedAt)
	})
	return completions, nil
}
