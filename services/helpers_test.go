package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/types/challenge"
)

var errBackendDown = errors.New("backend down")

// failingStore serves reads from the embedded store and fails everything
// that is switched off.
type failingStore struct {
	docstore.Store
	failTx    bool
	failQuery bool
}

func (f *failingStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if f.failTx {
		return errBackendDown
	}
	return f.Store.RunTransaction(ctx, fn)
}

func (f *failingStore) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Snapshot, error) {
	if f.failQuery {
		return nil, errBackendDown
	}
	return f.Store.Query(ctx, collection, filters...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedChallenge(t *testing.T, store docstore.Store, id string, cadence challenge.Cadence, reward int) {
	t.Helper()
	err := store.Set(context.Background(), cadence.Collection(), id, challenge.Definition{
		Task:       "task " + id,
		Type:       "mindfulness",
		Difficulty: challenge.DifficultyEasy,
		Reward:     reward,
		Cadence:    cadence,
	})
	require.NoError(t, err)
}

func nopLogger() *logger.Logger {
	return logger.NewNop()
}
