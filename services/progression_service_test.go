package services

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/types/progress"
)

func intPtr(v int) *int { return &v }

func newProgression(t *testing.T, now *time.Time) (*ProgressionService, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	svc := NewProgressionService(store, time.UTC, nopLogger())
	svc.SetClock(func() time.Time { return *now })
	return svc, store
}

func TestSelectPhaseReduction(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newProgression(t, &now)

	p, err := svc.SelectPhase(ctx, "u1", progress.SelectPhaseRequest{
		Choice:                progress.PhaseReduction,
		ReductionDurationDays: intPtr(15),
	})
	require.NoError(t, err)
	assert.Equal(t, progress.PhaseReduction, p.Phase)
	assert.Equal(t, civil.Date{Year: 2026, Month: 3, Day: 1}, p.StartDate)
	require.NotNil(t, p.EndDate)
	assert.Equal(t, civil.Date{Year: 2026, Month: 3, Day: 16}, *p.EndDate)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 0, p.XP)

	stored, err := svc.GetProgress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.StartDate, stored.StartDate)
	assert.Equal(t, *p.EndDate, *stored.EndDate)
	assert.Equal(t, 15, *stored.ReductionDurationDays)
}

func TestSelectPhaseRejectsInvalidSelections(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newProgression(t, &now)

	cases := map[string]progress.SelectPhaseRequest{
		"disallowed duration":      {Choice: progress.PhaseReduction, ReductionDurationDays: intPtr(9)},
		"missing duration":         {Choice: progress.PhaseReduction},
		"commitment with duration": {Choice: progress.PhaseCommitment, ReductionDurationDays: intPtr(7)},
		"unselected":               {Choice: progress.PhaseUnselected},
		"unknown choice":           {Choice: "moderation"},
		"bad timezone":             {Choice: progress.PhaseCommitment, Timezone: "Mars/Olympus"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SelectPhase(ctx, "u1", req)
			assert.ErrorIs(t, err, apperr.ErrInvalidSelection)
		})
	}

	// nothing was written
	_, err := svc.GetProgress(ctx, "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSelectPhaseCommitmentHasNoEndDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newProgression(t, &now)

	p, err := svc.SelectPhase(context.Background(), "u1", progress.SelectPhaseRequest{Choice: progress.PhaseCommitment})
	require.NoError(t, err)
	assert.Equal(t, progress.PhaseCommitment, p.Phase)
	assert.Nil(t, p.EndDate)
	assert.Nil(t, p.ReductionDurationDays)
	assert.False(t, p.ReductionComplete(civil.Date{Year: 2030, Month: 1, Day: 1}))
}

func TestSelectPhaseUsesRequestedTimezone(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	svc, _ := newProgression(t, &now)

	p, err := svc.SelectPhase(context.Background(), "u1", progress.SelectPhaseRequest{
		Choice:   progress.PhaseCommitment,
		Timezone: "Asia/Tokyo",
	})
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2026, Month: 3, Day: 2}, p.StartDate)
}

func TestAdvanceStreakCountsDaysInSelectedTimezone(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)
	svc, _ := newProgression(t, &now)

	// UTC-12: still 2026-10-15 locally
	p, err := svc.SelectPhase(ctx, "u1", progress.SelectPhaseRequest{
		Choice:   progress.PhaseCommitment,
		Timezone: "Etc/GMT+12",
	})
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 15}, p.StartDate)
	assert.Equal(t, "Etc/GMT+12", p.Timezone)

	now = now.Add(time.Hour)
	p, advanced, err := svc.AdvanceStreak(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, 0, p.Streak)

	// 12:00 UTC is midnight of 2026-10-16 in UTC-12
	now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	p, advanced, err = svc.AdvanceStreak(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, 1, p.Streak)

	// relapse lands on the user's local day too
	now = time.Date(2026, 10, 17, 11, 0, 0, 0, time.UTC)
	p, err = svc.RecordRelapse(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2026, Month: 10, Day: 16}, p.StreakDate)
}

func TestReselectKeepsXPAndResetsStreak(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newProgression(t, &now)

	require.NoError(t, store.Set(ctx, UsersCollection, "u1", progress.Record{
		Phase:      progress.PhaseCommitment,
		StartDate:  "2026-02-01",
		StreakDate: "2026-02-28",
		Streak:     27,
		XP:         140,
	}))

	p, err := svc.SelectPhase(ctx, "u1", progress.SelectPhaseRequest{
		Choice:                progress.PhaseReduction,
		ReductionDurationDays: intPtr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, 140, p.XP)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 27, p.LongestStreak)
	assert.Equal(t, civil.Date{Year: 2026, Month: 3, Day: 8}, *p.EndDate)
}

func TestRecordRelapse(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newProgression(t, &now)

	_, err := svc.RecordRelapse(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, store.Set(ctx, UsersCollection, "u1", progress.Record{
		Phase:                 progress.PhaseReduction,
		ReductionDurationDays: intPtr(21),
		StartDate:             "2026-02-20",
		EndDate:               "2026-03-13",
		StreakDate:            "2026-02-28",
		Streak:                8,
		XP:                    55,
	}))

	p, err := svc.RecordRelapse(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, 55, p.XP)
	assert.Equal(t, progress.PhaseReduction, p.Phase)
	assert.Equal(t, civil.Date{Year: 2026, Month: 2, Day: 20}, p.StartDate)
	assert.Equal(t, civil.Date{Year: 2026, Month: 3, Day: 13}, *p.EndDate)

	again, err := svc.RecordRelapse(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.Streak, again.Streak)
	assert.Equal(t, p.XP, again.XP)

	// the relapse day itself is not counted
	_, advanced, err := svc.AdvanceStreak(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, advanced)
}

func TestAdvanceStreakOncePerDay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := newProgression(t, &now)

	_, err := svc.SelectPhase(ctx, "u1", progress.SelectPhaseRequest{Choice: progress.PhaseCommitment})
	require.NoError(t, err)

	_, advanced, err := svc.AdvanceStreak(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, advanced, "selection day is not a completed day")

	now = now.Add(24 * time.Hour)
	for i := 0; i < 3; i++ {
		p, _, err := svc.AdvanceStreak(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, p.Streak)
	}

	now = now.Add(48 * time.Hour)
	p, advanced, err := svc.AdvanceStreak(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, 2, p.Streak)
	assert.Equal(t, 2, p.LongestStreak)
}

func TestAdvanceStreakSkipsUnselected(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newProgression(t, &now)

	require.NoError(t, store.Set(ctx, UsersCollection, "u1", progress.Record{StartDate: "2026-01-01"}))

	p, advanced, err := svc.AdvanceStreak(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, progress.PhaseUnselected, p.Phase)
	assert.Equal(t, 0, p.Streak)
}

func TestListActiveUsers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newProgression(t, &now)

	_, err := svc.SelectPhase(ctx, "a", progress.SelectPhaseRequest{Choice: progress.PhaseCommitment})
	require.NoError(t, err)
	_, err = svc.SelectPhase(ctx, "b", progress.SelectPhaseRequest{Choice: progress.PhaseReduction, ReductionDurationDays: intPtr(7)})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, UsersCollection, "c", progress.Record{Phase: progress.PhaseUnselected}))

	ids, err := svc.ListActiveUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestProgressionStoreFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: docstore.NewMemoryStore(), failTx: true}
	svc := NewProgressionService(store, time.UTC, nopLogger())

	_, err := svc.SelectPhase(ctx, "u1", progress.SelectPhaseRequest{Choice: progress.PhaseCommitment})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.True(t, apperr.IsRetryable(err))

	_, err = svc.RecordRelapse(ctx, "u1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}
