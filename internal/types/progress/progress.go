package progress

import (
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

type Phase string

const (
	PhaseUnselected Phase = "unselected"
	PhaseReduction  Phase = "reduction"
	PhaseCommitment Phase = "commitment"
)

// ReductionDurations are the only lengths a reduction phase may have.
var ReductionDurations = []int{7, 15, 21}

func IsAllowedReductionDuration(days int) bool {
	return slices.Contains(ReductionDurations, days)
}

// UserProgress is the API view of a user's phase, streak and XP.
type UserProgress struct {
	UserID                string      `json:"userId"`
	Phase                 Phase       `json:"phase"`
	ReductionDurationDays *int        `json:"reductionDurationDays,omitempty"`
	StartDate             civil.Date  `json:"startDate"`
	EndDate               *civil.Date `json:"endDate,omitempty"`
	Streak                int         `json:"streak"`
	LongestStreak         int         `json:"longestStreak"`
	XP                    int         `json:"xp"`
	Timezone              string      `json:"timezone,omitempty"`
	StreakDate            civil.Date  `json:"-"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

// ReductionComplete reports whether a reduction phase has reached its end date.
// Commitment phases never complete.
func (p UserProgress) ReductionComplete(today civil.Date) bool {
	if p.Phase != PhaseReduction || p.EndDate == nil {
		return false
	}
	return !today.Before(*p.EndDate)
}

// Record is the persisted shape of users/{uid}. Dates are stored as YYYY-MM-DD.
type Record struct {
	Phase                 Phase     `firestore:"phase" json:"phase"`
	ReductionDurationDays *int      `firestore:"reductionDurationDays" json:"reductionDurationDays"`
	StartDate             string    `firestore:"startDate" json:"startDate"`
	EndDate               string    `firestore:"endDate" json:"endDate"`
	Streak                int       `firestore:"streak" json:"streak"`
	LongestStreak         int       `firestore:"longestStreak" json:"longestStreak"`
	StreakDate            string    `firestore:"streakDate" json:"streakDate"`
	XP                    int       `firestore:"xp" json:"xp"`
	Timezone              string    `firestore:"timezone" json:"timezone"`
	UpdatedAt             time.Time `firestore:"updatedAt" json:"updatedAt"`
}

func (p UserProgress) ToRecord() Record {
	rec := Record{
		Phase:                 p.Phase,
		ReductionDurationDays: p.ReductionDurationDays,
		StartDate:             p.StartDate.String(),
		Streak:                p.Streak,
		LongestStreak:         p.LongestStreak,
		StreakDate:            p.StreakDate.String(),
		XP:                    p.XP,
		Timezone:              p.Timezone,
		UpdatedAt:             p.UpdatedAt,
	}
	if p.EndDate != nil {
		rec.EndDate = p.EndDate.String()
	}
	return rec
}

func FromRecord(userID string, rec Record) (UserProgress, error) {
	p := UserProgress{
		UserID:                userID,
		Phase:                 rec.Phase,
		ReductionDurationDays: rec.ReductionDurationDays,
		Streak:                rec.Streak,
		LongestStreak:         max(rec.LongestStreak, rec.Streak),
		XP:                    rec.XP,
		Timezone:              rec.Timezone,
		UpdatedAt:             rec.UpdatedAt,
	}
	if p.Phase == "" {
		p.Phase = PhaseUnselected
	}

	var err error
	if rec.StartDate != "" {
		if p.StartDate, err = civil.ParseDate(rec.StartDate); err != nil {
			return UserProgress{}, fmt.Errorf("invalid startDate %q: %w", rec.StartDate, err)
		}
	}
	if rec.EndDate != "" {
		end, err := civil.ParseDate(rec.EndDate)
		if err != nil {
			return UserProgress{}, fmt.Errorf("invalid endDate %q: %w", rec.EndDate, err)
		}
		p.EndDate = &end
	}
	p.StreakDate = p.StartDate
	if rec.StreakDate != "" {
		if p.StreakDate, err = civil.ParseDate(rec.StreakDate); err != nil {
			return UserProgress{}, fmt.Errorf("invalid streakDate %q: %w", rec.StreakDate, err)
		}
	}
	return p, nil
}

type SelectPhaseRequest struct {
	Choice                Phase  `json:"choice"`
	ReductionDurationDays *int   `json:"reductionDurationDays,omitempty"`
	Timezone              string `json:"timezone,omitempty"`
}
