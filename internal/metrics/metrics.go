// Package metrics holds the domain counters exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PhaseSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phase_selections_total",
			Help: "Phase selections by chosen phase",
		},
		[]string{"phase"},
	)
	ChallengeCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_completions_total",
			Help: "Challenge completion attempts by outcome",
		},
		[]string{"result"},
	)
	XPAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP credited to users",
		},
	)
	StreakAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_advances_total",
			Help: "Streak advance invocations by outcome",
		},
		[]string{"result"},
	)
	RoomEntryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_entry_attempts_total",
			Help: "Room entry attempts by outcome",
		},
		[]string{"result"},
	)
)

// Register adds the domain collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(PhaseSelections, ChallengeCompletions, XPAwarded, StreakAdvances, RoomEntryAttempts)
}
