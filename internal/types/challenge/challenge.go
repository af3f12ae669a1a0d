package challenge

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// Cadences in lookup order.
var Cadences = []Cadence{CadenceDaily, CadenceWeekly, CadenceMonthly}

func ParseCadence(s string) (Cadence, bool) {
	switch c := Cadence(s); c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return c, true
	}
	return "", false
}

// Collection is the catalog collection holding definitions of this cadence.
func (c Cadence) Collection() string {
	return string(c) + "Challenges"
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type Definition struct {
	ID         string     `firestore:"-" json:"id"`
	Task       string     `firestore:"task" json:"task"`
	Type       string     `firestore:"type" json:"type"`
	Difficulty Difficulty `firestore:"difficulty" json:"difficulty"`
	Reward     int        `firestore:"reward" json:"reward"`
	Cadence    Cadence    `firestore:"cadence" json:"cadence"`
}

// CompletionsCollection holds one Completion per (user, challenge).
const CompletionsCollection = "completedChallenges"

type Completion struct {
	ChallengeID string    `firestore:"challengeId" json:"challengeId"`
	UserID      string    `firestore:"userId" json:"userId"`
	Task        string    `firestore:"task" json:"task"`
	Cadence     Cadence   `firestore:"cadence" json:"cadence"`
	AwardedXP   int       `firestore:"awardedXp" json:"awardedXp"`
	CompletedAt time.Time `firestore:"completedAt" json:"completedAt"`
}

// CompletionKey is the document id of the completion for a (user, challenge)
// pair. Hashing keeps ids free of path separators and unambiguous.
func CompletionKey(userID, challengeID string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + challengeID))
	return hex.EncodeToString(sum[:])
}

type CompleteChallengeRequest struct {
	UserID string `json:"userId"`
}

type CompleteChallengeResponse struct {
	AwardedXP int `json:"awardedXp"`
}
