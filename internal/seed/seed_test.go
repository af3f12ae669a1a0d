package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/types/challenge"
)

const sampleCatalog = `
daily:
  - id: water
    task: Drink eight glasses of water
    type: health
    difficulty: easy
    reward: 10
  - id: walk
    task: Take a 20 minute walk
    type: activity
    difficulty: medium
    reward: 15
weekly:
  - id: call-friend
    task: Call a friend you trust
    type: social
    difficulty: medium
    reward: 40
`

func TestParseAndApply(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Len(t, c.Daily, 2)
	assert.Len(t, c.Weekly, 1)
	assert.Empty(t, c.Monthly)

	store := docstore.NewMemoryStore()
	n, err := Apply(context.Background(), store, c)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	snap, err := store.Get(context.Background(), challenge.CadenceWeekly.Collection(), "call-friend")
	require.NoError(t, err)
	var def challenge.Definition
	require.NoError(t, snap.DataTo(&def))
	assert.Equal(t, 40, def.Reward)
	assert.Equal(t, challenge.CadenceWeekly, def.Cadence)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"missing id":       "daily:\n  - task: x\n    reward: 1\n",
		"duplicate id":     "daily:\n  - id: a\n    task: x\nweekly:\n  - id: a\n    task: y\n",
		"negative reward":  "daily:\n  - id: a\n    task: x\n    reward: -3\n",
		"bad difficulty":   "daily:\n  - id: a\n    task: x\n    difficulty: brutal\n",
		"unknown key":      "yearly:\n  - id: a\n    task: x\n",
		"slash in id":      "daily:\n  - id: a/b\n    task: x\n",
		"not yaml mapping": "- just\n- a list\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseEmptyFile(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, c.Daily)
}
