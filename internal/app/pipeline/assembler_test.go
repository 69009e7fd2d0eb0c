package pipeline

import (
	"testing"

	"bitbucket.org/airenas/meetgo/internal/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestAssembleTurns_Empty(t *testing.T) {
	assert.Nil(t, AssembleTurns(nil))
}

func TestAssembleTurns_TwoTurns(t *testing.T) {
	cues := []persistence.Cue{
		{Index: 0, Start: 0, End: 1, Speaker: "A", Text: "one"},
		{Index: 1, Start: 1, End: 2, Speaker: "A", Text: "two"},
		{Index: 2, Start: 2, End: 3, Speaker: "B", Text: "three"},
		{Index: 3, Start: 3, End: 4, Speaker: "B", Text: "four"},
		{Index: 4, Start: 4, End: 5, Speaker: "B", Text: "five"},
	}
	turns := AssembleTurns(cues)
	assert.Equal(t, 2, len(turns))
	assert.Equal(t, "A", turns[0].Speaker)
	assert.Equal(t, "one two", turns[0].Content)
	assert.Equal(t, 2, turns[0].CueCount)
	assert.Equal(t, 0.0, turns[0].StartTime)
	assert.Equal(t, 2.0, turns[0].EndTime)
	assert.Equal(t, "B", turns[1].Speaker)
	assert.Equal(t, "three four five", turns[1].Content)
	assert.Equal(t, 3, turns[1].CueCount)
	assert.Equal(t, 2.0, turns[1].StartTime)
	assert.Equal(t, 5.0, turns[1].EndTime)
}

func TestAssembleTurns_SingleSpeaker(t *testing.T) {
	cues := []persistence.Cue{
		{Index: 0, Start: 0, End: 1, Speaker: "A", Text: "one"},
		{Index: 1, Start: 1, End: 2, Speaker: "A", Text: "two"},
	}
	turns := AssembleTurns(cues)
	assert.Equal(t, 1, len(turns))
	assert.Equal(t, "one two", turns[0].Content)
}

func TestAssembleTurns_EmptyLabelGetsPlaceholder(t *testing.T) {
	cues := []persistence.Cue{
		{Index: 0, Start: 0, End: 1, Speaker: "", Text: "one"},
	}
	turns := AssembleTurns(cues)
	assert.Equal(t, 1, len(turns))
	assert.Equal(t, UnknownSpeaker, turns[0].Speaker)
}

func TestAssembleTurns_ResolvesRepresenting(t *testing.T) {
	cues := []persistence.Cue{
		{Index: 0, Start: 0, End: 1, Speaker: "Jane Smith (World Bank)", Text: "one"},
	}
	turns := AssembleTurns(cues)
	assert.Equal(t, "Jane Smith", turns[0].Speaker)
	assert.Equal(t, "World Bank", turns[0].Representing)
}

func TestAssembleTurns_CueCoverage(t *testing.T) {
	cues := makeCues(57)
	for i := range cues {
		cues[i].Speaker = []string{"A", "B", "C"}[i/10%3]
	}
	turns := AssembleTurns(cues)
	sum := 0
	for _, turn := range turns {
		assert.True(t, turn.StartTime <= turn.EndTime)
		sum += turn.CueCount
	}
	assert.Equal(t, 57, sum)
}
