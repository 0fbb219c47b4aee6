package matcher

import (
	"testing"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_SumsAcrossModels(t *testing.T) {
	tallies := []models.ModelTally{
		{Model: models.Grayscale, Tally: models.VoteTally{"seal": 6, "cloud": 4}},
		{Model: models.RGB, Tally: models.VoteTally{"seal": 9, "cloud": 1}},
		{Model: models.HSV, Tally: models.VoteTally{"seal": 5, "butterfly": 5}},
	}

	res, err := Aggregate(tallies, nil)
	require.NoError(t, err)
	assert.Equal(t, "seal", res.VideoID)
	assert.Equal(t, 20.0, res.Votes)
	assert.Equal(t, 30.0, res.TotalVotes)
	assert.InDelta(t, 20.0/30, res.Accuracy, 1e-12)
	assert.Equal(t, map[string]float64{"seal": 20, "cloud": 5, "butterfly": 5}, res.Combined)
}

func TestAggregate_TieBreakIsDeterministic(t *testing.T) {
	tallies := []models.ModelTally{
		{Model: models.RGB, Tally: models.VoteTally{"y": 2, "x": 1}},
		{Model: models.HSV, Tally: models.VoteTally{"x": 1, "z": 3}},
	}
	// x=2, y=2, z=3 -> z; then make it a three-way tie
	tallies[1].Tally["z"] = 2

	first, err := Aggregate(tallies, nil)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Aggregate(tallies, nil)
		require.NoError(t, err)
		assert.Equal(t, first.VideoID, again.VideoID)
	}
	// first tally is visited in sorted order: x before y
	assert.Equal(t, "x", first.VideoID)
}

func TestAggregate_Weights(t *testing.T) {
	tallies := []models.ModelTally{
		{Model: models.Grayscale, Tally: models.VoteTally{"a": 10}},
		{Model: models.HSV, Tally: models.VoteTally{"b": 6}},
	}

	res, err := Aggregate(tallies, Weights{models.HSV: 2})
	require.NoError(t, err)
	assert.Equal(t, "b", res.VideoID)
	assert.Equal(t, 12.0, res.Votes)
	assert.InDelta(t, 12.0/22, res.Accuracy, 1e-12)

	res, err = Aggregate(tallies, Weights{})
	require.NoError(t, err)
	assert.Equal(t, "a", res.VideoID)
}

func TestAggregate_NoVotes(t *testing.T) {
	_, err := Aggregate(nil, nil)
	assert.ErrorIs(t, err, ErrNoVotes)

	_, err = Aggregate([]models.ModelTally{{Model: models.RGB, Tally: models.VoteTally{}}}, nil)
	assert.ErrorIs(t, err, ErrNoVotes)

	_, err = Aggregate([]models.ModelTally{{Model: models.RGB, Tally: models.VoteTally{"a": 3}}}, Weights{models.RGB: 0})
	assert.ErrorIs(t, err, ErrNoVotes)
}
