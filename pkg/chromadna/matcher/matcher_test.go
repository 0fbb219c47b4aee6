package matcher

import (
	"testing"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var candidates = map[string]models.Descriptor{
	"cloud-sky": {0.8, 0.2, 0, 0},
	"seal":      {0, 0.1, 0.9, 0},
	"butterfly": {0, 0, 0.2, 0.8},
}

func TestMatch_NearestCandidateGetsVote(t *testing.T) {
	query := []models.Descriptor{
		{0.9, 0.1, 0, 0},
		{0, 0.2, 0.8, 0},
		{0, 0, 0.3, 0.7},
		{0.7, 0.3, 0, 0},
	}

	tally, err := Match(query, candidates, histogram.ChiSquare)
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{"cloud-sky": 2, "seal": 1, "butterfly": 1}, tally)
}

func TestMatch_VoteConservation(t *testing.T) {
	query := make([]models.Descriptor, 0, 37)
	for i := 0; i < 37; i++ {
		a := float64(i%5) / 4
		query = append(query, models.Descriptor{a, 1 - a, 0, 0})
	}

	for _, m := range []histogram.Metric{histogram.ChiSquare, histogram.Correlation, histogram.Intersection, histogram.Bhattacharyya} {
		tally, err := Match(query, candidates, m)
		require.NoError(t, err)
		assert.Equal(t, len(query), tally.Total(), "metric %s", m)
	}
}

func TestMatch_TieGoesToFirstSortedID(t *testing.T) {
	same := models.Descriptor{0.5, 0.5}
	cands := map[string]models.Descriptor{"zeta": same, "alpha": same, "mid": same}

	for i := 0; i < 20; i++ {
		tally, err := Match([]models.Descriptor{same, same}, cands, histogram.ChiSquare)
		require.NoError(t, err)
		assert.Equal(t, models.VoteTally{"alpha": 2}, tally)
	}
}

func TestMatch_EmptyIDCanWin(t *testing.T) {
	cands := map[string]models.Descriptor{"": {1, 0}, "b": {0, 1}}

	tally, err := Match([]models.Descriptor{{1, 0}}, cands, histogram.ChiSquare)
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{"": 1}, tally)

	tally, err = Match([]models.Descriptor{{0.5, 0.5}}, cands, histogram.ChiSquare)
	require.NoError(t, err)
	assert.Equal(t, models.VoteTally{"": 1}, tally)
}

func TestMatch_NoCandidates(t *testing.T) {
	tally, err := Match([]models.Descriptor{{1}}, map[string]models.Descriptor{}, histogram.ChiSquare)
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Nil(t, tally)

	_, err = Match([]models.Descriptor{{1}}, nil, histogram.ChiSquare)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestMatch_LengthMismatch(t *testing.T) {
	_, err := Match([]models.Descriptor{{1, 0, 0}}, candidates, histogram.ChiSquare)
	assert.Error(t, err)
}

func TestAverages(t *testing.T) {
	sigs := map[string]models.Signature{
		"a": {VideoID: "a", Average: models.Descriptor{1}},
		"b": {VideoID: "b"},
	}
	assert.Equal(t, map[string]models.Descriptor{"a": {1}}, Averages(sigs))
}

func TestWinner(t *testing.T) {
	id, acc := Winner(models.VoteTally{"b": 3, "a": 3, "c": 2})
	assert.Equal(t, "a", id)
	assert.InDelta(t, 3.0/8, acc, 1e-12)

	id, acc = Winner(models.VoteTally{})
	assert.Equal(t, "", id)
	assert.Zero(t, acc)
}
