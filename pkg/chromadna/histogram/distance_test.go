package histogram

import (
	"image/color"
	"testing"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allMetrics = []Metric{ChiSquare, Correlation, Intersection, Bhattacharyya}

func TestDistance_IdenticalIsZero(t *testing.T) {
	desc, err := Extract(gradientFrame(12, 12), models.RGB, 8)
	require.NoError(t, err)

	for _, m := range allMetrics {
		d, err := Distance(m, desc, desc)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, d, 1e-9, "metric %s", m)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a, err := Extract(gradientFrame(12, 12), models.HSV, 8)
	require.NoError(t, err)
	b, err := Extract(solidFrame(4, 4, color.RGBA{R: 30, G: 90, B: 200, A: 255}), models.HSV, 8)
	require.NoError(t, err)

	for _, m := range allMetrics {
		ab, err := Distance(m, a, b)
		require.NoError(t, err)
		ba, err := Distance(m, b, a)
		require.NoError(t, err)
		assert.InDelta(t, ab, ba, 1e-12, "metric %s", m)
		assert.Greater(t, ab, 0.0, "metric %s", m)
	}
}

func TestDistance_DisjointHistograms(t *testing.T) {
	a := models.Descriptor{1, 0, 0, 0}
	b := models.Descriptor{0, 0, 0, 1}

	chi, err := Distance(ChiSquare, a, b)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, chi, 1e-12)

	inter, err := Distance(Intersection, a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, inter, 1e-12)

	bh, err := Distance(Bhattacharyya, a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, bh, 1e-12)
}

func TestDistance_CloserIsSmaller(t *testing.T) {
	query := models.Descriptor{0.7, 0.3, 0, 0}
	near := models.Descriptor{0.6, 0.4, 0, 0}
	far := models.Descriptor{0, 0.2, 0.3, 0.5}

	for _, m := range allMetrics {
		dn, err := Distance(m, query, near)
		require.NoError(t, err)
		df, err := Distance(m, query, far)
		require.NoError(t, err)
		assert.Less(t, dn, df, "metric %s", m)
	}
}

func TestDistance_Errors(t *testing.T) {
	_, err := Distance(ChiSquare, models.Descriptor{1}, models.Descriptor{0.5, 0.5})
	assert.Error(t, err)

	_, err = Distance(Metric("emd"), models.Descriptor{1}, models.Descriptor{1})
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestParseMetric(t *testing.T) {
	tests := map[string]Metric{
		"":              ChiSquare,
		"chi2":          ChiSquare,
		"Correlation":   Correlation,
		"intersect":     Intersection,
		"bhattacharyya": Bhattacharyya,
	}
	for in, want := range tests {
		got, err := ParseMetric(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMetric("cosine")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}
