package histogram

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// ErrUnknownMetric is returned for a metric name that is not supported.
var ErrUnknownMetric = errors.New("unknown distance metric")

// Metric names a histogram comparison. Every metric is expressed as a distance:
// 0 for identical histograms, larger for less similar ones.
type Metric string

const (
	ChiSquare     Metric = "chi-square"
	Correlation   Metric = "correlation"
	Intersection  Metric = "intersection"
	Bhattacharyya Metric = "bhattacharyya"

	DefaultMetric = ChiSquare
)

// ParseMetric accepts the metric names used in flags and config files.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chi-square", "chisquare", "chisqr", "chi2":
		return ChiSquare, nil
	case "correlation", "correl":
		return Correlation, nil
	case "intersection", "intersect":
		return Intersection, nil
	case "bhattacharyya", "hellinger":
		return Bhattacharyya, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Distance compares two descriptors of equal length under m.
func Distance(m Metric, a, b models.Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("descriptor length mismatch: %d vs %d", len(a), len(b))
	}

	switch m {
	case ChiSquare, "":
		return chiSquare(a, b), nil
	case Correlation:
		return 1 - correlation(a, b), nil
	case Intersection:
		return 1 - intersection(a, b), nil
	case Bhattacharyya:
		return bhattacharyya(a, b), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
}

// chiSquare is the symmetric chi-square distance. Bins empty in both histograms are skipped.
func chiSquare(a, b models.Descriptor) float64 {
	var d float64
	for i := range a {
		s := a[i] + b[i]
		if s <= 0 {
			continue
		}
		diff := a[i] - b[i]
		d += diff * diff / s
	}
	return d
}

// correlation is the Pearson correlation of the two histograms, in [-1, 1].
func correlation(a, b models.Descriptor) float64 {
	n := float64(len(a))
	if n == 0 {
		return 1
	}
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var num, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		varA += da * da
		varB += db * db
	}

	den := math.Sqrt(varA * varB)
	if den == 0 {
		// flat histograms carry no shape; equal means identical
		if varA == varB && meanA == meanB {
			return 1
		}
		return 0
	}
	return num / den
}

func intersection(a, b models.Descriptor) float64 {
	var s float64
	for i := range a {
		s += math.Min(a[i], b[i])
	}
	return s
}

// bhattacharyya assumes both inputs are normalized to sum to 1.
func bhattacharyya(a, b models.Descriptor) float64 {
	var bc float64
	for i := range a {
		bc += math.Sqrt(a[i] * b[i])
	}
	if bc >= 1 {
		return 0
	}
	return math.Sqrt(1 - bc)
}
