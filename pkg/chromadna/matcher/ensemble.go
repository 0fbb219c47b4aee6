package matcher

import (
	"errors"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// ErrNoVotes is returned when the tallies handed to Aggregate contain no votes.
var ErrNoVotes = errors.New("no votes to aggregate")

// Weights scales each color model's votes in the ensemble. A nil map or a
// missing model counts as weight 1.
type Weights map[models.ColorModel]float64

func (w Weights) of(m models.ColorModel) float64 {
	if w == nil {
		return 1
	}
	if v, ok := w[m]; ok {
		return v
	}
	return 1
}

// Aggregate sums the tallies of independent color models into one decision.
//
// Candidates are visited tally by tally in the given order and, within a tally,
// in sorted id order. The winner is the first candidate in that visiting order
// that holds the highest combined score. Accuracy is the winner's share of all
// weighted votes.
func Aggregate(tallies []models.ModelTally, weights Weights) (models.EnsembleResult, error) {
	combined := make(map[string]float64)
	var order []string
	var total float64

	for _, mt := range tallies {
		w := weights.of(mt.Model)
		for _, id := range sortedIDs(mt.Tally) {
			if _, seen := combined[id]; !seen {
				order = append(order, id)
			}
			v := w * float64(mt.Tally[id])
			combined[id] += v
			total += v
		}
	}

	if total <= 0 {
		return models.EnsembleResult{}, ErrNoVotes
	}

	best := order[0]
	for _, id := range order[1:] {
		if combined[id] > combined[best] {
			best = id
		}
	}

	return models.EnsembleResult{
		VideoID:    best,
		Votes:      combined[best],
		TotalVotes: total,
		Accuracy:   combined[best] / total,
		Combined:   combined,
	}, nil
}
