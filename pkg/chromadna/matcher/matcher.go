// Package matcher votes query frames against indexed signatures and merges the
// votes of several color models into one decision.
package matcher

import (
	"errors"
	"fmt"
	"sort"

	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/histogram"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
)

// ErrNoCandidates is returned when there is nothing to match against.
var ErrNoCandidates = errors.New("no candidate signatures")

// Match gives every query frame one vote for its nearest candidate.
//
// Candidates are visited in sorted id order and only a strictly smaller
// distance replaces the current best, so ties go to the lexicographically first
// id. The tally always sums to len(query).
func Match(query []models.Descriptor, candidates map[string]models.Descriptor, metric histogram.Metric) (models.VoteTally, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ids := sortedIDs(candidates)
	tally := make(models.VoteTally, len(ids))

	for fi, frame := range query {
		best := -1
		bestDist := 0.0
		for i, id := range ids {
			d, err := histogram.Distance(metric, frame, candidates[id])
			if err != nil {
				return nil, fmt.Errorf("query frame %d vs %s: %w", fi, id, err)
			}
			if best < 0 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		tally[ids[best]]++
	}
	return tally, nil
}

// Averages extracts the averaged descriptors of stored signatures, keyed by video id.
func Averages(sigs map[string]models.Signature) map[string]models.Descriptor {
	out := make(map[string]models.Descriptor, len(sigs))
	for id, s := range sigs {
		if len(s.Average) > 0 {
			out[id] = s.Average
		}
	}
	return out
}

// Winner returns the id with the most votes in t (ties to the first id in
// sorted order) and that id's share of all votes.
func Winner(t models.VoteTally) (string, float64) {
	total := t.Total()
	if total == 0 {
		return "", 0
	}
	best, bestCount := "", -1
	for _, id := range sortedIDs(t) {
		if t[id] > bestCount {
			best, bestCount = id, t[id]
		}
	}
	return best, float64(bestCount) / float64(total)
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
