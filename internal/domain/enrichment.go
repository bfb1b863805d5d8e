package domain

import "sort"

// ScoreEnrichment holds the derived values computed for one raw score
// within a tournament batch.
type ScoreEnrichment struct {
	// ZValue is the score's standard score relative to the batch it was
	// computed in. It is 0 when the batch standard deviation is 0.
	ZValue float64

	// Placement is the 1-based dense rank of the score within the batch,
	// descending by score. Tied scores share a placement.
	Placement int

	// PercentileRank is the percentage of batch entries with a score
	// less than or equal to this one, using cumulative-frequency
	// semantics for ties. The top score always ranks 100.
	PercentileRank float64
}

// EnrichScores computes the z-value, dense-rank placement, and
// cumulative-frequency percentile rank for every score in a batch.
// The result is index-aligned with the input. It returns ErrEmptyScores
// on empty input.
//
// Placement is a dense ranking over unique scores: for [90, 90, 80] the
// placements are [1, 1, 2]. Percentile rank walks unique scores
// ascending and sums raw frequencies, so for [100, 100, 50] the ranks
// are [100, 100, 33.33...].
func EnrichScores(scores []float64) ([]ScoreEnrichment, error) {
	n := len(scores)
	if n == 0 {
		return nil, ErrEmptyScores
	}

	mean, err := Mean(scores)
	if err != nil {
		return nil, err
	}
	stddev := StandardDeviation(scores)

	frequency := make(map[float64]int, n)
	for _, s := range scores {
		frequency[s]++
	}

	uniqueAscending := make([]float64, 0, len(frequency))
	for s := range frequency {
		uniqueAscending = append(uniqueAscending, s)
	}
	sort.Float64s(uniqueAscending)

	// Placement 1 is the highest unique score; ties share the rank of
	// their position in the unique descending list.
	placementByScore := make(map[float64]int, len(uniqueAscending))
	for i, s := range uniqueAscending {
		placementByScore[s] = len(uniqueAscending) - i
	}

	// Cumulative count walking unique scores ascending, so each score's
	// percentile rank reflects the share of the field at or below it.
	cumulativeByScore := make(map[float64]int, len(uniqueAscending))
	cumulative := 0
	for _, s := range uniqueAscending {
		cumulative += frequency[s]
		cumulativeByScore[s] = cumulative
	}

	enriched := make([]ScoreEnrichment, n)
	for i, s := range scores {
		zValue := 0.0
		if stddev != 0 {
			zValue = (s - mean) / stddev
		}
		enriched[i] = ScoreEnrichment{
			ZValue:         zValue,
			Placement:      placementByScore[s],
			PercentileRank: float64(cumulativeByScore[s]) / float64(n) * 100,
		}
	}
	return enriched, nil
}
