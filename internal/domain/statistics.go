// Package domain contains pure, dependency-free domain models and
// computation for the grading and tournament engine.
package domain

import (
	"math"
	"sort"
)

// Mean returns the arithmetic average of the given scores.
// It returns ErrEmptyScores when the input is empty; the mean of an
// empty sequence is undefined.
func Mean(scores []float64) (float64, error) {
	if len(scores) == 0 {
		return 0, ErrEmptyScores
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), nil
}

// HarmonicMean returns the harmonic mean of the given scores.
// The harmonic mean is undefined when the input is empty or when any
// score equals zero; the second return value reports whether the result
// is defined. Zero-rate scores therefore never produce an infinite or
// undefined value.
func HarmonicMean(scores []float64) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	var reciprocalSum float64
	for _, s := range scores {
		if s == 0 {
			return 0, false
		}
		reciprocalSum += 1 / s
	}
	return float64(len(scores)) / reciprocalSum, true
}

// Mode returns the value(s) with the maximum frequency in the given
// scores, in ascending order. A multi-modal input yields multiple
// values; an empty input yields an empty slice.
func Mode(scores []float64) []float64 {
	if len(scores) == 0 {
		return []float64{}
	}

	frequency := make(map[float64]int, len(scores))
	maxCount := 0
	for _, s := range scores {
		frequency[s]++
		if frequency[s] > maxCount {
			maxCount = frequency[s]
		}
	}

	modes := make([]float64, 0, 1)
	for value, count := range frequency {
		if count == maxCount {
			modes = append(modes, value)
		}
	}
	sort.Float64s(modes)
	return modes
}

// Variance returns the Bessel-corrected sample variance
// Σ(x-mean)² / (n-1). It returns 0 when n ≤ 1, where the corrected
// variance is undefined.
func Variance(scores []float64) float64 {
	n := len(scores)
	if n <= 1 {
		return 0
	}
	mean, _ := Mean(scores)
	var sumSquares float64
	for _, s := range scores {
		d := s - mean
		sumSquares += d * d
	}
	return sumSquares / float64(n-1)
}

// StandardDeviation returns the square root of the sample variance.
func StandardDeviation(scores []float64) float64 {
	return math.Sqrt(Variance(scores))
}

// Skewness returns the adjusted Fisher-Pearson standardized third
// moment of the given scores. It requires n > 2 and a nonzero standard
// deviation; the second return value reports whether the result is
// defined.
func Skewness(scores []float64) (float64, bool) {
	n := len(scores)
	if n <= 2 {
		return 0, false
	}
	stddev := StandardDeviation(scores)
	if stddev == 0 {
		return 0, false
	}
	mean, _ := Mean(scores)

	var cubedSum float64
	for _, s := range scores {
		z := (s - mean) / stddev
		cubedSum += z * z * z
	}

	nf := float64(n)
	return nf / ((nf - 1) * (nf - 2)) * cubedSum, true
}

// Kurtosis returns the excess kurtosis of the given scores using the
// standard sample-corrected fourth-moment formula. It requires n > 3
// and a nonzero standard deviation; the second return value reports
// whether the result is defined.
func Kurtosis(scores []float64) (float64, bool) {
	n := len(scores)
	if n <= 3 {
		return 0, false
	}
	stddev := StandardDeviation(scores)
	if stddev == 0 {
		return 0, false
	}
	mean, _ := Mean(scores)

	var fourthSum float64
	for _, s := range scores {
		z := (s - mean) / stddev
		fourthSum += z * z * z * z
	}

	nf := float64(n)
	correction := nf * (nf + 1) / ((nf - 1) * (nf - 2) * (nf - 3))
	bias := 3 * (nf - 1) * (nf - 1) / ((nf - 2) * (nf - 3))
	return correction*fourthSum - bias, true
}

// Percentile returns the p-th percentile of sortedScores using linear
// interpolation between closest ranks. The caller must sort the input
// ascending with numeric comparison. p is a fraction in [0, 1]; the
// rank is p*(n-1), and non-integral ranks interpolate linearly between
// the neighboring elements. It returns ErrEmptyScores on empty input.
func Percentile(sortedScores []float64, p float64) (float64, error) {
	n := len(sortedScores)
	if n == 0 {
		return 0, ErrEmptyScores
	}
	if p <= 0 {
		return sortedScores[0], nil
	}
	if p >= 1 {
		return sortedScores[n-1], nil
	}

	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	fraction := rank - float64(lower)
	if fraction == 0 {
		return sortedScores[lower], nil
	}
	return sortedScores[lower] + fraction*(sortedScores[lower+1]-sortedScores[lower]), nil
}

// InterquartileRange returns p75 - p25 of the ascending-sorted scores.
// It returns ErrEmptyScores on empty input.
func InterquartileRange(sortedScores []float64) (float64, error) {
	p25, err := Percentile(sortedScores, 0.25)
	if err != nil {
		return 0, err
	}
	p75, err := Percentile(sortedScores, 0.75)
	if err != nil {
		return 0, err
	}
	return p75 - p25, nil
}

// TukeyBounds returns the standard outlier fences
// [p25 - 1.5*IQR, p75 + 1.5*IQR] over the ascending-sorted scores.
// It returns ErrEmptyScores on empty input.
func TukeyBounds(sortedScores []float64) (lower, upper float64, err error) {
	p25, err := Percentile(sortedScores, 0.25)
	if err != nil {
		return 0, 0, err
	}
	p75, err := Percentile(sortedScores, 0.75)
	if err != nil {
		return 0, 0, err
	}
	iqr := p75 - p25
	return p25 - 1.5*iqr, p75 + 1.5*iqr, nil
}

// Outliers returns the scores falling outside the Tukey fences,
// preserving the ascending order of the input. An empty input yields
// an empty slice.
func Outliers(sortedScores []float64) []float64 {
	outliers := make([]float64, 0)
	if len(sortedScores) == 0 {
		return outliers
	}
	lower, upper, err := TukeyBounds(sortedScores)
	if err != nil {
		return outliers
	}
	for _, s := range sortedScores {
		if s < lower || s > upper {
			outliers = append(outliers, s)
		}
	}
	return outliers
}
