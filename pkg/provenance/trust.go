package provenance

import (
	"math"
	"time"
)

// TrustWeights balances the three trust signals of a mined pair.
type TrustWeights struct {
	Frequency float64
	Authority float64
	Recency   float64
}

// DefaultTrustWeights favors who ran the query over how often.
func DefaultTrustWeights() TrustWeights {
	return TrustWeights{Frequency: 0.3, Authority: 0.5, Recency: 0.2}
}

// TrustScorer combines frequency, user authority and recency into a
// single [0,1] trust score.
type TrustScorer struct {
	weights TrustWeights
}

// NewTrustScorer creates a scorer; zero weights fall back to defaults.
func NewTrustScorer(weights TrustWeights) *TrustScorer {
	if weights == (TrustWeights{}) {
		weights = DefaultTrustWeights()
	}
	return &TrustScorer{weights: weights}
}

// Score computes the weighted trust score, rounded to 4 decimals.
// Recency decays with a 30-day half-life style curve: 1/(1+days/30).
func (s *TrustScorer) Score(frequency, maxFrequency int, authority, recencyDays float64) float64 {
	if maxFrequency < 1 {
		maxFrequency = 1
	}
	freqScore := math.Min(float64(frequency)/float64(maxFrequency), 1.0)
	authorityScore := math.Min(math.Max(authority, 0.0), 1.0)
	recencyScore := 1.0 / (1.0 + recencyDays/30.0)

	total := freqScore*s.weights.Frequency +
		authorityScore*s.weights.Authority +
		recencyScore*s.weights.Recency
	return math.Round(total*10000) / 10000
}

// RecencyDays returns the age of an execution in whole days, never
// negative.
func (s *TrustScorer) RecencyDays(executedAt time.Time, now time.Time) float64 {
	days := now.Sub(executedAt).Hours() / 24
	return math.Max(math.Floor(days), 0)
}
