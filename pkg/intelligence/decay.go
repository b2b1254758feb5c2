package intelligence

import (
	"math"
	"time"
)

// HalfLifeDays is the half-life of both decay curves.
const HalfLifeDays = 30.0

// Decay floors. The two curves intentionally keep different floors.
const (
	RetrieverDecayFloor = 10.0
	RankerDecayFloor    = 5.0
)

// AgeDays returns the age of a memory in days at now. Memories from the
// future have age zero.
func AgeDays(createdAt, now time.Time) float64 {
	days := now.Sub(createdAt).Hours() / 24.0
	if days < 0 {
		return 0
	}
	return days
}

// halfLife returns 2^(-ageDays/HalfLifeDays), in (0, 1].
func halfLife(ageDays float64) float64 {
	return math.Pow(2, -ageDays/HalfLifeDays)
}

// RetrieverDecay is the temporal score used by the Retriever's first-pass
// relevance:
//
//	100 * max(0.1, 2^(-ageDays/30))
//
// Returns a value in [10, 100].
func RetrieverDecay(createdAt, now time.Time) float64 {
	return 100 * math.Max(RetrieverDecayFloor/100, halfLife(AgeDays(createdAt, now)))
}

// RankerDecay is the temporal score used by the Ranker:
//
//	max(5, 100 * 2^(-ageDays/30))
//
// Returns a value in [5, 100].
func RankerDecay(createdAt, now time.Time) float64 {
	return math.Max(RankerDecayFloor, 100*halfLife(AgeDays(createdAt, now)))
}

// AccessFrequencyScore maps an access count to 0-100 on a log scale:
//
//	min(100, 33.3 * log10(accessCount + 1))
func AccessFrequencyScore(accessCount int) float64 {
	if accessCount <= 0 {
		return 0
	}
	return math.Min(100, 33.3*math.Log10(float64(accessCount)+1))
}
