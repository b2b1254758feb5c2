package intelligence

import (
	"math"
	"sort"
	"time"
)

// Component weights of the ranking score. They sum to 100.
const (
	recallWeight   = 50.0
	temporalWeight = 20.0
	accessWeight   = 15.0
	typeWeight     = 15.0
)

// Ranker is a stateless multi-factor scorer.
//
// The score of a memory is
//
//	recallPriority/100*50 + RankerDecay/100*20 + AccessFrequencyScore/100*15 + typeWeight/100*15
//
// Ranker is safe for concurrent use once its TypeWeights are no longer modified.
type Ranker struct {
	weights *TypeWeights
	clock   func() time.Time
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithTypeWeights replaces the type-weight table.
func WithTypeWeights(weights *TypeWeights) RankerOption {
	return func(r *Ranker) {
		r.weights = weights
	}
}

// WithClock sets the clock used when a request carries no reference time.
func WithClock(clock func() time.Time) RankerOption {
	return func(r *Ranker) {
		r.clock = clock
	}
}

// NewRanker creates a Ranker with the built-in type weights.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{
		weights: NewTypeWeights(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TypeWeights returns the weight table in use.
func (r *Ranker) TypeWeights() *TypeWeights {
	return r.weights
}

// Rank scores and sorts the memories, highest score first.
//
// Ranks are 1-based and percentiles are round(((n-i-1)/n)*100) for the
// memory at index i. Equal scores keep their input order. With a fixed
// Context.Now the result depends only on the request.
func (r *Ranker) Rank(req *RankRequest) *RankResponse {
	rankCtx := req.Context
	if rankCtx.Now.IsZero() {
		rankCtx.Now = r.clock()
	}

	if len(req.Memories) == 0 {
		return &RankResponse{
			Ranked:   []RankedMemory{},
			Strategy: StrategyEmptyInput,
			Context:  rankCtx,
		}
	}

	ranked := make([]RankedMemory, len(req.Memories))
	for i, m := range req.Memories {
		breakdown := r.breakdown(m, rankCtx)
		ranked[i] = RankedMemory{
			MemorySummary: m,
			Score:         breakdown.RecallComponent + breakdown.TemporalComponent + breakdown.AccessComponent + breakdown.TypeComponent,
			Breakdown:     breakdown,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	n := len(ranked)
	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].Percentile = int(math.Round(float64(n-i-1) / float64(n) * 100))
	}

	return &RankResponse{
		Ranked:     ranked,
		TotalCount: n,
		Strategy:   StrategyMultiFactor,
		Context:    rankCtx,
	}
}

func (r *Ranker) breakdown(m MemorySummary, rankCtx RankContext) ScoreBreakdown {
	decay := RankerDecay(m.CreatedAt, rankCtx.Now)
	access := AccessFrequencyScore(m.AccessCount)
	weight := r.weights.Weight(m.MemoryType, rankCtx.SourceAgent)

	return ScoreBreakdown{
		RecallComponent:      clampScore(m.RecallPriority) / 100 * recallWeight,
		TemporalComponent:    decay / 100 * temporalWeight,
		AccessComponent:      access / 100 * accessWeight,
		TypeComponent:        weight / 100 * typeWeight,
		TemporalDecayScore:   decay,
		AccessFrequencyScore: access,
		TypeWeight:           weight,
	}
}

// SortByFactor returns a copy of ranked sorted by one component, highest
// first. Rank and Percentile keep the values from the original ranking.
// Unknown factors sort by final score.
func SortByFactor(ranked []RankedMemory, factor Factor) []RankedMemory {
	sorted := make([]RankedMemory, len(ranked))
	copy(sorted, ranked)

	value := factorValue(factor)
	sort.SliceStable(sorted, func(i, j int) bool {
		return value(sorted[i]) > value(sorted[j])
	})
	return sorted
}

func factorValue(factor Factor) func(RankedMemory) float64 {
	switch factor {
	case FactorRecall:
		return func(m RankedMemory) float64 { return m.Breakdown.RecallComponent }
	case FactorTemporal:
		return func(m RankedMemory) float64 { return m.Breakdown.TemporalComponent }
	case FactorAccess:
		return func(m RankedMemory) float64 { return m.Breakdown.AccessComponent }
	case FactorType:
		return func(m RankedMemory) float64 { return m.Breakdown.TypeComponent }
	default:
		return func(m RankedMemory) float64 { return m.Score }
	}
}

// FilterByThreshold keeps the memories scoring at least minScore, in order.
func FilterByThreshold(ranked []RankedMemory, minScore float64) []RankedMemory {
	filtered := make([]RankedMemory, 0, len(ranked))
	for _, m := range ranked {
		if m.Score >= minScore {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// GetStats summarizes the scores of a ranked list. An empty list yields zero
// stats.
func GetStats(ranked []RankedMemory) Stats {
	var stats Stats
	if len(ranked) == 0 {
		return stats
	}

	scores := make([]float64, len(ranked))
	sum := 0.0
	for i, m := range ranked {
		scores[i] = m.Score
		sum += m.Score

		bucket := int(m.Score / 20)
		if bucket < 0 {
			bucket = 0
		}
		if bucket > 4 {
			bucket = 4
		}
		stats.Distribution[bucket]++
	}
	sort.Float64s(scores)

	n := len(scores)
	stats.Count = n
	stats.Mean = sum / float64(n)
	stats.Min = scores[0]
	stats.Max = scores[n-1]
	if n%2 == 1 {
		stats.Median = scores[n/2]
	} else {
		stats.Median = (scores[n/2-1] + scores[n/2]) / 2
	}

	return stats
}
