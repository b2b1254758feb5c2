// Package intelligence provides the scoring side of the memory engine: the
// multi-factor Ranker, the temporal decay curves and keyword matching.
//
// Nothing in this package performs I/O.
package intelligence

import "time"

// MemorySummary is the slice of a memory the Ranker needs.
//
// This type is defined locally to avoid circular dependencies between the
// intelligence package and the core package.
type MemorySummary struct {
	// ID is the unique identifier of the memory.
	ID string `json:"id"`

	// MemoryType selects the type weight.
	MemoryType string `json:"memoryType"`

	// RecallPriority is the stored 0-100 priority.
	RecallPriority float64 `json:"recallPriority"`

	// Importance and Confidence are carried through for callers; they do not
	// enter the ranking score directly.
	Importance float64 `json:"importance,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// CreatedAt drives temporal decay.
	CreatedAt time.Time `json:"createdAt"`

	// AccessCount drives the access frequency score. Zero when unknown.
	AccessCount int `json:"accessCount,omitempty"`
}

// RankContext describes who is asking.
type RankContext struct {
	// Query is informational; the Ranker does not match on it.
	Query string `json:"query,omitempty"`

	// SourceAgent selects a type-weight preset (content-agent, email-agent,
	// orchestrator). Unknown agents use the default weights.
	SourceAgent string `json:"sourceAgent,omitempty"`

	// Now is the reference time for decay. Zero means the Ranker's clock.
	Now time.Time `json:"now"`
}

// RankRequest is the input of Ranker.Rank.
type RankRequest struct {
	Memories []MemorySummary `json:"memories"`
	Context  RankContext     `json:"context"`
}

// ScoreBreakdown explains a ranking score. The four components sum to the
// final score.
type ScoreBreakdown struct {
	RecallComponent   float64 `json:"recallComponent"`
	TemporalComponent float64 `json:"temporalComponent"`
	AccessComponent   float64 `json:"accessComponent"`
	TypeComponent     float64 `json:"typeComponent"`

	TemporalDecayScore   float64 `json:"temporalDecayScore"`
	AccessFrequencyScore float64 `json:"accessFrequencyScore"`
	TypeWeight           float64 `json:"typeWeight"`
}

// RankedMemory is a memory with its ranking score and position.
type RankedMemory struct {
	MemorySummary

	Score      float64        `json:"score"`
	Rank       int            `json:"rank"`
	Percentile int            `json:"percentile"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
}

// Ranking strategies reported in RankResponse.Strategy.
const (
	StrategyMultiFactor = "multi_factor_weighted"
	StrategyEmptyInput  = "empty_input"
)

// RankResponse is the output of Ranker.Rank.
type RankResponse struct {
	Ranked     []RankedMemory `json:"ranked"`
	TotalCount int            `json:"totalCount"`
	Strategy   string         `json:"strategy"`
	Context    RankContext    `json:"context"`
}

// Factor names a single breakdown component for SortByFactor.
type Factor string

const (
	FactorScore    Factor = "score"
	FactorRecall   Factor = "recall"
	FactorTemporal Factor = "temporal"
	FactorAccess   Factor = "access"
	FactorType     Factor = "type"
)

// Stats summarizes a ranked list.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`

	// Distribution counts scores in [0,20), [20,40), [40,60), [60,80), [80,100].
	Distribution [5]int `json:"distribution"`
}
